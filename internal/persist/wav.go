// Package persist turns captured PCM into files on disk: a staging WAV
// written directly, an MP3 encode through FFmpeg, and an optional S3
// upload of the finished recording.
package persist

import (
	"bufio"
	"encoding/binary"
	"os"

	"github.com/loopcorder/loopcorder/internal/util"
)

// wavHeaderSize is the canonical PCM WAV header length.
const wavHeaderSize = 44

// WriteWAV writes interleaved 16-bit PCM samples as a WAV file.
func WriteWAV(path string, samples []int16, sampleRate, channels int) error {
	f, err := os.Create(path)
	if err != nil {
		return util.WrapError("create WAV file", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)

	dataSize := len(samples) * 2
	byteRate := sampleRate * channels * 2
	blockAlign := channels * 2

	header := make([]byte, wavHeaderSize)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(wavHeaderSize-8+dataSize))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16) // PCM fmt chunk size
	binary.LittleEndian.PutUint16(header[20:22], 1)  // PCM format
	binary.LittleEndian.PutUint16(header[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], 16) // bits per sample
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(dataSize))

	if _, err := w.Write(header); err != nil {
		return util.WrapError("write WAV header", err)
	}

	sample := make([]byte, 2)
	for _, s := range samples {
		binary.LittleEndian.PutUint16(sample, uint16(s))
		if _, err := w.Write(sample); err != nil {
			return util.WrapError("write WAV data", err)
		}
	}

	if err := w.Flush(); err != nil {
		return util.WrapError("flush WAV file", err)
	}
	return f.Sync()
}
