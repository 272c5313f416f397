package persist

import (
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/loopcorder/loopcorder/internal/types"
)

func TestWriteWAVHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	samples := []int16{0, 1000, -1000, 32767}

	if err := WriteWAV(path, samples, 22050, 2); err != nil {
		t.Fatalf("WriteWAV() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(data) != wavHeaderSize+len(samples)*2 {
		t.Fatalf("file size = %d, want %d", len(data), wavHeaderSize+len(samples)*2)
	}

	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Error("missing RIFF/WAVE markers")
	}
	if got := binary.LittleEndian.Uint32(data[4:8]); got != uint32(36+len(samples)*2) {
		t.Errorf("RIFF size = %d, want %d", got, 36+len(samples)*2)
	}
	if got := binary.LittleEndian.Uint16(data[20:22]); got != 1 {
		t.Errorf("format tag = %d, want 1 (PCM)", got)
	}
	if got := binary.LittleEndian.Uint16(data[22:24]); got != 2 {
		t.Errorf("channels = %d, want 2", got)
	}
	if got := binary.LittleEndian.Uint32(data[24:28]); got != 22050 {
		t.Errorf("sample rate = %d, want 22050", got)
	}
	if got := binary.LittleEndian.Uint32(data[28:32]); got != 22050*2*2 {
		t.Errorf("byte rate = %d, want %d", got, 22050*2*2)
	}
	if got := binary.LittleEndian.Uint32(data[40:44]); got != uint32(len(samples)*2) {
		t.Errorf("data size = %d, want %d", got, len(samples)*2)
	}

	// Samples are little-endian two's complement.
	if got := int16(binary.LittleEndian.Uint16(data[46:48])); got != 1000 {
		t.Errorf("sample 1 = %d, want 1000", got)
	}
	if got := int16(binary.LittleEndian.Uint16(data[48:50])); got != -1000 {
		t.Errorf("sample 2 = %d, want -1000", got)
	}
}

func TestSaveNoAudio(t *testing.T) {
	dir := t.TempDir()
	s := NewSaver("", dir)

	result, err := s.Save(context.Background(), nil)
	if !errors.Is(err, types.ErrNoAudio) {
		t.Errorf("Save(nil) error = %v, want ErrNoAudio", err)
	}
	if result != nil {
		t.Errorf("Save(nil) result = %+v, want nil", result)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("empty session wrote %d files", len(entries))
	}
}

func TestSaveWithoutEncoder(t *testing.T) {
	dir := t.TempDir()
	s := NewSaver("", dir)

	chunks := [][]int16{make([]int16, types.ChunkFrames*types.Channels)}
	result, err := s.Save(context.Background(), chunks)
	if !errors.Is(err, types.ErrEncoderUnavailable) {
		t.Fatalf("Save() error = %v, want ErrEncoderUnavailable", err)
	}
	if result == nil {
		t.Fatal("Save() result = nil, want kept WAV")
	}
	if result.Format != "wav" {
		t.Errorf("Format = %q, want wav without an encoder", result.Format)
	}
	if !strings.HasPrefix(filepath.Base(result.Path), "recording_") {
		t.Errorf("output name = %q, want recording_ prefix", filepath.Base(result.Path))
	}
	if !strings.HasSuffix(result.Path, ".wav") {
		t.Errorf("output name = %q, want .wav suffix", result.Path)
	}
	if _, statErr := os.Stat(result.Path); statErr != nil {
		t.Errorf("output file missing: %v", statErr)
	}

	wantDuration := float64(types.ChunkFrames) / float64(types.SampleRate)
	if result.Duration != wantDuration {
		t.Errorf("Duration = %v, want %v", result.Duration, wantDuration)
	}
	if result.FileSize != int64(wavHeaderSize+types.ChunkFrames*types.Channels*2) {
		t.Errorf("FileSize = %d, want %d", result.FileSize,
			wavHeaderSize+types.ChunkFrames*types.Channels*2)
	}
}

func TestSaveEncodeFailureKeepsWAV(t *testing.T) {
	dir := t.TempDir()
	// A path that cannot execute forces the encode to fail after the
	// WAV has been staged.
	s := NewSaver(filepath.Join(dir, "no-such-ffmpeg"), dir)

	chunks := [][]int16{{1, 2, 3, 4}}
	result, err := s.Save(context.Background(), chunks)
	if err == nil {
		t.Fatal("Save() error = nil, want encode failure")
	}
	if result == nil {
		t.Fatal("Save() result = nil, want WAV fallback")
	}
	if result.Format != "wav" {
		t.Errorf("Format = %q, want wav fallback", result.Format)
	}
	if _, statErr := os.Stat(result.Path); statErr != nil {
		t.Errorf("fallback WAV missing: %v", statErr)
	}
}

func TestS3ConfigIsConfigured(t *testing.T) {
	tests := []struct {
		name string
		cfg  S3Config
		want bool
	}{
		{"empty", S3Config{}, false},
		{"missing secret", S3Config{Bucket: "b", AccessKeyID: "k"}, false},
		{"complete", S3Config{Bucket: "b", AccessKeyID: "k", SecretAccessKey: "s"}, true},
		{"endpoint optional", S3Config{Bucket: "b", AccessKeyID: "k", SecretAccessKey: "s", Endpoint: "https://minio.local"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.IsConfigured(); got != tt.want {
				t.Errorf("IsConfigured() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSaverOutputDirSwap(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	s := NewSaver("", first)

	s.SetOutputDir(second)
	if got := s.OutputDir(); got != second {
		t.Fatalf("OutputDir() = %q, want %q", got, second)
	}

	chunks := [][]int16{make([]int16, types.ChunkFrames*types.Channels)}
	result, err := s.Save(context.Background(), chunks)
	if !errors.Is(err, types.ErrEncoderUnavailable) {
		t.Fatalf("Save() error = %v, want ErrEncoderUnavailable", err)
	}
	if filepath.Dir(result.Path) != second {
		t.Errorf("recording written to %q, want directory %q", result.Path, second)
	}

	entries, _ := os.ReadDir(first)
	if len(entries) != 0 {
		t.Errorf("old directory received %d files after swap", len(entries))
	}
}
