package capture

import (
	"errors"

	"github.com/gordonklaus/portaudio"

	"github.com/loopcorder/loopcorder/internal/audio"
	"github.com/loopcorder/loopcorder/internal/util"
)

// portaudioStream adapts a PortAudio input stream to the Stream
// interface. The read buffer is reused across calls; Read hands out
// copies.
type portaudioStream struct {
	stream *portaudio.Stream
	buffer []int16
}

// OpenPortAudioStream opens an input-only stream on the given device.
// PortAudio must already be initialized.
func OpenPortAudioStream(deviceIndex, channels, sampleRate, framesPerChunk int) (Stream, error) {
	info, err := audio.DeviceInfo(deviceIndex)
	if err != nil {
		return nil, util.WrapError("resolve audio device", err)
	}

	params := portaudio.LowLatencyParameters(info, nil)
	params.Input.Channels = channels
	params.Output.Device = nil
	params.Output.Channels = 0
	params.SampleRate = float64(sampleRate)
	params.FramesPerBuffer = framesPerChunk

	buffer := make([]int16, framesPerChunk*channels)
	stream, err := portaudio.OpenStream(params, buffer)
	if err != nil {
		return nil, util.WrapError("open capture stream", err)
	}

	return &portaudioStream{stream: stream, buffer: buffer}, nil
}

func (s *portaudioStream) Start() error {
	return s.stream.Start()
}

func (s *portaudioStream) Read() ([]int16, error) {
	if err := s.stream.Read(); err != nil {
		// An input overflow means the device produced audio faster
		// than we consumed it, which is routine right after a pause.
		// The buffer still holds the latest chunk.
		if !errors.Is(err, portaudio.InputOverflowed) {
			return nil, util.WrapError("read audio chunk", err)
		}
	}
	chunk := make([]int16, len(s.buffer))
	copy(chunk, s.buffer)
	return chunk, nil
}

func (s *portaudioStream) Stop() error {
	return s.stream.Stop()
}

func (s *portaudioStream) Close() error {
	return s.stream.Close()
}
