// Package capture runs the recording session: it owns the device
// streams, the capture loop and the session state machine, and feeds
// each captured chunk through the mixer and silence trackers.
package capture

// Stream is one open audio input stream delivering interleaved 16-bit
// PCM chunks. Implementations wrap PortAudio in production; tests
// substitute fakes.
type Stream interface {
	// Start begins capturing.
	Start() error
	// Read blocks until one chunk is available and returns a copy of
	// it. A device overflow is not an error; the partially stale chunk
	// is returned instead.
	Read() ([]int16, error)
	// Stop halts capturing without releasing the device.
	Stop() error
	// Close releases the device.
	Close() error
}

// StreamOpener opens a capture stream on a device. Injected into the
// session so tests can run without audio hardware.
type StreamOpener func(deviceIndex, channels, sampleRate, framesPerChunk int) (Stream, error)

// DeviceSpec selects a device and the channel count to open it with.
type DeviceSpec struct {
	Index    int
	Channels int
}
