package audio

import (
	"log/slog"
	"strings"

	"github.com/gordonklaus/portaudio"

	"github.com/loopcorder/loopcorder/internal/types"
)

// loopbackMarkers are name fragments used by virtual loopback drivers
// across platforms (BlackHole on macOS, PulseAudio monitors on Linux,
// Stereo Mix and VB-Cable on Windows).
var loopbackMarkers = []string{
	"blackhole",
	"loopback",
	"monitor of",
	"stereo mix",
	"virtual cable",
	"vb-audio",
}

// Devices enumerates the available audio input devices. The device
// list is queried fresh on every call so newly attached hardware shows
// up without a restart. PortAudio must be initialized first.
func Devices() []types.Device {
	infos, err := portaudio.Devices()
	if err != nil {
		slog.Error("Failed to enumerate audio devices", "error", err)
		return nil
	}

	var devices []types.Device
	for i, info := range infos {
		if info.MaxInputChannels <= 0 {
			continue
		}
		devices = append(devices, types.Device{
			Index:            i,
			Name:             info.Name,
			MaxInputChannels: info.MaxInputChannels,
			SampleRate:       int(info.DefaultSampleRate),
			Loopback:         IsLoopbackName(info.Name),
		})
	}
	return devices
}

// IsLoopbackName reports whether a device name looks like a loopback
// endpoint carrying system audio.
func IsLoopbackName(name string) bool {
	lower := strings.ToLower(name)
	for _, marker := range loopbackMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// FindLoopbackDevice returns the first input device whose name marks
// it as a loopback endpoint.
func FindLoopbackDevice() (types.Device, bool) {
	for _, d := range Devices() {
		if d.Loopback {
			return d, true
		}
	}
	return types.Device{}, false
}

// DeviceInfo resolves a device index to its PortAudio descriptor for
// opening a stream.
func DeviceInfo(index int) (*portaudio.DeviceInfo, error) {
	infos, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(infos) {
		return nil, types.ErrDeviceOpen
	}
	return infos[index], nil
}
