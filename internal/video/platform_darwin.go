//go:build darwin

package video

import (
	"os/exec"
	"regexp"
	"strconv"

	"github.com/loopcorder/loopcorder/internal/types"
)

// AVFoundation lists screens among its video devices:
//
//	[AVFoundation indev @ 0x...] [3] Capture screen 0
var avfScreenPattern = regexp.MustCompile(`\[AVFoundation[^\]]*\]\s*\[(\d+)\]\s*Capture screen (\d+)`)

func listMonitors() []grabMonitor {
	// The device list goes to stderr and ffmpeg exits non-zero; only
	// the output matters here.
	cmd := exec.Command("ffmpeg", "-hide_banner",
		"-f", "avfoundation", "-list_devices", "true", "-i", "")
	out, _ := cmd.CombinedOutput()

	var monitors []grabMonitor
	for _, matches := range avfScreenPattern.FindAllStringSubmatch(string(out), -1) {
		device, _ := strconv.Atoi(matches[1])
		screen, _ := strconv.Atoi(matches[2])
		monitors = append(monitors, grabMonitor{
			Monitor: types.Monitor{Index: screen},
			// AVFoundation device index, not the screen ordinal.
			x: device,
		})
	}
	if len(monitors) == 0 {
		monitors = []grabMonitor{{Monitor: types.Monitor{Index: 0}, x: 1}}
	}
	return monitors
}

func grabArgs(m grabMonitor, fps int) []string {
	return []string{
		"-hide_banner",
		"-f", "avfoundation",
		"-framerate", strconv.Itoa(fps),
		"-capture_cursor", "1",
		"-i", strconv.Itoa(m.x) + ":none",
	}
}
