//go:build linux

package video

import (
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/loopcorder/loopcorder/internal/types"
)

// xrandr monitor lines look like:
//
//	0: +*eDP-1 1920/344x1080/194+0+0  eDP-1
var xrandrMonitorPattern = regexp.MustCompile(`^\s*(\d+):\s+\S+\s+(\d+)/\d+x(\d+)/\d+\+(\d+)\+(\d+)`)

func listMonitors() []grabMonitor {
	out, err := exec.Command("xrandr", "--listmonitors").Output()
	if err != nil {
		// Headless or Wayland-only setups: fall back to the full X
		// display as a single monitor.
		return []grabMonitor{{Monitor: types.Monitor{Index: 0}}}
	}

	var monitors []grabMonitor
	for _, line := range strings.Split(string(out), "\n") {
		matches := xrandrMonitorPattern.FindStringSubmatch(line)
		if matches == nil {
			continue
		}
		index, _ := strconv.Atoi(matches[1])
		width, _ := strconv.Atoi(matches[2])
		height, _ := strconv.Atoi(matches[3])
		x, _ := strconv.Atoi(matches[4])
		y, _ := strconv.Atoi(matches[5])
		monitors = append(monitors, grabMonitor{
			Monitor: types.Monitor{Index: index, Width: width, Height: height},
			x:       x,
			y:       y,
		})
	}
	if len(monitors) == 0 {
		monitors = []grabMonitor{{Monitor: types.Monitor{Index: 0}}}
	}
	return monitors
}

func grabArgs(m grabMonitor, fps int) []string {
	display := os.Getenv("DISPLAY")
	if display == "" {
		display = ":0"
	}

	args := []string{
		"-hide_banner",
		"-f", "x11grab",
		"-framerate", strconv.Itoa(fps),
	}
	if m.Width > 0 && m.Height > 0 {
		args = append(args, "-video_size", fmt.Sprintf("%dx%d", m.Width, m.Height))
	}
	return append(args, "-i", fmt.Sprintf("%s+%d,%d", display, m.x, m.y))
}
