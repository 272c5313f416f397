//go:build windows

package video

import (
	"strconv"

	"github.com/loopcorder/loopcorder/internal/types"
)

func listMonitors() []grabMonitor {
	// gdigrab's "desktop" input spans all monitors; no per-monitor
	// enumeration without calling into user32.
	return []grabMonitor{{Monitor: types.Monitor{Index: 0}}}
}

func grabArgs(m grabMonitor, fps int) []string {
	return []string{
		"-hide_banner",
		"-f", "gdigrab",
		"-framerate", strconv.Itoa(fps),
		"-i", "desktop",
	}
}
