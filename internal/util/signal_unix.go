//go:build !windows

package util

import (
	"os"
	"syscall"
)

// ShutdownSignals lists the signals that trigger a clean recorder
// shutdown, finalizing any in-flight session first.
func ShutdownSignals() []os.Signal {
	return []os.Signal{syscall.SIGINT, syscall.SIGTERM}
}

// GracefulSignal interrupts a child process, giving FFmpeg the chance
// to finalize its output before the WaitDelay kill.
func GracefulSignal(p *os.Process) error {
	return p.Signal(syscall.SIGINT)
}
