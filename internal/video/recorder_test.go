package video

import (
	"errors"
	"testing"

	"github.com/loopcorder/loopcorder/internal/types"
)

func TestRecorderRequiresEncoder(t *testing.T) {
	r := NewRecorder("")
	if err := r.Start(t.TempDir(), 0); !errors.Is(err, types.ErrEncoderUnavailable) {
		t.Errorf("Start() without FFmpeg = %v, want ErrEncoderUnavailable", err)
	}
}

func TestRecorderRejectsUnknownMonitor(t *testing.T) {
	r := NewRecorder("ffmpeg")
	if err := r.Start(t.TempDir(), 99); !errors.Is(err, types.ErrNoMonitor) {
		t.Errorf("Start(monitor 99) = %v, want ErrNoMonitor", err)
	}
	if r.Active() {
		t.Error("recorder active after a rejected Start")
	}
}

func TestRecorderStopWhileStopped(t *testing.T) {
	r := NewRecorder("ffmpeg")
	path, err := r.Stop()
	if err != nil {
		t.Errorf("Stop() while stopped error: %v", err)
	}
	if path != "" {
		t.Errorf("Stop() while stopped path = %q, want empty", path)
	}
}
