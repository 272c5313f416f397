package audio

import (
	"math"
	"testing"
)

// One chunk equals exactly one second at these settings, which keeps
// the expected durations easy to read.
const (
	testRate   = 1000
	testFrames = 1000
)

func silentChunk() []int16 {
	return make([]int16, testFrames)
}

func loudChunk() []int16 {
	chunk := make([]int16, testFrames)
	for i := range chunk {
		if i%2 == 0 {
			chunk[i] = 10000
		} else {
			chunk[i] = -10000
		}
	}
	return chunk
}

func TestSilenceTrackerAccumulates(t *testing.T) {
	tracker := NewSilenceTracker(-55.0, 3.0, testRate)

	for i := 1; i <= 2; i++ {
		_, warning, duration := tracker.Process(silentChunk(), testFrames)
		if warning {
			t.Errorf("chunk %d: warning raised at %v s, before the 3 s threshold", i, duration)
		}
		if math.Abs(duration-float64(i)) > 1e-9 {
			t.Errorf("chunk %d: duration = %v, want %v", i, duration, float64(i))
		}
	}

	_, warning, duration := tracker.Process(silentChunk(), testFrames)
	if !warning {
		t.Errorf("no warning after 3 s of silence (duration %v)", duration)
	}
	if math.Abs(duration-3.0) > 1e-9 {
		t.Errorf("duration = %v, want 3.0", duration)
	}
}

func TestSilenceTrackerResetsOnSignal(t *testing.T) {
	tracker := NewSilenceTracker(-55.0, 2.0, testRate)

	tracker.Process(silentChunk(), testFrames)
	tracker.Process(silentChunk(), testFrames)

	_, warning, duration := tracker.Process(loudChunk(), testFrames)
	if warning || duration != 0 {
		t.Errorf("loud chunk: warning=%v duration=%v, want cleared state", warning, duration)
	}

	// The next silent stretch starts over from zero.
	_, warning, duration = tracker.Process(silentChunk(), testFrames)
	if warning {
		t.Error("warning raised on the first silent chunk after a reset")
	}
	if math.Abs(duration-1.0) > 1e-9 {
		t.Errorf("duration = %v, want 1.0", duration)
	}
}

func TestSilenceTrackerExplicitReset(t *testing.T) {
	tracker := NewSilenceTracker(-55.0, 2.0, testRate)

	tracker.Process(silentChunk(), testFrames)
	tracker.Reset()

	_, warning, duration := tracker.Process(silentChunk(), testFrames)
	if warning {
		t.Error("warning survived a Reset")
	}
	if math.Abs(duration-1.0) > 1e-9 {
		t.Errorf("duration after reset = %v, want 1.0", duration)
	}
}

func TestSilenceTrackerThresholdBoundary(t *testing.T) {
	// A level exactly at the threshold counts as signal, not silence.
	tracker := NewSilenceTracker(LevelDB(loudChunk()), 1.0, testRate)

	_, warning, duration := tracker.Process(loudChunk(), testFrames)
	if warning || duration != 0 {
		t.Errorf("level at threshold treated as silence (warning=%v duration=%v)", warning, duration)
	}
}

func TestSilenceTrackerSetThreshold(t *testing.T) {
	tracker := NewSilenceTracker(-55.0, 1.0, testRate)

	// Raise the threshold above the loud chunk's level; it now counts
	// as silence.
	tracker.SetThresholdDB(0.0)
	_, warning, _ := tracker.Process(loudChunk(), testFrames)
	if !warning {
		t.Error("no warning after raising the threshold above the signal level")
	}
}

func TestSilenceTrackerResetRestartsClock(t *testing.T) {
	tracker := NewSilenceTracker(-55.0, 2.0, testRate)

	tracker.Process(silentChunk(), testFrames)
	tracker.Process(silentChunk(), testFrames)
	tracker.Reset()

	if tracker.totalFrames != 0 {
		t.Errorf("sample clock = %d frames after Reset, want 0", tracker.totalFrames)
	}

	_, _, duration := tracker.Process(silentChunk(), testFrames)
	if math.Abs(duration-1.0) > 1e-9 {
		t.Errorf("duration on fresh clock = %v, want 1.0", duration)
	}
}
