package audio

import (
	"testing"
	"time"
)

func TestPeakHolder(t *testing.T) {
	p := NewPeakHolder()
	now := time.Now()

	if got := p.Update(-20.0, now); got != -20.0 {
		t.Errorf("new peak = %v, want -20", got)
	}

	// A lower level inside the hold window keeps the held peak.
	if got := p.Update(-35.0, now.Add(time.Second)); got != -20.0 {
		t.Errorf("held peak = %v, want -20 during hold", got)
	}

	// A louder level always replaces the peak.
	if got := p.Update(-10.0, now.Add(time.Second)); got != -10.0 {
		t.Errorf("louder level = %v, want -10", got)
	}

	// After the hold expires the meter falls to the current level.
	if got := p.Update(-40.0, now.Add(4*time.Second)); got != -40.0 {
		t.Errorf("expired hold = %v, want -40", got)
	}

	p.Reset()
	if got := p.Update(MinDB, now); got != MinDB {
		t.Errorf("after reset = %v, want %v", got, MinDB)
	}
}
