package audio

import (
	"sync"
	"time"
)

// peakHoldDuration is how long a peak stays on the meter before it is
// allowed to fall.
const peakHoldDuration = 2 * time.Second

// PeakHolder keeps the loudest recent level for meter display. A new
// peak replaces the held value immediately; otherwise the held value
// persists for the hold duration and then decays to the current level.
type PeakHolder struct {
	mu       sync.Mutex
	heldPeak float64
	peakTime time.Time
}

// NewPeakHolder creates a holder primed at the meter floor.
func NewPeakHolder() *PeakHolder {
	return &PeakHolder{heldPeak: MinDB}
}

// Update feeds the current level and returns the level to display.
func (p *PeakHolder) Update(level float64, now time.Time) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if level >= p.heldPeak {
		p.heldPeak = level
		p.peakTime = now
		return p.heldPeak
	}
	if now.Sub(p.peakTime) > peakHoldDuration {
		p.heldPeak = level
		p.peakTime = now
	}
	return p.heldPeak
}

// Reset drops the held peak back to the meter floor.
func (p *PeakHolder) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.heldPeak = MinDB
	p.peakTime = time.Time{}
}
