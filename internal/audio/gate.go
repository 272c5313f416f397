package audio

import (
	"math"
	"sync"
)

// NoiseGate attenuates a signal whose level falls below a threshold.
// Attack, release and hold times are converted to sample counts up
// front; Process ramps the gain linearly across a chunk whenever the
// target changes, which keeps transitions click-free at chunk
// granularity.
type NoiseGate struct {
	mu sync.Mutex

	thresholdDB    float64
	attackSamples  int
	releaseSamples int
	holdSamples    int

	gain        float64
	holdCounter int
	open        bool
}

// NewNoiseGate creates a gate for the given sample rate. Times are in
// milliseconds. The gate starts closed with zero gain.
func NewNoiseGate(thresholdDB, attackMs, releaseMs, holdMs float64, sampleRate int) *NoiseGate {
	msToSamples := func(ms float64) int {
		n := int(ms * float64(sampleRate) / 1000.0)
		if n < 1 {
			n = 1
		}
		return n
	}
	return &NoiseGate{
		thresholdDB:    thresholdDB,
		attackSamples:  msToSamples(attackMs),
		releaseSamples: msToSamples(releaseMs),
		holdSamples:    msToSamples(holdMs),
	}
}

// Process gates one chunk and returns the processed samples. The input
// slice is not modified.
func (g *NoiseGate) Process(chunk []int16) []int16 {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(chunk) == 0 {
		return chunk
	}

	db := LevelDB(chunk)

	var target float64
	switch {
	case db >= g.thresholdDB:
		target = 1.0
		g.holdCounter = g.holdSamples
		g.open = true
	case g.holdCounter > 0:
		target = 1.0
		g.holdCounter -= len(chunk)
		g.open = true
	default:
		target = 0.0
		g.open = false
	}

	out := make([]int16, len(chunk))

	var step float64
	if target > g.gain {
		step = 1.0 / float64(g.attackSamples)
	} else {
		step = 1.0 / float64(g.releaseSamples)
	}
	rampSamples := int(math.Abs(target-g.gain) / step)
	if rampSamples > len(chunk) {
		rampSamples = len(chunk)
	}

	if rampSamples > 0 && math.Abs(target-g.gain) > 0.001 {
		// Ramp spans the whole chunk; the gain lands on the target by
		// the final sample.
		start := g.gain
		n := len(chunk)
		for i, s := range chunk {
			frac := 1.0
			if n > 1 {
				frac = float64(i) / float64(n-1)
			}
			env := start + (target-start)*frac
			out[i] = int16(float64(s) * env)
		}
		g.gain = target
		return out
	}

	g.gain = target
	for i, s := range chunk {
		out[i] = int16(float64(s) * g.gain)
	}
	return out
}

// IsOpen reports whether the gate was open after the last chunk.
func (g *NoiseGate) IsOpen() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.open
}

// Reset closes the gate and clears the hold counter.
func (g *NoiseGate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gain = 0
	g.holdCounter = 0
	g.open = false
}

// SetThresholdDB updates the open threshold.
func (g *NoiseGate) SetThresholdDB(db float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.thresholdDB = db
}

// SetTimings updates the attack, release and hold times. Times are in
// milliseconds for the given sample rate.
func (g *NoiseGate) SetTimings(attackMs, releaseMs, holdMs float64, sampleRate int) {
	msToSamples := func(ms float64) int {
		n := int(ms * float64(sampleRate) / 1000.0)
		if n < 1 {
			n = 1
		}
		return n
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.attackSamples = msToSamples(attackMs)
	g.releaseSamples = msToSamples(releaseMs)
	g.holdSamples = msToSamples(holdMs)
}

// ThresholdDB returns the current open threshold.
func (g *NoiseGate) ThresholdDB() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.thresholdDB
}
