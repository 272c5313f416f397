package audio

import "sync"

// Mixer sums the system-audio path with an optional microphone path.
// The microphone chunk is upmixed to stereo when needed, gated, and
// scaled by the mic gain before mixing. Gain and gate settings may be
// changed from another goroutine while the capture loop is running.
type Mixer struct {
	mu sync.Mutex

	micGain     float64
	maxMicGain  float64
	gateEnabled bool
	gate        *NoiseGate
}

// NewMixer creates a mixer with unity mic gain and the gate enabled.
func NewMixer(gate *NoiseGate, maxMicGain float64) *Mixer {
	return &Mixer{
		micGain:     1.0,
		maxMicGain:  maxMicGain,
		gateEnabled: true,
		gate:        gate,
	}
}

// Mix combines one system chunk with an optional mic chunk and returns
// the mixed stereo buffer plus the processed mic samples used for mic
// metering. mic may be nil when no microphone is active. When the
// processed mic chunk does not match the system chunk length, the mic
// is skipped for that chunk and the system audio passes through
// unchanged.
func (m *Mixer) Mix(system []int16, mic []int16, micChannels int) (mixed, micOut []int16) {
	m.mu.Lock()
	gain := m.micGain
	gateEnabled := m.gateEnabled
	gate := m.gate
	m.mu.Unlock()

	var mic32 []int32
	if mic != nil {
		if micChannels == 1 {
			mic = UpmixMono(mic)
		}
		if gateEnabled && gate != nil {
			mic = gate.Process(mic)
		}
		mic32 = make([]int32, len(mic))
		micOut = make([]int16, len(mic))
		for i, s := range mic {
			v := int32(float64(s) * gain)
			mic32[i] = v
			micOut[i] = clampInt16(v)
		}
	}

	mixed = make([]int16, len(system))
	if mic32 != nil && len(mic32) == len(system) {
		for i, s := range system {
			mixed[i] = clampInt16(int32(s) + mic32[i])
		}
	} else {
		copy(mixed, system)
	}
	return mixed, micOut
}

// UpmixMono duplicates each mono sample into an interleaved stereo
// buffer.
func UpmixMono(mono []int16) []int16 {
	stereo := make([]int16, 2*len(mono))
	for i, s := range mono {
		stereo[2*i] = s
		stereo[2*i+1] = s
	}
	return stereo
}

// SetMicGain updates the mic gain, clamped to [0, max].
func (m *Mixer) SetMicGain(gain float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gain < 0 {
		gain = 0
	}
	if gain > m.maxMicGain {
		gain = m.maxMicGain
	}
	m.micGain = gain
	return gain
}

// MicGain returns the current mic gain.
func (m *Mixer) MicGain() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.micGain
}

// SetGateEnabled toggles the noise gate. Disabling also resets the
// gate so a later enable starts from the closed state.
func (m *Mixer) SetGateEnabled(enabled bool) {
	m.mu.Lock()
	gate := m.gate
	m.gateEnabled = enabled
	m.mu.Unlock()
	if !enabled && gate != nil {
		gate.Reset()
	}
}

// GateEnabled reports whether the noise gate is applied to the mic.
func (m *Mixer) GateEnabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gateEnabled
}

// Gate returns the mixer's noise gate.
func (m *Mixer) Gate() *NoiseGate {
	return m.gate
}
