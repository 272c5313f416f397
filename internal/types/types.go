// Package types provides shared type definitions used across loopcorder.
package types

import "time"

// SessionState represents the current state of a capture session.
type SessionState string

const (
	// StateStopped indicates no active session.
	StateStopped SessionState = "stopped"
	// StateRecording indicates audio is being captured.
	StateRecording SessionState = "recording"
	// StatePaused indicates the session exists but device reads are suspended.
	StatePaused SessionState = "paused"
)

// Audio format constants for PCM capture and encoding.
// The whole pipeline runs at this fixed format.
const (
	// SampleRate is the audio sample rate in Hz. Kept low deliberately:
	// speech-oriented recordings at half CD rate roughly halve file size.
	SampleRate = 22050
	// Channels is the number of audio channels (stereo).
	Channels = 2
	// ChunkFrames is the number of frames read from a device per cycle.
	ChunkFrames = 1024
	// BytesPerSample is the width of a single 16-bit PCM sample.
	BytesPerSample = 2
)

// ChunkDuration is the wall-clock duration of one capture chunk.
const ChunkDuration = time.Duration(ChunkFrames) * time.Second / SampleRate

const (
	// MicSettleDelay is the pause after opening a microphone stream.
	// Bluetooth headsets switch profiles (A2DP to HFP) when their mic
	// activates, which briefly destabilizes the whole audio subsystem.
	MicSettleDelay = 500 * time.Millisecond
	// PauseIdleInterval is how long the capture loop sleeps between
	// state checks while the session is paused.
	PauseIdleInterval = 10 * time.Millisecond
	// CaptureJoinTimeout bounds the wait for the capture goroutine on stop.
	// Streams are force-released if the goroutine does not exit in time.
	CaptureJoinTimeout = 2 * time.Second
	// ShutdownTimeout is the duration to wait for graceful subprocess shutdown.
	ShutdownTimeout = 3000 * time.Millisecond
	// EncodeTimeout bounds a single external encode invocation.
	EncodeTimeout = 2 * time.Minute
)

// Silence detection and noise gate defaults.
const (
	// DefaultSilenceThresholdDB matches the level meter's visual floor:
	// anything visible on a -60..0 dB meter should not count as silence.
	DefaultSilenceThresholdDB = -55.0
	// DefaultSilenceDurationSec is how long a path must stay silent
	// before a warning is raised.
	DefaultSilenceDurationSec = 3.0
	// DefaultGateThresholdDB is the noise gate open threshold.
	DefaultGateThresholdDB = -40.0
	// DefaultGateAttackMs is the gate open ramp time.
	DefaultGateAttackMs = 5.0
	// DefaultGateReleaseMs is the gate close ramp time.
	DefaultGateReleaseMs = 50.0
	// DefaultGateHoldMs is how long the gate stays open after the signal
	// drops below threshold.
	DefaultGateHoldMs = 100.0
	// MaxMicGain is the upper clamp for the microphone gain multiplier.
	MaxMicGain = 3.0
)

// SessionStatus contains runtime status for the capture session.
type SessionStatus struct {
	State       SessionState `json:"state"`                  // Current session state
	Duration    float64      `json:"duration_s"`             // Captured audio duration in seconds
	MicEnabled  bool         `json:"mic_enabled"`            // Whether the microphone stream is open
	GateOpen    bool         `json:"gate_open"`              // Whether the noise gate is currently open
	OutputPath  string       `json:"output_path,omitempty"`  // Final output of the last finished session
	LastError   string       `json:"last_error,omitempty"`   // Most recent session error
	VideoActive bool         `json:"video_active,omitempty"` // Whether screen recording is running
}

// PathLevels is the level/silence telemetry for a single audio path.
type PathLevels struct {
	// DB is the RMS level in dB (-100 floor).
	DB float64 `json:"db"`
	// Warning reports whether prolonged silence is active on this path.
	Warning bool `json:"warning,omitzero"`
	// SilenceDurationS is how long this path has been silent, in seconds.
	SilenceDurationS float64 `json:"silence_duration_s,omitzero"`
}

// AudioLevels is the current audio level measurement for both paths.
type AudioLevels struct {
	// System is the mixed/system path telemetry.
	System PathLevels `json:"system"`
	// Mic is the microphone path telemetry (-100 dB floor when no mic).
	Mic PathLevels `json:"mic"`
	// PeakDB is the peak-held system level for VU meters.
	PeakDB float64 `json:"peak_db"`
	// GateOpen reports whether the noise gate is open.
	GateOpen bool `json:"gate_open,omitzero"`
}

// Device represents an available audio input device.
type Device struct {
	// Index is the device index within the host API.
	Index int `json:"index"`
	// Name is the device display name.
	Name string `json:"name"`
	// MaxInputChannels is the device's input channel capacity.
	MaxInputChannels int `json:"max_input_channels"`
	// SampleRate is the device's declared default sample rate.
	SampleRate int `json:"sample_rate"`
	// Loopback reports whether the device looks like a virtual loopback
	// endpoint (name-derived heuristic, no driver introspection).
	Loopback bool `json:"loopback"`
}

// Monitor describes a display available for screen recording.
type Monitor struct {
	// Index is the 0-based monitor index.
	Index int `json:"index"`
	// Width is the horizontal resolution in pixels.
	Width int `json:"width"`
	// Height is the vertical resolution in pixels.
	Height int `json:"height"`
}

// GraphConfig holds Microsoft Graph email notification credentials.
type GraphConfig struct {
	TenantID     string `json:"tenant_id"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	FromAddress  string `json:"from_address"`
	Recipients   string `json:"recipients"` // Comma-separated
}

// SilenceLogEntry is a single entry in the silence notification log file.
type SilenceLogEntry struct {
	Timestamp   string  `json:"timestamp"`
	Event       string  `json:"event"` // "silence_start", "silence_end", "test"
	Source      string  `json:"source,omitempty"`
	DurationS   float64 `json:"duration_s,omitempty"`
	LevelDB     float64 `json:"level_db,omitempty"`
	ThresholdDB float64 `json:"threshold_db,omitempty"`
}

// VersionInfo describes the running and latest available versions.
type VersionInfo struct {
	Current         string `json:"current"`
	Latest          string `json:"latest,omitempty"`
	UpdateAvailable bool   `json:"update_available"`
	CheckedAt       string `json:"checked_at,omitempty"`
}
