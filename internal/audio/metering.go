// Package audio implements the DSP building blocks of the capture
// pipeline: RMS metering, silence tracking, the microphone noise gate
// and the two-path mixer.
package audio

import "math"

const (
	// SilenceFloorDB is reported for a signal with no energy instead of
	// the -Inf the log conversion would produce.
	SilenceFloorDB = -100.0

	// MaxSampleValue is the dB reference amplitude. Full-scale 16-bit
	// audio therefore measures 0 dB.
	MaxSampleValue = 32768.0

	// MinDB is the display floor used by the level meters.
	MinDB = -60.0
)

// Rms returns the root-mean-square amplitude of a 16-bit sample buffer.
// An empty buffer measures 0.
func Rms(samples []int16) float64 {
	if len(samples) == 0 {
		return 0.0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// RmsToDB converts an RMS amplitude to dB relative to full scale.
// Non-positive input maps to SilenceFloorDB.
func RmsToDB(rms float64) float64 {
	if rms <= 0 {
		return SilenceFloorDB
	}
	return 20 * math.Log10(rms/MaxSampleValue)
}

// LevelDB measures a sample buffer directly in dBFS.
func LevelDB(samples []int16) float64 {
	return RmsToDB(Rms(samples))
}

func clampInt16(v int32) int16 {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
