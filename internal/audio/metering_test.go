package audio

import (
	"math"
	"testing"
)

func TestRms(t *testing.T) {
	tests := []struct {
		name    string
		samples []int16
		want    float64
	}{
		{"empty buffer", nil, 0.0},
		{"all zero", make([]int16, 1024), 0.0},
		{"constant amplitude", []int16{1000, 1000, 1000, 1000}, 1000.0},
		{"alternating sign", []int16{500, -500, 500, -500}, 500.0},
		{"single sample", []int16{-32768}, 32768.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Rms(tt.samples)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Rms() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRmsToDB(t *testing.T) {
	tests := []struct {
		name string
		rms  float64
		want float64
	}{
		{"zero maps to silence floor", 0.0, SilenceFloorDB},
		{"negative maps to silence floor", -1.0, SilenceFloorDB},
		{"full scale is 0 dB", 32768.0, 0.0},
		{"half scale is about -6 dB", 16384.0, -6.0206},
		{"tenth scale is -20 dB", 3276.8, -20.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RmsToDB(tt.rms)
			if math.Abs(got-tt.want) > 0.001 {
				t.Errorf("RmsToDB(%v) = %v, want %v", tt.rms, got, tt.want)
			}
		})
	}
}

func TestLevelDBMonotonic(t *testing.T) {
	quiet := LevelDB([]int16{100, -100, 100, -100})
	loud := LevelDB([]int16{10000, -10000, 10000, -10000})
	if quiet >= loud {
		t.Errorf("quieter signal measured %v dB, louder %v dB", quiet, loud)
	}
}
