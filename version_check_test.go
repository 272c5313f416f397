package main

import "testing"

func TestIsNewerVersion(t *testing.T) {
	tests := []struct {
		name    string
		latest  string
		current string
		want    bool
	}{
		{"newer patch", "1.2.3", "1.2.2", true},
		{"same version", "1.2.3", "1.2.3", false},
		{"older", "1.2.2", "1.2.3", false},
		{"newer major", "2.0.0", "1.9.9", true},
		{"v prefix mixed", "v1.3.0", "1.2.9", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isNewerVersion(tt.latest, tt.current); got != tt.want {
				t.Errorf("isNewerVersion(%q, %q) = %v, want %v", tt.latest, tt.current, got, tt.want)
			}
		})
	}
}

func TestNormalizeVersion(t *testing.T) {
	if got := normalizeVersion(" v1.2.3 "); got != "1.2.3" {
		t.Errorf("normalizeVersion() = %q, want %q", got, "1.2.3")
	}
	if got := normalizeVersion("1.2.3"); got != "1.2.3" {
		t.Errorf("normalizeVersion() = %q, want %q", got, "1.2.3")
	}
}
