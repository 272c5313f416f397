//go:build linux

package video

import "testing"

func TestXrandrMonitorPattern(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string // index, width, height, x, y
	}{
		{
			"primary monitor",
			" 0: +*eDP-1 1920/344x1080/194+0+0  eDP-1",
			[]string{"0", "1920", "1080", "0", "0"},
		},
		{
			"secondary with offset",
			" 1: +HDMI-1 2560/597x1440/336+1920+0  HDMI-1",
			[]string{"1", "2560", "1440", "1920", "0"},
		},
		{
			"header line does not match",
			"Monitors: 2",
			nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches := xrandrMonitorPattern.FindStringSubmatch(tt.line)
			if tt.want == nil {
				if matches != nil {
					t.Fatalf("unexpected match: %v", matches)
				}
				return
			}
			if matches == nil {
				t.Fatal("no match")
			}
			for i, want := range tt.want {
				if matches[i+1] != want {
					t.Errorf("group %d = %q, want %q", i+1, matches[i+1], want)
				}
			}
		})
	}
}
