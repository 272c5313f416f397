package util

import "os/exec"

// ResolveFFmpegPath locates the FFmpeg binary used for MP3 encoding
// and screen capture. A configured path wins when it resolves to an
// executable; otherwise the system PATH is searched. An empty return
// means no encoder is available and the recorder falls back to WAV
// output.
func ResolveFFmpegPath(customPath string) string {
	candidate := customPath
	if candidate == "" {
		candidate = "ffmpeg"
	}
	path, err := exec.LookPath(candidate)
	if err != nil {
		return ""
	}
	return path
}
