package util

import (
	"fmt"
	"time"
)

// humanTimeFormat is the layout for human-readable timestamps with timezone.
const humanTimeFormat = "2 Jan 2006 15:04 MST"

// HumanTime returns the current local time in a human-readable format.
func HumanTime() string {
	return time.Now().Format(humanTimeFormat)
}

// RecordingStamp is the timestamp layout embedded in recording filenames.
const RecordingStamp = "20060102_150405"

// FormatSeconds formats a duration in seconds as a human-readable string.
// Examples: "45s", "2m 34s", "1h 23m"
func FormatSeconds(seconds float64) string {
	totalSeconds := int64(seconds)
	if totalSeconds < 60 {
		return fmt.Sprintf("%ds", totalSeconds)
	}
	minutes := totalSeconds / 60
	secs := totalSeconds % 60
	if minutes < 60 {
		return fmt.Sprintf("%dm %ds", minutes, secs)
	}
	hours := minutes / 60
	minutes %= 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}
