package notify

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/loopcorder/loopcorder/internal/types"
	"github.com/loopcorder/loopcorder/internal/util"
)

// LogSilenceStart records the beginning of a silence period.
func LogSilenceStart(logPath, source string, levelDB, thresholdDB float64) error {
	return appendLogEntry(logPath, &types.SilenceLogEntry{
		Timestamp:   timestampUTC(),
		Event:       "silence_start",
		Source:      source,
		LevelDB:     levelDB,
		ThresholdDB: thresholdDB,
	})
}

// LogSilenceEnd records the end of a silence period.
func LogSilenceEnd(logPath, source string, durationSec, thresholdDB float64) error {
	return appendLogEntry(logPath, &types.SilenceLogEntry{
		Timestamp:   timestampUTC(),
		Event:       "silence_end",
		Source:      source,
		DurationS:   durationSec,
		ThresholdDB: thresholdDB,
	})
}

// WriteTestLog writes a test entry to verify the log path.
func WriteTestLog(logPath string) error {
	if logPath == "" {
		return fmt.Errorf("log file path not configured")
	}
	return appendLogEntry(logPath, &types.SilenceLogEntry{
		Timestamp: timestampUTC(),
		Event:     "test",
	})
}

// appendLogEntry appends one JSONL entry to the file.
func appendLogEntry(logPath string, entry *types.SilenceLogEntry) error {
	if !util.IsConfigured(logPath) {
		return nil
	}

	jsonData, err := json.Marshal(entry)
	if err != nil {
		return util.WrapError("marshal log entry", err)
	}

	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return util.WrapError("open log file", err)
	}
	defer util.SafeCloseFunc(f, "log file")()

	if _, err := f.Write(append(jsonData, '\n')); err != nil {
		return util.WrapError("write log entry", err)
	}
	return nil
}
