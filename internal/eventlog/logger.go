// Package eventlog provides unified event logging for the recorder.
// Session lifecycle, silence, persistence and upload events all land
// in a single JSON lines file that the UI can page through.
package eventlog

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/loopcorder/loopcorder/internal/util"
)

// EventType represents the type of event.
type EventType string

// Session event types.
const (
	SessionStarted EventType = "session_started"
	SessionPaused  EventType = "session_paused"
	SessionResumed EventType = "session_resumed"
	SessionStopped EventType = "session_stopped"
	SessionError   EventType = "session_error"
)

// Silence event types.
const (
	SilenceStart EventType = "silence_start"
	SilenceEnd   EventType = "silence_end"
)

// Persistence event types.
const (
	RecordingSaved  EventType = "recording_saved"
	EncodeFailed    EventType = "encode_failed"
	UploadCompleted EventType = "upload_completed"
	UploadFailed    EventType = "upload_failed"
	VideoSaved      EventType = "video_saved"
)

// Event represents a single log entry with type-specific details.
type Event struct {
	Timestamp time.Time `json:"ts"`
	Type      EventType `json:"type"`
	Message   string    `json:"msg,omitempty"`
	Details   any       `json:"details,omitempty"`
}

// SessionDetails contains session lifecycle details.
type SessionDetails struct {
	SystemDevice int     `json:"system_device,omitempty"`
	MicDevice    int     `json:"mic_device,omitempty"`
	DurationS    float64 `json:"duration_s,omitempty"`
	Error        string  `json:"error,omitempty"`
}

// SilenceDetails contains silence event details.
type SilenceDetails struct {
	Source      string  `json:"source"`
	LevelDB     float64 `json:"level_db,omitempty"`
	ThresholdDB float64 `json:"threshold_db"`
	DurationS   float64 `json:"duration_s,omitempty"`
}

// FileDetails contains persistence and upload details.
type FileDetails struct {
	Path      string  `json:"path,omitempty"`
	Format    string  `json:"format,omitempty"`
	SizeBytes int64   `json:"size_bytes,omitempty"`
	DurationS float64 `json:"duration_s,omitempty"`
	S3Key     string  `json:"s3_key,omitempty"`
	Error     string  `json:"error,omitempty"`
}

// Logger writes events to a JSON lines file.
type Logger struct {
	mu       sync.Mutex
	filePath string
	file     *os.File
	encoder  *json.Encoder
}

// DefaultLogPath returns the platform-specific log file path.
func DefaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		programData := os.Getenv("PROGRAMDATA")
		if programData == "" {
			programData = `C:\ProgramData`
		}
		return filepath.Join(programData, "loopcorder", "logs", "loopcorder.jsonl")
	default: // linux, darwin
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), "loopcorder.jsonl")
		}
		return filepath.Join(home, ".loopcorder", "loopcorder.jsonl")
	}
}

// NewLogger creates a new event logger at the specified path.
func NewLogger(filePath string) (*Logger, error) {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, util.WrapError("create log directory", err)
	}

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, util.WrapError("open log file", err)
	}

	return &Logger{
		filePath: filePath,
		file:     file,
		encoder:  json.NewEncoder(file),
	}, nil
}

// Log writes an event to the log file.
func (l *Logger) Log(event *Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	return l.encoder.Encode(event)
}

// LogSession logs a session lifecycle event.
func (l *Logger) LogSession(eventType EventType, details *SessionDetails) error {
	return l.Log(&Event{Type: eventType, Details: details})
}

// LogSilence logs a silence start or end event.
func (l *Logger) LogSilence(eventType EventType, source string, levelDB, thresholdDB, durationS float64) error {
	return l.Log(&Event{
		Type: eventType,
		Details: &SilenceDetails{
			Source:      source,
			LevelDB:     levelDB,
			ThresholdDB: thresholdDB,
			DurationS:   durationS,
		},
	})
}

// LogFile logs a persistence or upload event.
func (l *Logger) LogFile(eventType EventType, details *FileDetails) error {
	return l.Log(&Event{Type: eventType, Details: details})
}

// Close closes the log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// Path returns the path to the log file.
func (l *Logger) Path() string {
	return l.filePath
}

// TypeFilter specifies which event types to include when reading.
type TypeFilter string

// Filter constants for ReadLast.
const (
	FilterAll     TypeFilter = ""
	FilterSession TypeFilter = "session"
	FilterSilence TypeFilter = "silence"
	FilterFile    TypeFilter = "file"
)

// MaxReadLimit caps how many events one read can return, bounding the
// allocation for a hostile or runaway request.
const MaxReadLimit = 500

// ReadLast reads events from the log file with pagination. Returns up
// to n events starting from offset, newest first, plus whether more
// events remain beyond the returned page.
func ReadLast(filePath string, n, offset int, filter TypeFilter) ([]Event, bool, error) {
	if n > MaxReadLimit {
		n = MaxReadLimit
	}
	if n <= 0 {
		return []Event{}, false, nil
	}

	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []Event{}, false, nil
		}
		return nil, false, err
	}
	defer file.Close() //nolint:errcheck // read-only

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, false, err
	}

	events := make([]Event, 0, n)
	skipped := 0
	hasMore := false
	for i := len(lines) - 1; i >= 0; i-- {
		var event Event
		if err := json.Unmarshal([]byte(lines[i]), &event); err != nil {
			continue // skip malformed lines
		}
		if !matchesFilter(event.Type, filter) {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		if len(events) >= n {
			hasMore = true
			break
		}
		events = append(events, event)
	}

	return events, hasMore, nil
}

func matchesFilter(t EventType, filter TypeFilter) bool {
	switch filter {
	case FilterAll:
		return true
	case FilterSession:
		return IsSessionEvent(t)
	case FilterSilence:
		return IsSilenceEvent(t)
	case FilterFile:
		return IsFileEvent(t)
	default:
		return false
	}
}

// IsSessionEvent reports whether the event type is a session event.
func IsSessionEvent(t EventType) bool {
	return t == SessionStarted || t == SessionPaused || t == SessionResumed ||
		t == SessionStopped || t == SessionError
}

// IsSilenceEvent reports whether the event type is a silence event.
func IsSilenceEvent(t EventType) bool {
	return t == SilenceStart || t == SilenceEnd
}

// IsFileEvent reports whether the event type is a persistence event.
func IsFileEvent(t EventType) bool {
	return t == RecordingSaved || t == EncodeFailed || t == UploadCompleted ||
		t == UploadFailed || t == VideoSaved
}
