package eventlog

import (
	"path/filepath"
	"testing"
)

func newTestLogger(t *testing.T) *Logger {
	t.Helper()
	l, err := NewLogger(filepath.Join(t.TempDir(), "events.jsonl"))
	if err != nil {
		t.Fatalf("NewLogger() error: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestLoggerWritesAndReadsBack(t *testing.T) {
	l := newTestLogger(t)

	if err := l.LogSession(SessionStarted, &SessionDetails{SystemDevice: 2}); err != nil {
		t.Fatalf("LogSession() error: %v", err)
	}
	if err := l.LogSilence(SilenceStart, "mic", -80, -55, 0); err != nil {
		t.Fatalf("LogSilence() error: %v", err)
	}
	if err := l.LogFile(RecordingSaved, &FileDetails{Path: "r.mp3", Format: "mp3"}); err != nil {
		t.Fatalf("LogFile() error: %v", err)
	}

	events, hasMore, err := ReadLast(l.Path(), 10, 0, FilterAll)
	if err != nil {
		t.Fatalf("ReadLast() error: %v", err)
	}
	if hasMore {
		t.Error("hasMore = true with all events returned")
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}

	// Newest first.
	if events[0].Type != RecordingSaved {
		t.Errorf("events[0].Type = %q, want recording_saved", events[0].Type)
	}
	if events[2].Type != SessionStarted {
		t.Errorf("events[2].Type = %q, want session_started", events[2].Type)
	}
	for _, e := range events {
		if e.Timestamp.IsZero() {
			t.Error("event written without a timestamp")
		}
	}
}

func TestReadLastPagination(t *testing.T) {
	l := newTestLogger(t)
	for range 5 {
		if err := l.LogSilence(SilenceStart, "system", -80, -55, 0); err != nil {
			t.Fatal(err)
		}
	}

	page1, hasMore, err := ReadLast(l.Path(), 2, 0, FilterAll)
	if err != nil {
		t.Fatalf("ReadLast() error: %v", err)
	}
	if len(page1) != 2 || !hasMore {
		t.Errorf("page 1: %d events, hasMore=%v; want 2, true", len(page1), hasMore)
	}

	page3, hasMore, err := ReadLast(l.Path(), 2, 4, FilterAll)
	if err != nil {
		t.Fatalf("ReadLast() error: %v", err)
	}
	if len(page3) != 1 || hasMore {
		t.Errorf("last page: %d events, hasMore=%v; want 1, false", len(page3), hasMore)
	}
}

func TestReadLastFilter(t *testing.T) {
	l := newTestLogger(t)
	if err := l.LogSession(SessionStarted, nil); err != nil {
		t.Fatal(err)
	}
	if err := l.LogSilence(SilenceStart, "system", -80, -55, 0); err != nil {
		t.Fatal(err)
	}
	if err := l.LogFile(UploadCompleted, &FileDetails{S3Key: "k"}); err != nil {
		t.Fatal(err)
	}

	events, _, err := ReadLast(l.Path(), 10, 0, FilterSilence)
	if err != nil {
		t.Fatalf("ReadLast() error: %v", err)
	}
	if len(events) != 1 || events[0].Type != SilenceStart {
		t.Errorf("silence filter returned %v", events)
	}

	events, _, err = ReadLast(l.Path(), 10, 0, FilterFile)
	if err != nil {
		t.Fatalf("ReadLast() error: %v", err)
	}
	if len(events) != 1 || events[0].Type != UploadCompleted {
		t.Errorf("file filter returned %v", events)
	}
}

func TestReadLastMissingFile(t *testing.T) {
	events, hasMore, err := ReadLast(filepath.Join(t.TempDir(), "missing.jsonl"), 10, 0, FilterAll)
	if err != nil {
		t.Fatalf("ReadLast() on missing file error: %v", err)
	}
	if len(events) != 0 || hasMore {
		t.Errorf("missing file returned %d events, hasMore=%v", len(events), hasMore)
	}
}
