package notify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/loopcorder/loopcorder/internal/config"
)

func TestParseRecipients(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty", "", nil},
		{"single", "a@example.com", []string{"a@example.com"}},
		{"multiple with spaces", " a@example.com , b@example.com ", []string{"a@example.com", "b@example.com"}},
		{"empty segments dropped", "a@example.com,,", []string{"a@example.com"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseRecipients(tt.input); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseRecipients(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestSendSilenceWebhook(t *testing.T) {
	var got WebhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if err := SendSilenceWebhook(srv.URL, "mic", -72.5, -55.0); err != nil {
		t.Fatalf("SendSilenceWebhook() error: %v", err)
	}
	if got.Event != "silence_detected" || got.Source != "mic" {
		t.Errorf("payload = %+v, want silence_detected on mic", got)
	}
	if got.LevelDB != -72.5 || got.ThresholdDB != -55.0 {
		t.Errorf("levels = %v/%v, want -72.5/-55", got.LevelDB, got.ThresholdDB)
	}
	if got.Timestamp == "" {
		t.Error("missing timestamp")
	}
}

func TestSendWebhookErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	if err := SendSilenceWebhook(srv.URL, "system", -80, -55); err == nil {
		t.Error("no error for a 500 response")
	}
}

func TestSendWebhookUnconfiguredIsNoop(t *testing.T) {
	if err := SendSilenceWebhook("", "system", -80, -55); err != nil {
		t.Errorf("unconfigured webhook returned error: %v", err)
	}
}

func TestSilenceLogEntries(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "silence.jsonl")

	if err := LogSilenceStart(logPath, "system", -80, -55); err != nil {
		t.Fatalf("LogSilenceStart() error: %v", err)
	}
	if err := LogSilenceEnd(logPath, "system", 4.5, -55); err != nil {
		t.Fatalf("LogSilenceEnd() error: %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	lines := splitLines(string(data))
	if len(lines) != 2 {
		t.Fatalf("log has %d lines, want 2", len(lines))
	}

	var start map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &start); err != nil {
		t.Fatalf("line 1 not JSON: %v", err)
	}
	if start["event"] != "silence_start" || start["source"] != "system" {
		t.Errorf("line 1 = %v, want silence_start on system", start)
	}

	var end map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &end); err != nil {
		t.Fatalf("line 2 not JSON: %v", err)
	}
	if end["event"] != "silence_end" || end["duration_s"] != 4.5 {
		t.Errorf("line 2 = %v, want silence_end duration 4.5", end)
	}
}

func TestNotifierDeduplicatesPerSilencePeriod(t *testing.T) {
	requests := make(chan WebhookPayload, 8)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p WebhookPayload
		_ = json.NewDecoder(r.Body).Decode(&p)
		requests <- p
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := config.New(filepath.Join(t.TempDir(), "config.json"))
	if err := cfg.Load(); err != nil {
		t.Fatal(err)
	}
	if err := cfg.SetWebhookURL(srv.URL); err != nil {
		t.Fatal(err)
	}

	n := NewSilenceNotifier(cfg)

	// A silence warning fires on every chunk; the alert goes out once.
	n.HandleSilence("system", 3.0, -80)
	n.HandleSilence("system", 3.1, -80)
	n.HandleSilence("system", 3.2, -80)

	first := waitPayload(t, requests)
	if first.Event != "silence_detected" {
		t.Errorf("first event = %q, want silence_detected", first.Event)
	}
	assertNoPayload(t, requests)

	// Recovery fires once and re-arms the channel.
	n.HandleRecovery("system", 3.2)
	recovery := waitPayload(t, requests)
	if recovery.Event != "silence_recovered" {
		t.Errorf("recovery event = %q, want silence_recovered", recovery.Event)
	}

	n.HandleSilence("system", 3.0, -80)
	second := waitPayload(t, requests)
	if second.Event != "silence_detected" {
		t.Errorf("re-armed event = %q, want silence_detected", second.Event)
	}
}

func TestNotifierTracksPathsIndependently(t *testing.T) {
	requests := make(chan WebhookPayload, 8)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p WebhookPayload
		_ = json.NewDecoder(r.Body).Decode(&p)
		requests <- p
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := config.New(filepath.Join(t.TempDir(), "config.json"))
	if err := cfg.Load(); err != nil {
		t.Fatal(err)
	}
	if err := cfg.SetWebhookURL(srv.URL); err != nil {
		t.Fatal(err)
	}

	n := NewSilenceNotifier(cfg)
	n.HandleSilence("system", 3.0, -80)
	n.HandleSilence("mic", 3.0, -90)

	sources := map[string]bool{}
	sources[waitPayload(t, requests).Source] = true
	sources[waitPayload(t, requests).Source] = true
	if !sources["system"] || !sources["mic"] {
		t.Errorf("alert sources = %v, want both system and mic", sources)
	}
}

func TestNotifierRecoveryWithoutAlertIsSilent(t *testing.T) {
	requests := make(chan WebhookPayload, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests <- WebhookPayload{}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := config.New(filepath.Join(t.TempDir(), "config.json"))
	if err := cfg.Load(); err != nil {
		t.Fatal(err)
	}
	if err := cfg.SetWebhookURL(srv.URL); err != nil {
		t.Fatal(err)
	}

	n := NewSilenceNotifier(cfg)
	n.HandleRecovery("system", 1.0)
	assertNoPayload(t, requests)
}

func waitPayload(t *testing.T, ch chan WebhookPayload) WebhookPayload {
	t.Helper()
	select {
	case p := <-ch:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for webhook delivery")
		return WebhookPayload{}
	}
}

func assertNoPayload(t *testing.T, ch chan WebhookPayload) {
	t.Helper()
	select {
	case p := <-ch:
		t.Fatalf("unexpected webhook delivery: %+v", p)
	case <-time.After(100 * time.Millisecond):
	}
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := range len(s) {
		if s[i] == '\n' {
			if i > start {
				lines = append(lines, s[start:i])
			}
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}
