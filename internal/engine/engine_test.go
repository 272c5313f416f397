package engine

import (
	"path/filepath"
	"testing"

	"github.com/loopcorder/loopcorder/internal/config"
	"github.com/loopcorder/loopcorder/internal/eventlog"
	"github.com/loopcorder/loopcorder/internal/persist"
	"github.com/loopcorder/loopcorder/internal/types"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	dir := t.TempDir()
	cfg := config.New(filepath.Join(dir, "config.json"))
	events, err := eventlog.NewLogger(filepath.Join(dir, "events.jsonl"))
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	t.Cleanup(func() { events.Close() })
	return New(cfg, "", nil, events)
}

func TestEngineInitialStatus(t *testing.T) {
	e := newTestEngine(t)

	status := e.Status()
	if status.State != types.StateStopped {
		t.Errorf("State = %q, want %q", status.State, types.StateStopped)
	}
	if status.Duration != 0 {
		t.Errorf("Duration = %v, want 0", status.Duration)
	}
	if status.VideoActive {
		t.Error("VideoActive = true for a fresh engine")
	}
}

func TestEngineStoppedLevels(t *testing.T) {
	e := newTestEngine(t)

	levels := e.AudioLevels()
	if levels.System.DB != -100 || levels.Mic.DB != -100 {
		t.Errorf("stopped levels = %+v, want -100 dB floors", levels)
	}
	if levels.GateOpen {
		t.Error("GateOpen = true while stopped")
	}
}

func TestEngineApplyMicGainClamps(t *testing.T) {
	e := newTestEngine(t)

	if got := e.ApplyMicGain(2.0); got != 2.0 {
		t.Errorf("ApplyMicGain(2.0) = %v, want 2.0", got)
	}
	if got := e.ApplyMicGain(10.0); got != types.MaxMicGain {
		t.Errorf("ApplyMicGain(10.0) = %v, want %v", got, types.MaxMicGain)
	}
	if got := e.ApplyMicGain(-1.0); got != 0 {
		t.Errorf("ApplyMicGain(-1.0) = %v, want 0", got)
	}
}

func TestEngineApplySilence(t *testing.T) {
	e := newTestEngine(t)

	e.ApplySilence(-40, 10)
	if got := e.session.SystemTracker().ThresholdDB(); got != -40 {
		t.Errorf("system threshold = %v, want -40", got)
	}
	if got := e.session.MicTracker().Duration(); got != 10 {
		t.Errorf("mic duration = %v, want 10", got)
	}
}

func TestEngineApplyGate(t *testing.T) {
	e := newTestEngine(t)

	e.ApplyGate(config.GateConfig{
		Enabled:     false,
		ThresholdDB: -30,
		AttackMs:    10,
		ReleaseMs:   60,
		HoldMs:      200,
	})
	mixer := e.session.Mixer()
	if mixer.GateEnabled() {
		t.Error("gate still enabled after disable")
	}
	if got := mixer.Gate().ThresholdDB(); got != -30 {
		t.Errorf("gate threshold = %v, want -30", got)
	}
}

func TestEnginePauseRequiresSession(t *testing.T) {
	e := newTestEngine(t)

	if err := e.Pause(); err == nil {
		t.Error("Pause() on stopped engine succeeded, want error")
	}
	if err := e.Resume(); err == nil {
		t.Error("Resume() on stopped engine succeeded, want error")
	}
}

func TestMissingEncoderSaveIsDegraded(t *testing.T) {
	e := newTestEngine(t)

	var emitted []types.WSEventResponse
	e.SetEventSink(func(ev types.WSEventResponse) { emitted = append(emitted, ev) })

	kept := &persist.Result{Path: "recording_20260101_120000.wav", Format: "wav", Duration: 1.5}
	e.recordSaveOutcome(kept, types.ErrEncoderUnavailable)

	status := e.Status()
	if status.OutputPath != kept.Path {
		t.Errorf("OutputPath = %q, want %q", status.OutputPath, kept.Path)
	}
	if status.LastError == "" {
		t.Error("LastError empty after degraded save")
	}

	var fallback bool
	for _, ev := range emitted {
		if ev.Event == "encode_fallback" {
			fallback = true
			if ev.Path != kept.Path {
				t.Errorf("event path = %q, want %q", ev.Path, kept.Path)
			}
		}
	}
	if !fallback {
		t.Error("no encode_fallback event for missing encoder")
	}

	entries, _, err := eventlog.ReadLast(e.events.Path(), 10, 0, eventlog.FilterAll)
	if err != nil {
		t.Fatalf("ReadLast() error = %v", err)
	}
	var logged bool
	for _, ev := range entries {
		switch ev.Type {
		case eventlog.EncodeFailed:
			logged = true
		case eventlog.RecordingSaved:
			t.Error("degraded save logged as recording_saved")
		}
	}
	if !logged {
		t.Error("no encode_failed entry for missing encoder")
	}
}
