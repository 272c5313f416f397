package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/loopcorder/loopcorder/internal/types"
)

func TestLoadCreatesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	c := New(path)

	if err := c.Load(); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}

	s := c.Snapshot()
	if s.Port != DefaultPort {
		t.Errorf("Port = %d, want %d", s.Port, DefaultPort)
	}
	if s.SystemDevice != AutoDevice || s.MicDevice != AutoDevice {
		t.Errorf("devices = %d/%d, want auto/auto", s.SystemDevice, s.MicDevice)
	}
	if s.MicGain != 1.0 {
		t.Errorf("MicGain = %v, want 1.0", s.MicGain)
	}
	if !s.GateEnabled {
		t.Error("gate disabled by default")
	}
	if s.SilenceThresholdDB != types.DefaultSilenceThresholdDB {
		t.Errorf("SilenceThresholdDB = %v, want %v", s.SilenceThresholdDB, types.DefaultSilenceThresholdDB)
	}
}

func TestLoadKeepsDefaultsForMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	// An older config file with only some sections present.
	partial := `{"system": {"port": 9000}, "audio": {"mic_gain": 2.0}}`
	if err := os.WriteFile(path, []byte(partial), 0o600); err != nil {
		t.Fatal(err)
	}

	c := New(path)
	if err := c.Load(); err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	s := c.Snapshot()
	if s.Port != 9000 {
		t.Errorf("Port = %d, want 9000 from file", s.Port)
	}
	if s.MicGain != 2.0 {
		t.Errorf("MicGain = %v, want 2.0 from file", s.MicGain)
	}
	if !s.GateEnabled {
		t.Error("gate default lost when section missing from file")
	}
	if s.OutputDirectory != DefaultOutputDir {
		t.Errorf("OutputDirectory = %q, want default", s.OutputDirectory)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad port", `{"system": {"port": 70000}}`},
		{"negative gain", `{"audio": {"mic_gain": -1}}`},
		{"excessive gain", `{"audio": {"mic_gain": 10}}`},
		{"traversal output dir", `{"output": {"directory": "../../etc"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.json")
			if err := os.WriteFile(path, []byte(tt.body), 0o600); err != nil {
				t.Fatal(err)
			}
			if err := New(path).Load(); err == nil {
				t.Error("Load() accepted invalid config")
			}
		})
	}
}

func TestSettersPersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	c := New(path)
	if err := c.Load(); err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if err := c.SetDevices(3, 5); err != nil {
		t.Fatalf("SetDevices() error: %v", err)
	}
	if err := c.SetSilence(-50, 5); err != nil {
		t.Fatalf("SetSilence() error: %v", err)
	}
	if err := c.SetGateEnabled(false); err != nil {
		t.Fatalf("SetGateEnabled() error: %v", err)
	}

	// A fresh Config reading the same file sees the changes.
	reloaded := New(path)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("reload error: %v", err)
	}
	s := reloaded.Snapshot()
	if s.SystemDevice != 3 || s.MicDevice != 5 {
		t.Errorf("devices = %d/%d, want 3/5", s.SystemDevice, s.MicDevice)
	}
	if s.SilenceThresholdDB != -50 || s.SilenceDurationS != 5 {
		t.Errorf("silence = %v/%v, want -50/5", s.SilenceThresholdDB, s.SilenceDurationS)
	}
	if s.GateEnabled {
		t.Error("gate still enabled after SetGateEnabled(false)")
	}
}

func TestConfigFileDoesNotLeakInternalFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	c := New(path)
	if err := c.Load(); err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("config file is not valid JSON: %v", err)
	}
	for _, key := range []string{"mu", "filePath"} {
		if _, ok := raw[key]; ok {
			t.Errorf("internal field %q serialized to disk", key)
		}
	}
}

func TestGenerateAPIKey(t *testing.T) {
	key1, err := GenerateAPIKey()
	if err != nil {
		t.Fatalf("GenerateAPIKey() error: %v", err)
	}
	if len(key1) != 32 {
		t.Errorf("key length = %d, want 32", len(key1))
	}
	key2, _ := GenerateAPIKey()
	if key1 == key2 {
		t.Error("two generated keys are identical")
	}
}

func TestSnapshotHasHelpers(t *testing.T) {
	s := Snapshot{}
	if s.HasWebhook() || s.HasLogPath() || s.HasGraph() {
		t.Error("empty snapshot reports configured channels")
	}

	s.WebhookURL = "https://example.com/hook"
	s.LogPath = "/var/log/silence.jsonl"
	if !s.HasWebhook() || !s.HasLogPath() {
		t.Error("configured channels not reported")
	}

	s.GraphTenantID = "t"
	s.GraphClientID = "c"
	s.GraphClientSecret = "s"
	s.GraphFromAddress = "from@example.com"
	if s.HasGraph() {
		t.Error("HasGraph() = true without recipients")
	}
	s.GraphRecipients = "ops@example.com"
	if !s.HasGraph() {
		t.Error("HasGraph() = false with full configuration")
	}
}
