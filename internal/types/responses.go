package types

// WSStatusResponse is the periodic status push sent to WebSocket clients.
type WSStatusResponse struct {
	Type              string        `json:"type"` // "status"
	FFmpegAvailable   bool          `json:"ffmpeg_available"`
	Session           SessionStatus `json:"session"`
	Devices           []Device      `json:"devices"`
	Monitors          []Monitor     `json:"monitors"`
	MicGain           float64       `json:"mic_gain"`
	GateEnabled       bool          `json:"gate_enabled"`
	GateThresholdDB   float64       `json:"gate_threshold_db"`
	SilenceThreshold  float64       `json:"silence_threshold_db"`
	SilenceDurationS  float64       `json:"silence_duration_s"`
	OutputDir         string        `json:"output_dir"`
	SilenceWebhook    string        `json:"silence_webhook,omitempty"`
	SilenceLogPath    string        `json:"silence_log_path,omitempty"`
	GraphTenantID     string        `json:"graph_tenant_id,omitempty"`
	GraphClientID     string        `json:"graph_client_id,omitempty"`
	GraphFromAddress  string        `json:"graph_from_address,omitempty"`
	GraphRecipients   string        `json:"graph_recipients,omitempty"`
	UploadBucket      string        `json:"upload_bucket,omitempty"`
	Version           VersionInfo   `json:"version"`
}

// WSLevelsResponse is the high-frequency level push for VU meters.
type WSLevelsResponse struct {
	Type   string      `json:"type"` // "levels"
	Levels AudioLevels `json:"levels"`
}

// WSEventResponse carries an asynchronous pipeline event (errors, encode
// fallback, silence warnings) to WebSocket clients.
type WSEventResponse struct {
	Type    string `json:"type"`  // "event"
	Event   string `json:"event"` // event kind
	Message string `json:"message,omitempty"`
	Path    string `json:"path,omitempty"`
}

// WSTestResult is the response for a notification or upload test command.
type WSTestResult struct {
	Type     string `json:"type"`      // "test_result"
	TestType string `json:"test_type"` // "webhook", "log", "email", "upload"
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
}

// WSSilenceLogResult is the response for viewing the silence log file.
type WSSilenceLogResult struct {
	Type    string            `json:"type"` // "silence_log_result"
	Success bool              `json:"success"`
	Error   string            `json:"error,omitempty"`
	Path    string            `json:"path,omitempty"`
	Entries []SilenceLogEntry `json:"entries,omitempty"`
}

// WSCommandResult is the standard response for command execution.
type WSCommandResult struct {
	Type    string           `json:"type"`            // "<command>_result"
	Success bool             `json:"success"`         // true if command succeeded
	Error   *ValidationError `json:"error,omitempty"` // Validation errors if failed
	Data    any              `json:"data,omitempty"`  // Optional response data
}
