package server

// Request types for WebSocket commands with validation tags.
// Pointer fields mean "unchanged when omitted", so clients can send
// partial updates.

// --- Session ---

// SessionStartRequest is the request body for session/start. Device
// overrides are optional; omitted fields fall back to configuration.
type SessionStartRequest struct {
	SystemDevice *int `json:"system_device" validate:"omitempty,gte=-1,lte=256"`
	MicDevice    *int `json:"mic_device" validate:"omitempty,gte=-1,lte=256"`
}

// --- Audio settings ---

// AudioUpdateRequest is the request body for audio/update.
type AudioUpdateRequest struct {
	SystemDevice *int     `json:"system_device" validate:"omitempty,gte=-1,lte=256"`
	MicDevice    *int     `json:"mic_device" validate:"omitempty,gte=-1,lte=256"`
	MicGain      *float64 `json:"mic_gain" validate:"omitempty,gte=0,lte=3"`
}

// --- Noise gate settings ---

// GateUpdateRequest is the request body for gate/update.
type GateUpdateRequest struct {
	Enabled     *bool    `json:"enabled"`
	ThresholdDB *float64 `json:"threshold_db" validate:"omitempty,gte=-80,lte=0"`
	AttackMs    *float64 `json:"attack_ms" validate:"omitempty,gte=0,lte=5000"`
	ReleaseMs   *float64 `json:"release_ms" validate:"omitempty,gte=0,lte=5000"`
	HoldMs      *float64 `json:"hold_ms" validate:"omitempty,gte=0,lte=10000"`
}

// --- Silence detection settings ---

// SilenceUpdateRequest is the request body for silence/update.
type SilenceUpdateRequest struct {
	ThresholdDB *float64 `json:"threshold_db" validate:"omitempty,gte=-100,lte=0"`
	DurationS   *float64 `json:"duration_s" validate:"omitempty,gte=0.5,lte=600"`
}

// --- Screen recording settings ---

// VideoUpdateRequest is the request body for video/update.
type VideoUpdateRequest struct {
	Enabled *bool `json:"enabled"`
	Monitor *int  `json:"monitor" validate:"omitempty,gte=0,lte=16"`
}

// --- Output settings ---

// OutputUpdateRequest is the request body for output/update.
type OutputUpdateRequest struct {
	Directory string `json:"directory" validate:"required,max=4096"`
}

// --- Notification settings ---

// WebhookUpdateRequest is the request body for notifications/webhook/update.
type WebhookUpdateRequest struct {
	URL string `json:"url" validate:"omitempty,url,max=2048"`
}

// LogUpdateRequest is the request body for notifications/log/update.
type LogUpdateRequest struct {
	Path string `json:"path" validate:"omitempty,max=4096"`
}

// EmailUpdateRequest is the request body for notifications/email/update.
// All fields must be set together or all left empty to disable email.
type EmailUpdateRequest struct {
	TenantID     string `json:"tenant_id" validate:"omitempty,max=64"`
	ClientID     string `json:"client_id" validate:"omitempty,max=64"`
	ClientSecret string `json:"client_secret" validate:"omitempty,max=512"`
	FromAddress  string `json:"from_address" validate:"omitempty,email"`
	Recipients   string `json:"recipients" validate:"omitempty,max=2048"`
}

// --- Upload settings ---

// UploadUpdateRequest is the request body for upload/update.
type UploadUpdateRequest struct {
	Endpoint        string `json:"endpoint" validate:"omitempty,url,max=2048"`
	Bucket          string `json:"bucket" validate:"omitempty,max=255"`
	AccessKeyID     string `json:"access_key_id" validate:"omitempty,max=256"`
	SecretAccessKey string `json:"secret_access_key" validate:"omitempty,max=256"`
	Prefix          string `json:"prefix" validate:"omitempty,max=512"`
}

// --- Event log ---

// EventsGetRequest is the request body for events/get.
type EventsGetRequest struct {
	Limit  int    `json:"limit" validate:"omitempty,gte=1,lte=500"`
	Offset int    `json:"offset" validate:"omitempty,gte=0"`
	Filter string `json:"filter" validate:"omitempty,oneof=all session silence file"`
}
