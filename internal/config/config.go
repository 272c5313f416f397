// Package config provides application configuration management.
package config

import (
	"cmp"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"sync"

	"github.com/loopcorder/loopcorder/internal/persist"
	"github.com/loopcorder/loopcorder/internal/types"
	"github.com/loopcorder/loopcorder/internal/util"
)

// Configuration defaults are used when values are not specified.
const (
	DefaultPort      = 8090
	DefaultOutputDir = "recordings"

	// AutoDevice selects the device automatically: the first loopback
	// endpoint for the system path, no device for the mic path.
	AutoDevice = -1
)

// SystemConfig holds system-level settings that require restart.
type SystemConfig struct {
	FFmpegPath string `json:"ffmpeg_path"` // Path to FFmpeg binary (empty = use PATH)
	Port       int    `json:"port"`        // HTTP server port
	APIKey     string `json:"api_key"`     // API key for the REST control endpoints
}

// OutputConfig holds recording output settings.
type OutputConfig struct {
	Directory string `json:"directory"` // Directory for finished recordings
}

// AudioConfig holds audio device and gain settings.
type AudioConfig struct {
	SystemDevice int     `json:"system_device"` // Loopback device index (AutoDevice = detect)
	MicDevice    int     `json:"mic_device"`    // Microphone device index (AutoDevice = none)
	MicGain      float64 `json:"mic_gain"`      // Microphone gain multiplier
}

// GateConfig holds noise gate parameters for the microphone path.
type GateConfig struct {
	Enabled     bool    `json:"enabled"`
	ThresholdDB float64 `json:"threshold_db"`
	AttackMs    float64 `json:"attack_ms"`
	ReleaseMs   float64 `json:"release_ms"`
	HoldMs      float64 `json:"hold_ms"`
}

// SilenceConfig holds silence warning parameters.
type SilenceConfig struct {
	ThresholdDB float64 `json:"threshold_db"` // Level below which audio counts as silent
	DurationS   float64 `json:"duration_s"`   // Silent time before a warning is raised
}

// VideoConfig holds screen recording settings.
type VideoConfig struct {
	Enabled bool `json:"enabled"` // Record the screen alongside audio
	Monitor int  `json:"monitor"` // Monitor index to record
}

// WebhookConfig holds webhook notification settings.
type WebhookConfig struct {
	URL string `json:"url"` // Webhook URL for silence alerts
}

// LogConfig holds log file notification settings.
type LogConfig struct {
	Path string `json:"path"` // Log file path for silence events
}

// EmailConfig holds Microsoft Graph email notification settings.
type EmailConfig struct {
	TenantID     string `json:"tenant_id"`     // Azure AD tenant ID
	ClientID     string `json:"client_id"`     // App registration client ID
	ClientSecret string `json:"client_secret"` // App registration client secret
	FromAddress  string `json:"from_address"`  // Shared mailbox sender address
	Recipients   string `json:"recipients"`    // Comma-separated recipient addresses
}

// NotificationsConfig holds all notification channel settings.
type NotificationsConfig struct {
	Webhook WebhookConfig `json:"webhook"`
	Log     LogConfig     `json:"log"`
	Email   EmailConfig   `json:"email"`
}

// UploadConfig holds S3 upload settings for finished recordings.
type UploadConfig struct {
	Endpoint        string `json:"endpoint"`
	Bucket          string `json:"bucket"`
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	Prefix          string `json:"prefix"`
}

// Config holds all application configuration. It is safe for concurrent use.
type Config struct {
	System        SystemConfig        `json:"system"`
	Output        OutputConfig        `json:"output"`
	Audio         AudioConfig         `json:"audio"`
	Gate          GateConfig          `json:"gate"`
	Silence       SilenceConfig       `json:"silence"`
	Video         VideoConfig         `json:"video"`
	Notifications NotificationsConfig `json:"notifications"`
	Upload        UploadConfig        `json:"upload"`

	mu       sync.RWMutex
	filePath string
}

// New creates a new Config with default values.
func New(filePath string) *Config {
	return &Config{
		System: SystemConfig{
			Port: DefaultPort,
		},
		Output: OutputConfig{
			Directory: DefaultOutputDir,
		},
		Audio: AudioConfig{
			SystemDevice: AutoDevice,
			MicDevice:    AutoDevice,
			MicGain:      1.0,
		},
		Gate: GateConfig{
			Enabled:     true,
			ThresholdDB: types.DefaultGateThresholdDB,
			AttackMs:    types.DefaultGateAttackMs,
			ReleaseMs:   types.DefaultGateReleaseMs,
			HoldMs:      types.DefaultGateHoldMs,
		},
		Silence: SilenceConfig{
			ThresholdDB: types.DefaultSilenceThresholdDB,
			DurationS:   types.DefaultSilenceDurationSec,
		},
		filePath: filePath,
	}
}

// Load reads config from file, creating a default one if none exists.
// Unmarshaling happens over the defaults from New, so fields missing
// from an older config file keep their default values.
func (c *Config) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.filePath)
	if os.IsNotExist(err) {
		return c.saveLocked()
	}
	if err != nil {
		return util.WrapError("read config", err)
	}

	if err := json.Unmarshal(data, c); err != nil {
		return util.WrapError("parse config", err)
	}

	c.applyDefaults()
	return c.validate()
}

// validate checks configuration fields for correctness.
func (c *Config) validate() error {
	if c.System.Port < 1 || c.System.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be 1-65535", c.System.Port)
	}
	if c.Audio.MicGain < 0 || c.Audio.MicGain > types.MaxMicGain {
		return fmt.Errorf("invalid mic_gain %v: must be 0-%v", c.Audio.MicGain, types.MaxMicGain)
	}
	if err := util.ValidatePath("output.directory", c.Output.Directory); err != nil {
		return err
	}
	return nil
}

// applyDefaults sets default values for zero-value fields.
func (c *Config) applyDefaults() {
	if c.System.Port == 0 {
		c.System.Port = DefaultPort
	}
	if c.Output.Directory == "" {
		c.Output.Directory = DefaultOutputDir
	}
	if c.Gate.ThresholdDB == 0 {
		c.Gate.ThresholdDB = types.DefaultGateThresholdDB
	}
	if c.Gate.AttackMs == 0 {
		c.Gate.AttackMs = types.DefaultGateAttackMs
	}
	if c.Gate.ReleaseMs == 0 {
		c.Gate.ReleaseMs = types.DefaultGateReleaseMs
	}
	if c.Gate.HoldMs == 0 {
		c.Gate.HoldMs = types.DefaultGateHoldMs
	}
	if c.Silence.ThresholdDB == 0 {
		c.Silence.ThresholdDB = types.DefaultSilenceThresholdDB
	}
	if c.Silence.DurationS == 0 {
		c.Silence.DurationS = types.DefaultSilenceDurationSec
	}
}

// saveLocked persists configuration. Caller must hold c.mu.
func (c *Config) saveLocked() error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return util.WrapError("marshal config", err)
	}

	dir := filepath.Dir(c.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return util.WrapError("create config directory", err)
	}

	if err := os.WriteFile(c.filePath, data, 0o600); err != nil {
		return util.WrapError("write config", err)
	}
	return nil
}

// --- Getters for individual settings ---

// GetFFmpegPath returns the configured FFmpeg binary path.
func (c *Config) GetFFmpegPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.System.FFmpegPath
}

// GetAPIKey returns the API key for the REST control endpoints.
func (c *Config) GetAPIKey() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.System.APIKey
}

// OutputDirectory returns the recording output directory.
func (c *Config) OutputDirectory() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Output.Directory
}

// Devices returns the configured system and mic device indexes.
func (c *Config) Devices() (system, mic int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Audio.SystemDevice, c.Audio.MicDevice
}

// GraphConfig returns a copy of the email notification configuration.
func (c *Config) GraphConfig() types.GraphConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return types.GraphConfig{
		TenantID:     c.Notifications.Email.TenantID,
		ClientID:     c.Notifications.Email.ClientID,
		ClientSecret: c.Notifications.Email.ClientSecret,
		FromAddress:  c.Notifications.Email.FromAddress,
		Recipients:   c.Notifications.Email.Recipients,
	}
}

// S3Config returns the upload settings in the uploader's format.
func (c *Config) S3Config() persist.S3Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return persist.S3Config{
		Endpoint:        c.Upload.Endpoint,
		Bucket:          c.Upload.Bucket,
		AccessKeyID:     c.Upload.AccessKeyID,
		SecretAccessKey: c.Upload.SecretAccessKey,
		Prefix:          c.Upload.Prefix,
	}
}

// --- Setters for individual settings ---

// SetDevices updates the audio device selection and saves.
func (c *Config) SetDevices(system, mic int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Audio.SystemDevice = system
	c.Audio.MicDevice = mic
	return c.saveLocked()
}

// SetMicGain updates the microphone gain and saves.
func (c *Config) SetMicGain(gain float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Audio.MicGain = gain
	return c.saveLocked()
}

// SetGate updates the noise gate settings and saves.
func (c *Config) SetGate(gate GateConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Gate = gate
	return c.saveLocked()
}

// SetGateEnabled toggles the noise gate and saves.
func (c *Config) SetGateEnabled(enabled bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Gate.Enabled = enabled
	return c.saveLocked()
}

// SetSilence updates the silence warning settings and saves.
func (c *Config) SetSilence(thresholdDB, durationS float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Silence.ThresholdDB = thresholdDB
	c.Silence.DurationS = durationS
	return c.saveLocked()
}

// SetVideo updates the screen recording settings and saves.
func (c *Config) SetVideo(enabled bool, monitor int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Video.Enabled = enabled
	c.Video.Monitor = monitor
	return c.saveLocked()
}

// SetOutputDirectory updates the recording output directory and saves.
func (c *Config) SetOutputDirectory(dir string) error {
	if err := util.ValidatePath("output.directory", dir); err != nil {
		return err
	}
	if err := util.CheckPathWritable(dir); err != nil {
		return fmt.Errorf("output.directory: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Output.Directory = dir
	return c.saveLocked()
}

// SetWebhookURL updates the webhook URL and saves.
func (c *Config) SetWebhookURL(url string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Notifications.Webhook.URL = url
	return c.saveLocked()
}

// SetLogPath updates the notification log path and saves.
func (c *Config) SetLogPath(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Notifications.Log.Path = path
	return c.saveLocked()
}

// SetGraphConfig updates all email notification fields and saves.
func (c *Config) SetGraphConfig(tenantID, clientID, clientSecret, fromAddress, recipients string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Notifications.Email.TenantID = tenantID
	c.Notifications.Email.ClientID = clientID
	c.Notifications.Email.ClientSecret = clientSecret
	c.Notifications.Email.FromAddress = fromAddress
	c.Notifications.Email.Recipients = recipients
	return c.saveLocked()
}

// SetUpload updates the S3 upload settings and saves.
func (c *Config) SetUpload(u UploadConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Upload = u
	return c.saveLocked()
}

// SetAPIKey updates the REST API key and saves.
func (c *Config) SetAPIKey(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.System.APIKey = key
	return c.saveLocked()
}

// --- Snapshot for atomic reads ---

// Snapshot is a point-in-time copy of configuration values.
type Snapshot struct {
	// System
	Port       int
	APIKey     string
	FFmpegPath string

	// Output
	OutputDirectory string

	// Audio
	SystemDevice int
	MicDevice    int
	MicGain      float64

	// Gate
	GateEnabled     bool
	GateThresholdDB float64
	GateAttackMs    float64
	GateReleaseMs   float64
	GateHoldMs      float64

	// Silence
	SilenceThresholdDB float64
	SilenceDurationS   float64

	// Video
	VideoEnabled bool
	VideoMonitor int

	// Notifications
	WebhookURL        string
	LogPath           string
	GraphTenantID     string
	GraphClientID     string
	GraphClientSecret string
	GraphFromAddress  string
	GraphRecipients   string

	// Upload
	UploadBucket string
}

// Snapshot returns a point-in-time copy of all configuration values.
func (c *Config) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Snapshot{
		Port:       c.System.Port,
		APIKey:     c.System.APIKey,
		FFmpegPath: c.System.FFmpegPath,

		OutputDirectory: c.Output.Directory,

		SystemDevice: c.Audio.SystemDevice,
		MicDevice:    c.Audio.MicDevice,
		MicGain:      cmp.Or(c.Audio.MicGain, 1.0),

		GateEnabled:     c.Gate.Enabled,
		GateThresholdDB: cmp.Or(c.Gate.ThresholdDB, types.DefaultGateThresholdDB),
		GateAttackMs:    cmp.Or(c.Gate.AttackMs, types.DefaultGateAttackMs),
		GateReleaseMs:   cmp.Or(c.Gate.ReleaseMs, types.DefaultGateReleaseMs),
		GateHoldMs:      cmp.Or(c.Gate.HoldMs, types.DefaultGateHoldMs),

		SilenceThresholdDB: cmp.Or(c.Silence.ThresholdDB, types.DefaultSilenceThresholdDB),
		SilenceDurationS:   cmp.Or(c.Silence.DurationS, types.DefaultSilenceDurationSec),

		VideoEnabled: c.Video.Enabled,
		VideoMonitor: c.Video.Monitor,

		WebhookURL:        c.Notifications.Webhook.URL,
		LogPath:           c.Notifications.Log.Path,
		GraphTenantID:     c.Notifications.Email.TenantID,
		GraphClientID:     c.Notifications.Email.ClientID,
		GraphClientSecret: c.Notifications.Email.ClientSecret,
		GraphFromAddress:  c.Notifications.Email.FromAddress,
		GraphRecipients:   c.Notifications.Email.Recipients,

		UploadBucket: c.Upload.Bucket,
	}
}

// HasWebhook reports whether a webhook URL is configured.
func (s *Snapshot) HasWebhook() bool {
	return s.WebhookURL != ""
}

// HasGraph reports whether email notifications are configured.
func (s *Snapshot) HasGraph() bool {
	return s.GraphTenantID != "" && s.GraphClientID != "" && s.GraphClientSecret != "" &&
		s.GraphFromAddress != "" && s.GraphRecipients != ""
}

// HasLogPath reports whether a notification log path is configured.
func (s *Snapshot) HasLogPath() bool {
	return s.LogPath != ""
}

// --- Utility functions ---

// GenerateAPIKey generates a new random 32-character alphanumeric API key.
func GenerateAPIKey() (string, error) {
	const chars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const length = 32
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(chars))))
		if err != nil {
			return "", err
		}
		result[i] = chars[n.Int64()]
	}
	return string(result), nil
}
