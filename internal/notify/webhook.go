package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/loopcorder/loopcorder/internal/util"
)

const webhookTimeout = 10 * time.Second

// WebhookPayload is the JSON body sent to webhook endpoints.
type WebhookPayload struct {
	Event       string  `json:"event"`
	Source      string  `json:"source,omitempty"` // "system" or "mic"
	DurationS   float64 `json:"duration_s,omitempty"`
	LevelDB     float64 `json:"level_db,omitempty"`
	ThresholdDB float64 `json:"threshold_db,omitempty"`
	Message     string  `json:"message,omitempty"`
	Timestamp   string  `json:"timestamp"`
}

// SendSilenceWebhook notifies the configured webhook that a path went
// silent during recording.
func SendSilenceWebhook(webhookURL, source string, levelDB, thresholdDB float64) error {
	return sendWebhook(webhookURL, &WebhookPayload{
		Event:       "silence_detected",
		Source:      source,
		LevelDB:     levelDB,
		ThresholdDB: thresholdDB,
		Timestamp:   timestampUTC(),
	})
}

// SendRecoveryWebhook notifies the configured webhook that a silent
// path recovered.
func SendRecoveryWebhook(webhookURL, source string, durationSec, thresholdDB float64) error {
	return sendWebhook(webhookURL, &WebhookPayload{
		Event:       "silence_recovered",
		Source:      source,
		DurationS:   durationSec,
		ThresholdDB: thresholdDB,
		Timestamp:   timestampUTC(),
	})
}

// SendTestWebhook sends a test notification to verify the webhook URL.
func SendTestWebhook(webhookURL string) error {
	if webhookURL == "" {
		return fmt.Errorf("webhook URL not configured")
	}
	return sendWebhook(webhookURL, &WebhookPayload{
		Event:     "test",
		Message:   "This is a test notification from loopcorder",
		Timestamp: timestampUTC(),
	})
}

// sendWebhook delivers a notification to the configured webhook endpoint.
func sendWebhook(webhookURL string, payload *WebhookPayload) error {
	if !util.IsConfigured(webhookURL) {
		return nil
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return util.WrapError("marshal payload", err)
	}

	client := &http.Client{Timeout: webhookTimeout}
	resp, err := client.Post(webhookURL, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return util.WrapError("send webhook request", err)
	}
	defer util.SafeCloseFunc(resp.Body, "webhook response body")()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
