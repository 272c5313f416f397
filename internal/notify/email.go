package notify

import (
	"fmt"

	"github.com/loopcorder/loopcorder/internal/config"
	"github.com/loopcorder/loopcorder/internal/types"
	"github.com/loopcorder/loopcorder/internal/util"
)

// buildGraphConfig maps the config snapshot to the Graph client's
// credential struct.
func buildGraphConfig(cfg *config.Snapshot) *types.GraphConfig {
	return &types.GraphConfig{
		TenantID:     cfg.GraphTenantID,
		ClientID:     cfg.GraphClientID,
		ClientSecret: cfg.GraphClientSecret,
		FromAddress:  cfg.GraphFromAddress,
		Recipients:   cfg.GraphRecipients,
	}
}

// getOrCreateGraphClient returns the cached Graph client, creating it
// if needed. Token caching lives inside the client, so reusing it
// avoids re-authenticating for every alert.
func (n *SilenceNotifier) getOrCreateGraphClient(cfg *types.GraphConfig) (*GraphClient, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.graphClient != nil {
		return n.graphClient, nil
	}
	client, err := NewGraphClient(cfg)
	if err != nil {
		return nil, err
	}
	n.graphClient = client
	return client, nil
}

// sendEmail handles the shared email delivery path.
func (n *SilenceNotifier) sendEmail(cfg *types.GraphConfig, subject, body string) error {
	if !IsConfigured(cfg) {
		return nil
	}

	client, err := n.getOrCreateGraphClient(cfg)
	if err != nil {
		return util.WrapError("create Graph client", err)
	}

	recipients := ParseRecipients(cfg.Recipients)
	if len(recipients) == 0 {
		return fmt.Errorf("no valid recipients")
	}

	if err := client.SendMail(recipients, subject, body); err != nil {
		return util.WrapError("send email via Graph", err)
	}
	return nil
}

func (n *SilenceNotifier) sendSilenceEmail(cfg *config.Snapshot, path string, levelDB float64) error {
	subject := fmt.Sprintf("[ALERT] Silence on %s audio", path)
	body := fmt.Sprintf(
		"Prolonged silence detected during recording.\n\n"+
			"Path:      %s\n"+
			"Level:     %.1f dB\n"+
			"Threshold: %.1f dB\n"+
			"Time:      %s\n\n"+
			"Silence is ongoing. Please check the audio source.",
		path, levelDB, cfg.SilenceThresholdDB, util.HumanTime(),
	)
	return n.sendEmail(buildGraphConfig(cfg), subject, body)
}

func (n *SilenceNotifier) sendRecoveryEmail(cfg *config.Snapshot, path string, durationSec, levelDB float64) error {
	subject := fmt.Sprintf("[OK] %s audio recovered", path)
	body := fmt.Sprintf(
		"Audio returned on the %s path.\n\n"+
			"Level:          %.1f dB\n"+
			"Silence lasted: %s\n"+
			"Threshold:      %.1f dB\n"+
			"Time:           %s",
		path, levelDB, util.FormatSeconds(durationSec), cfg.SilenceThresholdDB, util.HumanTime(),
	)
	return n.sendEmail(buildGraphConfig(cfg), subject, body)
}

// SendTestEmail sends a test email to verify the Graph configuration.
func SendTestEmail(cfg *types.GraphConfig) error {
	if err := ValidateConfig(cfg); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	client, err := NewGraphClient(cfg)
	if err != nil {
		return util.WrapError("create Graph client", err)
	}
	if err := client.ValidateAuth(); err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	subject := "[TEST] loopcorder notifications"
	body := fmt.Sprintf(
		"Test email from loopcorder.\n\n"+
			"Time: %s\n\n"+
			"Microsoft Graph configuration is working correctly.",
		util.HumanTime(),
	)
	return client.SendMail(ParseRecipients(cfg.Recipients), subject, body)
}
