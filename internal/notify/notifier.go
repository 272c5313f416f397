// Package notify delivers silence alerts over the configured channels:
// webhook, JSONL log file, and Microsoft Graph email.
package notify

import (
	"sync"
	"time"

	"github.com/loopcorder/loopcorder/internal/config"
	"github.com/loopcorder/loopcorder/internal/util"
)

// timestampUTC returns the current UTC time in RFC3339 format.
func timestampUTC() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// pathState tracks which channels have fired for one audio path's
// current silence period.
type pathState struct {
	webhookSent bool
	emailSent   bool
	logSent     bool
	levelDB     float64
}

// SilenceNotifier fans silence events out to the configured channels.
// Each channel fires once per silence period per path; recovery
// notifications go only to channels that sent the alert. Senders run
// on their own goroutines so a slow webhook never stalls the capture
// loop.
type SilenceNotifier struct {
	cfg *config.Config

	mu    sync.Mutex
	paths map[string]*pathState

	graphClient *GraphClient
}

// NewSilenceNotifier returns a SilenceNotifier reading settings from cfg.
func NewSilenceNotifier(cfg *config.Config) *SilenceNotifier {
	return &SilenceNotifier{
		cfg:   cfg,
		paths: make(map[string]*pathState),
	}
}

// InvalidateGraphClient clears the cached Graph client. Call when the
// email configuration changes.
func (n *SilenceNotifier) InvalidateGraphClient() {
	n.mu.Lock()
	n.graphClient = nil
	n.mu.Unlock()
}

// HandleSilence processes an ongoing silence warning on a path. The
// first call in a silence period triggers the alerts; repeats are
// deduplicated.
func (n *SilenceNotifier) HandleSilence(path string, durationSec, levelDB float64) {
	cfg := n.cfg.Snapshot()
	state := n.pathState(path)

	n.mu.Lock()
	state.levelDB = levelDB
	n.mu.Unlock()

	n.trySend(&state.webhookSent, cfg.HasWebhook(), func() {
		util.LogNotifyResult(func() error {
			return SendSilenceWebhook(cfg.WebhookURL, path, levelDB, cfg.SilenceThresholdDB)
		}, "silence webhook")
	})
	n.trySend(&state.emailSent, cfg.HasGraph(), func() {
		util.LogNotifyResult(func() error {
			return n.sendSilenceEmail(&cfg, path, levelDB)
		}, "silence email")
	})
	n.trySend(&state.logSent, cfg.HasLogPath(), func() {
		util.LogNotifyResult(func() error {
			return LogSilenceStart(cfg.LogPath, path, levelDB, cfg.SilenceThresholdDB)
		}, "silence log")
	})
}

// HandleRecovery processes the end of a silence period on a path.
func (n *SilenceNotifier) HandleRecovery(path string, durationSec float64) {
	cfg := n.cfg.Snapshot()
	state := n.pathState(path)

	n.mu.Lock()
	webhookRecovery := state.webhookSent
	emailRecovery := state.emailSent
	logRecovery := state.logSent
	levelDB := state.levelDB
	state.webhookSent = false
	state.emailSent = false
	state.logSent = false
	n.mu.Unlock()

	if webhookRecovery {
		go util.LogNotifyResult(func() error {
			return SendRecoveryWebhook(cfg.WebhookURL, path, durationSec, cfg.SilenceThresholdDB)
		}, "recovery webhook")
	}
	if emailRecovery {
		go util.LogNotifyResult(func() error {
			return n.sendRecoveryEmail(&cfg, path, durationSec, levelDB)
		}, "recovery email")
	}
	if logRecovery {
		go util.LogNotifyResult(func() error {
			return LogSilenceEnd(cfg.LogPath, path, durationSec, cfg.SilenceThresholdDB)
		}, "recovery log")
	}
}

// Reset clears notification state for all paths, e.g. when a session
// stops mid-silence.
func (n *SilenceNotifier) Reset() {
	n.mu.Lock()
	n.paths = make(map[string]*pathState)
	n.mu.Unlock()
}

func (n *SilenceNotifier) pathState(path string) *pathState {
	n.mu.Lock()
	defer n.mu.Unlock()
	state, ok := n.paths[path]
	if !ok {
		state = &pathState{}
		n.paths[path] = state
	}
	return state
}

// trySend fires the sender once per silence period when the channel is
// configured.
func (n *SilenceNotifier) trySend(sent *bool, configured bool, sender func()) {
	n.mu.Lock()
	shouldSend := !*sent && configured
	if shouldSend {
		*sent = true
	}
	n.mu.Unlock()
	if shouldSend {
		go sender()
	}
}
