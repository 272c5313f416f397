package server

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/loopcorder/loopcorder/internal/config"
	"github.com/loopcorder/loopcorder/internal/engine"
	"github.com/loopcorder/loopcorder/internal/eventlog"
)

// MaxLogEntries is the maximum number of silence log entries returned
// to a client.
const MaxLogEntries = 100

// WSCommand is a command received from a WebSocket client.
type WSCommand struct {
	Type string          `json:"type"`
	ID   string          `json:"id,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// CommandHandler processes WebSocket commands.
type CommandHandler struct {
	cfg             *config.Config
	engine          *engine.Engine
	events          *eventlog.Logger
	ffmpegAvailable bool
}

// NewCommandHandler creates a new command handler.
func NewCommandHandler(cfg *config.Config, eng *engine.Engine, events *eventlog.Logger, ffmpegAvailable bool) *CommandHandler {
	return &CommandHandler{
		cfg:             cfg,
		engine:          eng,
		events:          events,
		ffmpegAvailable: ffmpegAvailable,
	}
}

// Handle processes a WebSocket command and performs the requested action.
// Commands use slash-style format: namespace/action (e.g. "session/start",
// "notifications/webhook/update").
func (h *CommandHandler) Handle(cmd WSCommand, send chan<- any, triggerStatusUpdate func()) {
	parts := strings.SplitN(cmd.Type, "/", 3)
	namespace := parts[0]
	action := ""
	if len(parts) > 1 {
		action = parts[1]
	}
	subaction := ""
	if len(parts) > 2 {
		subaction = parts[2]
	}

	switch namespace {
	case "session":
		h.handleSession(action, cmd, send)
	case "audio":
		h.handleAudio(action, cmd, send)
	case "gate":
		h.handleGate(action, cmd, send)
	case "silence":
		h.handleSilence(action, cmd, send)
	case "video":
		h.handleVideo(action, cmd, send)
	case "output":
		h.handleOutput(action, cmd, send)
	case "upload":
		h.handleUpload(action, cmd, send)
	case "notifications":
		h.handleNotifications(action, subaction, cmd, send)
	case "system":
		h.handleSystem(action, send)
	case "events":
		h.handleEvents(action, cmd, send)
	case "status":
		h.handleStatus(action)
	default:
		slog.Warn("unknown WebSocket command", "type", cmd.Type)
	}

	triggerStatusUpdate()
}

// --- Namespace routers ---

func (h *CommandHandler) handleSession(action string, cmd WSCommand, send chan<- any) {
	switch action {
	case "start":
		h.handleSessionStart(cmd, send)
	case "stop":
		h.handleSessionStop(cmd, send)
	case "pause":
		h.handleSessionPause(cmd, send)
	case "resume":
		h.handleSessionResume(cmd, send)
	default:
		slog.Warn("unknown session action", "action", action)
	}
}

func (h *CommandHandler) handleAudio(action string, cmd WSCommand, send chan<- any) {
	switch action {
	case "update":
		h.handleAudioUpdate(cmd, send)
	default:
		slog.Warn("unknown audio action", "action", action)
	}
}

func (h *CommandHandler) handleGate(action string, cmd WSCommand, send chan<- any) {
	switch action {
	case "update":
		h.handleGateUpdate(cmd, send)
	default:
		slog.Warn("unknown gate action", "action", action)
	}
}

func (h *CommandHandler) handleSilence(action string, cmd WSCommand, send chan<- any) {
	switch action {
	case "update":
		h.handleSilenceUpdate(cmd, send)
	default:
		slog.Warn("unknown silence action", "action", action)
	}
}

func (h *CommandHandler) handleVideo(action string, cmd WSCommand, send chan<- any) {
	switch action {
	case "update":
		h.handleVideoUpdate(cmd, send)
	default:
		slog.Warn("unknown video action", "action", action)
	}
}

func (h *CommandHandler) handleOutput(action string, cmd WSCommand, send chan<- any) {
	switch action {
	case "update":
		h.handleOutputUpdate(cmd, send)
	default:
		slog.Warn("unknown output action", "action", action)
	}
}

func (h *CommandHandler) handleUpload(action string, cmd WSCommand, send chan<- any) {
	switch action {
	case "update":
		h.handleUploadUpdate(cmd, send)
	case "test":
		h.handleTest(send, "test_upload")
	default:
		slog.Warn("unknown upload action", "action", action)
	}
}

func (h *CommandHandler) handleNotifications(action, subaction string, cmd WSCommand, send chan<- any) {
	switch action {
	case "webhook":
		switch subaction {
		case "update":
			h.handleWebhookUpdate(cmd, send)
		case "test":
			h.handleTest(send, "test_webhook")
		default:
			slog.Warn("unknown webhook action", "subaction", subaction)
		}
	case "log":
		switch subaction {
		case "update":
			h.handleLogUpdate(cmd, send)
		case "test":
			h.handleTest(send, "test_log")
		case "view":
			h.handleViewSilenceLog(send)
		default:
			slog.Warn("unknown log action", "subaction", subaction)
		}
	case "email":
		switch subaction {
		case "update":
			h.handleEmailUpdate(cmd, send)
		case "test":
			h.handleTest(send, "test_email")
		default:
			slog.Warn("unknown email action", "subaction", subaction)
		}
	default:
		slog.Warn("unknown notifications action", "action", action)
	}
}

func (h *CommandHandler) handleSystem(action string, send chan<- any) {
	switch action {
	case "regenerate-key":
		h.handleRegenerateAPIKey(send)
	default:
		slog.Warn("unknown system action", "action", action)
	}
}

func (h *CommandHandler) handleEvents(action string, cmd WSCommand, send chan<- any) {
	switch action {
	case "get":
		h.handleEventsGet(cmd, send)
	default:
		slog.Warn("unknown events action", "action", action)
	}
}

func (h *CommandHandler) handleStatus(action string) {
	switch action {
	case "get":
		// Status is sent after every command; nothing extra to do.
	default:
		slog.Warn("unknown status action", "action", action)
	}
}
