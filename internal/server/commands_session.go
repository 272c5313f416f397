package server

import (
	"context"
	"errors"
	"log/slog"

	"github.com/loopcorder/loopcorder/internal/types"
)

// handleSessionStart processes a session/start command. Device
// overrides are saved to configuration first, then the session starts
// asynchronously since device opens can block for the mic settle delay.
func (h *CommandHandler) handleSessionStart(cmd WSCommand, send chan<- any) {
	var req SessionStartRequest
	if !DecodeAndValidate(cmd, send, &req) {
		return
	}

	if req.SystemDevice != nil || req.MicDevice != nil {
		snap := h.cfg.Snapshot()
		system := snap.SystemDevice
		mic := snap.MicDevice
		if req.SystemDevice != nil {
			system = *req.SystemDevice
		}
		if req.MicDevice != nil {
			mic = *req.MicDevice
		}
		if err := h.cfg.SetDevices(system, mic); err != nil {
			SendError(send, cmd.Type, err)
			return
		}
	}

	HandleActionAsync(cmd, send, func() (any, error) {
		if err := h.engine.Start(); err != nil {
			return nil, err
		}
		return nil, nil
	})
}

// handleSessionStop processes a session/stop command. Persisting the
// recording can take as long as an external encode, so it runs
// asynchronously and reports the output file in the result data.
func (h *CommandHandler) handleSessionStop(cmd WSCommand, send chan<- any) {
	HandleActionAsync(cmd, send, func() (any, error) {
		result, err := h.engine.Stop(context.Background())

		switch {
		case errors.Is(err, types.ErrNoAudio):
			return map[string]any{"saved": false}, nil
		case result != nil:
			data := map[string]any{
				"saved":      true,
				"path":       result.Path,
				"format":     result.Format,
				"duration_s": result.Duration,
				"size_bytes": result.FileSize,
			}
			if err != nil {
				// Encode failed but the WAV survives; the client also
				// receives an encode_fallback event.
				slog.Warn("session stopped with degraded save", "error", err)
				data["encode_error"] = err.Error()
			}
			return data, nil
		default:
			return nil, err
		}
	})
}

// handleSessionPause processes a session/pause command.
func (h *CommandHandler) handleSessionPause(cmd WSCommand, send chan<- any) {
	if err := h.engine.Pause(); err != nil {
		SendError(send, cmd.Type, err)
		return
	}
	SendSuccess(send, cmd.Type, nil)
}

// handleSessionResume processes a session/resume command.
func (h *CommandHandler) handleSessionResume(cmd WSCommand, send chan<- any) {
	if err := h.engine.Resume(); err != nil {
		SendError(send, cmd.Type, err)
		return
	}
	SendSuccess(send, cmd.Type, nil)
}
