package server

import (
	"log/slog"

	"github.com/loopcorder/loopcorder/internal/config"
	"github.com/loopcorder/loopcorder/internal/types"
)

// handleAudioUpdate processes an audio/update command. Gain changes
// reach a live session immediately; a mic device change while
// recording swaps the stream in the background.
func (h *CommandHandler) handleAudioUpdate(cmd WSCommand, send chan<- any) {
	HandleCommand(cmd, send, func(req *AudioUpdateRequest) error {
		snap := h.cfg.Snapshot()

		if req.SystemDevice != nil || req.MicDevice != nil {
			system := snap.SystemDevice
			mic := snap.MicDevice
			if req.SystemDevice != nil {
				system = *req.SystemDevice
			}
			if req.MicDevice != nil {
				mic = *req.MicDevice
			}
			if err := h.cfg.SetDevices(system, mic); err != nil {
				return err
			}

			if req.MicDevice != nil && h.engine.State() != types.StateStopped {
				index := *req.MicDevice
				go func() {
					if err := h.engine.SetMicDevice(index); err != nil {
						slog.Error("audio/update: mic device switch failed", "index", index, "error", err)
					}
				}()
			}
		}

		if req.MicGain != nil {
			applied := h.engine.ApplyMicGain(*req.MicGain)
			if err := h.cfg.SetMicGain(applied); err != nil {
				return err
			}
		}

		return nil
	})
}

// handleGateUpdate processes a gate/update command.
func (h *CommandHandler) handleGateUpdate(cmd WSCommand, send chan<- any) {
	HandleCommand(cmd, send, func(req *GateUpdateRequest) error {
		snap := h.cfg.Snapshot()
		gc := config.GateConfig{
			Enabled:     snap.GateEnabled,
			ThresholdDB: snap.GateThresholdDB,
			AttackMs:    snap.GateAttackMs,
			ReleaseMs:   snap.GateReleaseMs,
			HoldMs:      snap.GateHoldMs,
		}
		if req.Enabled != nil {
			gc.Enabled = *req.Enabled
		}
		if req.ThresholdDB != nil {
			gc.ThresholdDB = *req.ThresholdDB
		}
		if req.AttackMs != nil {
			gc.AttackMs = *req.AttackMs
		}
		if req.ReleaseMs != nil {
			gc.ReleaseMs = *req.ReleaseMs
		}
		if req.HoldMs != nil {
			gc.HoldMs = *req.HoldMs
		}

		if err := h.cfg.SetGate(gc); err != nil {
			return err
		}
		h.engine.ApplyGate(gc)
		return nil
	})
}

// handleSilenceUpdate processes a silence/update command.
func (h *CommandHandler) handleSilenceUpdate(cmd WSCommand, send chan<- any) {
	HandleCommand(cmd, send, func(req *SilenceUpdateRequest) error {
		snap := h.cfg.Snapshot()
		threshold := snap.SilenceThresholdDB
		duration := snap.SilenceDurationS
		if req.ThresholdDB != nil {
			threshold = *req.ThresholdDB
		}
		if req.DurationS != nil {
			duration = *req.DurationS
		}

		if err := h.cfg.SetSilence(threshold, duration); err != nil {
			return err
		}
		h.engine.ApplySilence(threshold, duration)
		return nil
	})
}

// handleVideoUpdate processes a video/update command. Changes apply to
// the next session; an active screen recording keeps running.
func (h *CommandHandler) handleVideoUpdate(cmd WSCommand, send chan<- any) {
	HandleCommand(cmd, send, func(req *VideoUpdateRequest) error {
		if req.Enabled != nil && *req.Enabled && !h.ffmpegAvailable {
			return types.ErrEncoderUnavailable
		}

		snap := h.cfg.Snapshot()
		enabled := snap.VideoEnabled
		monitor := snap.VideoMonitor
		if req.Enabled != nil {
			enabled = *req.Enabled
		}
		if req.Monitor != nil {
			monitor = *req.Monitor
		}
		return h.cfg.SetVideo(enabled, monitor)
	})
}

// handleOutputUpdate processes an output/update command.
func (h *CommandHandler) handleOutputUpdate(cmd WSCommand, send chan<- any) {
	HandleCommand(cmd, send, func(req *OutputUpdateRequest) error {
		if err := h.cfg.SetOutputDirectory(req.Directory); err != nil {
			return err
		}
		h.engine.ApplyOutputDirectory(req.Directory)
		return nil
	})
}

// handleUploadUpdate processes an upload/update command.
func (h *CommandHandler) handleUploadUpdate(cmd WSCommand, send chan<- any) {
	HandleCommand(cmd, send, func(req *UploadUpdateRequest) error {
		if err := h.cfg.SetUpload(config.UploadConfig{
			Endpoint:        req.Endpoint,
			Bucket:          req.Bucket,
			AccessKeyID:     req.AccessKeyID,
			SecretAccessKey: req.SecretAccessKey,
			Prefix:          req.Prefix,
		}); err != nil {
			return err
		}
		h.engine.ReloadUploader()
		return nil
	})
}

// handleRegenerateAPIKey processes a system/regenerate-key command.
func (h *CommandHandler) handleRegenerateAPIKey(send chan<- any) {
	HandleActionAsync(WSCommand{Type: "system/regenerate-key"}, send, func() (any, error) {
		newKey, err := config.GenerateAPIKey()
		if err != nil {
			return nil, err
		}

		if err := h.cfg.SetAPIKey(newKey); err != nil {
			return nil, err
		}

		slog.Info("API key regenerated")

		return map[string]string{"api_key": newKey}, nil
	})
}
