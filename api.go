package main

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/loopcorder/loopcorder/internal/types"
)

// API response helpers

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// apiKeyAuth returns middleware for API key authentication.
func (s *Server) apiKeyAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		apiKey := s.config.GetAPIKey()
		if apiKey == "" {
			http.Error(w, "API key not configured", http.StatusServiceUnavailable)
			return
		}

		providedKey := r.Header.Get("X-API-Key")
		if subtle.ConstantTimeCompare([]byte(providedKey), []byte(apiKey)) != 1 {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// handleStartSession handles POST /api/session/start.
func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := s.engine.Start(); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, types.ErrAlreadyRecording) {
			status = http.StatusConflict
		}
		s.writeError(w, status, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"status": "session_started"})
}

// handleStopSession handles POST /api/session/stop.
func (s *Server) handleStopSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if s.engine.State() == types.StateStopped {
		s.writeError(w, http.StatusConflict, types.ErrNotRecording.Error())
		return
	}

	result, err := s.engine.Stop(r.Context())
	switch {
	case errors.Is(err, types.ErrNoAudio):
		s.writeJSON(w, http.StatusOK, map[string]any{"status": "session_stopped", "saved": false})
	case result != nil:
		resp := map[string]any{
			"status":     "session_stopped",
			"saved":      true,
			"path":       result.Path,
			"format":     result.Format,
			"duration_s": result.Duration,
			"size_bytes": result.FileSize,
		}
		if err != nil {
			resp["encode_error"] = err.Error()
		}
		s.writeJSON(w, http.StatusOK, resp)
	case err != nil:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	default:
		s.writeJSON(w, http.StatusOK, map[string]any{"status": "session_stopped", "saved": false})
	}
}

// handleAPIStatus handles GET /api/status.
func (s *Server) handleAPIStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, http.StatusOK, s.engine.Status())
}
