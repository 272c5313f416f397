package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/loopcorder/loopcorder/internal/audio"
	"github.com/loopcorder/loopcorder/internal/config"
	"github.com/loopcorder/loopcorder/internal/engine"
	"github.com/loopcorder/loopcorder/internal/eventlog"
	"github.com/loopcorder/loopcorder/internal/server"
	"github.com/loopcorder/loopcorder/internal/types"
	"github.com/loopcorder/loopcorder/internal/video"
)

// Server is the HTTP/WebSocket control surface for the recorder.
type Server struct {
	config          *config.Config
	engine          *engine.Engine
	commands        *server.CommandHandler
	version         *VersionChecker
	ffmpegAvailable bool

	mu          sync.Mutex
	subscribers map[chan any]struct{}
}

// NewServer returns a new Server wired to the engine. Asynchronous
// pipeline events are broadcast to every connected WebSocket client.
func NewServer(cfg *config.Config, eng *engine.Engine, events *eventlog.Logger, ffmpegAvailable bool) *Server {
	s := &Server{
		config:          cfg,
		engine:          eng,
		commands:        server.NewCommandHandler(cfg, eng, events, ffmpegAvailable),
		version:         NewVersionChecker(),
		ffmpegAvailable: ffmpegAvailable,
		subscribers:     make(map[chan any]struct{}),
	}
	eng.SetEventSink(s.broadcast)
	return s
}

// broadcast fans an event out to all connected clients without blocking.
func (s *Server) broadcast(ev types.WSEventResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (s *Server) subscribe(ch chan any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers[ch] = struct{}{}
}

func (s *Server) unsubscribe(ch chan any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subscribers, ch)
}

// handleWebSocket handles bidirectional WebSocket communication for
// commands and real-time telemetry.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := server.UpgradeConnection(w, r)
	if err != nil {
		slog.Error("WebSocket upgrade failed", "error", err)
		return
	}

	// Create buffered send channel for thread-safe writes.
	// Only the writer goroutine writes to the connection, preventing race conditions.
	send := make(chan any, 16)
	done := make(chan struct{})
	statusUpdate := make(chan struct{}, 1)

	s.subscribe(send)

	go s.runWebSocketWriter(conn, send)
	go s.runWebSocketReader(conn, send, done, statusUpdate)

	s.runWebSocketEventLoop(send, done, statusUpdate)
}

// runWebSocketWriter writes messages from the send channel to the connection.
func (s *Server) runWebSocketWriter(conn server.WebSocketConn, send <-chan any) {
	defer func() {
		if err := conn.Close(); err != nil {
			slog.Debug("WebSocket close error", "error", err)
		}
	}()
	for msg := range send {
		if err := conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// runWebSocketReader reads commands from the connection and dispatches them.
func (s *Server) runWebSocketReader(conn server.WebSocketConn, send chan<- any, done, statusUpdate chan<- struct{}) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in WebSocket reader", "panic", r)
		}
		close(done)
	}()

	for {
		var cmd server.WSCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			return
		}
		s.commands.Handle(cmd, send, func() {
			select {
			case statusUpdate <- struct{}{}:
			default:
			}
		})
	}
}

// runWebSocketEventLoop handles periodic status and level updates.
func (s *Server) runWebSocketEventLoop(send chan any, done, statusUpdate <-chan struct{}) {
	levelsTicker := time.NewTicker(100 * time.Millisecond)  // 10 fps for VU meters
	statusTicker := time.NewTicker(3000 * time.Millisecond) // Status updates every 3s
	defer levelsTicker.Stop()
	defer statusTicker.Stop()

	// The event loop owns the send channel; unsubscribe before closing
	// so the broadcaster never hits a closed channel.
	closeSend := func() {
		s.unsubscribe(send)
		close(send)
	}

	// trySend attempts to send a message, returning false if done is closed
	trySend := func(msg any) bool {
		select {
		case send <- msg:
			return true
		case <-done:
			return false
		}
	}

	// Send initial status
	if !trySend(s.buildWSStatus()) {
		closeSend()
		return
	}

	for {
		select {
		case <-done:
			closeSend()
			return
		case <-statusUpdate:
			if !trySend(s.buildWSStatus()) {
				closeSend()
				return
			}
		case <-levelsTicker.C:
			if !trySend(types.WSLevelsResponse{Type: "levels", Levels: s.engine.AudioLevels()}) {
				closeSend()
				return
			}
		case <-statusTicker.C:
			if !trySend(s.buildWSStatus()) {
				closeSend()
				return
			}
		}
	}
}

// buildWSStatus returns the current WebSocket status response.
func (s *Server) buildWSStatus() types.WSStatusResponse {
	cfg := s.config.Snapshot()

	return types.WSStatusResponse{
		Type:             "status",
		FFmpegAvailable:  s.ffmpegAvailable,
		Session:          s.engine.Status(),
		Devices:          audio.Devices(),
		Monitors:         video.Monitors(),
		MicGain:          cfg.MicGain,
		GateEnabled:      cfg.GateEnabled,
		GateThresholdDB:  cfg.GateThresholdDB,
		SilenceThreshold: cfg.SilenceThresholdDB,
		SilenceDurationS: cfg.SilenceDurationS,
		OutputDir:        cfg.OutputDirectory,
		SilenceWebhook:   cfg.WebhookURL,
		SilenceLogPath:   cfg.LogPath,
		GraphTenantID:    cfg.GraphTenantID,
		GraphClientID:    cfg.GraphClientID,
		GraphFromAddress: cfg.GraphFromAddress,
		GraphRecipients:  cfg.GraphRecipients,
		UploadBucket:     cfg.UploadBucket,
		Version:          s.version.Info(),
	}
}

// SetupRoutes returns an [http.Handler] configured with all application routes.
func (s *Server) SetupRoutes() http.Handler {
	mux := http.NewServeMux()

	// WebSocket surface (origin-checked)
	mux.HandleFunc("/ws", s.handleWebSocket)

	// REST session control (API key auth)
	mux.HandleFunc("/api/session/start", s.apiKeyAuth(s.handleStartSession))
	mux.HandleFunc("/api/session/stop", s.apiKeyAuth(s.handleStopSession))
	mux.HandleFunc("/api/status", s.apiKeyAuth(s.handleAPIStatus))

	return securityHeaders(mux)
}

// securityHeaders returns middleware that wraps handlers with security headers.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// Start begins the HTTP server.
// Returns an *http.Server that can be used for graceful shutdown.
func (s *Server) Start() *http.Server {
	addr := fmt.Sprintf(":%d", s.config.Snapshot().Port)
	slog.Info("starting control server", "addr", addr)

	srv := &http.Server{
		Addr:    addr,
		Handler: s.SetupRoutes(),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	return srv
}
