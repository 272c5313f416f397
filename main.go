// Package main provides a headless session recorder that captures
// system audio from a loopback device, optionally mixes in a live
// microphone, and persists recordings as MP3.
//
// Usage:
//
//	loopcorder [-config path/to/config.json]
//
// If -config is not specified, the recorder looks for config.json in
// the same directory as the binary.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/loopcorder/loopcorder/internal/capture"
	"github.com/loopcorder/loopcorder/internal/config"
	"github.com/loopcorder/loopcorder/internal/engine"
	"github.com/loopcorder/loopcorder/internal/eventlog"
	"github.com/loopcorder/loopcorder/internal/util"
)

// Build-time variables set via -ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: config.json next to binary)")
	showVersion := flag.Bool("version", false, "Print version information and exit")
	flag.Parse()

	if *showVersion {
		slog.Info("version info", "version", Version, "commit", Commit, "build_time", BuildTime)
		return
	}

	if *configPath == "" {
		execPath, err := os.Executable()
		if err != nil {
			slog.Error("failed to get executable path", "error", err)
			os.Exit(1)
		}
		*configPath = filepath.Join(filepath.Dir(execPath), "config.json")
	}

	slog.Info("using config file", "path", *configPath)

	cfg := config.New(*configPath)
	if err := cfg.Load(); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := portaudio.Initialize(); err != nil {
		slog.Error("failed to initialize audio subsystem", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := portaudio.Terminate(); err != nil {
			slog.Error("audio subsystem shutdown error", "error", err)
		}
	}()

	// Check FFmpeg availability
	ffmpegPath := util.ResolveFFmpegPath(cfg.GetFFmpegPath())
	ffmpegAvailable := ffmpegPath != ""
	if !ffmpegAvailable {
		slog.Warn("FFmpeg not found - recordings will stay in WAV format",
			"configured_path", cfg.GetFFmpegPath())
	} else {
		slog.Info("FFmpeg found", "path", ffmpegPath)
	}

	events, err := eventlog.NewLogger(eventlog.DefaultLogPath())
	if err != nil {
		slog.Error("failed to open event log", "error", err)
		os.Exit(1)
	}

	eng := engine.New(cfg, ffmpegPath, capture.OpenPortAudioStream, events)

	srv := NewServer(cfg, eng, events, ffmpegAvailable)
	httpServer := srv.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, util.ShutdownSignals()...)
	<-sigChan

	slog.Info("shutting down")

	srv.version.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Finalizes any active session and drains pending uploads.
	eng.Close()

	if err := events.Close(); err != nil {
		slog.Error("event log close error", "error", err)
	}

	slog.Info("shutdown complete")
}
