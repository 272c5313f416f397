// Package engine ties the capture session to persistence, screen
// recording, notifications and the event log. It is the single object
// the control surface talks to.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/loopcorder/loopcorder/internal/audio"
	"github.com/loopcorder/loopcorder/internal/capture"
	"github.com/loopcorder/loopcorder/internal/config"
	"github.com/loopcorder/loopcorder/internal/eventlog"
	"github.com/loopcorder/loopcorder/internal/notify"
	"github.com/loopcorder/loopcorder/internal/persist"
	"github.com/loopcorder/loopcorder/internal/types"
	"github.com/loopcorder/loopcorder/internal/video"
)

// ErrNoSystemDevice is returned when no loopback device can be found
// and none is configured.
var ErrNoSystemDevice = errors.New("no system loopback device available")

// Engine coordinates the audio session and everything downstream of it.
type Engine struct {
	config     *config.Config
	ffmpegPath string

	session  *capture.Session
	saver    *persist.Saver
	video    *video.Recorder
	notifier *notify.SilenceNotifier
	events   *eventlog.Logger

	mu              sync.RWMutex
	uploader        *persist.Uploader
	levels          types.AudioLevels
	lastKnownLevels types.AudioLevels // Cache for TryRLock fallback
	lastOutputPath  string
	lastError       string
	silenceActive   map[string]bool
	silenceDuration map[string]float64
	sink            func(types.WSEventResponse)
}

// New creates an Engine wired to the given configuration. The opener is
// used for every audio stream the session opens; pass
// capture.OpenPortAudioStream in production.
func New(cfg *config.Config, ffmpegPath string, opener capture.StreamOpener, events *eventlog.Logger) *Engine {
	snap := cfg.Snapshot()

	gate := audio.NewNoiseGate(snap.GateThresholdDB, snap.GateAttackMs,
		snap.GateReleaseMs, snap.GateHoldMs, types.SampleRate)
	mixer := audio.NewMixer(gate, types.MaxMicGain)
	mixer.SetMicGain(snap.MicGain)
	mixer.SetGateEnabled(snap.GateEnabled)

	e := &Engine{
		config:          cfg,
		ffmpegPath:      ffmpegPath,
		saver:           persist.NewSaver(ffmpegPath, snap.OutputDirectory),
		video:           video.NewRecorder(ffmpegPath),
		notifier:        notify.NewSilenceNotifier(cfg),
		events:          events,
		silenceActive:   make(map[string]bool),
		silenceDuration: make(map[string]float64),
	}

	e.session = capture.NewSession(opener, mixer, capture.Callbacks{
		OnLevels:     e.onLevels,
		OnSilence:    e.onSilence,
		OnSilenceEnd: e.onSilenceEnd,
		OnError:      e.onCaptureError,
	})
	e.session.SystemTracker().SetThresholdDB(snap.SilenceThresholdDB)
	e.session.SystemTracker().SetDuration(snap.SilenceDurationS)
	e.session.MicTracker().SetThresholdDB(snap.SilenceThresholdDB)
	e.session.MicTracker().SetDuration(snap.SilenceDurationS)

	e.uploader = persist.NewUploader(cfg.S3Config(), e.onUpload)

	return e
}

// SetEventSink registers the callback that receives asynchronous
// pipeline events. Must be set before the first session starts.
func (e *Engine) SetEventSink(sink func(types.WSEventResponse)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sink = sink
}

// Start begins a new capture session using the configured devices, and
// starts screen recording when enabled. A configured microphone that
// fails to open does not prevent the session from starting.
func (e *Engine) Start() error {
	snap := e.config.Snapshot()

	system, err := e.resolveDevice(snap.SystemDevice, true)
	if err != nil {
		return err
	}

	var mic *capture.DeviceSpec
	if snap.MicDevice != config.AutoDevice {
		spec, err := e.resolveDevice(snap.MicDevice, false)
		if err != nil {
			slog.Warn("microphone device unavailable", "index", snap.MicDevice, "error", err)
		} else {
			mic = &spec
		}
	}

	e.mu.Lock()
	clear(e.silenceActive)
	clear(e.silenceDuration)
	e.lastError = ""
	e.mu.Unlock()
	e.notifier.Reset()

	if err := e.session.Start(system, mic); err != nil {
		return err
	}

	if snap.VideoEnabled {
		if err := e.video.Start(snap.OutputDirectory, snap.VideoMonitor); err != nil {
			slog.Warn("screen recording failed to start", "error", err)
			e.logEvent(eventlog.SessionError, "screen recording failed to start",
				&eventlog.SessionDetails{Error: err.Error()})
		}
	}

	micIndex := config.AutoDevice
	if mic != nil {
		micIndex = mic.Index
	}
	e.logEvent(eventlog.SessionStarted, "", &eventlog.SessionDetails{
		SystemDevice: system.Index,
		MicDevice:    micIndex,
	})
	slog.Info("session started", "system_device", system.Index, "mic_device", micIndex)
	return nil
}

// Pause suspends device reads without closing the streams.
func (e *Engine) Pause() error {
	if err := e.session.Pause(); err != nil {
		return err
	}
	e.logEvent(eventlog.SessionPaused, "", nil)
	return nil
}

// Resume continues a paused session.
func (e *Engine) Resume() error {
	if err := e.session.Resume(); err != nil {
		return err
	}
	e.logEvent(eventlog.SessionResumed, "", nil)
	return nil
}

// Stop ends the session and persists the captured audio. The returned
// result is non-nil whenever an output file exists, including a staging
// WAV kept after a failed encode.
func (e *Engine) Stop(ctx context.Context) (*persist.Result, error) {
	if e.session.State() == types.StateStopped {
		return nil, types.ErrNotRecording
	}

	duration := e.session.Duration()

	chunks, capErr := e.session.Stop()
	if capErr != nil {
		slog.Warn("session ended with capture error", "error", capErr)
	}

	e.stopVideo()

	result, err := e.saver.Save(ctx, chunks)
	e.recordSaveOutcome(result, err)

	details := &eventlog.SessionDetails{DurationS: duration}
	if capErr != nil {
		details.Error = capErr.Error()
	}
	e.logEvent(eventlog.SessionStopped, "", details)
	slog.Info("session stopped", "duration_s", duration)

	if result != nil && err == nil {
		e.enqueueUpload(result.Path)
	}
	return result, err
}

// stopVideo finalizes an active screen recording and logs the outcome.
func (e *Engine) stopVideo() {
	if !e.video.Active() {
		return
	}
	path, err := e.video.Stop()
	if err != nil {
		slog.Error("screen recording failed", "error", err)
		e.logEvent(eventlog.SessionError, "screen recording failed",
			&eventlog.SessionDetails{Error: err.Error()})
		return
	}
	slog.Info("screen recording saved", "path", path)
	e.logEvent(eventlog.VideoSaved, "", &eventlog.FileDetails{Path: path, Format: "mp4"})
	e.emit(types.WSEventResponse{Type: "event", Event: "video_saved", Path: path})
}

// recordSaveOutcome updates status fields and logs persistence events.
func (e *Engine) recordSaveOutcome(result *persist.Result, err error) {
	e.mu.Lock()
	if result != nil {
		e.lastOutputPath = result.Path
	}
	if err != nil && !errors.Is(err, types.ErrNoAudio) {
		e.lastError = err.Error()
	}
	e.mu.Unlock()

	switch {
	case err == nil && result != nil:
		e.logEvent(eventlog.RecordingSaved, "", &eventlog.FileDetails{
			Path:      result.Path,
			Format:    result.Format,
			SizeBytes: result.FileSize,
			DurationS: result.Duration,
		})
	case errors.Is(err, types.ErrNoAudio):
		slog.Info("no audio captured, nothing to save")
	case result != nil:
		// Encoder missing or encode failed; the staging WAV survives
		// as the output.
		slog.Warn("mp3 encode unavailable, keeping staging file", "path", result.Path, "error", err)
		e.logEvent(eventlog.EncodeFailed, "", &eventlog.FileDetails{
			Path:   result.Path,
			Format: result.Format,
			Error:  err.Error(),
		})
		e.emit(types.WSEventResponse{
			Type:    "event",
			Event:   "encode_fallback",
			Message: err.Error(),
			Path:    result.Path,
		})
	default:
		slog.Error("failed to save recording", "error", err)
		e.logEvent(eventlog.SessionError, "failed to save recording",
			&eventlog.SessionDetails{Error: err.Error()})
	}
}

// enqueueUpload hands a finished file to the uploader when configured.
func (e *Engine) enqueueUpload(path string) {
	e.mu.RLock()
	uploader := e.uploader
	e.mu.RUnlock()
	if uploader == nil {
		return
	}
	if !uploader.Enqueue(path) {
		slog.Warn("upload queue full, skipping", "path", path)
	}
}

// resolveDevice maps a configured device index to a capture spec.
// AutoDevice on the system path picks the first loopback device.
func (e *Engine) resolveDevice(index int, system bool) (capture.DeviceSpec, error) {
	if index == config.AutoDevice {
		if !system {
			return capture.DeviceSpec{}, fmt.Errorf("no microphone configured")
		}
		dev, ok := audio.FindLoopbackDevice()
		if !ok {
			return capture.DeviceSpec{}, ErrNoSystemDevice
		}
		return capture.DeviceSpec{Index: dev.Index, Channels: min(types.Channels, dev.MaxInputChannels)}, nil
	}

	info, err := audio.DeviceInfo(index)
	if err != nil {
		return capture.DeviceSpec{}, err
	}
	return capture.DeviceSpec{Index: index, Channels: min(types.Channels, info.MaxInputChannels)}, nil
}

// State returns the current session state.
func (e *Engine) State() types.SessionState {
	return e.session.State()
}

// Status returns the current session status.
func (e *Engine) Status() types.SessionStatus {
	e.mu.RLock()
	lastOutput := e.lastOutputPath
	lastError := e.lastError
	e.mu.RUnlock()

	mixer := e.session.Mixer()
	return types.SessionStatus{
		State:       e.session.State(),
		Duration:    e.session.Duration(),
		MicEnabled:  e.session.MicEnabled(),
		GateOpen:    mixer.GateEnabled() && mixer.Gate().IsOpen(),
		OutputPath:  lastOutput,
		LastError:   lastError,
		VideoActive: e.video.Active(),
	}
}

// AudioLevels returns the current audio levels.
func (e *Engine) AudioLevels() types.AudioLevels {
	if e.session.State() == types.StateStopped {
		return types.AudioLevels{
			System: types.PathLevels{DB: audio.SilenceFloorDB},
			Mic:    types.PathLevels{DB: audio.SilenceFloorDB},
			PeakDB: audio.MinDB,
		}
	}

	if !e.mu.TryRLock() {
		return e.lastKnownLevels
	}
	defer e.mu.RUnlock()
	return e.levels
}

// SetMicDevice switches the microphone while recording. AutoDevice
// disables the mic path.
func (e *Engine) SetMicDevice(index int) error {
	if index == config.AutoDevice {
		return e.session.SetMicDevice(nil)
	}
	spec, err := e.resolveDevice(index, false)
	if err != nil {
		return err
	}
	return e.session.SetMicDevice(&spec)
}

// ApplyMicGain pushes a new gain into the live mixer and returns the
// clamped value actually applied.
func (e *Engine) ApplyMicGain(gain float64) float64 {
	return e.session.Mixer().SetMicGain(gain)
}

// ApplyGate pushes new gate parameters into the live session.
func (e *Engine) ApplyGate(gc config.GateConfig) {
	mixer := e.session.Mixer()
	mixer.Gate().SetThresholdDB(gc.ThresholdDB)
	mixer.Gate().SetTimings(gc.AttackMs, gc.ReleaseMs, gc.HoldMs, types.SampleRate)
	mixer.SetGateEnabled(gc.Enabled)
}

// ApplySilence pushes new silence detection parameters into both paths.
func (e *Engine) ApplySilence(thresholdDB, durationS float64) {
	e.session.SystemTracker().SetThresholdDB(thresholdDB)
	e.session.SystemTracker().SetDuration(durationS)
	e.session.MicTracker().SetThresholdDB(thresholdDB)
	e.session.MicTracker().SetDuration(durationS)
}

// ApplyOutputDirectory points the saver at a new directory. Active
// screen recordings keep their original location until restarted.
func (e *Engine) ApplyOutputDirectory(dir string) {
	e.saver.SetOutputDir(dir)
}

// ReloadUploader rebuilds the S3 uploader from current configuration.
// Call after upload settings change.
func (e *Engine) ReloadUploader() {
	e.mu.Lock()
	old := e.uploader
	e.uploader = persist.NewUploader(e.config.S3Config(), e.onUpload)
	e.mu.Unlock()
	if old != nil {
		old.Close()
	}
}

// InvalidateGraphClient drops the cached Graph client so new email
// credentials take effect.
func (e *Engine) InvalidateGraphClient() {
	e.notifier.InvalidateGraphClient()
}

// TriggerTestWebhook sends a test webhook to verify configuration.
func (e *Engine) TriggerTestWebhook() error {
	return notify.SendTestWebhook(e.config.Snapshot().WebhookURL)
}

// TriggerTestEmail sends a test email to verify configuration.
func (e *Engine) TriggerTestEmail() error {
	gc := e.config.GraphConfig()
	return notify.SendTestEmail(&gc)
}

// TriggerTestLog writes a test entry to verify log file configuration.
func (e *Engine) TriggerTestLog() error {
	return notify.WriteTestLog(e.config.Snapshot().LogPath)
}

// TriggerTestUpload verifies S3 connectivity with the stored settings.
func (e *Engine) TriggerTestUpload() error {
	cfg := e.config.S3Config()
	return persist.TestS3Connection(&cfg)
}

// Close shuts the engine down, finalizing any active session first.
func (e *Engine) Close() {
	if e.session.State() != types.StateStopped {
		ctx, cancel := context.WithTimeout(context.Background(), types.EncodeTimeout)
		defer cancel()
		if _, err := e.Stop(ctx); err != nil && !errors.Is(err, types.ErrNoAudio) {
			slog.Error("error finalizing session on shutdown", "error", err)
		}
	}

	e.mu.Lock()
	uploader := e.uploader
	e.uploader = nil
	e.mu.Unlock()
	if uploader != nil {
		uploader.Close()
	}
}

// --- capture callbacks, all on the capture goroutine ---

func (e *Engine) onLevels(levels types.AudioLevels) {
	e.mu.Lock()
	e.levels = levels
	e.lastKnownLevels = levels
	e.mu.Unlock()
}

func (e *Engine) onSilence(path string, durationSec float64) {
	e.mu.Lock()
	levelDB := e.levels.System.DB
	if path == "mic" {
		levelDB = e.levels.Mic.DB
	}
	first := !e.silenceActive[path]
	e.silenceActive[path] = true
	e.silenceDuration[path] = durationSec
	e.mu.Unlock()

	threshold := e.pathThreshold(path)

	if first {
		slog.Warn("silence detected", "path", path, "level_db", levelDB)
		e.logSilence(eventlog.SilenceStart, path, levelDB, threshold, 0)
		e.emit(types.WSEventResponse{Type: "event", Event: "silence_start", Path: path})
	}

	e.notifier.HandleSilence(path, durationSec, levelDB)
}

func (e *Engine) onSilenceEnd(path string) {
	e.mu.Lock()
	active := e.silenceActive[path]
	duration := e.silenceDuration[path]
	e.silenceActive[path] = false
	e.mu.Unlock()
	if !active {
		return
	}

	threshold := e.pathThreshold(path)
	slog.Info("silence ended", "path", path, "duration_s", duration)
	e.logSilence(eventlog.SilenceEnd, path, 0, threshold, duration)
	e.emit(types.WSEventResponse{Type: "event", Event: "silence_end", Path: path})

	e.notifier.HandleRecovery(path, duration)
}

func (e *Engine) onCaptureError(err error) {
	e.mu.Lock()
	e.lastError = err.Error()
	e.mu.Unlock()

	slog.Error("capture error, finalizing session", "error", err)
	e.emit(types.WSEventResponse{Type: "event", Event: "session_error", Message: err.Error()})

	// The capture loop is already dead. Finalize off the capture
	// goroutine so whatever was buffered still gets saved.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), types.EncodeTimeout)
		defer cancel()
		if _, err := e.Stop(ctx); err != nil && !errors.Is(err, types.ErrNoAudio) {
			slog.Error("error finalizing failed session", "error", err)
		}
	}()
}

// pathThreshold returns the silence threshold for a named path.
func (e *Engine) pathThreshold(path string) float64 {
	if path == "mic" {
		return e.session.MicTracker().ThresholdDB()
	}
	return e.session.SystemTracker().ThresholdDB()
}

func (e *Engine) onUpload(localPath, key string, err error) {
	if err != nil {
		slog.Error("upload failed", "path", localPath, "error", err)
		e.logEvent(eventlog.UploadFailed, "", &eventlog.FileDetails{
			Path:  localPath,
			S3Key: key,
			Error: err.Error(),
		})
		e.emit(types.WSEventResponse{Type: "event", Event: "upload_failed", Path: localPath, Message: err.Error()})
		return
	}
	slog.Info("upload completed", "path", localPath, "key", key)
	e.logEvent(eventlog.UploadCompleted, "", &eventlog.FileDetails{Path: localPath, S3Key: key})
	e.emit(types.WSEventResponse{Type: "event", Event: "upload_completed", Path: localPath})
}

// logSilence writes a silence event, tolerating a nil or failing logger.
func (e *Engine) logSilence(eventType eventlog.EventType, source string, levelDB, thresholdDB, durationS float64) {
	if e.events == nil {
		return
	}
	if err := e.events.LogSilence(eventType, source, levelDB, thresholdDB, durationS); err != nil {
		slog.Debug("event log write failed", "error", err)
	}
}

// logEvent writes to the event log, tolerating a nil or failing logger.
func (e *Engine) logEvent(eventType eventlog.EventType, msg string, details any) {
	if e.events == nil {
		return
	}
	var err error
	switch d := details.(type) {
	case *eventlog.SessionDetails:
		err = e.events.LogSession(eventType, d)
	case *eventlog.FileDetails:
		err = e.events.LogFile(eventType, d)
	case nil:
		err = e.events.Log(&eventlog.Event{Type: eventType, Message: msg})
	}
	if err != nil {
		slog.Debug("event log write failed", "error", err)
	}
}

func (e *Engine) emit(ev types.WSEventResponse) {
	e.mu.RLock()
	sink := e.sink
	e.mu.RUnlock()
	if sink != nil {
		sink(ev)
	}
}
