package capture

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/loopcorder/loopcorder/internal/audio"
	"github.com/loopcorder/loopcorder/internal/types"
	"github.com/loopcorder/loopcorder/internal/util"
)

// Callbacks receive telemetry from the capture loop. All callbacks run
// on the capture goroutine and must not block.
type Callbacks struct {
	// OnLevels fires once per captured chunk.
	OnLevels func(types.AudioLevels)
	// OnSilence fires for every chunk while a path's silence warning is
	// active. path is "system" or "mic".
	OnSilence func(path string, durationSec float64)
	// OnSilenceEnd fires once when a path's silence warning clears.
	OnSilenceEnd func(path string)
	// OnError fires when the capture loop dies on a device error.
	OnError func(err error)
}

// Session is the capture session state machine. One instance lives for
// the process lifetime; Start and Stop cycle it between states. The
// chunk buffer is owned by the capture goroutine and handed over
// exactly once, when Stop joins it.
type Session struct {
	mu sync.Mutex

	opener StreamOpener

	state     types.SessionState
	startedAt time.Time
	frames    int64

	system      Stream
	mic         Stream
	micChannels int

	mixer         *audio.Mixer
	systemTracker *audio.SilenceTracker
	micTracker    *audio.SilenceTracker
	peak          *audio.PeakHolder

	systemWarning atomic.Bool
	micWarning    atomic.Bool

	callbacks Callbacks

	stopFlag atomic.Bool
	done     chan struct{}

	chunks  [][]int16
	lastErr error
}

// NewSession creates a stopped session. The opener is used for every
// stream the session opens.
func NewSession(opener StreamOpener, mixer *audio.Mixer, callbacks Callbacks) *Session {
	return &Session{
		opener: opener,
		state:  types.StateStopped,
		mixer:  mixer,
		systemTracker: audio.NewSilenceTracker(
			types.DefaultSilenceThresholdDB, types.DefaultSilenceDurationSec, types.SampleRate),
		micTracker: audio.NewSilenceTracker(
			types.DefaultSilenceThresholdDB, types.DefaultSilenceDurationSec, types.SampleRate),
		peak:      audio.NewPeakHolder(),
		callbacks: callbacks,
	}
}

// Start opens the devices and begins capturing. The microphone is
// opened before the system stream and given time to settle, because
// activating a Bluetooth mic can reset the audio subsystem and kill a
// stream opened moments earlier. A microphone that fails to open is
// logged and skipped; the session continues system-only. mic may be
// nil for a system-only session.
func (s *Session) Start(system DeviceSpec, mic *DeviceSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != types.StateStopped {
		return types.ErrAlreadyRecording
	}

	if mic != nil {
		micStream, err := s.openLocked(*mic)
		if err != nil {
			slog.Warn("Microphone unavailable, continuing without it",
				"device", mic.Index, "error", err)
		} else {
			s.mic = micStream
			s.micChannels = mic.Channels
			time.Sleep(types.MicSettleDelay)
		}
	}

	systemStream, err := s.openLocked(system)
	if err != nil {
		s.closeStreamsLocked()
		return util.WrapError("open system audio device", err)
	}
	s.system = systemStream

	s.chunks = nil
	s.frames = 0
	s.lastErr = nil
	s.systemWarning.Store(false)
	s.micWarning.Store(false)
	s.systemTracker.Reset()
	s.micTracker.Reset()
	s.peak.Reset()
	if gate := s.mixer.Gate(); gate != nil {
		gate.Reset()
	}

	s.stopFlag.Store(false)
	s.done = make(chan struct{})
	s.startedAt = time.Now()
	s.state = types.StateRecording

	go s.captureLoop(s.done)

	slog.Info("Capture session started",
		"system_device", system.Index, "mic", s.mic != nil)
	return nil
}

// Pause suspends device reads. The streams stay open, so PortAudio's
// internal buffers overflow while paused; Read tolerates that on
// resume.
func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != types.StateRecording {
		return types.ErrNotRecording
	}
	s.state = types.StatePaused
	slog.Info("Capture session paused", "duration_s", s.durationLocked())
	return nil
}

// Resume restarts device reads after a pause.
func (s *Session) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != types.StatePaused {
		return types.ErrNotRecording
	}
	s.state = types.StateRecording
	slog.Info("Capture session resumed")
	return nil
}

// Stop ends the session and returns the captured chunks. The capture
// goroutine gets a bounded join; if it does not exit in time the
// streams are force-released, which unblocks a stuck device read.
// Chunks captured up to an error are returned alongside that error.
func (s *Session) Stop() ([][]int16, error) {
	s.mu.Lock()
	if s.state == types.StateStopped {
		s.mu.Unlock()
		return nil, types.ErrNotRecording
	}
	done := s.done
	s.stopFlag.Store(true)
	s.mu.Unlock()

	select {
	case <-done:
	case <-time.After(types.CaptureJoinTimeout):
		slog.Warn("Capture goroutine did not exit in time, forcing stream release")
		s.mu.Lock()
		s.closeStreamsLocked()
		s.mu.Unlock()
		<-done
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeStreamsLocked()
	s.state = types.StateStopped
	chunks := s.chunks
	s.chunks = nil
	err := s.lastErr

	slog.Info("Capture session stopped",
		"chunks", len(chunks), "duration_s", float64(s.frames)/float64(types.SampleRate))
	return chunks, err
}

// SetMicDevice swaps the microphone while recording. Passing nil
// removes the mic. The new stream is opened and settled before the
// old one is released, so the capture loop never sees a half-open
// swap.
func (s *Session) SetMicDevice(mic *DeviceSpec) error {
	s.mu.Lock()
	if s.state != types.StateRecording {
		s.mu.Unlock()
		return types.ErrNotRecording
	}
	s.mu.Unlock()

	var newStream Stream
	var channels int
	if mic != nil {
		var err error
		newStream, err = s.openLocked(*mic)
		if err != nil {
			return util.WrapError("open microphone device", err)
		}
		channels = mic.Channels
		time.Sleep(types.MicSettleDelay)
	}

	s.mu.Lock()
	old := s.mic
	s.mic = newStream
	s.micChannels = channels
	s.micWarning.Store(false)
	s.micTracker.Reset()
	s.mu.Unlock()

	if old != nil {
		_ = old.Stop()
		_ = old.Close()
	}
	if gate := s.mixer.Gate(); gate != nil {
		gate.Reset()
	}

	if mic != nil {
		slog.Info("Microphone switched", "device", mic.Index)
	} else {
		slog.Info("Microphone removed")
	}
	return nil
}

// State returns the current session state.
func (s *Session) State() types.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Duration returns the captured audio duration in seconds, derived
// from the sample count rather than the wall clock so pauses are not
// counted.
func (s *Session) Duration() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.durationLocked()
}

// MicEnabled reports whether a microphone stream is open.
func (s *Session) MicEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mic != nil
}

// SystemTracker returns the silence tracker for the mixed path.
func (s *Session) SystemTracker() *audio.SilenceTracker { return s.systemTracker }

// MicTracker returns the silence tracker for the microphone path.
func (s *Session) MicTracker() *audio.SilenceTracker { return s.micTracker }

// Mixer returns the session's mixer.
func (s *Session) Mixer() *audio.Mixer { return s.mixer }

func (s *Session) durationLocked() float64 {
	return float64(s.frames) / float64(types.SampleRate)
}

func (s *Session) openLocked(spec DeviceSpec) (Stream, error) {
	stream, err := s.opener(spec.Index, spec.Channels, types.SampleRate, types.ChunkFrames)
	if err != nil {
		return nil, err
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return nil, err
	}
	return stream, nil
}

func (s *Session) closeStreamsLocked() {
	if s.mic != nil {
		_ = s.mic.Stop()
		_ = s.mic.Close()
		s.mic = nil
	}
	if s.system != nil {
		_ = s.system.Stop()
		_ = s.system.Close()
		s.system = nil
	}
}

// captureLoop is the hot path: one device read per stream, one mix,
// one telemetry pass per cycle. It owns the chunk buffer exclusively
// until Stop joins it.
func (s *Session) captureLoop(done chan struct{}) {
	defer close(done)

	for !s.stopFlag.Load() {
		s.mu.Lock()
		state := s.state
		system := s.system
		mic := s.mic
		micChannels := s.micChannels
		s.mu.Unlock()

		if state == types.StatePaused {
			time.Sleep(types.PauseIdleInterval)
			continue
		}
		if system == nil {
			return
		}

		systemChunk, err := system.Read()
		if err != nil {
			s.mu.Lock()
			s.lastErr = util.WrapError("capture system audio", err)
			s.mu.Unlock()
			slog.Error("System audio read failed, capture loop exiting", "error", err)
			if s.callbacks.OnError != nil {
				s.callbacks.OnError(err)
			}
			return
		}

		// Mic reads fail transiently (headset profile switches, device
		// unplugs). A failed read just means no mic in this chunk.
		var micChunk []int16
		if mic != nil {
			micChunk, err = mic.Read()
			if err != nil {
				micChunk = nil
			}
		}

		mixed, micOut := s.mixer.Mix(systemChunk, micChunk, micChannels)

		s.mu.Lock()
		s.chunks = append(s.chunks, mixed)
		s.frames += types.ChunkFrames
		s.mu.Unlock()

		s.publishTelemetry(mixed, micOut)
	}
}

// publishTelemetry feeds the trackers and fires the level and silence
// callbacks for one chunk. Silence is measured on the mixed signal for
// the system path and on the processed mic signal for the mic path, so
// the warnings describe what actually lands in the recording.
func (s *Session) publishTelemetry(mixed, micOut []int16) {
	systemDB, systemWarn, systemDur := s.systemTracker.Process(mixed, types.ChunkFrames)

	micDB := audio.SilenceFloorDB
	var micWarn bool
	var micDur float64
	if micOut != nil {
		micDB, micWarn, micDur = s.micTracker.Process(micOut, types.ChunkFrames)
	}

	gateOpen := false
	if gate := s.mixer.Gate(); gate != nil {
		gateOpen = s.mixer.GateEnabled() && gate.IsOpen()
	}

	if s.callbacks.OnLevels != nil {
		s.callbacks.OnLevels(types.AudioLevels{
			System: types.PathLevels{DB: systemDB, Warning: systemWarn, SilenceDurationS: systemDur},
			Mic:    types.PathLevels{DB: micDB, Warning: micWarn, SilenceDurationS: micDur},
			PeakDB: s.peak.Update(systemDB, time.Now()),
			GateOpen: gateOpen,
		})
	}

	s.fireSilenceTransitions("system", systemWarn, systemDur, &s.systemWarning)
	s.fireSilenceTransitions("mic", micWarn, micDur, &s.micWarning)
}

// fireSilenceTransitions fires the silence callbacks for one path. The
// flag is atomic because SetMicDevice clears the mic flag from the
// control goroutine while the capture goroutine runs here; the swap on
// the recovery edge keeps the two from double-firing OnSilenceEnd.
func (s *Session) fireSilenceTransitions(path string, warning bool, duration float64, prev *atomic.Bool) {
	if warning {
		prev.Store(true)
		if s.callbacks.OnSilence != nil {
			s.callbacks.OnSilence(path, duration)
		}
		return
	}
	if prev.CompareAndSwap(true, false) {
		if s.callbacks.OnSilenceEnd != nil {
			s.callbacks.OnSilenceEnd(path)
		}
	}
}
