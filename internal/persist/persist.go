package persist

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/loopcorder/loopcorder/internal/types"
	"github.com/loopcorder/loopcorder/internal/util"
)

// mp3Bitrate is the encode bitrate. Speech-oriented recordings at the
// pipeline's 22.05 kHz rate do not benefit from more.
const mp3Bitrate = "128k"

// Result describes a persisted recording.
type Result struct {
	// Path is the final output file.
	Path string
	// Format is "mp3", or "wav" when encoding was unavailable or failed.
	Format string
	// FileSize is the output size in bytes.
	FileSize int64
	// Duration is the recorded audio length in seconds.
	Duration float64
}

// Saver writes finished sessions to disk. The PCM is always staged as
// a WAV first, then encoded to MP3 through FFmpeg; if FFmpeg is
// missing or fails, the staging WAV is promoted to the final output so
// a session is never lost to a broken encoder.
type Saver struct {
	ffmpegPath string

	// mu guards outputDir, which a settings command may change while a
	// capture-error finalize is saving on another goroutine.
	mu        sync.Mutex
	outputDir string
}

// NewSaver creates a saver writing into outputDir. ffmpegPath may be
// empty when no encoder is installed.
func NewSaver(ffmpegPath, outputDir string) *Saver {
	return &Saver{ffmpegPath: ffmpegPath, outputDir: outputDir}
}

// OutputDir returns the directory recordings are written to.
func (s *Saver) OutputDir() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outputDir
}

// SetOutputDir changes the directory for future recordings.
func (s *Saver) SetOutputDir(dir string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outputDir = dir
}

// Save persists the captured chunks and returns the final output. An
// empty session produces no file and returns ErrNoAudio. When the
// encoder is missing or fails, the returned Result points at the kept
// WAV and the error carries ErrEncoderUnavailable or the encode
// failure; both are non-nil so the caller can report the degraded save
// exactly once.
func (s *Saver) Save(ctx context.Context, chunks [][]int16) (*Result, error) {
	if len(chunks) == 0 {
		slog.Info("Session ended with no audio, nothing to save")
		return nil, types.ErrNoAudio
	}

	var total int
	for _, c := range chunks {
		total += len(c)
	}
	samples := make([]int16, 0, total)
	for _, c := range chunks {
		samples = append(samples, c...)
	}

	outputDir := s.OutputDir()
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, util.WrapError("create output directory", err)
	}

	base := "recording_" + time.Now().Format(util.RecordingStamp)
	wavPath := filepath.Join(outputDir, base+".wav")
	duration := float64(total) / float64(types.SampleRate*types.Channels)

	if err := WriteWAV(wavPath, samples, types.SampleRate, types.Channels); err != nil {
		return nil, err
	}
	slog.Info("Recording staged", "file", wavPath, "duration_s", duration)

	if s.ffmpegPath == "" {
		slog.Warn("FFmpeg not found, keeping WAV output", "file", wavPath)
		return s.result(wavPath, "wav", duration), types.ErrEncoderUnavailable
	}

	mp3Path := filepath.Join(outputDir, base+".mp3")
	if err := s.encodeMP3(ctx, wavPath, mp3Path); err != nil {
		slog.Error("MP3 encode failed, keeping WAV output", "file", wavPath, "error", err)
		return s.result(wavPath, "wav", duration), err
	}

	if err := os.Remove(wavPath); err != nil {
		slog.Warn("Failed to remove staging WAV", "file", wavPath, "error", err)
	}
	slog.Info("Recording saved", "file", mp3Path, "duration_s", duration)
	return s.result(mp3Path, "mp3", duration), nil
}

func (s *Saver) result(path, format string, duration float64) *Result {
	r := &Result{Path: path, Format: format, Duration: duration}
	if info, err := os.Stat(path); err == nil {
		r.FileSize = info.Size()
	}
	return r
}

// encodeMP3 runs one bounded FFmpeg invocation converting the staging
// WAV to MP3.
func (s *Saver) encodeMP3(ctx context.Context, wavPath, mp3Path string) error {
	ctx, cancel := context.WithTimeoutCause(ctx, types.EncodeTimeout,
		errors.New("mp3 encode timeout"))
	defer cancel()

	cmd := exec.CommandContext(ctx, s.ffmpegPath,
		"-hide_banner",
		"-i", wavPath,
		"-codec:a", "libmp3lame",
		"-b:a", mp3Bitrate,
		"-y",
		mp3Path,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if last := util.ExtractLastError(stderr.String()); last != "" {
			return fmt.Errorf("ffmpeg: %s: %w", last, err)
		}
		return util.WrapError("run ffmpeg", err)
	}
	return nil
}
