// Package video records the screen alongside an audio session using an
// FFmpeg screen-grab subprocess. Monitor discovery and grab arguments
// are platform-specific; the recorder itself is not.
package video

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/loopcorder/loopcorder/internal/types"
	"github.com/loopcorder/loopcorder/internal/util"
)

// captureFPS keeps CPU usage reasonable; meetings do not need more.
const captureFPS = 15

// grabMonitor pairs the public monitor description with the capture
// offsets the grabber needs.
type grabMonitor struct {
	types.Monitor
	x, y int
}

// Recorder drives one FFmpeg screen-capture process at a time.
type Recorder struct {
	mu sync.Mutex

	ffmpegPath string

	cmd        *exec.Cmd
	cancel     context.CancelFunc
	stderr     *bytes.Buffer
	outputPath string
	active     bool
}

// NewRecorder creates a recorder. ffmpegPath may be empty; Start will
// then fail with ErrEncoderUnavailable.
func NewRecorder(ffmpegPath string) *Recorder {
	return &Recorder{ffmpegPath: ffmpegPath}
}

// Monitors lists the displays available for recording.
func Monitors() []types.Monitor {
	grabs := listMonitors()
	monitors := make([]types.Monitor, len(grabs))
	for i, g := range grabs {
		monitors[i] = g.Monitor
	}
	return monitors
}

// Active reports whether a screen recording is running.
func (r *Recorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Start begins recording the given monitor into outputDir. Starting
// while already recording is a no-op.
func (r *Recorder) Start(outputDir string, monitorIndex int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active {
		return nil
	}
	if r.ffmpegPath == "" {
		return types.ErrEncoderUnavailable
	}

	monitors := listMonitors()
	if monitorIndex < 0 || monitorIndex >= len(monitors) {
		return types.ErrNoMonitor
	}
	monitor := monitors[monitorIndex]

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return util.WrapError("create output directory", err)
	}
	outputPath := filepath.Join(outputDir,
		"video_temp_"+time.Now().Format(util.RecordingStamp)+".mp4")

	args := grabArgs(monitor, captureFPS)
	args = append(args,
		"-codec:v", "libx264",
		"-preset", "ultrafast",
		"-pix_fmt", "yuv420p",
		"-y",
		outputPath,
	)

	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, r.ffmpegPath, args...)
	// An interrupt lets FFmpeg finalize the MP4 index; the WaitDelay
	// kill is the backstop for a wedged process.
	cmd.Cancel = func() error {
		return util.GracefulSignal(cmd.Process)
	}
	cmd.WaitDelay = types.ShutdownTimeout

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		cancel()
		return util.WrapError("start screen recorder", err)
	}

	r.cmd = cmd
	r.cancel = cancel
	r.stderr = &stderr
	r.outputPath = outputPath
	r.active = true

	slog.Info("Screen recording started",
		"monitor", monitorIndex, "file", outputPath, "fps", captureFPS)
	return nil
}

// Stop ends the recording and returns the video file path. Stopping
// while stopped returns an empty path.
func (r *Recorder) Stop() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.active {
		return "", nil
	}

	r.cancel()
	err := r.cmd.Wait()
	path := r.outputPath

	r.cmd = nil
	r.cancel = nil
	r.active = false
	r.outputPath = ""

	// FFmpeg exits non-zero after an interrupt; that is a clean stop
	// as long as the file landed on disk.
	if _, statErr := os.Stat(path); statErr != nil {
		if last := util.ExtractLastError(r.stderr.String()); last != "" {
			slog.Error("Screen recording produced no file", "error", last)
		}
		if err == nil {
			err = statErr
		}
		return "", util.WrapError("finalize screen recording", err)
	}

	slog.Info("Screen recording stopped", "file", path)
	return path, nil
}
