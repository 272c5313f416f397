package audio

import "sync"

// SilenceTracker watches one audio path for sustained silence. Time is
// derived from the number of samples processed rather than the wall
// clock, so a stalled capture loop never inflates the measured
// duration. A single non-silent chunk resets the tracker immediately.
type SilenceTracker struct {
	mu sync.Mutex

	thresholdDB  float64
	durationSecs float64
	sampleRate   int

	totalFrames  int64
	silenceStart float64
	inSilence    bool
}

// NewSilenceTracker creates a tracker that flags a warning once the
// level stays below thresholdDB for durationSecs of audio.
func NewSilenceTracker(thresholdDB, durationSecs float64, sampleRate int) *SilenceTracker {
	return &SilenceTracker{
		thresholdDB:  thresholdDB,
		durationSecs: durationSecs,
		sampleRate:   sampleRate,
	}
}

// Process feeds one chunk into the tracker. chunkFrames is the number
// of sample frames the chunk represents, which advances the tracker's
// clock. It returns the measured level, whether the silence warning is
// active, and the current silence duration in seconds. The duration
// includes the chunk just processed.
func (t *SilenceTracker) Process(chunk []int16, chunkFrames int) (db float64, warning bool, duration float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	db = LevelDB(chunk)

	now := float64(t.totalFrames) / float64(t.sampleRate)
	t.totalFrames += int64(chunkFrames)

	if db < t.thresholdDB {
		if !t.inSilence {
			t.inSilence = true
			t.silenceStart = now
		}
		duration = now - t.silenceStart + float64(chunkFrames)/float64(t.sampleRate)
		warning = duration >= t.durationSecs
		return db, warning, duration
	}

	t.inSilence = false
	return db, false, 0
}

// Reset clears any accumulated silence state and restarts the sample
// clock, as if the tracker had just been created.
func (t *SilenceTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inSilence = false
	t.silenceStart = 0
	t.totalFrames = 0
}

// SetThresholdDB updates the silence threshold.
func (t *SilenceTracker) SetThresholdDB(db float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.thresholdDB = db
}

// SetDuration updates how long the level must stay below the threshold
// before a warning is raised.
func (t *SilenceTracker) SetDuration(secs float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.durationSecs = secs
}

// ThresholdDB returns the current silence threshold.
func (t *SilenceTracker) ThresholdDB() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.thresholdDB
}

// Duration returns the configured warning duration in seconds.
func (t *SilenceTracker) Duration() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.durationSecs
}
