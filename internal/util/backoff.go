package util

import (
	"sync"
	"time"
)

// Backoff yields exponentially growing delays for retry loops, capped
// at a maximum. Safe for concurrent use.
type Backoff struct {
	mu       sync.Mutex
	initial  time.Duration
	maxDelay time.Duration
	attempt  int
}

// NewBackoff returns a Backoff starting at initial and doubling up to
// maxDelay.
func NewBackoff(initial, maxDelay time.Duration) *Backoff {
	return &Backoff{initial: initial, maxDelay: maxDelay}
}

// Next returns the delay for the current attempt and advances.
func (b *Backoff) Next() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	d := b.initial << b.attempt
	if d > b.maxDelay || d < b.initial {
		d = b.maxDelay
	} else {
		b.attempt++
	}
	return d
}

// Reset returns the backoff to its initial delay.
func (b *Backoff) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.attempt = 0
}
