package queue

import (
	"sync"
	"time"
)

// Default sliding-window parameters for the enqueue-rate estimate
const (
	DefaultWindowSpan = 15 * time.Second
	DefaultRecentSpan = time.Second
)

// RateWindow is a sliding time-window of enqueue timestamps used to
// estimate the current dispatch rate. Entries older than the window span
// are pruned on every observation. Safe for concurrent use.
type RateWindow struct {
	mu         sync.Mutex
	samples    []time.Time
	windowSpan time.Duration
	recentSpan time.Duration
}

// NewRateWindow creates a rate window. Non-positive spans fall back to the
// defaults (15s window, 1s recent).
func NewRateWindow(windowSpan, recentSpan time.Duration) *RateWindow {
	if windowSpan <= 0 {
		windowSpan = DefaultWindowSpan
	}
	if recentSpan <= 0 {
		recentSpan = DefaultRecentSpan
	}
	return &RateWindow{
		samples:    make([]time.Time, 0, 128),
		windowSpan: windowSpan,
		recentSpan: recentSpan,
	}
}

// Observe records one enqueue at the given instant and returns the updated
// counts: how many observations fall in the recent span and in the full
// window, including this one
func (w *RateWindow) Observe(now time.Time) (recent, window int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.prune(now)
	w.samples = append(w.samples, now)
	return w.countsLocked(now)
}

// Counts returns the current counts without recording an observation
func (w *RateWindow) Counts(now time.Time) (recent, window int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.prune(now)
	return w.countsLocked(now)
}

// prune drops samples older than the window span. Samples are appended in
// arrival order, so the live suffix starts at the first sample still inside
// the window.
func (w *RateWindow) prune(now time.Time) {
	cutoff := now.Add(-w.windowSpan)
	firstLive := 0
	for firstLive < len(w.samples) && !w.samples[firstLive].After(cutoff) {
		firstLive++
	}
	if firstLive > 0 {
		w.samples = append(w.samples[:0], w.samples[firstLive:]...)
	}
}

func (w *RateWindow) countsLocked(now time.Time) (recent, window int) {
	window = len(w.samples)
	recentCutoff := now.Add(-w.recentSpan)
	for i := len(w.samples) - 1; i >= 0; i-- {
		if !w.samples[i].After(recentCutoff) {
			break
		}
		recent++
	}
	return recent, window
}
