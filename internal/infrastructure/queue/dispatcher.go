package queue

import (
	"context"
	gosync "sync"
	"time"

	"github.com/sssync/backend/internal/domain/sync"
	"go.uber.org/zap"
)

// Mode identifies which backend the dispatcher is currently routing to
type Mode string

const (
	// ModeLight routes to the in-memory FIFO
	ModeLight Mode = "light"
	// ModeDurable routes to the persisted retrying queue
	ModeDurable Mode = "durable"
)

// DispatcherConfig holds the mode-transition thresholds
type DispatcherConfig struct {
	// RateThreshold is the per-second enqueue count above which load is
	// considered heavy
	RateThreshold int
	// WindowThreshold is the full-window enqueue count that must also be
	// exceeded before upgrading to durable mode
	WindowThreshold int
	// WindowSpan is the sliding window retention
	WindowSpan time.Duration
	// RecentSpan is the "current rate" sample width
	RecentSpan time.Duration
}

// DefaultDispatcherConfig returns the default thresholds: sustained >5/sec
// over a 15 second window with >75 total enqueues upgrades to durable.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		RateThreshold:   5,
		WindowThreshold: 75,
		WindowSpan:      DefaultWindowSpan,
		RecentSpan:      DefaultRecentSpan,
	}
}

// AdaptiveDispatcher routes envelopes to one of two backends based on a
// sliding-window estimate of the enqueue rate. Upgrading to durable mode
// requires sustained load (both thresholds exceeded); downgrading happens
// on a single calm sample, deliberately quicker than the upgrade. Mode and
// window are process-local: a restart comes back up in light mode.
type AdaptiveDispatcher struct {
	mu      gosync.Mutex
	mode    Mode
	window  *RateWindow
	light   Queue
	durable Queue
	config  DispatcherConfig
	logger  *zap.Logger

	// now is stubbed in tests
	now func() time.Time
}

// NewAdaptiveDispatcher creates a dispatcher starting in light mode
func NewAdaptiveDispatcher(light, durable Queue, config DispatcherConfig, logger *zap.Logger) *AdaptiveDispatcher {
	if config.RateThreshold <= 0 {
		config = DefaultDispatcherConfig()
	}
	return &AdaptiveDispatcher{
		mode:    ModeLight,
		window:  NewRateWindow(config.WindowSpan, config.RecentSpan),
		light:   light,
		durable: durable,
		config:  config,
		logger:  logger,
		now:     time.Now,
	}
}

// Mode returns the current routing mode
func (d *AdaptiveDispatcher) Mode() Mode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mode
}

// Enqueue records the enqueue in the rate window, applies the mode
// transition rules, and routes the envelope to the backend for the
// resulting mode
func (d *AdaptiveDispatcher) Enqueue(ctx context.Context, env sync.DispatchEnvelope) error {
	backend := d.observeAndRoute()
	return backend.Enqueue(ctx, env)
}

// observeAndRoute updates the window and mode under one lock so concurrent
// enqueues cannot interleave a stale mode read with a window mutation
func (d *AdaptiveDispatcher) observeAndRoute() Queue {
	d.mu.Lock()
	defer d.mu.Unlock()

	recent, window := d.window.Observe(d.now())

	switch d.mode {
	case ModeLight:
		if recent > d.config.RateThreshold && window > d.config.WindowThreshold {
			d.mode = ModeDurable
			d.logger.Info("dispatcher upgraded to durable mode",
				zap.Int("recent", recent),
				zap.Int("window", window),
			)
		}
	case ModeDurable:
		if recent <= d.config.RateThreshold {
			d.mode = ModeLight
			d.logger.Info("dispatcher downgraded to light mode",
				zap.Int("recent", recent),
				zap.Int("window", window),
			)
		}
	}

	if d.mode == ModeDurable {
		return d.durable
	}
	return d.light
}

var _ sync.Dispatcher = (*AdaptiveDispatcher)(nil)
