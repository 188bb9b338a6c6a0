package schedule

import (
	"time"

	"github.com/kbukum/voicecap/clock"
	"github.com/kbukum/voicecap/logger"
	"github.com/kbukum/voicecap/observability"
	"github.com/kbukum/voicecap/resilience"
)

// Defaults for the engine.
const (
	DefaultPollInterval = 30 * time.Second
	MinPollInterval     = time.Second
	MaxPollInterval     = 60 * time.Second
	// DefaultHold is how long a fired entry stays in progress before Stop is sent.
	DefaultHold        = 150 * time.Second
	DefaultCallTimeout = 10 * time.Second
)

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the clock driving the poll loop.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithPollInterval sets the poll interval. Values outside 1s-60s are clamped.
func WithPollInterval(d time.Duration) Option {
	return func(e *Engine) { e.pollInterval = clampPoll(d) }
}

// WithRefreshInterval sets how often entries are re-read from the Source.
// Zero refreshes on every tick.
func WithRefreshInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.refreshInterval = d
		}
	}
}

// WithHold sets how long a fired entry stays in progress.
func WithHold(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.hold = d
		}
	}
}

// WithWindowOffsets overrides the first window delay and the gap to the second.
func WithWindowOffsets(delay, gap time.Duration) Option {
	return func(e *Engine) {
		if delay >= 0 {
			e.firstDelay = delay
		}
		if gap > 0 {
			e.secondGap = gap
		}
	}
}

// WithLedger sets the dedup ledger. Defaults to a MemoryLedger.
func WithLedger(l Ledger) Option {
	return func(e *Engine) { e.ledger = l }
}

// WithRetry sets the retry policy for trigger calls.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(e *Engine) { e.retry = cfg }
}

// WithCallTimeout bounds each trigger call attempt.
func WithCallTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.callTimeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) { e.log = l.WithComponent("schedule") }
}

// WithMetrics sets the metric recorder.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func clampPoll(d time.Duration) time.Duration {
	switch {
	case d <= 0:
		return DefaultPollInterval
	case d < MinPollInterval:
		return MinPollInterval
	case d > MaxPollInterval:
		return MaxPollInterval
	}
	return d
}
