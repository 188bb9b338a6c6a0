package capture

import (
	"time"

	"github.com/kbukum/voicecap/clock"
	"github.com/kbukum/voicecap/logger"
	"github.com/kbukum/voicecap/observability"
	"github.com/kbukum/voicecap/script"
)

// Recording ceilings used by the two recording flows.
const (
	// GuidedCeiling bounds a single guided voice-sample take.
	GuidedCeiling = 70 * time.Second
	// FreeformCeiling bounds an open-ended recording.
	FreeformCeiling = 300 * time.Second
)

// DefaultDrainTimeout bounds the wait for residual fragments after stop.
const DefaultDrainTimeout = 2 * time.Second

// Option configures a Controller.
type Option func(*Controller)

// WithClock sets the clock driving the elapsed timer. Defaults to clock.Real().
func WithClock(c clock.Clock) Option {
	return func(ctl *Controller) { ctl.clock = c }
}

// WithMaxDuration sets the safety ceiling after which recording stops on its own.
func WithMaxDuration(d time.Duration) Option {
	return func(ctl *Controller) {
		if d > 0 {
			ctl.maxDuration = d
		}
	}
}

// WithConstraints overrides DefaultConstraints.
func WithConstraints(c Constraints) Option {
	return func(ctl *Controller) { ctl.constraints = c.normalized() }
}

// WithUploader sets the destination used by Confirm.
func WithUploader(u Uploader) Option {
	return func(ctl *Controller) { ctl.uploader = u }
}

// WithTracker attaches a script tracker. It is advanced every tick and reset
// when the session is discarded or cancelled.
func WithTracker(t *script.Tracker) Option {
	return func(ctl *Controller) { ctl.tracker = t }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(ctl *Controller) { ctl.log = l.WithComponent("capture") }
}

// WithMetrics sets the metric recorder.
func WithMetrics(m *observability.Metrics) Option {
	return func(ctl *Controller) { ctl.metrics = m }
}

// WithDrainTimeout bounds how long Stop waits for residual fragments.
func WithDrainTimeout(d time.Duration) Option {
	return func(ctl *Controller) {
		if d > 0 {
			ctl.drainTimeout = d
		}
	}
}
