package observability

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Outcome labels shared by recorders.
const (
	OutcomeSuccess   = "success"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
	OutcomeDenied    = "denied"
	OutcomeDiscarded = "discarded"
)

// Metrics holds the voicecap instruments. A nil *Metrics records nothing.
type Metrics struct {
	sessions      metric.Int64Counter
	duration      metric.Float64Histogram
	artifactBytes metric.Int64Histogram
	triggers      metric.Int64Counter
	refreshErrors metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	sessions, err := meter.Int64Counter("capture.sessions",
		metric.WithDescription("Recording sessions by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating capture.sessions counter: %w", err)
	}

	duration, err := meter.Float64Histogram("capture.duration",
		metric.WithDescription("Length of finished recordings in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating capture.duration histogram: %w", err)
	}

	artifactBytes, err := meter.Int64Histogram("capture.artifact.bytes",
		metric.WithDescription("Size of encoded WAV artifacts"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating capture.artifact.bytes histogram: %w", err)
	}

	triggers, err := meter.Int64Counter("schedule.triggers",
		metric.WithDescription("Recording triggers by window and outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating schedule.triggers counter: %w", err)
	}

	refreshErrors, err := meter.Int64Counter("schedule.refresh.errors",
		metric.WithDescription("Failed schedule refreshes"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating schedule.refresh.errors counter: %w", err)
	}

	return &Metrics{
		sessions:      sessions,
		duration:      duration,
		artifactBytes: artifactBytes,
		triggers:      triggers,
		refreshErrors: refreshErrors,
	}, nil
}

// RecordSession counts a finished session.
func (m *Metrics) RecordSession(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.sessions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordArtifact records the length and size of an encoded recording.
func (m *Metrics) RecordArtifact(ctx context.Context, d time.Duration, bytes int) {
	if m == nil {
		return
	}
	m.duration.Record(ctx, d.Seconds())
	m.artifactBytes.Record(ctx, int64(bytes))
}

// RecordTrigger counts a start trigger for a window.
func (m *Metrics) RecordTrigger(ctx context.Context, window int, outcome string) {
	if m == nil {
		return
	}
	m.triggers.Add(ctx, 1, metric.WithAttributes(
		attribute.String("window", strconv.Itoa(window)),
		attribute.String("outcome", outcome),
	))
}

// RecordRefreshError counts a failed schedule refresh.
func (m *Metrics) RecordRefreshError(ctx context.Context) {
	if m == nil {
		return
	}
	m.refreshErrors.Add(ctx, 1)
}
