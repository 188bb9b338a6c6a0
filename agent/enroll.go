// Package agent composes the capture, script and schedule modules into the
// two flows the CLI runs: guided voice-sample enrollment and schedule
// watching.
package agent

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/kbukum/voicecap/audio/decode"
	"github.com/kbukum/voicecap/capture"
	"github.com/kbukum/voicecap/clock"
	"github.com/kbukum/voicecap/errors"
	"github.com/kbukum/voicecap/logger"
	"github.com/kbukum/voicecap/observability"
	"github.com/kbukum/voicecap/resilience"
	"github.com/kbukum/voicecap/script"
)

// DefaultConfirmAttempts bounds upload attempts for one recording.
const DefaultConfirmAttempts = 3

// Review decides whether the reviewed artifact is uploaded. Returning false
// discards it.
type Review func(ctx context.Context, art *capture.Artifact) (bool, error)

// EnrollRequest describes one guided enrollment.
type EnrollRequest struct {
	// Lines is the script read aloud. Empty uses script.DefaultLines.
	Lines          []string
	TrackerOptions []script.Option
	// MaxDuration caps the take. Zero uses capture.GuidedCeiling.
	MaxDuration time.Duration
	// Stop ends the recording early when closed or sent on.
	Stop <-chan struct{}
	// Review is called once the artifact is ready. Nil accepts it.
	Review Review
	// OnEvent receives every controller event, ticks included.
	OnEvent func(capture.Event, *script.Tracker)
}

// EnrollResult reports how the enrollment ended.
type EnrollResult struct {
	Artifact  *capture.Artifact
	Discarded bool
	Attempts  int
	Completed []int
}

// Enroller runs guided voice-sample enrollments.
type Enroller struct {
	mic          capture.Microphone
	decoder      decode.Decoder
	uploader     capture.Uploader
	clock        clock.Clock
	constraints  capture.Constraints
	drainTimeout time.Duration
	retry        resilience.RetryConfig
	log          *logger.Logger
	metrics      *observability.Metrics

	mu      sync.Mutex
	current *capture.Controller
}

// EnrollOption configures an Enroller.
type EnrollOption func(*Enroller)

// WithClock sets the clock handed to the controller.
func WithClock(c clock.Clock) EnrollOption {
	return func(e *Enroller) { e.clock = c }
}

// WithConstraints sets the microphone constraints.
func WithConstraints(c capture.Constraints) EnrollOption {
	return func(e *Enroller) { e.constraints = c }
}

// WithDrainTimeout bounds the wait for residual fragments after stop.
func WithDrainTimeout(d time.Duration) EnrollOption {
	return func(e *Enroller) { e.drainTimeout = d }
}

// WithConfirmRetry sets the upload retry policy. RetryIf is replaced by the
// enroller's own rule.
func WithConfirmRetry(cfg resilience.RetryConfig) EnrollOption {
	return func(e *Enroller) { e.retry = cfg }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) EnrollOption {
	return func(e *Enroller) { e.log = l }
}

// WithMetrics sets the metric recorder.
func WithMetrics(m *observability.Metrics) EnrollOption {
	return func(e *Enroller) { e.metrics = m }
}

// NewEnroller creates an Enroller uploading through uploader.
func NewEnroller(mic capture.Microphone, decoder decode.Decoder, uploader capture.Uploader, opts ...EnrollOption) *Enroller {
	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = DefaultConfirmAttempts
	e := &Enroller{
		mic:          mic,
		decoder:      decoder,
		uploader:     uploader,
		clock:        clock.Real(),
		constraints:  capture.DefaultConstraints(),
		drainTimeout: capture.DefaultDrainTimeout,
		retry:        retry,
		log:          logger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.WithComponent("agent")
	return e
}

// Enroll records one guided take, lets the caller review it and uploads it.
// A failed upload is retried with the same artifact and never re-records.
func (e *Enroller) Enroll(ctx context.Context, req EnrollRequest) (*EnrollResult, error) {
	lines := req.Lines
	if len(lines) == 0 {
		lines = script.DefaultLines
	}
	tracker, err := script.NewTracker(lines, req.TrackerOptions...)
	if err != nil {
		return nil, errors.InvalidInput("script", err.Error())
	}
	ceiling := req.MaxDuration
	if ceiling <= 0 {
		ceiling = capture.GuidedCeiling
	}

	ctl := capture.NewController(e.mic, e.decoder,
		capture.WithClock(e.clock),
		capture.WithMaxDuration(ceiling),
		capture.WithConstraints(e.constraints),
		capture.WithDrainTimeout(e.drainTimeout),
		capture.WithTracker(tracker),
		capture.WithUploader(e.uploader),
		capture.WithLogger(e.log),
		capture.WithMetrics(e.metrics),
	)

	e.setCurrent(ctl)
	defer e.setCurrent(nil)

	autoStopped := make(chan struct{})
	var once sync.Once
	unsubscribe := ctl.Subscribe(func(ev capture.Event) {
		if !ev.Tick && ev.From == capture.Recording && ev.To == capture.Stopped {
			once.Do(func() { close(autoStopped) })
		}
		if req.OnEvent != nil {
			req.OnEvent(ev, tracker)
		}
	})
	defer unsubscribe()

	if err := ctl.Start(ctx); err != nil {
		return nil, err
	}

	select {
	case <-req.Stop:
	case <-autoStopped:
	case <-ctx.Done():
		ctl.Cancel()
		return nil, ctx.Err()
	}

	art, err := ctl.Stop(ctx)
	if err != nil {
		return nil, err
	}
	result := &EnrollResult{Artifact: art, Completed: tracker.Completed()}

	if req.Review != nil {
		ok, err := req.Review(ctx, art)
		if err != nil {
			ctl.Cancel()
			return result, err
		}
		if !ok {
			result.Discarded = true
			return result, ctl.Discard()
		}
	}

	retry := e.retry
	retry.RetryIf = retryableUpload
	userOnRetry := retry.OnRetry
	retry.OnRetry = func(attempt int, err error, backoff time.Duration) {
		e.log.Warn("upload failed, retrying with the same recording", logger.Fields(
			"attempt", attempt,
			"backoff", backoff.String(),
			logger.FieldSessionID, art.SessionID.String(),
			logger.FieldError, err.Error(),
		))
		if userOnRetry != nil {
			userOnRetry(attempt, err, backoff)
		}
	}
	err = resilience.RetryFunc(ctx, retry, func() error {
		result.Attempts++
		return ctl.Confirm(ctx)
	})
	if err != nil {
		return result, err
	}
	e.log.Info("voice sample enrolled", logger.Fields(
		logger.FieldSessionID, art.SessionID.String(),
		"attempts", result.Attempts,
		"lines_completed", len(result.Completed),
	))
	return result, nil
}

// Session returns the session of the enrollment in progress, if any.
func (e *Enroller) Session() (capture.Session, bool) {
	e.mu.Lock()
	ctl := e.current
	e.mu.Unlock()
	if ctl == nil {
		return capture.Session{}, false
	}
	return ctl.Session(), true
}

func (e *Enroller) setCurrent(ctl *capture.Controller) {
	e.mu.Lock()
	e.current = ctl
	e.mu.Unlock()
}

// retryableUpload retries upload failures unless the API rejected the
// recording itself with a 4xx or the client refused it as invalid input.
func retryableUpload(err error) bool {
	appErr, ok := errors.AsAppError(err)
	if !ok || appErr.Code != errors.ErrCodeUploadFailed {
		return false
	}
	if errors.HasCode(appErr.Cause, errors.ErrCodeInvalidInput) {
		return false
	}
	status, _ := appErr.Details["status"].(int)
	return status == 0 || status >= http.StatusInternalServerError || status == http.StatusTooManyRequests
}
