// Package remote talks to the monitoring API: schedule queries, recording
// start and stop triggers, and lecturer voice-sample uploads.
package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kbukum/voicecap/capture"
	"github.com/kbukum/voicecap/errors"
	"github.com/kbukum/voicecap/httpclient"
	"github.com/kbukum/voicecap/logger"
	"github.com/kbukum/voicecap/schedule"
)

// MaxUploadBytes is the largest voice sample the API accepts.
const MaxUploadBytes = 10 << 20

// Upload form layout.
const (
	AudioField    = "audio_data"
	AudioFileName = "rekaman.wav"
	AudioMimeType = "audio/wav"
)

const service = "monitoring-api"

// Message is the {"message": "..."} body returned by trigger endpoints.
type Message struct {
	Message string `json:"message"`
}

// UploadResult is the body returned after a voice sample is stored.
type UploadResult struct {
	Message    string `json:"message"`
	Path       string `json:"path"`
	LecturerID string `json:"dosen_id"`
}

// Client is a typed client for the monitoring API.
type Client struct {
	reads   *httpclient.Client
	uploads *httpclient.Client
	log     *logger.Logger
}

// Option configures a Client.
type Option func(*options)

type options struct {
	log *logger.Logger
	hc  *http.Client
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.hc = hc }
}

// New creates a Client.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg.ApplyDefaults()
	o := options{log: logger.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	retry := httpclient.DefaultRetryConfig()
	retry.MaxAttempts = cfg.RetryAttempts
	log := o.log.WithComponent("remote")
	retry.OnRetry = func(attempt int, err error, backoff time.Duration) {
		log.Warn("retrying api call", logger.Fields("attempt", attempt, "backoff", backoff.String(), logger.FieldError, err.Error()))
	}

	hcOpts := []httpclient.Option{httpclient.WithLogger(o.log)}
	if o.hc != nil {
		hcOpts = append(hcOpts, httpclient.WithHTTPClient(o.hc))
	}

	reads, err := httpclient.New(httpclient.Config{
		BaseURL:        cfg.BaseURL,
		Timeout:        cfg.Timeout,
		Retry:          retry,
		CircuitBreaker: httpclient.DefaultCircuitBreakerConfig(service),
	}, hcOpts...)
	if err != nil {
		return nil, err
	}
	uploads, err := httpclient.New(httpclient.Config{
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout * 4,
	}, hcOpts...)
	if err != nil {
		return nil, err
	}
	return &Client{reads: reads, uploads: uploads, log: log}, nil
}

// BaseURL returns the API base URL.
func (c *Client) BaseURL() string { return c.reads.BaseURL() }

// ListSchedules returns every schedule entry.
func (c *Client) ListSchedules(ctx context.Context) ([]schedule.Entry, error) {
	resp, err := httpclient.Get[[]schedule.Entry](c.reads, ctx, "/jadwal")
	if err != nil {
		return nil, apiError("list schedules", err)
	}
	return resp.Data, nil
}

// ListActiveToday returns the entries currently being recorded.
func (c *Client) ListActiveToday(ctx context.Context) ([]schedule.Entry, error) {
	resp, err := httpclient.Get[[]schedule.Entry](c.reads, ctx, "/jadwal/sedang-rekam")
	if err != nil {
		return nil, apiError("list recording schedules", err)
	}
	return resp.Data, nil
}

// GetSchedule returns one entry.
func (c *Client) GetSchedule(ctx context.Context, id string) (*schedule.Entry, error) {
	resp, err := httpclient.Get[schedule.Entry](c.reads, ctx, "/jadwal/"+url.PathEscape(id))
	if err != nil {
		return nil, apiError("get schedule", err)
	}
	return &resp.Data, nil
}

// StartRecording marks the entry as recording.
func (c *Client) StartRecording(ctx context.Context, id string) (*Message, error) {
	return c.trigger(ctx, "start recording", "/rekaman/mulai/"+url.PathEscape(id))
}

// StopRecording ends the entry's recording.
func (c *Client) StopRecording(ctx context.Context, id string) (*Message, error) {
	return c.trigger(ctx, "stop recording", "/rekaman/hentikan/"+url.PathEscape(id))
}

func (c *Client) trigger(ctx context.Context, op, path string) (*Message, error) {
	resp, err := httpclient.Get[Message](c.reads, ctx, path)
	if err != nil {
		return nil, apiError(op, err)
	}
	return &resp.Data, nil
}

// UploadVoiceSample stores a WAV artifact as the lecturer's voice sample.
func (c *Client) UploadVoiceSample(ctx context.Context, lecturerID string, art *capture.Artifact) (*UploadResult, error) {
	if lecturerID == "" {
		return nil, errors.InvalidInput("dosen_id", "is required")
	}
	if art == nil || art.Size() == 0 {
		return nil, errors.InvalidInput(AudioField, "recording is empty")
	}
	if art.Size() > MaxUploadBytes {
		return nil, errors.InvalidInput(AudioField, fmt.Sprintf("recording is %d bytes, the limit is %d", art.Size(), MaxUploadBytes))
	}

	body := &httpclient.MultipartBody{
		Fields: map[string]string{
			"dosen_id":         lecturerID,
			"session_id":       art.SessionID.String(),
			"duration_seconds": strconv.FormatFloat(art.Duration.Seconds(), 'f', 1, 64),
		},
		Files: []httpclient.FileField{{
			FieldName:   AudioField,
			FileName:    AudioFileName,
			ContentType: AudioMimeType,
			Data:        art.Data,
		}},
	}
	resp, err := httpclient.Post[UploadResult](c.uploads, ctx, "/dosen/"+url.PathEscape(lecturerID)+"/rekam-suara", body)
	if err != nil {
		return nil, uploadError(err)
	}
	c.log.Info("voice sample uploaded", logger.Fields(
		"dosen_id", lecturerID,
		logger.FieldSessionID, art.SessionID.String(),
		"bytes", art.Size(),
		"path", resp.Data.Path,
	))
	return &resp.Data, nil
}

// apiError maps transport errors onto AppErrors, keeping the server message.
func apiError(op string, err error) error {
	if errors.IsAppError(err) {
		return err
	}
	e, ok := httpclient.AsError(err)
	if !ok {
		return errors.ExternalServiceError(service, err)
	}
	switch {
	case e.Code == httpclient.ErrCodeNotFound:
		return errors.NotFound("schedule", e.Message).WithCause(err)
	case e.Code == httpclient.ErrCodeTimeout:
		return errors.Timeout(op).WithCause(err)
	case e.Code == httpclient.ErrCodeConnection:
		return errors.New(errors.ErrCodeConnectionFailed, fmt.Sprintf("%s: cannot reach the monitoring API", op), http.StatusBadGateway).WithCause(err)
	}
	appErr := errors.ExternalServiceError(service, err)
	if msg := e.ServerMessage(); msg != "" {
		appErr.Message = msg
	}
	appErr.Retryable = e.Retryable
	return appErr.WithDetail("status", e.StatusCode).WithDetail("operation", op)
}

func uploadError(err error) error {
	if errors.IsAppError(err) {
		return errors.UploadFailed("", 0, err)
	}
	e, ok := httpclient.AsError(err)
	if !ok {
		return errors.UploadFailed("", 0, err)
	}
	return errors.UploadFailed(e.ServerMessage(), e.StatusCode, err)
}
