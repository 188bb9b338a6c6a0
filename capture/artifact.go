package capture

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Artifact is a finished 16-bit PCM WAV recording.
type Artifact struct {
	SessionID  uuid.UUID     `json:"session_id"`
	Data       []byte        `json:"-"`
	MimeType   string        `json:"mime_type"`
	SampleRate int           `json:"sample_rate"`
	Channels   int           `json:"channels"`
	Frames     int           `json:"frames"`
	Duration   time.Duration `json:"duration"`
	RecordedAt time.Time     `json:"recorded_at"`
}

// Size returns the encoded size in bytes.
func (a *Artifact) Size() int { return len(a.Data) }

// Uploader delivers a confirmed artifact.
type Uploader interface {
	Upload(ctx context.Context, a *Artifact) error
}

// UploaderFunc adapts a function to Uploader.
type UploaderFunc func(ctx context.Context, a *Artifact) error

// Upload calls f.
func (f UploaderFunc) Upload(ctx context.Context, a *Artifact) error { return f(ctx, a) }
