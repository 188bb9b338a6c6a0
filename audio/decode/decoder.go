// Package decode turns the compressed container produced by a capture stream
// back into raw float samples.
package decode

import (
	"context"
	"mime"
	"strings"
	"sync"

	"github.com/kbukum/voicecap/audio"
	"github.com/kbukum/voicecap/errors"
)

// Decoder decodes one complete compressed recording.
type Decoder interface {
	Decode(ctx context.Context, blob []byte, mimeType string) (*audio.Buffer, error)
}

// Func adapts a function to Decoder.
type Func func(ctx context.Context, blob []byte, mimeType string) (*audio.Buffer, error)

// Decode calls f.
func (f Func) Decode(ctx context.Context, blob []byte, mimeType string) (*audio.Buffer, error) {
	return f(ctx, blob, mimeType)
}

// Registry dispatches to a decoder by MIME type and falls back to a default.
type Registry struct {
	mu       sync.RWMutex
	decoders map[string]Decoder
	fallback Decoder
}

// NewRegistry creates a registry. fallback may be nil, in which case unknown
// types fail with DECODE_FAILED.
func NewRegistry(fallback Decoder) *Registry {
	return &Registry{decoders: make(map[string]Decoder), fallback: fallback}
}

// NewDefaultRegistry routes WAV blobs to the in-process parser and everything
// else to fallback.
func NewDefaultRegistry(fallback Decoder) *Registry {
	r := NewRegistry(fallback)
	wav := WAV{}
	for _, t := range WAVTypes {
		r.Register(t, wav)
	}
	return r
}

// Register maps a MIME type (or a "type/" prefix) to d.
func (r *Registry) Register(mimeType string, d Decoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := strings.ToLower(strings.TrimSpace(mimeType))
	if !strings.HasSuffix(key, "/") {
		key = Essence(key)
	}
	r.decoders[key] = d
}

// Lookup returns the decoder for mimeType: an exact essence match first, then
// a registered "type/" prefix, then the fallback.
func (r *Registry) Lookup(mimeType string) (Decoder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	essence := Essence(mimeType)
	if d, ok := r.decoders[essence]; ok {
		return d, true
	}
	if i := strings.IndexByte(essence, '/'); i > 0 {
		if d, ok := r.decoders[essence[:i+1]]; ok {
			return d, true
		}
	}
	if r.fallback != nil {
		return r.fallback, true
	}
	return nil, false
}

// Decode implements Decoder.
func (r *Registry) Decode(ctx context.Context, blob []byte, mimeType string) (*audio.Buffer, error) {
	d, ok := r.Lookup(mimeType)
	if !ok {
		return nil, errors.DecodeFailed(nil).WithDetail("mime_type", mimeType)
	}
	return d.Decode(ctx, blob, mimeType)
}

// Essence strips parameters from a MIME type: "audio/webm;codecs=opus" -> "audio/webm".
func Essence(mimeType string) string {
	if mt, _, err := mime.ParseMediaType(mimeType); err == nil {
		return mt
	}
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}
