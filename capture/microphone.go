package capture

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kbukum/voicecap/errors"
)

// MaxFragmentInterval bounds how much audio a single fragment may carry.
const MaxFragmentInterval = 3 * time.Second

// Constraints describe the requested capture configuration.
type Constraints struct {
	EchoCancellation bool
	NoiseSuppression bool
	SampleRate       int
	Channels         int
	// FragmentInterval is how often the stream emits a fragment.
	FragmentInterval time.Duration
}

// DefaultConstraints is the fixed configuration used for voice samples.
func DefaultConstraints() Constraints {
	return Constraints{
		EchoCancellation: true,
		NoiseSuppression: true,
		SampleRate:       44100,
		Channels:         1,
		FragmentInterval: time.Second,
	}
}

func (c Constraints) normalized() Constraints {
	d := DefaultConstraints()
	if c.SampleRate <= 0 {
		c.SampleRate = d.SampleRate
	}
	if c.Channels <= 0 {
		c.Channels = d.Channels
	}
	if c.FragmentInterval <= 0 {
		c.FragmentInterval = d.FragmentInterval
	}
	if c.FragmentInterval > MaxFragmentInterval {
		c.FragmentInterval = MaxFragmentInterval
	}
	return c
}

// Microphone grants access to a capture device.
type Microphone interface {
	// Open acquires the device and starts a compressed capture stream.
	// Refusal or a missing device is reported as PERMISSION_DENIED.
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// Stream is an open capture. Fragments arrive in capture order and the
// channel is closed once the stream has fully drained after Close or a
// device failure.
type Stream interface {
	Fragments() <-chan []byte
	MimeType() string
	// Err reports why the stream ended, if it ended on its own.
	Err() error
	// Close releases the device. It is safe to call more than once.
	Close() error
}

// MicrophoneFunc adapts a function to Microphone.
type MicrophoneFunc func(ctx context.Context, c Constraints) (Stream, error)

// Open calls f.
func (f MicrophoneFunc) Open(ctx context.Context, c Constraints) (Stream, error) {
	return f(ctx, c)
}

// ExclusiveMicrophone allows one open stream at a time across every
// controller sharing it. A second Open fails fast with DEVICE_BUSY.
type ExclusiveMicrophone struct {
	mic  Microphone
	held atomic.Bool
}

// Exclusive wraps mic with a single-holder guard.
func Exclusive(mic Microphone) *ExclusiveMicrophone {
	return &ExclusiveMicrophone{mic: mic}
}

// Open implements Microphone.
func (e *ExclusiveMicrophone) Open(ctx context.Context, c Constraints) (Stream, error) {
	if !e.held.CompareAndSwap(false, true) {
		return nil, errors.DeviceBusy()
	}
	s, err := e.mic.Open(ctx, c)
	if err != nil {
		e.held.Store(false)
		return nil, err
	}
	return &exclusiveStream{Stream: s, release: func() { e.held.Store(false) }}, nil
}

// Held reports whether a stream currently holds the device.
func (e *ExclusiveMicrophone) Held() bool { return e.held.Load() }

type exclusiveStream struct {
	Stream
	release func()
	once    sync.Once
	err     error
}

func (s *exclusiveStream) Close() error {
	s.once.Do(func() {
		s.err = s.Stream.Close()
		s.release()
	})
	return s.err
}
