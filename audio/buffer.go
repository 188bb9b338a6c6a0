// Package audio holds the raw sample representation passed between the
// decoder and the PCM encoder.
package audio

import (
	"fmt"
	"time"

	"github.com/kbukum/voicecap/errors"
)

// Buffer is planar float audio: one slice per channel, nominally in [-1, 1].
type Buffer struct {
	SampleRate int
	Channels   [][]float32
}

// NewBuffer allocates a zeroed buffer.
func NewBuffer(sampleRate, channels, frames int) *Buffer {
	b := &Buffer{SampleRate: sampleRate, Channels: make([][]float32, channels)}
	for i := range b.Channels {
		b.Channels[i] = make([]float32, frames)
	}
	return b
}

// NumChannels returns the channel count.
func (b *Buffer) NumChannels() int { return len(b.Channels) }

// NumFrames returns the number of sample frames. Ragged buffers report the shortest channel.
func (b *Buffer) NumFrames() int {
	if len(b.Channels) == 0 {
		return 0
	}
	n := len(b.Channels[0])
	for _, ch := range b.Channels[1:] {
		if len(ch) < n {
			n = len(ch)
		}
	}
	return n
}

// Duration returns the playback length.
func (b *Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(b.NumFrames()) * time.Second / time.Duration(b.SampleRate)
}

// Validate checks that the buffer can be encoded.
func (b *Buffer) Validate() error {
	if b == nil {
		return errors.InvalidInput("buffer", "audio buffer is nil")
	}
	if b.SampleRate <= 0 {
		return errors.InvalidInput("sample_rate", fmt.Sprintf("sample rate must be positive (got %d)", b.SampleRate))
	}
	if len(b.Channels) == 0 {
		return errors.InvalidInput("channels", "at least one channel is required")
	}
	if len(b.Channels) > 0xFFFF/2 {
		return errors.InvalidInput("channels", fmt.Sprintf("too many channels (%d)", len(b.Channels)))
	}
	n := len(b.Channels[0])
	for i, ch := range b.Channels {
		if len(ch) != n {
			return errors.InvalidInput("channels", fmt.Sprintf("channel %d has %d frames, channel 0 has %d", i, len(ch), n))
		}
	}
	return nil
}

// FromInterleaved converts interleaved samples (frame-major) into a planar Buffer.
// Trailing samples that do not fill a whole frame are dropped.
func FromInterleaved(samples []float32, channels, sampleRate int) *Buffer {
	if channels <= 0 {
		channels = 1
	}
	frames := len(samples) / channels
	b := NewBuffer(sampleRate, channels, frames)
	for f := 0; f < frames; f++ {
		for c := 0; c < channels; c++ {
			b.Channels[c][f] = samples[f*channels+c]
		}
	}
	return b
}
