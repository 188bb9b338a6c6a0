package decode

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/kbukum/voicecap/audio"
	"github.com/kbukum/voicecap/errors"
	"github.com/kbukum/voicecap/logger"
	"github.com/kbukum/voicecap/process"
)

// FFmpegConfig configures the ffmpeg-backed decoder.
type FFmpegConfig struct {
	Binary     string        `mapstructure:"binary"`
	SampleRate int           `mapstructure:"sample_rate"`
	Channels   int           `mapstructure:"channels"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// ApplyDefaults fills zero fields.
func (c *FFmpegConfig) ApplyDefaults() {
	if c.Binary == "" {
		c.Binary = "ffmpeg"
	}
	if c.SampleRate <= 0 {
		c.SampleRate = 44100
	}
	if c.Channels <= 0 {
		c.Channels = 1
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
}

// FFmpeg decodes any container ffmpeg understands into float samples at the
// configured rate and channel count.
type FFmpeg struct {
	cfg    FFmpegConfig
	runner *process.Runner
	log    *logger.Logger
}

// FFmpegOption configures an FFmpeg decoder.
type FFmpegOption func(*FFmpeg)

// WithRunner sets the process runner. The default has no circuit breaker.
func WithRunner(r *process.Runner) FFmpegOption {
	return func(d *FFmpeg) { d.runner = r }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) FFmpegOption {
	return func(d *FFmpeg) { d.log = l.WithComponent("decode") }
}

// NewFFmpeg creates an ffmpeg decoder.
func NewFFmpeg(cfg FFmpegConfig, opts ...FFmpegOption) *FFmpeg {
	cfg.ApplyDefaults()
	d := &FFmpeg{cfg: cfg, runner: process.NewRunner(nil), log: logger.Nop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Args returns the ffmpeg arguments used for one decode.
func (d *FFmpeg) Args() []string {
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-i", "pipe:0",
		"-f", "f32le", "-acodec", "pcm_f32le",
		"-ac", strconv.Itoa(d.cfg.Channels),
		"-ar", strconv.Itoa(d.cfg.SampleRate),
		"pipe:1",
	}
}

// Decode implements Decoder.
func (d *FFmpeg) Decode(ctx context.Context, blob []byte, mimeType string) (*audio.Buffer, error) {
	if len(blob) == 0 {
		return nil, errors.DecodeFailed(fmt.Errorf("empty %s blob", mimeType))
	}
	ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	result, err := d.runner.Run(ctx, process.Command{
		Binary: d.cfg.Binary,
		Args:   d.Args(),
		Stdin:  bytes.NewReader(blob),
	})
	if result != nil && result.ExitCode > 0 {
		return nil, errors.DecodeFailed(fmt.Errorf("%s exited %d: %s", d.cfg.Binary, result.ExitCode, result.StderrTail(5))).
			WithDetail("mime_type", mimeType)
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.DecodeFailed(ctx.Err())
		}
		return nil, errors.DecodeFailed(fmt.Errorf("run %s: %w", d.cfg.Binary, err))
	}

	samples, err := parseF32LE(result.Stdout)
	if err != nil {
		return nil, errors.DecodeFailed(err)
	}
	buf := audio.FromInterleaved(samples, d.cfg.Channels, d.cfg.SampleRate)
	d.log.Debug("decoded recording", logger.Fields(
		"mime_type", mimeType,
		"input_bytes", len(blob),
		"frames", buf.NumFrames(),
		logger.FieldDuration, result.Duration.String(),
	))
	return buf, nil
}

func parseF32LE(raw []byte) ([]float32, error) {
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("f32le output of %d bytes is not sample aligned", len(raw))
	}
	out := make([]float32, len(raw)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return out, nil
}
