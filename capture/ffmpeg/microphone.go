// Package ffmpeg captures the system microphone by running ffmpeg and reading
// a webm/opus stream from its stdout.
package ffmpeg

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kbukum/voicecap/capture"
	"github.com/kbukum/voicecap/errors"
	"github.com/kbukum/voicecap/logger"
	"github.com/kbukum/voicecap/process"
)

// MimeType is the container produced by the microphone stream.
const MimeType = "audio/webm;codecs=opus"

// Config configures the ffmpeg microphone.
type Config struct {
	Binary string `mapstructure:"ffmpeg_binary"`
	// InputFormat is the ffmpeg input device format: pulse, alsa, avfoundation or dshow.
	InputFormat string `mapstructure:"input_format"`
	// InputDevice is the device name for InputFormat.
	InputDevice string `mapstructure:"input_device"`
	// StartupGrace is how long the process must stay up for the device to count as acquired.
	StartupGrace time.Duration `mapstructure:"startup_grace"`
	// StopGrace is how long ffmpeg gets to finish the container after SIGTERM.
	StopGrace time.Duration `mapstructure:"stop_grace"`
}

// ApplyDefaults fills zero fields with the platform defaults.
func (c *Config) ApplyDefaults() {
	if c.Binary == "" {
		c.Binary = "ffmpeg"
	}
	if c.InputFormat == "" {
		switch runtime.GOOS {
		case "darwin":
			c.InputFormat = "avfoundation"
		case "windows":
			c.InputFormat = "dshow"
		default:
			c.InputFormat = "pulse"
		}
	}
	if c.InputDevice == "" {
		switch c.InputFormat {
		case "avfoundation":
			c.InputDevice = ":default"
		case "dshow":
			c.InputDevice = "audio=Microphone"
		default:
			c.InputDevice = "default"
		}
	}
	if c.StartupGrace <= 0 {
		c.StartupGrace = 300 * time.Millisecond
	}
	if c.StopGrace <= 0 {
		c.StopGrace = 3 * time.Second
	}
}

// Microphone implements capture.Microphone.
type Microphone struct {
	cfg Config
	log *logger.Logger
}

var _ capture.Microphone = (*Microphone)(nil)

// New creates an ffmpeg microphone.
func New(cfg Config, log *logger.Logger) *Microphone {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.Nop()
	}
	return &Microphone{cfg: cfg, log: log.WithComponent("microphone")}
}

// Args returns the ffmpeg arguments for c.
func (m *Microphone) Args(c capture.Constraints) []string {
	args := []string{
		"-hide_banner", "-loglevel", "error", "-nostdin",
		"-f", m.cfg.InputFormat, "-i", m.cfg.InputDevice,
	}
	// ffmpeg has no echo canceller; both requests map to the FFT denoiser
	if c.EchoCancellation || c.NoiseSuppression {
		args = append(args, "-af", "afftdn")
	}
	return append(args,
		"-ar", strconv.Itoa(c.SampleRate),
		"-ac", strconv.Itoa(c.Channels),
		"-c:a", "libopus",
		"-flush_packets", "1",
		"-f", "webm", "pipe:1",
	)
}

// Open starts ffmpeg. ctx bounds only the acquisition; the stream lives until
// Close. A process that fails to launch or exits during the startup grace is
// reported as PERMISSION_DENIED.
func (m *Microphone) Open(ctx context.Context, c capture.Constraints) (capture.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	interval := c.FragmentInterval
	if interval <= 0 || interval > capture.MaxFragmentInterval {
		interval = time.Second
	}

	cmd := process.Command{
		Binary:      m.cfg.Binary,
		Args:        m.Args(c),
		GracePeriod: m.cfg.StopGrace,
	}
	proc, err := process.Start(context.WithoutCancel(ctx), cmd)
	if err != nil {
		return nil, errors.PermissionDenied(err)
	}

	grace := time.NewTimer(m.cfg.StartupGrace)
	defer grace.Stop()
	select {
	case <-proc.Done():
		stderr := proc.Stderr()
		_ = proc.Close()
		return nil, errors.PermissionDenied(fmt.Errorf("%s exited during startup: %s", m.cfg.Binary, strings.TrimSpace(stderr)))
	case <-ctx.Done():
		_ = proc.Close()
		return nil, ctx.Err()
	case <-grace.C:
	}

	s := &stream{proc: proc, frags: make(chan []byte, 8), log: m.log}
	go s.pump(interval)
	m.log.Debug("microphone opened", logger.Fields(
		"pid", proc.Pid(),
		"cmd", cmd.String(),
		"format", m.cfg.InputFormat,
		"device", m.cfg.InputDevice,
	))
	return s, nil
}

type stream struct {
	proc  *process.Stream
	frags chan []byte
	log   *logger.Logger

	mu  sync.Mutex
	err error

	closeOnce sync.Once
	closeErr  error
}

func (s *stream) Fragments() <-chan []byte { return s.frags }
func (s *stream) MimeType() string         { return MimeType }

func (s *stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	return s.proc.Err()
}

// Close stops ffmpeg. Output written before exit is still delivered on
// Fragments, which closes once the pipe is drained.
func (s *stream) Close() error {
	s.closeOnce.Do(func() { s.closeErr = s.proc.Stop() })
	return s.closeErr
}

// pump batches stdout reads into one fragment per interval.
func (s *stream) pump(interval time.Duration) {
	defer close(s.frags)
	reads := make(chan []byte)
	go s.read(reads)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	var pending bytes.Buffer
	flush := func() {
		if pending.Len() == 0 {
			return
		}
		s.frags <- bytes.Clone(pending.Bytes())
		pending.Reset()
	}
	for {
		select {
		case b, ok := <-reads:
			if !ok {
				flush()
				return
			}
			pending.Write(b)
		case <-ticker.C:
			flush()
		}
	}
}

func (s *stream) read(out chan<- []byte) {
	defer close(out)
	defer s.proc.Close()
	buf := make([]byte, 32<<10)
	r := s.proc.Stdout()
	for {
		n, err := r.Read(buf)
		if n > 0 {
			out <- bytes.Clone(buf[:n])
		}
		if err != nil {
			if err != io.EOF && !stderrors.Is(err, os.ErrClosed) {
				s.mu.Lock()
				s.err = err
				s.mu.Unlock()
				s.log.Warn("microphone read failed", logger.ErrorFields("read", err))
			}
			return
		}
	}
}
