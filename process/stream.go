package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

const stderrLimit = 64 << 10

// Stream is a running subprocess whose stdout is consumed incrementally.
type Stream struct {
	cmd    *exec.Cmd
	stdout *os.File
	stderr *limitedBuffer
	grace  time.Duration

	done    chan struct{}
	waitErr error

	stopOnce sync.Once
	stopped  chan struct{}
	stopErr  error
}

// Start launches cmd and returns once the process is running. Cancelling ctx
// stops the process the same way Stop does.
func Start(ctx context.Context, cmd Command) (*Stream, error) {
	if cmd.Binary == "" {
		return nil, errNoBinary
	}

	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("process: stdout pipe: %w", err)
	}

	c := build(exec.Command(cmd.Binary, cmd.Args...), cmd) //nolint:gosec // ffmpeg args come from config
	c.Stdout = w
	stderr := &limitedBuffer{limit: stderrLimit}
	c.Stderr = stderr

	if err := c.Start(); err != nil {
		_ = r.Close()
		_ = w.Close()
		return nil, fmt.Errorf("process: start %s: %w", cmd.Binary, err)
	}
	// the child holds its own copy; reads see EOF once it exits
	_ = w.Close()

	s := &Stream{
		cmd:     c,
		stdout:  r,
		stderr:  stderr,
		grace:   cmd.gracePeriod(),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go func() {
		s.waitErr = c.Wait()
		close(s.done)
	}()
	go func() {
		select {
		case <-ctx.Done():
			_ = s.Stop()
		case <-s.done:
		case <-s.stopped:
		}
	}()
	return s, nil
}

// Stdout returns the process output. It reports io.EOF after the process exits
// and the pipe is drained, or an error once Close is called.
func (s *Stream) Stdout() io.Reader { return s.stdout }

// Done is closed when the process has exited.
func (s *Stream) Done() <-chan struct{} { return s.done }

// Pid returns the process id.
func (s *Stream) Pid() int { return s.cmd.Process.Pid }

// Err returns the exit error once Done is closed. A process ended by Stop reports nil.
func (s *Stream) Err() error {
	select {
	case <-s.done:
	default:
		return nil
	}
	select {
	case <-s.stopped:
		return s.stopErr
	default:
	}
	if s.waitErr != nil {
		return fmt.Errorf("process: %s exit code %d: %w", s.cmd.Path, exitCode(s.cmd), s.waitErr)
	}
	return nil
}

// Stderr returns the captured standard error so far (at most 64 KiB).
func (s *Stream) Stderr() string { return s.stderr.String() }

// Stop sends SIGTERM to the process group, waits up to the grace period and
// then sends SIGKILL. It blocks until the process has exited. Safe to call more than once.
func (s *Stream) Stop() error {
	s.stopOnce.Do(func() {
		defer close(s.stopped)
		select {
		case <-s.done:
			return
		default:
		}
		pgid := -s.cmd.Process.Pid
		if err := syscall.Kill(pgid, syscall.SIGTERM); err != nil && !errors.Is(err, syscall.ESRCH) {
			s.stopErr = fmt.Errorf("process: sigterm: %w", err)
		}
		timer := time.NewTimer(s.grace)
		defer timer.Stop()
		select {
		case <-s.done:
		case <-timer.C:
			_ = syscall.Kill(pgid, syscall.SIGKILL)
			<-s.done
		}
	})
	<-s.stopped
	return s.stopErr
}

// Close stops the process and releases the stdout pipe.
func (s *Stream) Close() error {
	err := s.Stop()
	if cerr := s.stdout.Close(); cerr != nil && err == nil && !errors.Is(cerr, os.ErrClosed) {
		err = cerr
	}
	return err
}

type limitedBuffer struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	limit int
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if room := b.limit - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *limitedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
