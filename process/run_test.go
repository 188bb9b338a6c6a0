package process_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	apperrors "github.com/kbukum/voicecap/errors"
	"github.com/kbukum/voicecap/process"
	"github.com/kbukum/voicecap/resilience"
)

func TestRunStdin(t *testing.T) {
	result, err := process.Run(context.Background(), process.Command{
		Binary: "cat",
		Stdin:  strings.NewReader("from stdin"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(result.Stdout) != "from stdin" {
		t.Fatalf("expected 'from stdin', got %q", string(result.Stdout))
	}
}

func TestRunExitCodeAndStderr(t *testing.T) {
	result, err := process.Run(context.Background(), process.Command{
		Binary: "sh",
		Args:   []string{"-c", "echo one >&2; echo two >&2; exit 42"},
	})
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}
	if result.ExitCode != 42 {
		t.Fatalf("expected exit code 42, got %d", result.ExitCode)
	}
	if got := result.StderrTail(1); got != "two" {
		t.Fatalf("expected last stderr line 'two', got %q", got)
	}
}

func TestRunContextCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	result, err := process.Run(ctx, process.Command{
		Binary:      "sleep",
		Args:        []string{"10"},
		GracePeriod: 500 * time.Millisecond,
	})
	if err == nil {
		t.Fatal("expected error from context cancellation")
	}
	if result.Duration > 5*time.Second {
		t.Fatalf("process took too long to kill: %v", result.Duration)
	}
}

func TestRunEmptyBinary(t *testing.T) {
	if _, err := process.Run(context.Background(), process.Command{}); err == nil {
		t.Fatal("expected error for empty binary")
	}
}

func TestRunEnv(t *testing.T) {
	result, err := process.Run(context.Background(), process.Command{
		Binary: "sh",
		Args:   []string{"-c", "echo $VOICECAP_TEST_VAR"},
		Env:    []string{"VOICECAP_TEST_VAR=hello123"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out := strings.TrimSpace(string(result.Stdout)); out != "hello123" {
		t.Fatalf("expected 'hello123', got %q", out)
	}
}

func TestAvailable(t *testing.T) {
	if !process.Available("sh") {
		t.Error("expected sh on PATH")
	}
	if process.Available("voicecap-no-such-binary") {
		t.Error("did not expect a missing binary to be available")
	}
}

func TestRunner_BadExitDoesNotTripBreaker(t *testing.T) {
	runner := process.NewRunner(&resilience.CircuitBreakerConfig{Name: "sh", MaxFailures: 1, Timeout: time.Minute})
	for i := 0; i < 3; i++ {
		_, err := runner.Run(context.Background(), process.Command{Binary: "false"})
		if err == nil {
			t.Fatal("expected error from false")
		}
	}
	if runner.BreakerState() != resilience.StateClosed {
		t.Errorf("non-zero exits should not open the breaker, got %s", runner.BreakerState())
	}
}

func TestRunner_MissingBinaryTripsBreaker(t *testing.T) {
	runner := process.NewRunner(&resilience.CircuitBreakerConfig{Name: "ffmpeg", MaxFailures: 2, Timeout: time.Minute})
	cmd := process.Command{Binary: "voicecap-no-such-binary"}
	for i := 0; i < 2; i++ {
		if _, err := runner.Run(context.Background(), cmd); err == nil {
			t.Fatalf("call %d: expected error", i)
		}
	}
	_, err := runner.Run(context.Background(), cmd)
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("expected open breaker, got %v", err)
	}
	if !apperrors.HasCode(err, apperrors.ErrCodeServiceUnavailable) {
		t.Fatalf("expected SERVICE_UNAVAILABLE, got %v", err)
	}
}

func TestStream_ReadsOutputUntilExit(t *testing.T) {
	s, err := process.Start(context.Background(), process.Command{
		Binary: "sh",
		Args:   []string{"-c", "printf abc; printf def"},
	})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer s.Close()

	out, err := io.ReadAll(s.Stdout())
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(out) != "abcdef" {
		t.Errorf("expected 'abcdef', got %q", out)
	}
	<-s.Done()
	if err := s.Err(); err != nil {
		t.Errorf("expected clean exit, got %v", err)
	}
}

func TestStream_StopTerminatesGroup(t *testing.T) {
	s, err := process.Start(context.Background(), process.Command{
		Binary:      "sh",
		Args:        []string{"-c", "printf ready; sleep 30"},
		GracePeriod: time.Second,
	})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	buf := make([]byte, 5)
	if _, err := io.ReadFull(s.Stdout(), buf); err != nil {
		t.Fatalf("read failed: %v", err)
	}

	start := time.Now()
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatal("Stop took too long")
	}
	select {
	case <-s.Done():
	default:
		t.Fatal("process should have exited after Stop")
	}
	if err := s.Stop(); err != nil {
		t.Errorf("second Stop should be a no-op, got %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close after Stop failed: %v", err)
	}
}

func TestStream_ContextCancelStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s, err := process.Start(ctx, process.Command{Binary: "sleep", Args: []string{"30"}, GracePeriod: time.Second})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer s.Close()
	cancel()
	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("process not stopped by context cancellation")
	}
}

func TestStream_StartMissingBinary(t *testing.T) {
	if _, err := process.Start(context.Background(), process.Command{Binary: "voicecap-no-such-binary"}); err == nil {
		t.Fatal("expected start error")
	}
}

func TestCommandString(t *testing.T) {
	cases := []struct {
		cmd  process.Command
		want string
	}{
		{process.Command{Binary: "ffmpeg"}, "ffmpeg"},
		{process.Command{Binary: "ffmpeg", Args: []string{"-i", "pipe:0", "-f", "s16le"}}, "ffmpeg -i pipe:0 -f s16le"},
	}
	for _, tc := range cases {
		if got := tc.cmd.String(); got != tc.want {
			t.Errorf("String() = %q, want %q", got, tc.want)
		}
	}
}
