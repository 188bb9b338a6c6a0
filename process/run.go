package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"
)

var errNoBinary = errors.New("process: binary is required")

// Run executes cmd to completion with stdout and stderr captured. On ctx
// cancellation the process group gets SIGTERM and, after GracePeriod, SIGKILL.
func Run(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.Binary == "" {
		return nil, errNoBinary
	}

	var stdout, stderr bytes.Buffer
	c := build(exec.CommandContext(ctx, cmd.Binary, cmd.Args...), cmd) //nolint:gosec // ffmpeg args come from config
	c.Stdout, c.Stderr = &stdout, &stderr
	c.Cancel = func() error {
		if c.Process == nil {
			return nil
		}
		return syscall.Kill(-c.Process.Pid, syscall.SIGTERM)
	}
	c.WaitDelay = cmd.gracePeriod()

	start := time.Now()
	err := c.Run()
	res := &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: exitCode(c),
		Duration: time.Since(start),
	}
	switch {
	case err == nil:
		return res, nil
	case ctx.Err() != nil:
		return res, fmt.Errorf("process: killed by context: %w", ctx.Err())
	default:
		return res, fmt.Errorf("process: %s exit code %d: %w", cmd.Binary, res.ExitCode, err)
	}
}

// Available reports whether binary resolves on PATH.
func Available(binary string) bool {
	_, err := exec.LookPath(binary)
	return err == nil
}

// build applies the fields shared by Run and Start. The child leads its own
// process group so signals reach ffmpeg and anything it spawned.
func build(c *exec.Cmd, cmd Command) *exec.Cmd {
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}
	c.Stdin = cmd.Stdin
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	return c
}

func exitCode(c *exec.Cmd) int {
	if c.ProcessState == nil {
		return -1
	}
	return c.ProcessState.ExitCode()
}
