package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/kbukum/voicecap/capture"
	"github.com/kbukum/voicecap/script"
)

// console turns operator input into line events. One goroutine owns the
// reader so a blocked read never outlives the command's interest in it.
type console struct {
	out   io.Writer
	lines chan string

	mu        sync.Mutex
	lastFocus int
}

func newConsole(in io.Reader, out io.Writer) *console {
	c := &console{out: out, lines: make(chan string), lastFocus: -1}
	go func() {
		defer close(c.lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			c.lines <- strings.TrimSpace(sc.Text())
		}
	}()
	return c
}

func (c *console) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.out, format, args...)
}

// next returns the next input line. ok is false once input is closed.
func (c *console) next(ctx context.Context) (line string, ok bool, err error) {
	select {
	case line, ok = <-c.lines:
		return line, ok, nil
	case <-ctx.Done():
		return "", false, ctx.Err()
	}
}

// confirm asks a yes/no question. Empty input and closed input accept.
func (c *console) confirm(ctx context.Context, question string) (bool, error) {
	for {
		c.printf("%s [Y/n] ", question)
		line, ok, err := c.next(ctx)
		if err != nil {
			return false, err
		}
		if !ok {
			return true, nil
		}
		switch strings.ToLower(line) {
		case "", "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
	}
}

// onEvent renders controller transitions and focus changes.
func (c *console) onEvent(ev capture.Event, tr *script.Tracker) {
	if ev.Tick {
		c.showFocus(tr, false)
		return
	}
	switch ev.To {
	case capture.AwaitingPermission:
		c.printf("Opening microphone...\n")
	case capture.Recording:
		c.printf("\nRecording. Read each line aloud.\n")
		if tr.Mode() == script.AckDriven {
			c.printf("Press Enter after each line, type a line number to jump, or 's' to stop.\n\n")
		} else {
			c.printf("Lines advance every %s. Press Enter to stop.\n\n", tr.LineDuration())
		}
		c.showFocus(tr, true)
	case capture.Stopped:
		c.printf("\nStopped after %s. Encoding...\n", ev.Elapsed.Round(100*time.Millisecond))
	case capture.Uploading:
		c.printf("Uploading...\n")
	case capture.Failed:
		if ev.Err != nil {
			c.printf("Recording failed: %v\n", ev.Err)
		}
	}
}

func (c *console) showFocus(tr *script.Tracker, force bool) {
	focus := tr.Focused()
	c.mu.Lock()
	changed := force || focus != c.lastFocus
	c.lastFocus = focus
	c.mu.Unlock()
	if !changed {
		return
	}
	lines := tr.Lines()
	if focus < 0 || focus >= len(lines) {
		return
	}
	c.printf("  [%d/%d] %s\n", focus+1, len(lines), lines[focus])
}
