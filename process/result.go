package process

import (
	"strings"
	"time"
)

// Result is a finished Run. ExitCode is -1 when the process never reported
// a status, for example after being killed.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Duration time.Duration
}

// StderrTail returns the last n lines of trimmed stderr, which is where
// ffmpeg prints the reason it gave up.
func (r *Result) StderrTail(n int) string {
	if r == nil || n <= 0 {
		return ""
	}
	lines := strings.Split(strings.TrimSpace(string(r.Stderr)), "\n")
	return strings.Join(lines[max(0, len(lines)-n):], "\n")
}
