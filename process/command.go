// Package process runs external binaries such as ffmpeg, either to completion
// with captured output or as a long-lived stream that is stopped gracefully.
package process

import (
	"fmt"
	"io"
	"strings"
	"time"
)

const defaultGrace = 5 * time.Second

// Command is one invocation of an external binary.
type Command struct {
	Binary string
	Args   []string
	// Dir is the working directory; empty keeps the caller's.
	Dir string
	// Env entries (KEY=value) are appended to os.Environ.
	Env []string
	// Stdin may be nil. Decoding feeds the compressed blob here.
	Stdin io.Reader
	// GracePeriod separates SIGTERM from SIGKILL on cancellation. Zero means 5s.
	GracePeriod time.Duration
}

func (c Command) gracePeriod() time.Duration {
	if c.GracePeriod <= 0 {
		return defaultGrace
	}
	return c.GracePeriod
}

// String renders the command line for logs.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Binary
	}
	return fmt.Sprintf("%s %s", c.Binary, strings.Join(c.Args, " "))
}
