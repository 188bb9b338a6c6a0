// Package script paces a speaker through a fixed checklist of prompt lines
// while a recording is in progress. It has no effect on the recorded audio.
package script

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Mode selects how focus moves through the checklist.
type Mode int

const (
	// AckDriven moves focus only when the operator confirms or selects a line.
	AckDriven Mode = iota
	// TimeDriven derives focus from elapsed recording time.
	TimeDriven
)

// String returns the config name of the mode.
func (m Mode) String() string {
	if m == TimeDriven {
		return "time"
	}
	return "ack"
}

// ParseMode parses "time" or "ack". The empty string is AckDriven.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "ack":
		return AckDriven, nil
	case "time":
		return TimeDriven, nil
	}
	return AckDriven, fmt.Errorf("unknown script mode %q", s)
}

// DefaultLineDuration is how long each line stays focused in time-driven mode.
const DefaultLineDuration = 10 * time.Second

// DefaultLines is the guided voice-sample script read during enrollment.
var DefaultLines = []string{
	"Selamat pagi. Nama saya dan mata kuliah yang saya ampu adalah sebagai berikut.",
	"Hari ini kita akan membahas materi perkuliahan minggu ini.",
	"Silakan perhatikan slide di depan dan catat poin-poin pentingnya.",
	"Satu, dua, tiga, empat, lima, enam, tujuh, delapan, sembilan, sepuluh.",
	"Apakah ada pertanyaan sebelum kita melanjutkan ke bagian berikutnya?",
	"Tugas dikumpulkan paling lambat hari Jumat pukul dua belas siang.",
	"Terima kasih atas perhatiannya. Sampai jumpa di pertemuan berikutnya.",
}

// Tracker holds the focused line and the set of completed lines.
// It is safe for concurrent use.
type Tracker struct {
	mu           sync.Mutex
	lines        []string
	mode         Mode
	lineDuration time.Duration
	focus        int
	completed    map[int]struct{}
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLineDuration switches the tracker to time-driven mode with d per line.
func WithLineDuration(d time.Duration) Option {
	return func(t *Tracker) {
		t.mode = TimeDriven
		if d > 0 {
			t.lineDuration = d
		}
	}
}

// WithMode sets the mode without changing the line duration.
func WithMode(m Mode) Option {
	return func(t *Tracker) { t.mode = m }
}

// NewTracker creates a tracker over lines. The slice is copied.
func NewTracker(lines []string, opts ...Option) (*Tracker, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("script: checklist is empty")
	}
	t := &Tracker{
		lines:        append([]string(nil), lines...),
		mode:         AckDriven,
		lineDuration: DefaultLineDuration,
		completed:    make(map[int]struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Mode returns the tracker mode.
func (t *Tracker) Mode() Mode { return t.mode }

// LineDuration returns the per-line duration used in time-driven mode.
func (t *Tracker) LineDuration() time.Duration { return t.lineDuration }

// Len returns the number of lines.
func (t *Tracker) Len() int { return len(t.lines) }

// Lines returns a copy of the checklist.
func (t *Tracker) Lines() []string { return append([]string(nil), t.lines...) }

// Advance moves focus to the line for elapsed recording time and marks every
// earlier line complete. Focus never moves backwards. It is a no-op in
// acknowledgment-driven mode.
func (t *Tracker) Advance(elapsed time.Duration) {
	if t.mode != TimeDriven || elapsed < 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	target := t.clamp(int(elapsed / t.lineDuration))
	if target <= t.focus {
		return
	}
	for i := 0; i < target; i++ {
		t.completed[i] = struct{}{}
	}
	t.focus = target
}

// Confirm toggles completion of the focused line and reports whether it is
// now complete. Completing it moves focus to the next incomplete line after
// it, if any. Un-marking leaves focus where it is.
func (t *Tracker) Confirm() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.confirm()
}

// Select moves focus to i, clamped to the checklist.
func (t *Tracker) Select(i int) {
	t.mu.Lock()
	t.focus = t.clamp(i)
	t.mu.Unlock()
}

// Toggle selects line i and confirms it.
func (t *Tracker) Toggle(i int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.focus = t.clamp(i)
	return t.confirm()
}

// Focused returns the focused line index.
func (t *Tracker) Focused() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.focus
}

// IsCompleted reports whether line i is complete.
func (t *Tracker) IsCompleted(i int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.completed[i]
	return ok
}

// Completed returns the completed line indices in ascending order.
func (t *Tracker) Completed() []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]int, 0, len(t.completed))
	for i := range t.completed {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// Done reports whether every line is complete.
func (t *Tracker) Done() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.completed) == len(t.lines)
}

// Reset clears completion and focuses the first line.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.focus = 0
	clear(t.completed)
	t.mu.Unlock()
}

func (t *Tracker) confirm() bool {
	if _, ok := t.completed[t.focus]; ok {
		delete(t.completed, t.focus)
		return false
	}
	t.completed[t.focus] = struct{}{}
	for i := t.focus + 1; i < len(t.lines); i++ {
		if _, ok := t.completed[i]; !ok {
			t.focus = i
			break
		}
	}
	return true
}

func (t *Tracker) clamp(i int) int {
	if i < 0 {
		return 0
	}
	if i >= len(t.lines) {
		return len(t.lines) - 1
	}
	return i
}
