package schedule

import (
	"fmt"
	"time"
)

// Window offsets from an entry's start time.
const (
	DefaultFirstDelay = 10 * time.Minute
	DefaultSecondGap  = 3*time.Minute + 30*time.Second
)

const day = 24 * time.Hour

// Window is a computed recording start point. Offset is measured from midnight
// of the entry's weekday and passes 24h when the window rolls into the next day.
type Window struct {
	Index  int           `json:"index"`
	Offset time.Duration `json:"offset"`
}

// Windows returns both windows for start using the default offsets.
func Windows(start TimeOfDay) [2]Window {
	return WindowsWith(start, DefaultFirstDelay, DefaultSecondGap)
}

// WindowsWith returns both windows: start+delay, then that plus gap.
func WindowsWith(start TimeOfDay, delay, gap time.Duration) [2]Window {
	first := start.Duration() + delay
	return [2]Window{
		{Index: 0, Offset: first},
		{Index: 1, Offset: first + gap},
	}
}

// Day returns how many days after the entry's weekday the window falls.
func (w Window) Day() int { return int(w.Offset / day) }

// Minute returns the minute of day the window matches, after rollover.
func (w Window) Minute() int { return int(w.Offset % day / time.Minute) }

// String formats the time of day as HH:MM:SS.
func (w Window) String() string {
	rem := w.Offset % day
	h := rem / time.Hour
	m := rem % time.Hour / time.Minute
	s := rem % time.Minute / time.Second
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// On returns the absolute time of the window for an entry occurring on date.
func (w Window) On(date time.Time) time.Time {
	y, mo, d := date.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, date.Location()).Add(w.Offset)
}
