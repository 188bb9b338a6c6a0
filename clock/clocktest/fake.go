// Package clocktest provides a manually advanced clock.Clock for tests.
package clocktest

import (
	"sort"
	"sync"
	"time"

	"github.com/kbukum/voicecap/clock"
)

// Fake is a clock.Clock whose time only moves on Advance or Set.
// Tickers and timers fire synchronously during Advance, in deadline order.
// Like the runtime's, their channels hold one pending tick and drop the rest.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	waiters []*waiter
}

type waiter struct {
	fake     *Fake
	deadline time.Time
	period   time.Duration // zero for timers
	ch       chan time.Time
	stopped  bool
}

var _ clock.Clock = (*Fake)(nil)

// New returns a Fake set to start.
func New(start time.Time) *Fake {
	return &Fake{now: start}
}

// Now returns the current virtual time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Since returns the virtual time elapsed since t.
func (f *Fake) Since(t time.Time) time.Duration {
	return f.Now().Sub(t)
}

// NewTicker creates a ticker firing every d of virtual time.
func (f *Fake) NewTicker(d time.Duration) clock.Ticker {
	if d <= 0 {
		panic("clocktest: non-positive ticker interval")
	}
	return &ticker{w: f.add(d, d)}
}

// NewTimer creates a timer firing once after d of virtual time.
func (f *Fake) NewTimer(d time.Duration) clock.Timer {
	return f.add(d, 0)
}

func (f *Fake) add(d, period time.Duration) *waiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	w := &waiter{fake: f, deadline: f.now.Add(d), period: period, ch: make(chan time.Time, 1)}
	f.waiters = append(f.waiters, w)
	return w
}

// Advance moves virtual time forward by d, firing everything that comes due.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)
	f.mu.Unlock()
	f.Set(target)
}

// Set moves virtual time to t. Moving backwards only changes Now.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for {
		w := f.nextDue(t)
		if w == nil {
			break
		}
		f.now = w.deadline
		select {
		case w.ch <- w.deadline:
		default:
		}
		if w.period > 0 {
			w.deadline = w.deadline.Add(w.period)
		} else {
			w.stopped = true
			f.remove(w)
		}
	}
	f.now = t
}

func (f *Fake) nextDue(t time.Time) *waiter {
	sort.SliceStable(f.waiters, func(i, j int) bool {
		return f.waiters[i].deadline.Before(f.waiters[j].deadline)
	})
	for _, w := range f.waiters {
		if !w.stopped && !w.deadline.After(t) {
			return w
		}
	}
	return nil
}

func (f *Fake) remove(target *waiter) {
	for i, w := range f.waiters {
		if w == target {
			f.waiters = append(f.waiters[:i], f.waiters[i+1:]...)
			return
		}
	}
}

// ActiveTimers returns the number of tickers and timers not yet stopped or fired.
func (f *Fake) ActiveTimers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.waiters)
}

// WaitForTimers blocks until at least n tickers or timers are active or the
// real-time timeout passes. It reports whether the count was reached.
func (f *Fake) WaitForTimers(n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if f.ActiveTimers() >= n {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return f.ActiveTimers() >= n
}

func (w *waiter) C() <-chan time.Time { return w.ch }

type ticker struct{ w *waiter }

func (t *ticker) C() <-chan time.Time { return t.w.ch }
func (t *ticker) Stop()               { t.w.Stop() }

func (w *waiter) Stop() bool {
	f := w.fake
	f.mu.Lock()
	defer f.mu.Unlock()
	if w.stopped {
		return false
	}
	w.stopped = true
	f.remove(w)
	return true
}
