package schedule

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kbukum/voicecap/clock"
	"github.com/kbukum/voicecap/component"
	"github.com/kbukum/voicecap/errors"
	"github.com/kbukum/voicecap/logger"
	"github.com/kbukum/voicecap/observability"
	"github.com/kbukum/voicecap/resilience"
)

// Source supplies the current schedule entries.
type Source interface {
	Entries(ctx context.Context) ([]Entry, error)
}

// Trigger starts and stops recording for a fired window.
type Trigger interface {
	Start(ctx context.Context, f Firing) error
	Stop(ctx context.Context, f Firing) error
}

// Firing is one window of one entry that matched.
type Firing struct {
	Entry  Entry     `json:"entry"`
	Window Window    `json:"window"`
	Date   string    `json:"date"`
	At     time.Time `json:"at"`
}

// Key returns the ledger key of the firing.
func (f Firing) Key() Key {
	return Key{EntryID: f.Entry.ID, Window: f.Window.Index, Date: f.Date}
}

// InProgress is a fired entry waiting for its hold to expire.
type InProgress struct {
	Firing Firing    `json:"firing"`
	Until  time.Time `json:"until"`
}

// EngineStatus is a snapshot of the engine.
type EngineStatus struct {
	Running      bool         `json:"running"`
	Entries      []Entry      `json:"entries"`
	InProgress   []InProgress `json:"in_progress"`
	LastTick     time.Time    `json:"last_tick,omitempty"`
	LastRefresh  time.Time    `json:"last_refresh,omitempty"`
	RefreshError string       `json:"refresh_error,omitempty"`
	Fired        int          `json:"fired"`
}

// Engine polls the schedule and fires triggers at computed windows.
type Engine struct {
	source          Source
	trigger         Trigger
	clock           clock.Clock
	pollInterval    time.Duration
	refreshInterval time.Duration
	hold            time.Duration
	firstDelay      time.Duration
	secondGap       time.Duration
	ledger          Ledger
	retry           resilience.RetryConfig
	callTimeout     time.Duration
	log             *logger.Logger
	metrics         *observability.Metrics

	tickMu sync.Mutex // serializes Tick

	mu          sync.Mutex
	entries     []Entry
	inProgress  map[string]InProgress
	claimed     map[string]struct{} // entries with ledger claims from this engine
	lastTick    time.Time
	lastRefresh time.Time
	refreshErr  error
	fired       int
	running     bool
	ticker      clock.Ticker
	cancel      context.CancelFunc
	done        chan struct{}
	drained     chan struct{} // closed once Stop has stopped every in-progress recording
}

var _ component.Component = (*Engine)(nil)

// NewEngine creates a stopped engine.
func NewEngine(source Source, trigger Trigger, opts ...Option) *Engine {
	e := &Engine{
		source:       source,
		trigger:      trigger,
		clock:        clock.Real(),
		pollInterval: DefaultPollInterval,
		hold:         DefaultHold,
		firstDelay:   DefaultFirstDelay,
		secondGap:    DefaultSecondGap,
		retry:        resilience.DefaultRetryConfig(),
		callTimeout:  DefaultCallTimeout,
		log:          logger.Nop(),
		inProgress:   make(map[string]InProgress),
		claimed:      make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.ledger == nil {
		e.ledger = NewMemoryLedger()
	}
	return e
}

// PollInterval returns the effective poll interval.
func (e *Engine) PollInterval() time.Duration { return e.pollInterval }

// Tick evaluates the schedule once at now and returns the windows fired.
func (e *Engine) Tick(ctx context.Context, now time.Time) []Firing {
	e.tickMu.Lock()
	defer e.tickMu.Unlock()

	e.refresh(ctx, now)
	e.expire(ctx, now)

	e.mu.Lock()
	entries := e.entries
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.lastTick = now
		e.mu.Unlock()
	}()

	today := midnight(now)
	minute := now.Hour()*60 + now.Minute()
	var fired []Firing
	for _, entry := range entries {
		if !entry.Active() {
			e.forget(ctx, entry.ID)
			continue
		}
		for _, w := range WindowsWith(entry.Start, e.firstDelay, e.secondGap) {
			// the entry's own day; windows past midnight belong to the day before
			anchor := today.AddDate(0, 0, -w.Day())
			if WeekdayOf(anchor) != entry.Day || w.Minute() != minute {
				continue
			}
			if e.busy(entry.ID) {
				continue
			}
			f := Firing{Entry: entry, Window: w, Date: anchor.Format(DateLayout), At: now}
			if e.fire(ctx, f) {
				fired = append(fired, f)
			}
		}
	}
	return fired
}

// Start runs the poll loop until Stop. The first tick runs immediately.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return fmt.Errorf("schedule: engine already running")
	}
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	e.running = true
	e.cancel = cancel
	e.ticker = e.clock.NewTicker(e.pollInterval)
	e.done = make(chan struct{})
	go e.loop(loopCtx, e.ticker, e.done)

	e.log.Info("schedule engine started", logger.Fields(
		"poll_interval", e.pollInterval.String(),
		"hold", e.hold.String(),
	))
	return nil
}

// Stop ends the poll loop, stops every in-progress recording and waits for
// both. If ctx ends first Stop returns its error, but the recordings are
// still stopped once the loop exits, and a later Stop waits for that.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	if !e.running {
		drained := e.drained
		e.mu.Unlock()
		if drained == nil {
			return nil
		}
		return waitDone(ctx, drained)
	}
	e.running = false
	e.ticker.Stop()
	e.cancel()
	done := e.done
	drained := make(chan struct{})
	e.drained = drained
	e.mu.Unlock()

	drainCtx := context.WithoutCancel(ctx)
	go func() {
		defer close(drained)
		<-done
		e.tickMu.Lock()
		defer e.tickMu.Unlock()
		for _, p := range e.takeInProgress(func(InProgress) bool { return true }) {
			e.stopRecording(drainCtx, p.Firing)
		}
		e.log.Info("schedule engine stopped")
	}()
	return waitDone(ctx, drained)
}

func waitDone(ctx context.Context, done <-chan struct{}) error {
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Name implements component.Component.
func (e *Engine) Name() string { return "schedule" }

// Describe implements component.Describable.
func (e *Engine) Describe() component.Description {
	return component.Description{
		Name:    "Schedule Engine",
		Type:    "scheduler",
		Details: fmt.Sprintf("poll=%s hold=%s windows=+%s/+%s", e.pollInterval, e.hold, e.firstDelay, e.firstDelay+e.secondGap),
	}
}

// Health implements component.Component. A failing refresh degrades health
// while the previous snapshot is still used.
func (e *Engine) Health(context.Context) component.Health {
	e.mu.Lock()
	defer e.mu.Unlock()
	h := component.Health{Name: e.Name(), Status: component.StatusHealthy}
	switch {
	case !e.running:
		h.Status = component.StatusUnhealthy
		h.Message = "not running"
	case e.refreshErr != nil:
		h.Status = component.StatusDegraded
		h.Message = e.refreshErr.Error()
	}
	return h
}

// Status returns a snapshot of the engine.
func (e *Engine) Status() EngineStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := EngineStatus{
		Running:     e.running,
		Entries:     append([]Entry(nil), e.entries...),
		LastTick:    e.lastTick,
		LastRefresh: e.lastRefresh,
		Fired:       e.fired,
	}
	if e.refreshErr != nil {
		s.RefreshError = e.refreshErr.Error()
	}
	for _, p := range e.inProgress {
		s.InProgress = append(s.InProgress, p)
	}
	sort.Slice(s.InProgress, func(i, j int) bool { return s.InProgress[i].Firing.Entry.ID < s.InProgress[j].Firing.Entry.ID })
	return s
}

func (e *Engine) loop(ctx context.Context, ticker clock.Ticker, done chan struct{}) {
	defer close(done)
	e.Tick(ctx, e.clock.Now())
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			e.Tick(ctx, e.clock.Now())
		}
	}
}

func (e *Engine) refresh(ctx context.Context, now time.Time) {
	e.mu.Lock()
	due := e.lastRefresh.IsZero() || now.Sub(e.lastRefresh) >= e.refreshInterval
	e.mu.Unlock()
	if !due {
		return
	}

	entries, err := e.source.Entries(ctx)
	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.refreshErr = err
		e.metrics.RecordRefreshError(ctx)
		e.log.Warn("schedule refresh failed, keeping previous entries", logger.ErrorFields("refresh", err))
		return
	}
	valid := entries[:0:0]
	for _, entry := range entries {
		if verr := entry.Validate(); verr != nil {
			e.log.Warn("skipping invalid schedule entry", logger.Fields(logger.FieldEntryID, entry.ID, logger.FieldError, verr.Error()))
			continue
		}
		valid = append(valid, entry)
	}
	e.entries = valid
	e.lastRefresh = now
	e.refreshErr = nil
}

// expire stops recordings whose hold has passed.
func (e *Engine) expire(ctx context.Context, now time.Time) {
	for _, p := range e.takeInProgress(func(p InProgress) bool { return !now.Before(p.Until) }) {
		e.stopRecording(ctx, p.Firing)
	}
}

func (e *Engine) takeInProgress(match func(InProgress) bool) []InProgress {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []InProgress
	for id, p := range e.inProgress {
		if match(p) {
			out = append(out, p)
			delete(e.inProgress, id)
		}
	}
	return out
}

func (e *Engine) busy(entryID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.inProgress[entryID]
	return ok
}

// fire claims the window and calls the trigger. A failed call releases the
// claim so later ticks within the same minute retry it.
func (e *Engine) fire(ctx context.Context, f Firing) bool {
	key := f.Key()
	ok, err := e.ledger.Claim(ctx, key)
	if err != nil {
		e.log.Warn("ledger claim failed", logger.Fields(logger.FieldEntryID, f.Entry.ID, logger.FieldWindow, f.Window.Index, logger.FieldError, err.Error()))
		return false
	}
	if !ok {
		return false
	}
	e.mu.Lock()
	e.claimed[f.Entry.ID] = struct{}{}
	e.mu.Unlock()

	if err := e.call(ctx, "start", f, e.trigger.Start); err != nil {
		if rerr := e.ledger.Release(ctx, key); rerr != nil {
			e.log.Warn("ledger release failed", logger.ErrorFields("release", rerr))
		}
		e.metrics.RecordTrigger(ctx, f.Window.Index, observability.OutcomeFailed)
		e.log.Error("recording trigger failed", logger.Fields(
			logger.FieldEntryID, f.Entry.ID,
			logger.FieldWindow, f.Window.Index,
			logger.FieldError, err.Error(),
		))
		return false
	}

	e.mu.Lock()
	e.inProgress[f.Entry.ID] = InProgress{Firing: f, Until: f.At.Add(e.hold)}
	e.fired++
	e.mu.Unlock()
	e.metrics.RecordTrigger(ctx, f.Window.Index, observability.OutcomeSuccess)
	e.log.Info("recording triggered", logger.Fields(
		logger.FieldEntryID, f.Entry.ID,
		logger.FieldWindow, f.Window.Index,
		"course", f.Entry.Course,
		"at", f.Window.String(),
	))
	return true
}

func (e *Engine) stopRecording(ctx context.Context, f Firing) {
	if err := e.call(ctx, "stop", f, e.trigger.Stop); err != nil {
		e.log.Warn("recording stop failed", logger.Fields(
			logger.FieldEntryID, f.Entry.ID,
			logger.FieldError, err.Error(),
		))
		return
	}
	e.log.Info("recording hold ended", logger.Fields(logger.FieldEntryID, f.Entry.ID))
}

func (e *Engine) call(ctx context.Context, action string, f Firing, fn func(context.Context, Firing) error) (err error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanScheduleTrigger,
		observability.ScheduleAttrs(f.Entry.ID, f.Window.Index, action))
	defer func() { observability.EndSpan(span, err) }()

	err = resilience.RetryFunc(ctx, e.retry, func() error {
		callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
		defer cancel()
		return fn(callCtx, f)
	})
	if err == nil || errors.HasCode(err, errors.ErrCodeTriggerFailed) {
		return err
	}
	return errors.TriggerFailed(f.Entry.ID, action, err)
}

func (e *Engine) forget(ctx context.Context, entryID string) {
	e.mu.Lock()
	_, ok := e.claimed[entryID]
	delete(e.claimed, entryID)
	e.mu.Unlock()
	if !ok {
		return
	}
	if err := e.ledger.Forget(ctx, entryID); err != nil {
		e.log.Warn("ledger forget failed", logger.Fields(logger.FieldEntryID, entryID, logger.FieldError, err.Error()))
	}
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
