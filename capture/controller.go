// Package capture runs one microphone recording session at a time: acquire the
// device, collect compressed fragments, then decode and re-encode them into a
// canonical WAV artifact for review and upload.
package capture

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/kbukum/voicecap/audio/decode"
	"github.com/kbukum/voicecap/audio/wav"
	"github.com/kbukum/voicecap/clock"
	"github.com/kbukum/voicecap/errors"
	"github.com/kbukum/voicecap/logger"
	"github.com/kbukum/voicecap/observability"
	"github.com/kbukum/voicecap/script"
)

// Controller is the recording state machine. Device acquisition and release
// happen only on its transitions. It is safe for concurrent use.
type Controller struct {
	mic          Microphone
	decoder      decode.Decoder
	clock        clock.Clock
	maxDuration  time.Duration
	constraints  Constraints
	uploader     Uploader
	tracker      *script.Tracker
	log          *logger.Logger
	metrics      *observability.Metrics
	drainTimeout time.Duration

	mu    sync.Mutex
	state State
	sess  *session
	last  *Artifact
	// dropped is the last cancelled session. Start waits for its device
	// release before opening the microphone again.
	dropped *session

	subMu  sync.RWMutex
	subs   map[int]func(Event)
	nextID int
}

// NewController creates an idle controller.
func NewController(mic Microphone, decoder decode.Decoder, opts ...Option) *Controller {
	c := &Controller{
		mic:          mic,
		decoder:      decoder,
		clock:        clock.Real(),
		maxDuration:  FreeformCeiling,
		constraints:  DefaultConstraints(),
		log:          logger.Nop(),
		drainTimeout: DefaultDrainTimeout,
		subs:         make(map[int]func(Event)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MaxDuration returns the recording ceiling.
func (c *Controller) MaxDuration() time.Duration { return c.maxDuration }

// Start requests the microphone and begins recording. It is allowed from Idle
// and from Failed, which discards the failed session. Any other state fails
// with SESSION_ACTIVE and changes nothing.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	for c.dropped != nil {
		d := c.dropped
		c.mu.Unlock()
		select {
		case <-d.released:
		case <-ctx.Done():
			return ctx.Err()
		}
		c.mu.Lock()
		if c.dropped == d {
			c.dropped = nil
		}
	}
	if !c.state.IsTerminal() {
		state := c.state
		c.mu.Unlock()
		return errors.SessionActive(state.String())
	}
	retake := c.state == Failed
	s := newSession()
	openCtx, cancel := context.WithCancel(ctx)
	s.cancelOpen = cancel
	c.sess = s
	ev := c.setStateLocked(s, AwaitingPermission, nil)
	c.mu.Unlock()
	if retake && c.tracker != nil {
		c.tracker.Reset()
	}
	c.emit(ev)

	stream, err := c.mic.Open(openCtx, c.constraints)

	c.mu.Lock()
	if c.sess != s {
		c.mu.Unlock()
		// cancelled while the device was being opened
		if err != nil {
			stream = nil
		}
		s.release(stream)
		return context.Canceled
	}
	if err != nil {
		cancel()
		if !errors.HasCode(err, errors.ErrCodeDeviceBusy) && !errors.HasCode(err, errors.ErrCodePermissionDenied) {
			err = errors.PermissionDenied(err)
		}
		c.sess = nil
		ev = c.setStateLocked(s, Idle, err)
		c.mu.Unlock()
		c.emit(ev)
		c.metrics.RecordSession(context.Background(), observability.OutcomeDenied)
		c.log.Warn("microphone not acquired", logger.ErrorFields("start", err))
		return err
	}

	s.stream = stream
	s.mimeType = stream.MimeType()
	s.startedAt = c.clock.Now()
	s.ticker = c.clock.NewTicker(time.Second)
	s.stopTick = make(chan struct{})
	s.readDone = make(chan struct{})
	ev = c.setStateLocked(s, Recording, nil)
	go c.readLoop(s, stream)
	go c.tickLoop(s)
	c.mu.Unlock()

	c.emit(ev)
	c.log.Info("recording started", logger.Fields(
		logger.FieldSessionID, s.id.String(),
		"mime_type", s.mimeType,
		"max_duration", c.maxDuration.String(),
	))
	return nil
}

// Stop ends recording, releases the microphone and produces the artifact.
// The result is Reviewing with the artifact, or Failed with DECODE_FAILED.
// If the ceiling already stopped the recording, Stop waits for that outcome.
func (c *Controller) Stop(ctx context.Context) (*Artifact, error) {
	c.mu.Lock()
	s := c.sess
	switch c.state {
	case Recording:
		ev := c.beginStopLocked(s)
		stream := s.stream
		c.mu.Unlock()
		s.release(stream)
		c.emit(ev)
		c.finalize(ctx, s)
	case Stopped:
		c.mu.Unlock()
		select {
		case <-s.finalized:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	default:
		state := c.state
		c.mu.Unlock()
		return nil, errors.InvalidState("stop", state.String())
	}
	return c.outcome(s)
}

// Confirm uploads the reviewed artifact. On success the controller returns to
// Idle and the artifact stays available from LastArtifact. On failure it
// stays in Reviewing with the artifact kept, and the error is UPLOAD_FAILED.
func (c *Controller) Confirm(ctx context.Context) error {
	c.mu.Lock()
	if c.state != Reviewing {
		state := c.state
		c.mu.Unlock()
		return errors.InvalidState("confirm", state.String())
	}
	if c.uploader == nil {
		c.mu.Unlock()
		return errors.New(errors.ErrCodeInvalidState, "No upload destination is configured.", http.StatusConflict)
	}
	s := c.sess
	upCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.cancelUpload = cancel
	s.err = nil
	art := s.artifact
	ev := c.setStateLocked(s, Uploading, nil)
	c.mu.Unlock()
	c.emit(ev)

	err := c.uploader.Upload(upCtx, art)

	c.mu.Lock()
	if c.sess != s {
		c.mu.Unlock()
		return context.Canceled
	}
	s.cancelUpload = nil
	if err != nil {
		if !errors.HasCode(err, errors.ErrCodeUploadFailed) {
			err = errors.UploadFailed("", 0, err)
		}
		s.err = err
		ev = c.setStateLocked(s, Reviewing, err)
		c.mu.Unlock()
		c.emit(ev)
		c.log.Warn("upload failed, artifact kept for retry", logger.ErrorFields("confirm", err))
		return err
	}
	c.last = art
	c.sess = nil
	ev = c.setStateLocked(s, Idle, nil)
	c.mu.Unlock()

	c.emit(ev)
	c.metrics.RecordSession(ctx, observability.OutcomeSuccess)
	c.metrics.RecordArtifact(ctx, art.Duration, art.Size())
	c.log.Info("recording uploaded", logger.Fields(
		logger.FieldSessionID, s.id.String(),
		"bytes", art.Size(),
		logger.FieldDuration, art.Duration.String(),
	))
	return nil
}

// Discard drops the reviewed or failed session and resets the tracker.
func (c *Controller) Discard() error {
	c.mu.Lock()
	if c.state != Reviewing && c.state != Failed {
		state := c.state
		c.mu.Unlock()
		return errors.InvalidState("discard", state.String())
	}
	s := c.sess
	c.sess = nil
	ev := c.setStateLocked(s, Idle, nil)
	c.mu.Unlock()

	if c.tracker != nil {
		c.tracker.Reset()
	}
	c.emit(ev)
	c.metrics.RecordSession(context.Background(), observability.OutcomeDiscarded)
	return nil
}

// Cancel abandons the session from any non-terminal state. The microphone
// and the elapsed timer are released before Cancel returns, except while
// the device is still being opened. A Start racing with Cancel waits for
// the release either way. It is a no-op in Idle and Failed.
func (c *Controller) Cancel() {
	c.mu.Lock()
	if c.state.IsTerminal() {
		c.mu.Unlock()
		return
	}
	s := c.sess
	switch c.state {
	case AwaitingPermission:
		s.cancelOpen()
	case Recording:
		s.ticker.Stop()
		close(s.stopTick)
	case Uploading:
		if s.cancelUpload != nil {
			s.cancelUpload()
		}
	}
	opening := c.state == AwaitingPermission
	stream := s.stream
	c.sess = nil
	c.dropped = s
	ev := c.setStateLocked(s, Idle, nil)
	c.mu.Unlock()

	// while opening, Start releases whatever Open returns
	if !opening {
		s.release(stream)
	}
	if c.tracker != nil {
		c.tracker.Reset()
	}
	c.emit(ev)
	c.metrics.RecordSession(context.Background(), observability.OutcomeCancelled)
	c.log.Info("recording cancelled", logger.Fields(
		logger.FieldSessionID, s.id.String(),
		logger.FieldState, ev.From.String(),
	))
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Session returns a snapshot of the current session. With no session only
// State is set.
func (c *Controller) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil {
		return Session{State: c.state}
	}
	return c.sess.snapshot(c.state)
}

// LastArtifact returns the most recently uploaded artifact, if any.
func (c *Controller) LastArtifact() *Artifact {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Subscribe registers fn for every transition and tick. Handlers run on the
// goroutine that caused the event and must not block. The returned function
// removes the subscription.
func (c *Controller) Subscribe(fn func(Event)) (unsubscribe func()) {
	c.subMu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	c.subMu.Unlock()
	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

func (c *Controller) emit(ev Event) {
	c.subMu.RLock()
	subs := make([]func(Event), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.subMu.RUnlock()
	for _, fn := range subs {
		fn(ev)
	}
}

func (c *Controller) setStateLocked(s *session, to State, err error) Event {
	from := c.state
	c.state = to
	return Event{SessionID: s.id, From: from, To: to, Elapsed: s.elapsed, Err: err}
}

// beginStopLocked leaves Recording: the ticker is stopped and the tick loop
// told to exit. The caller releases the stream once it drops the lock.
func (c *Controller) beginStopLocked(s *session) Event {
	s.ticker.Stop()
	close(s.stopTick)
	s.elapsed = c.clock.Since(s.startedAt).Truncate(time.Second)
	s.finalized = make(chan struct{})
	return c.setStateLocked(s, Stopped, nil)
}

func (c *Controller) readLoop(s *session, stream Stream) {
	defer close(s.readDone)
	for frag := range stream.Fragments() {
		c.mu.Lock()
		if c.sess == s && (c.state == Recording || c.state == Stopped) {
			s.appendChunk(frag)
		}
		c.mu.Unlock()
	}

	c.mu.Lock()
	if c.sess != s || c.state != Recording {
		c.mu.Unlock()
		return
	}
	// the device ended the stream on its own; keep what was captured
	ev := c.beginStopLocked(s)
	c.mu.Unlock()

	c.log.Warn("capture stream ended early", logger.ErrorFields("record", stream.Err()))
	s.release(stream)
	c.emit(ev)
	go c.finalize(context.Background(), s)
}

func (c *Controller) tickLoop(s *session) {
	for {
		select {
		case <-s.stopTick:
			return
		case <-s.ticker.C():
		}

		c.mu.Lock()
		if c.sess != s || c.state != Recording {
			c.mu.Unlock()
			return
		}
		s.elapsed = c.clock.Since(s.startedAt).Truncate(time.Second)
		tick := Event{SessionID: s.id, From: Recording, To: Recording, Tick: true, Elapsed: s.elapsed}
		ceiling := s.elapsed >= c.maxDuration
		var stopEv Event
		if ceiling {
			stopEv = c.beginStopLocked(s)
		}
		stream := s.stream
		c.mu.Unlock()

		if c.tracker != nil {
			c.tracker.Advance(tick.Elapsed)
		}
		c.emit(tick)
		if ceiling {
			c.log.Info("recording ceiling reached", logger.Fields(
				logger.FieldSessionID, s.id.String(),
				"max_duration", c.maxDuration.String(),
			))
			s.release(stream)
			c.emit(stopEv)
			go c.finalize(context.Background(), s)
			return
		}
	}
}

// finalize drains residual fragments, then decodes and encodes. A session
// cancelled meanwhile is dropped without a transition.
func (c *Controller) finalize(ctx context.Context, s *session) {
	defer close(s.finalized)
	c.drain(s)

	c.mu.Lock()
	if c.sess != s {
		c.mu.Unlock()
		return
	}
	blob := s.blob()
	mimeType := s.mimeType
	c.mu.Unlock()

	art, err := c.encode(ctx, s, blob, mimeType)

	c.mu.Lock()
	if c.sess != s {
		c.mu.Unlock()
		return
	}
	var ev Event
	if err != nil {
		s.err = err
		ev = c.setStateLocked(s, Failed, err)
	} else {
		s.artifact = art
		ev = c.setStateLocked(s, Reviewing, nil)
	}
	chunks := len(s.chunks)
	c.mu.Unlock()

	c.emit(ev)
	if err != nil {
		c.metrics.RecordSession(ctx, observability.OutcomeFailed)
		c.log.Error("recording could not be decoded", logger.ErrorFields("stop", err))
		return
	}
	c.log.Info("recording ready for review", logger.Fields(
		logger.FieldSessionID, s.id.String(),
		"chunks", chunks,
		"bytes", art.Size(),
		logger.FieldDuration, art.Duration.String(),
	))
}

func (c *Controller) drain(s *session) {
	timer := c.clock.NewTimer(c.drainTimeout)
	defer timer.Stop()
	select {
	case <-s.readDone:
	case <-timer.C():
		c.log.Warn("residual fragments not drained in time", logger.Fields(
			logger.FieldSessionID, s.id.String(),
			"drain_timeout", c.drainTimeout.String(),
		))
	}
}

func (c *Controller) encode(ctx context.Context, s *session, blob []byte, mimeType string) (*Artifact, error) {
	buf, err := c.decoder.Decode(ctx, blob, mimeType)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeDecodeFailed) {
			return nil, err
		}
		return nil, errors.DecodeFailed(err)
	}
	data, err := wav.Encode(buf)
	if err != nil {
		return nil, errors.DecodeFailed(err)
	}
	return &Artifact{
		SessionID:  s.id,
		Data:       data,
		MimeType:   wav.MimeType,
		SampleRate: buf.SampleRate,
		Channels:   buf.NumChannels(),
		Frames:     buf.NumFrames(),
		Duration:   buf.Duration(),
		RecordedAt: s.startedAt,
	}, nil
}

func (c *Controller) outcome(s *session) (*Artifact, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess != s {
		return nil, context.Canceled
	}
	if c.state == Failed {
		return nil, s.err
	}
	return s.artifact, nil
}
