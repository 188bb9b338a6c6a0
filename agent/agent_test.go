package agent

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"

	"github.com/kbukum/voicecap/audio"
	"github.com/kbukum/voicecap/audio/decode"
	"github.com/kbukum/voicecap/capture"
	"github.com/kbukum/voicecap/clock/clocktest"
	"github.com/kbukum/voicecap/config"
	"github.com/kbukum/voicecap/errors"
	"github.com/kbukum/voicecap/logger"
	"github.com/kbukum/voicecap/redis"
	"github.com/kbukum/voicecap/resilience"
	"github.com/kbukum/voicecap/schedule"
	"github.com/kbukum/voicecap/schedule/redisledger"
	"github.com/kbukum/voicecap/script"
)

// fakeMic emits one fragment per open and counts releases.
type fakeMic struct {
	mu     sync.Mutex
	opens  int
	closes int
	err    error
}

func (m *fakeMic) Open(context.Context, capture.Constraints) (capture.Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.opens++
	s := &fakeStream{mic: m, frags: make(chan []byte, 4)}
	s.frags <- []byte("opus-frame")
	return s, nil
}

func (m *fakeMic) counts() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opens, m.closes
}

type fakeStream struct {
	mic   *fakeMic
	once  sync.Once
	frags chan []byte
}

func (s *fakeStream) Fragments() <-chan []byte { return s.frags }
func (s *fakeStream) MimeType() string         { return "audio/webm;codecs=opus" }
func (s *fakeStream) Err() error               { return nil }
func (s *fakeStream) Close() error {
	s.once.Do(func() {
		s.mic.mu.Lock()
		s.mic.closes++
		s.mic.mu.Unlock()
		close(s.frags)
	})
	return nil
}

var toneDecoder = decode.Func(func(_ context.Context, blob []byte, _ string) (*audio.Buffer, error) {
	buf := audio.NewBuffer(8000, 1, 8000)
	for i := range buf.Channels[0] {
		buf.Channels[0][i] = 0.25
	}
	return buf, nil
})

// flakyUploader fails the first len(errs) uploads with the given errors.
type flakyUploader struct {
	mu       sync.Mutex
	errs     []error
	sessions []uuid.UUID
}

func (u *flakyUploader) Upload(_ context.Context, a *capture.Artifact) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.sessions = append(u.sessions, a.SessionID)
	if len(u.sessions) <= len(u.errs) {
		return u.errs[len(u.sessions)-1]
	}
	return nil
}

func (u *flakyUploader) calls() []uuid.UUID {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]uuid.UUID(nil), u.sessions...)
}

func noSleepRetry(attempts int) resilience.RetryConfig {
	cfg := resilience.DefaultRetryConfig()
	cfg.MaxAttempts = attempts
	cfg.Sleep = func(context.Context, time.Duration) error { return nil }
	return cfg
}

func newEnroller(mic *fakeMic, up capture.Uploader, opts ...EnrollOption) *Enroller {
	opts = append([]EnrollOption{
		WithLogger(logger.Nop()),
		WithConfirmRetry(noSleepRetry(3)),
		WithDrainTimeout(100 * time.Millisecond),
	}, opts...)
	return NewEnroller(mic, toneDecoder, up, opts...)
}

// stopOnRecording returns a request whose Stop channel closes as soon as
// recording begins.
func stopOnRecording() EnrollRequest {
	stop := make(chan struct{})
	var once sync.Once
	return EnrollRequest{
		Stop: stop,
		OnEvent: func(ev capture.Event, _ *script.Tracker) {
			if ev.To == capture.Recording && !ev.Tick {
				once.Do(func() { close(stop) })
			}
		},
	}
}

func TestEnroll_Uploads(t *testing.T) {
	mic := &fakeMic{}
	up := &flakyUploader{}
	e := newEnroller(mic, up)

	res, err := e.Enroll(context.Background(), stopOnRecording())
	if err != nil {
		t.Fatal(err)
	}
	if res.Attempts != 1 || res.Discarded || res.Artifact == nil {
		t.Errorf("result = %+v", res)
	}
	if res.Artifact.MimeType != "audio/wav" || res.Artifact.SampleRate != 8000 {
		t.Errorf("artifact = %+v", res.Artifact)
	}
	if opens, closes := mic.counts(); opens != 1 || closes != 1 {
		t.Errorf("opens = %d, closes = %d", opens, closes)
	}
	if _, ok := e.Session(); ok {
		t.Error("no session should remain after enroll")
	}
}

func TestEnroll_RetriesConfirmWithSameRecording(t *testing.T) {
	mic := &fakeMic{}
	up := &flakyUploader{errs: []error{
		errors.UploadFailed("", 0, fmt.Errorf("connection reset")),
		errors.UploadFailed("bad gateway", 502, nil),
	}}
	e := newEnroller(mic, up)

	res, err := e.Enroll(context.Background(), stopOnRecording())
	if err != nil {
		t.Fatal(err)
	}
	if res.Attempts != 3 {
		t.Errorf("attempts = %d", res.Attempts)
	}
	calls := up.calls()
	if len(calls) != 3 || calls[0] != calls[2] {
		t.Errorf("uploads = %v, want the same session three times", calls)
	}
	if opens, _ := mic.counts(); opens != 1 {
		t.Errorf("opens = %d, retry must not re-record", opens)
	}
}

func TestEnroll_RejectedUploadNotRetried(t *testing.T) {
	up := &flakyUploader{errs: []error{errors.UploadFailed("File terlalu besar. Maksimal 10MB", 400, nil)}}
	e := newEnroller(&fakeMic{}, up)

	res, err := e.Enroll(context.Background(), stopOnRecording())
	if !errors.HasCode(err, errors.ErrCodeUploadFailed) {
		t.Fatalf("err = %v", err)
	}
	if res == nil || res.Attempts != 1 || res.Artifact == nil {
		t.Errorf("result = %+v", res)
	}
}

func TestEnroll_OversizedRecordingNotRetried(t *testing.T) {
	up := &flakyUploader{errs: []error{
		errors.InvalidInput("audio_data", "recording is 11000000 bytes, the limit is 10485760"),
	}}
	e := newEnroller(&fakeMic{}, up)

	res, err := e.Enroll(context.Background(), stopOnRecording())
	if !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Fatalf("err = %v, want INVALID_INPUT in the chain", err)
	}
	if res == nil || res.Attempts != 1 {
		t.Errorf("result = %+v", res)
	}
	if n := len(up.calls()); n != 1 {
		t.Errorf("uploads = %d, want 1", n)
	}
}

func TestEnroll_AttemptsExhausted(t *testing.T) {
	fail := errors.UploadFailed("", 503, nil)
	up := &flakyUploader{errs: []error{fail, fail, fail, fail}}
	e := newEnroller(&fakeMic{}, up, WithConfirmRetry(noSleepRetry(2)))

	res, err := e.Enroll(context.Background(), stopOnRecording())
	if !errors.HasCode(err, errors.ErrCodeUploadFailed) || res.Attempts != 2 {
		t.Errorf("err = %v, attempts = %d", err, res.Attempts)
	}
}

func TestEnroll_ReviewDiscard(t *testing.T) {
	up := &flakyUploader{}
	e := newEnroller(&fakeMic{}, up)

	req := stopOnRecording()
	req.Review = func(context.Context, *capture.Artifact) (bool, error) { return false, nil }
	res, err := e.Enroll(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Discarded || len(up.calls()) != 0 {
		t.Errorf("discarded = %v, uploads = %d", res.Discarded, len(up.calls()))
	}
}

func TestEnroll_AutoStopAtCeiling(t *testing.T) {
	clk := clocktest.New(time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC))
	up := &flakyUploader{}
	e := newEnroller(&fakeMic{}, up, WithClock(clk))

	go func() {
		if clk.WaitForTimers(1, 2*time.Second) {
			clk.Advance(2 * time.Second)
		}
	}()
	res, err := e.Enroll(context.Background(), EnrollRequest{MaxDuration: 2 * time.Second})
	if err != nil {
		t.Fatal(err)
	}
	if len(up.calls()) != 1 || res.Artifact == nil {
		t.Errorf("uploads = %d, artifact = %v", len(up.calls()), res.Artifact)
	}
}

func TestEnroll_PermissionDenied(t *testing.T) {
	mic := &fakeMic{err: fmt.Errorf("no device")}
	e := newEnroller(mic, &flakyUploader{})

	_, err := e.Enroll(context.Background(), stopOnRecording())
	if !errors.HasCode(err, errors.ErrCodePermissionDenied) {
		t.Errorf("err = %v", err)
	}
}

func TestEnroll_ContextCancelled(t *testing.T) {
	mic := &fakeMic{}
	e := newEnroller(mic, &flakyUploader{})
	ctx, cancel := context.WithCancel(context.Background())

	req := EnrollRequest{OnEvent: func(ev capture.Event, _ *script.Tracker) {
		if ev.To == capture.Recording && !ev.Tick {
			cancel()
		}
	}}
	if _, err := e.Enroll(ctx, req); err != context.Canceled {
		t.Errorf("err = %v", err)
	}
	if _, closes := mic.counts(); closes != 1 {
		t.Errorf("closes = %d, microphone must be released", closes)
	}
}

func TestRetryableUpload(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"no status", errors.UploadFailed("", 0, nil), true},
		{"server error", errors.UploadFailed("", 500, nil), true},
		{"rate limited", errors.UploadFailed("", 429, nil), true},
		{"rejected", errors.UploadFailed("bad request", 400, nil), false},
		{"other code", errors.InvalidInput("audio_data", "empty"), false},
		{"invalid input cause", errors.UploadFailed("", 0, errors.InvalidInput("audio_data", "too large")), false},
		{"plain error", fmt.Errorf("x"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := retryableUpload(tt.err); got != tt.want {
				t.Errorf("retryableUpload = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewLedger(t *testing.T) {
	if _, ok := NewLedger(config.ScheduleConfig{Ledger: config.LedgerMemory}, nil).(*schedule.MemoryLedger); !ok {
		t.Error("memory ledger expected")
	}
	if _, ok := NewLedger(config.ScheduleConfig{Ledger: config.LedgerRedis}, nil).(*schedule.MemoryLedger); !ok {
		t.Error("redis without a client falls back to memory")
	}

	mini := miniredis.RunT(t)
	client, err := redis.New(redis.Config{Enabled: true, Addr: mini.Addr()}, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { client.Close() })
	if _, ok := NewLedger(config.ScheduleConfig{Ledger: config.LedgerRedis}, client).(*redisledger.Ledger); !ok {
		t.Error("redis ledger expected")
	}
}

type staticSource []schedule.Entry

func (s staticSource) Entries(context.Context) ([]schedule.Entry, error) { return s, nil }

type nopTrigger struct{}

func (nopTrigger) Start(context.Context, schedule.Firing) error { return nil }
func (nopTrigger) Stop(context.Context, schedule.Firing) error  { return nil }

func TestStatusSnapshot(t *testing.T) {
	entry := schedule.Entry{
		ID: "j-1", Day: schedule.Senin, Status: schedule.StatusActive,
		Start: schedule.MustTimeOfDay("08:00"), End: schedule.MustTimeOfDay("09:40"),
	}
	engine := schedule.NewEngine(staticSource{entry}, nopTrigger{})
	engine.Tick(context.Background(), time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC))

	got, err := StatusSources{Engine: engine, Enroller: newEnroller(&fakeMic{}, &flakyUploader{})}.Snapshot(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	st := got.(Status)
	if st.Schedule == nil || len(st.Schedule.Entries) != 1 {
		t.Errorf("schedule = %+v", st.Schedule)
	}
	if st.Capture != nil {
		t.Errorf("capture = %+v, no enrollment in progress", st.Capture)
	}

	empty, _ := StatusSources{}.Snapshot(context.Background())
	if s := empty.(Status); s.Schedule != nil || s.Capture != nil {
		t.Errorf("empty = %+v", s)
	}
}
