package remote

import (
	"context"
	"testing"
	"time"

	"github.com/kbukum/voicecap/errors"
	"github.com/kbukum/voicecap/resilience"
	"github.com/kbukum/voicecap/schedule"
)

func TestEngineWithRemote(t *testing.T) {
	api, c := newFakeAPI(t)
	engine := schedule.NewEngine(Source{Client: c}, Trigger{Client: c},
		schedule.WithRetry(resilience.RetryConfig{MaxAttempts: 1}),
		schedule.WithHold(time.Minute),
	)
	ctx := context.Background()

	// 2026-03-02 is a Monday; j-1 starts at 08:00
	fired := engine.Tick(ctx, time.Date(2026, 3, 2, 8, 10, 0, 0, time.UTC))
	if len(fired) != 1 || fired[0].Entry.ID != "j-1" {
		t.Fatalf("fired = %+v", fired)
	}
	engine.Tick(ctx, time.Date(2026, 3, 2, 8, 11, 30, 0, time.UTC))

	if len(api.started) != 1 || len(api.stopped) != 1 {
		t.Errorf("started = %v, stopped = %v", api.started, api.stopped)
	}
}

func TestVoiceSampleUploader(t *testing.T) {
	_, c := newFakeAPI(t)
	u := NewVoiceSampleUploader(c, "d-1")

	if u.Last() != nil {
		t.Error("Last should be nil before upload")
	}
	if err := u.Upload(context.Background(), artifact(16)); err != nil {
		t.Fatal(err)
	}
	if last := u.Last(); last == nil || last.LecturerID != "d-1" {
		t.Errorf("last = %+v", last)
	}

	bad := NewVoiceSampleUploader(c, "d-full")
	if err := bad.Upload(context.Background(), artifact(16)); !errors.HasCode(err, errors.ErrCodeUploadFailed) {
		t.Errorf("err = %v", err)
	}
}
