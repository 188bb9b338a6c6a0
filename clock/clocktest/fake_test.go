package clocktest

import (
	"testing"
	"time"
)

var epoch = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func TestFake_TickerFiresOnAdvance(t *testing.T) {
	f := New(epoch)
	tk := f.NewTicker(time.Second)
	defer tk.Stop()

	select {
	case <-tk.C():
		t.Fatal("ticker fired before time advanced")
	default:
	}

	f.Advance(time.Second)
	select {
	case got := <-tk.C():
		if !got.Equal(epoch.Add(time.Second)) {
			t.Errorf("unexpected tick time %v", got)
		}
	default:
		t.Fatal("expected a tick after one interval")
	}
}

func TestFake_TickerDropsMissedTicks(t *testing.T) {
	f := New(epoch)
	tk := f.NewTicker(time.Second)
	defer tk.Stop()

	f.Advance(5 * time.Second)
	<-tk.C()
	select {
	case <-tk.C():
		t.Fatal("expected missed ticks to be dropped")
	default:
	}
	if !f.Now().Equal(epoch.Add(5 * time.Second)) {
		t.Errorf("unexpected now %v", f.Now())
	}
}

func TestFake_TimerFiresOnce(t *testing.T) {
	f := New(epoch)
	tm := f.NewTimer(150 * time.Second)
	if f.ActiveTimers() != 1 {
		t.Fatalf("expected 1 active timer, got %d", f.ActiveTimers())
	}
	f.Advance(149 * time.Second)
	select {
	case <-tm.C():
		t.Fatal("timer fired early")
	default:
	}
	f.Advance(time.Second)
	<-tm.C()
	if f.ActiveTimers() != 0 {
		t.Errorf("fired timer should not remain active, got %d", f.ActiveTimers())
	}
	if tm.Stop() {
		t.Error("Stop after fire should report false")
	}
}

func TestFake_StopReleases(t *testing.T) {
	f := New(epoch)
	tk := f.NewTicker(time.Second)
	tm := f.NewTimer(time.Minute)
	tk.Stop()
	if !tm.Stop() {
		t.Error("first Stop should report true")
	}
	if f.ActiveTimers() != 0 {
		t.Errorf("expected no active timers, got %d", f.ActiveTimers())
	}
	f.Advance(time.Hour)
	select {
	case <-tk.C():
		t.Fatal("stopped ticker fired")
	default:
	}
}

func TestFake_Since(t *testing.T) {
	f := New(epoch)
	start := f.Now()
	f.Advance(70 * time.Second)
	if got := f.Since(start); got != 70*time.Second {
		t.Errorf("Since = %v, want 70s", got)
	}
}
