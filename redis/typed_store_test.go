package redis

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/kbukum/voicecap/component"
	"github.com/kbukum/voicecap/logger"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mini := miniredis.RunT(t)

	client, err := New(Config{Enabled: true, Addr: mini.Addr()}, logger.Nop())
	if err != nil {
		t.Fatalf("failed to create redis client: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client, mini
}

type claim struct {
	Host string `json:"host"`
	At   int64  `json:"at"`
}

func TestTypedStore_SaveAndLoad(t *testing.T) {
	client, _ := newTestClient(t)
	store := NewTypedStore[claim](client, "test")
	ctx := context.Background()

	if err := store.Save(ctx, "k1", &claim{Host: "lab-1", At: 5}, 0); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := store.Load(ctx, "k1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got == nil || got.Host != "lab-1" || got.At != 5 {
		t.Fatalf("got %+v", got)
	}
}

func TestTypedStore_LoadMissing(t *testing.T) {
	client, _ := newTestClient(t)
	store := NewTypedStore[claim](client, "test")

	got, err := store.Load(context.Background(), "nonexistent")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing key, got %+v", got)
	}
}

func TestTypedStore_Create(t *testing.T) {
	client, mini := newTestClient(t)
	store := NewTypedStore[claim](client, "test")
	ctx := context.Background()

	ok, err := store.Create(ctx, "k1", &claim{Host: "a"}, time.Hour)
	if err != nil || !ok {
		t.Fatalf("first Create = %v, %v", ok, err)
	}
	ok, err = store.Create(ctx, "k1", &claim{Host: "b"}, time.Hour)
	if err != nil || ok {
		t.Fatalf("second Create = %v, %v", ok, err)
	}

	got, _ := store.Load(ctx, "k1")
	if got.Host != "a" {
		t.Errorf("value overwritten: %+v", got)
	}
	if ttl := mini.TTL("test:k1"); ttl != time.Hour {
		t.Errorf("ttl = %v", ttl)
	}
}

func TestTypedStore_TTL(t *testing.T) {
	client, mini := newTestClient(t)
	store := NewTypedStore[claim](client, "test")
	ctx := context.Background()

	if err := store.Save(ctx, "k1", &claim{}, 2*time.Second); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	mini.FastForward(3 * time.Second)

	got, err := store.Load(ctx, "k1")
	if err != nil {
		t.Fatalf("Load after TTL failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil after TTL expiration, got %+v", got)
	}
}

func TestTypedStore_KeyPrefix(t *testing.T) {
	client, mini := newTestClient(t)
	ctx := context.Background()

	NewTypedStore[claim](client, "myprefix").Save(ctx, "k1", &claim{}, 0)
	NewTypedStore[claim](client, "").Save(ctx, "bare", &claim{}, 0)

	if !mini.Exists("myprefix:k1") {
		t.Error("expected prefixed key in Redis")
	}
	if !mini.Exists("bare") {
		t.Error("expected bare key in Redis")
	}
}

func TestTypedStore_KeysAndDeletePrefix(t *testing.T) {
	client, mini := newTestClient(t)
	store := NewTypedStore[claim](client, "t")
	ctx := context.Background()

	for _, k := range []string{"a:0:d", "a:1:d", "b:0:d"} {
		store.Save(ctx, k, &claim{}, 0)
	}

	keys, err := store.Keys(ctx, "a:")
	if err != nil {
		t.Fatal(err)
	}
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != "a:0:d" || keys[1] != "a:1:d" {
		t.Errorf("keys = %v", keys)
	}

	if err := store.DeletePrefix(ctx, "a:"); err != nil {
		t.Fatal(err)
	}
	if mini.Exists("t:a:0:d") || mini.Exists("t:a:1:d") || !mini.Exists("t:b:0:d") {
		t.Errorf("keys left: %v", mini.Keys())
	}
	if err := store.DeletePrefix(ctx, "none:"); err != nil {
		t.Errorf("DeletePrefix with no match = %v", err)
	}
}

func TestTypedStore_Delete(t *testing.T) {
	client, _ := newTestClient(t)
	store := NewTypedStore[claim](client, "test")
	ctx := context.Background()

	store.Save(ctx, "k1", &claim{}, 0)
	if err := store.Delete(ctx, "k1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if got, _ := store.Load(ctx, "k1"); got != nil {
		t.Fatalf("expected nil after delete, got %+v", got)
	}
}

func TestComponent(t *testing.T) {
	mini := miniredis.RunT(t)
	c, err := NewComponent(Config{Enabled: true, Addr: mini.Addr()}, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if h := c.Health(ctx); h.Status != component.StatusHealthy {
		t.Errorf("health = %+v", h)
	}
	if d := c.Describe(); d.Type != "redis" {
		t.Errorf("describe = %+v", d)
	}

	mini.Close()
	if h := c.Health(ctx); h.Status != component.StatusUnhealthy {
		t.Errorf("health after close = %+v", h)
	}
	if err := c.Stop(ctx); err != nil {
		t.Errorf("Stop: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{Enabled: true, DB: -1}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for negative db")
	}
	if cfg.Addr != "localhost:6379" || cfg.KeyPrefix != "voicecap" {
		t.Errorf("defaults = %+v", cfg)
	}
}
