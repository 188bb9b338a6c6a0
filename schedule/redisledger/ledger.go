// Package redisledger shares trigger claims between agents through Redis so
// a window fires once across every machine watching the same schedule.
package redisledger

import (
	"context"
	"os"
	"time"

	"github.com/kbukum/voicecap/clock"
	"github.com/kbukum/voicecap/redis"
	"github.com/kbukum/voicecap/schedule"
)

// DefaultTTL outlives a window that rolls past midnight.
const DefaultTTL = 48 * time.Hour

// Claim is the record stored for a fired window.
type Claim struct {
	Window  int       `json:"window"`
	FiredAt time.Time `json:"fired_at"`
	Host    string    `json:"host,omitempty"`
}

// Ledger implements schedule.Ledger on a redis.TypedStore. Keys are
// "<prefix>:trigger:<entry>:<window>:<date>".
type Ledger struct {
	store *redis.TypedStore[Claim]
	ttl   time.Duration
	host  string
	clock clock.Clock
}

var _ schedule.Ledger = (*Ledger)(nil)

// Option configures a Ledger.
type Option func(*Ledger)

// WithTTL sets how long claims are kept.
func WithTTL(d time.Duration) Option {
	return func(l *Ledger) {
		if d > 0 {
			l.ttl = d
		}
	}
}

// WithHost sets the host recorded in claims. Defaults to os.Hostname.
func WithHost(h string) Option {
	return func(l *Ledger) { l.host = h }
}

// WithClock sets the clock used for FiredAt.
func WithClock(c clock.Clock) Option {
	return func(l *Ledger) { l.clock = c }
}

// New creates a Ledger using the client's key prefix.
func New(client *redis.Client, opts ...Option) *Ledger {
	host, _ := os.Hostname()
	l := &Ledger{
		store: redis.NewTypedStore[Claim](client, client.Config().KeyPrefix+":trigger"),
		ttl:   DefaultTTL,
		host:  host,
		clock: clock.Real(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Claim implements schedule.Ledger.
func (l *Ledger) Claim(ctx context.Context, k schedule.Key) (bool, error) {
	return l.store.Create(ctx, k.String(), &Claim{Window: k.Window, FiredAt: l.clock.Now(), Host: l.host}, l.ttl)
}

// Release implements schedule.Ledger.
func (l *Ledger) Release(ctx context.Context, k schedule.Key) error {
	return l.store.Delete(ctx, k.String())
}

// Forget implements schedule.Ledger.
func (l *Ledger) Forget(ctx context.Context, entryID string) error {
	return l.store.DeletePrefix(ctx, entryID+":")
}

// Lookup returns the claim for k, or nil.
func (l *Ledger) Lookup(ctx context.Context, k schedule.Key) (*Claim, error) {
	return l.store.Load(ctx, k.String())
}
