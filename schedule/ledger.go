package schedule

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// DateLayout formats Key.Date.
const DateLayout = "2006-01-02"

// Key identifies one window of one entry on one date.
type Key struct {
	EntryID string `json:"entry_id"`
	Window  int    `json:"window"`
	Date    string `json:"date"`
}

// String returns "entry:window:date".
func (k Key) String() string {
	return k.EntryID + ":" + strconv.Itoa(k.Window) + ":" + k.Date
}

// Ledger records which windows have fired.
type Ledger interface {
	// Claim marks k and reports whether this caller set it.
	Claim(ctx context.Context, k Key) (bool, error)
	// Release removes a claim so the window can fire again.
	Release(ctx context.Context, k Key) error
	// Forget removes every claim for an entry.
	Forget(ctx context.Context, entryID string) error
}

// MemoryLedger is a process-local Ledger. Claims older than the day before
// the newest claimed date are dropped.
type MemoryLedger struct {
	mu     sync.Mutex
	claims map[Key]struct{}
}

// NewMemoryLedger creates an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{claims: make(map[Key]struct{})}
}

// Claim implements Ledger.
func (l *MemoryLedger) Claim(_ context.Context, k Key) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prune(k.Date)
	if _, ok := l.claims[k]; ok {
		return false, nil
	}
	l.claims[k] = struct{}{}
	return true, nil
}

// Release implements Ledger.
func (l *MemoryLedger) Release(_ context.Context, k Key) error {
	l.mu.Lock()
	delete(l.claims, k)
	l.mu.Unlock()
	return nil
}

// Forget implements Ledger.
func (l *MemoryLedger) Forget(_ context.Context, entryID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for k := range l.claims {
		if k.EntryID == entryID {
			delete(l.claims, k)
		}
	}
	return nil
}

// Len returns the number of claims held.
func (l *MemoryLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.claims)
}

func (l *MemoryLedger) prune(date string) {
	d, err := time.Parse(DateLayout, date)
	if err != nil {
		return
	}
	cutoff := d.AddDate(0, 0, -1).Format(DateLayout)
	for k := range l.claims {
		if k.Date < cutoff {
			delete(l.claims, k)
		}
	}
}
