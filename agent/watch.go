package agent

import (
	"context"

	"github.com/kbukum/voicecap/capture"
	"github.com/kbukum/voicecap/config"
	"github.com/kbukum/voicecap/redis"
	"github.com/kbukum/voicecap/remote"
	"github.com/kbukum/voicecap/schedule"
	"github.com/kbukum/voicecap/schedule/redisledger"
)

// NewWatchEngine builds a trigger engine reading and triggering through the
// monitoring API.
func NewWatchEngine(client *remote.Client, opts ...schedule.Option) *schedule.Engine {
	return schedule.NewEngine(remote.Source{Client: client}, remote.Trigger{Client: client}, opts...)
}

// NewLedger returns the ledger selected by cfg.Ledger. The redis ledger needs
// a client; without one it falls back to memory.
func NewLedger(cfg config.ScheduleConfig, client *redis.Client) schedule.Ledger {
	if cfg.Ledger == config.LedgerRedis && client != nil {
		return redisledger.New(client)
	}
	return schedule.NewMemoryLedger()
}

// Status is the agent snapshot served at /status.
type Status struct {
	Schedule *schedule.EngineStatus `json:"schedule,omitempty"`
	Capture  *capture.Session `json:"capture,omitempty"`
}

// StatusSources feed Snapshot. Either may be nil.
type StatusSources struct {
	Engine   *schedule.Engine
	Enroller *Enroller
}

// Snapshot implements server.StatusProvider.
func (s StatusSources) Snapshot(context.Context) (any, error) {
	var st Status
	if s.Engine != nil {
		es := s.Engine.Status()
		st.Schedule = &es
	}
	if s.Enroller != nil {
		if sess, ok := s.Enroller.Session(); ok {
			st.Capture = &sess
		}
	}
	return st, nil
}
