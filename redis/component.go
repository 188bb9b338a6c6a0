package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/kbukum/voicecap/component"
	"github.com/kbukum/voicecap/logger"
)

// slowPing marks the trigger ledger degraded. Claims still succeed, but
// every poll tick pays this latency per due window.
const slowPing = 250 * time.Millisecond

// Component registers the ledger's Redis connection with the app lifecycle.
type Component struct {
	client *Client
	log    *logger.Logger
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent builds the client up front so the ledger can be wired
// before Start dials.
func NewComponent(cfg Config, log *logger.Logger) (*Component, error) {
	log = log.WithComponent("redis")
	client, err := New(cfg, log)
	if err != nil {
		return nil, err
	}
	return &Component{client: client, log: log}, nil
}

func (c *Component) Client() *Client { return c.client }

func (c *Component) Name() string { return "redis" }

// Start fails the app when Redis is unreachable, since the configured
// ledger cannot dedupe triggers without it.
func (c *Component) Start(ctx context.Context) error {
	if err := c.client.Ping(ctx); err != nil {
		return fmt.Errorf("redis start: %w", err)
	}
	cfg := c.client.Config()
	c.log.Info("redis connected", logger.Fields("addr", cfg.Addr, "db", cfg.DB))
	return nil
}

func (c *Component) Stop(context.Context) error {
	return c.client.Close()
}

// Health pings Redis and reports degraded when the round trip is slow.
func (c *Component) Health(ctx context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	start := time.Now()
	if err := c.client.Ping(ctx); err != nil {
		h.Status, h.Message = component.StatusUnhealthy, err.Error()
		return h
	}
	if rtt := time.Since(start); rtt > slowPing {
		h.Status, h.Message = component.StatusDegraded, "ping took "+rtt.Round(time.Millisecond).String()
	}
	return h
}

func (c *Component) Describe() component.Description {
	cfg := c.client.Config()
	return component.Description{
		Name:    "Redis",
		Type:    "redis",
		Details: fmt.Sprintf("%s db=%d prefix=%s", cfg.Addr, cfg.DB, cfg.KeyPrefix),
	}
}
