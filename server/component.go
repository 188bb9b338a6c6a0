package server

import (
	"context"

	"github.com/kbukum/voicecap/component"
)

const componentName = "status-server"

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// Component runs a Server under the component registry.
type Component struct {
	server *Server
}

// NewComponent wraps s.
func NewComponent(s *Server) *Component {
	return &Component{server: s}
}

// Server returns the wrapped server.
func (c *Component) Server() *Server { return c.server }

// Name returns the component name used for registration.
func (c *Component) Name() string { return componentName }

// Start starts the underlying HTTP server.
func (c *Component) Start(ctx context.Context) error { return c.server.Start(ctx) }

// Stop gracefully shuts down the underlying HTTP server.
func (c *Component) Stop(ctx context.Context) error { return c.server.Stop(ctx) }

// Health is healthy once the port is bound.
func (c *Component) Health(context.Context) component.Health {
	if !c.server.Listening() {
		return component.Health{Name: componentName, Status: component.StatusUnhealthy, Message: "not listening"}
	}
	return component.Health{Name: componentName, Status: component.StatusHealthy}
}

// Describe returns the listen address for the startup summary.
func (c *Component) Describe() component.Description {
	return component.Description{Name: "Status Server", Type: "server", Details: c.server.Addr()}
}
