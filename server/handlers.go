package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/voicecap/component"
	"github.com/kbukum/voicecap/version"
)

// HealthChecker returns the health of every registered component.
type HealthChecker func(ctx context.Context) []component.Health

// StatusProvider returns the snapshot served at /status.
type StatusProvider func(ctx context.Context) (any, error)

// Routes are the handlers behind the status endpoints. Nil fields leave the
// matching endpoint reporting an empty result.
type Routes struct {
	Service string
	Health  HealthChecker
	Status  StatusProvider
}

// HealthResponse is the /health body.
type HealthResponse struct {
	Status     component.HealthStatus `json:"status"`
	Service    string                 `json:"service"`
	Timestamp  string                 `json:"timestamp"`
	Components []component.Health     `json:"components"`
}

// Mount registers /health, /status and /version.
func (s *Server) Mount(r Routes) {
	s.engine.GET("/health", healthHandler(r.Service, r.Health))
	s.engine.GET("/status", statusHandler(r.Status))
	s.engine.GET("/version", versionHandler())
}

func healthHandler(service string, checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		components := []component.Health{}
		if checker != nil {
			components = checker(c.Request.Context())
		}
		status := component.Overall(components)

		code := http.StatusOK
		if status == component.StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, HealthResponse{
			Status:     status,
			Service:    service,
			Timestamp:  time.Now().UTC().Format(time.RFC3339),
			Components: components,
		})
	}
}

func statusHandler(provider StatusProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		if provider == nil {
			RespondOK(c, gin.H{})
			return
		}
		snapshot, err := provider(c.Request.Context())
		if err != nil {
			RespondWithError(c, err)
			return
		}
		RespondOK(c, snapshot)
	}
}

func versionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		RespondOK(c, version.Get())
	}
}
