// Package server is the agent's local status server: a small Gin engine that
// reports component health, the trigger engine snapshot, the current capture
// session and the build version.
//
// # Middleware
//
// Built-in middleware (server/middleware):
//
//   - Recovery: panic recovery with structured logging
//   - RequestID: request id generation and propagation
//   - RequestLogger: request logging by status class
//
// # Endpoints
//
//   - /health: component health, 503 when any component is unhealthy
//   - /status: the Status provider's snapshot
//   - /version: build version information
package server
