package process

import (
	"context"

	"github.com/kbukum/voicecap/resilience"
)

// Runner executes commands behind a circuit breaker that persists across calls.
// Only failures to launch the binary count against the breaker; a non-zero exit
// caused by bad input does not.
type Runner struct {
	breaker *resilience.CircuitBreaker
}

// NewRunner creates a Runner. A nil config disables the breaker.
func NewRunner(cfg *resilience.CircuitBreakerConfig) *Runner {
	if cfg == nil {
		return &Runner{}
	}
	return &Runner{breaker: resilience.NewCircuitBreaker(*cfg)}
}

// Run executes cmd to completion.
func (r *Runner) Run(ctx context.Context, cmd Command) (*Result, error) {
	if r == nil || r.breaker == nil {
		return Run(ctx, cmd)
	}
	var (
		result *Result
		runErr error
	)
	err := r.breaker.Execute(func() error {
		result, runErr = Run(ctx, cmd)
		if result == nil || (result.ExitCode == -1 && ctx.Err() == nil) {
			return runErr
		}
		return nil
	})
	if err != nil && runErr == nil {
		// rejected by the open breaker
		return nil, err
	}
	return result, runErr
}

// BreakerState reports the breaker state, or closed when no breaker is configured.
func (r *Runner) BreakerState() resilience.State {
	if r == nil || r.breaker == nil {
		return resilience.StateClosed
	}
	return r.breaker.State()
}
