package bootstrap

import (
	"context"
	"fmt"
)

// Hook runs at a fixed point of the app lifecycle. The first error aborts
// the remaining hooks of that phase.
type Hook func(ctx context.Context) error

// OnStart hooks run once every component has started.
func (a *App) OnStart(hooks ...Hook) {
	a.onStart = append(a.onStart, hooks...)
}

// OnReady hooks run after the ready check, before the task or watch loop.
func (a *App) OnReady(hooks ...Hook) {
	a.onReady = append(a.onReady, hooks...)
}

// OnStop hooks run before components are stopped in reverse order.
func (a *App) OnStop(hooks ...Hook) {
	a.onStop = append(a.onStop, hooks...)
}

func runHooks(ctx context.Context, hooks []Hook) error {
	for i, h := range hooks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := h(ctx); err != nil {
			return fmt.Errorf("hook %d of %d: %w", i+1, len(hooks), err)
		}
	}
	return nil
}
