package bootstrap

import (
	"context"
	"fmt"
)

// Hook is a lifecycle callback run before the task starts or after it ends.
type Hook func(ctx context.Context) error

// OnStart registers hooks that run, in order, before the task. The first
// failing hook aborts RunTask.
func (a *App[C]) OnStart(hooks ...Hook) {
	a.onStart = append(a.onStart, hooks...)
}

// OnStop registers hooks that run after the task, such as flushing
// telemetry providers.
func (a *App[C]) OnStop(hooks ...Hook) {
	a.onStop = append(a.onStop, hooks...)
}

func runHooks(ctx context.Context, hooks []Hook) error {
	for i, h := range hooks {
		if err := h(ctx); err != nil {
			return fmt.Errorf("hook %d failed: %w", i, err)
		}
	}
	return nil
}
