package task

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sourcegraph/conc/panics"
)

// ErrInterrupted may be returned by a body that stops because it was asked to.
var ErrInterrupted = errors.New("task: interrupted")

// Body is the unit of work a Task runs.
type Body func(ctx context.Context) error

// Task is a single background unit of work with finish hooks.
type Task struct {
	name string

	mu      sync.Mutex
	hooks   []func()
	onFatal func(error)
	started bool
	err     error

	done chan struct{}
}

// New creates a Task that has not been started yet.
func New(name string) *Task {
	return &Task{
		name: name,
		done: make(chan struct{}),
	}
}

// Name returns the task name.
func (t *Task) Name() string { return t.name }

// OnFinish registers a hook to run after the body completes. Hooks run in
// registration order. Registering after Start has no effect on a task that
// already finished.
func (t *Task) OnFinish(hook func()) *Task {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hooks = append(t.hooks, hook)
	return t
}

// OnFatal sets the handler called with a fatal body error before the finish
// hooks run.
func (t *Task) OnFatal(fn func(error)) *Task {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onFatal = fn
	return t
}

// Start runs body on a new goroutine. Starting a task twice panics.
func (t *Task) Start(ctx context.Context, body Body) *Task {
	t.mu.Lock()
	if t.started {
		t.mu.Unlock()
		panic(fmt.Sprintf("task %s: started twice", t.name))
	}
	t.started = true
	t.mu.Unlock()

	go t.run(ctx, body)
	return t
}

func (t *Task) run(ctx context.Context, body Body) {
	defer close(t.done)

	var err error
	if recovered := panics.Try(func() { err = body(ctx) }); recovered != nil {
		err = fmt.Errorf("task %s: %w", t.name, recovered.AsError())
	}

	t.mu.Lock()
	if err != nil && !IsInterruption(err) {
		t.err = err
	}
	fatal, onFatal := t.err, t.onFatal
	hooks := append([]func(){}, t.hooks...)
	t.mu.Unlock()

	if fatal != nil && onFatal != nil {
		onFatal(fatal)
	}
	for _, hook := range hooks {
		hook()
	}
}

// Join blocks until the body and all finish hooks have completed and returns
// the fatal error, if any. Interrupted and normally completed tasks return nil.
// Joining a task that was never started returns immediately.
func (t *Task) Join() error {
	t.mu.Lock()
	started := t.started
	t.mu.Unlock()
	if !started {
		return nil
	}
	<-t.done
	return t.Err()
}

// Done is closed once the body and its finish hooks have completed.
func (t *Task) Done() <-chan struct{} { return t.done }

// Err returns the fatal error recorded for the task, or nil.
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// IsInterruption reports whether err is a silent, non-fatal exit. Errors
// that declare themselves fatal through a Fatal() bool method never are,
// even when they wrap a context error.
func IsInterruption(err error) bool {
	var f interface{ Fatal() bool }
	if errors.As(err, &f) && f.Fatal() {
		return false
	}
	return errors.Is(err, ErrInterrupted) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
