package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/sourcegraph/conc/panics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/sweep/logger"
	"github.com/kbukum/sweep/observability"
	"github.com/kbukum/sweep/queue"
	"github.com/kbukum/sweep/resilience"
	"github.com/kbukum/sweep/task"
)

// ProcessFunc handles one item. It may emit extra reports (KindUpdated,
// KindSkipped, KindNoop, ...) through em. A returned error or a panic fails
// only this item.
type ProcessFunc[T any] func(ctx context.Context, item T, em Emitter) error

// ErrorFunc is told about an item whose processing failed.
type ErrorFunc[T any] func(item T, err error)

// Worker pops items from the work queue until it sees the end marker.
type Worker[T any] struct {
	*task.Task

	id        int
	source    *queue.Bounded[T]
	process   ProcessFunc[T]
	emitter   Emitter
	keyOf     func(T) string
	limiter   *resilience.RateLimiter
	metrics   *observability.PipelineMetrics
	onSuccess []func(item T)
	onError   []ErrorFunc[T]
	log       *logger.Logger
}

// NewWorker creates worker id reading from source.
func NewWorker[T any](id int, source *queue.Bounded[T], process ProcessFunc[T], em Emitter, keyOf func(T) string, log *logger.Logger) *Worker[T] {
	return &Worker[T]{
		Task:    task.New(fmt.Sprintf("worker-%d", id)),
		id:      id,
		source:  source,
		process: process,
		emitter: em,
		keyOf:   keyOf,
		log:     log.WithComponent("worker").WithFields(logger.Fields(logger.FieldWorker, id)),
	}
}

// ID returns the worker number.
func (w *Worker[T]) ID() int { return w.id }

// WithRateLimiter makes the worker take a token from rl before each item.
func (w *Worker[T]) WithRateLimiter(rl *resilience.RateLimiter) *Worker[T] {
	w.limiter = rl
	return w
}

// WithMetrics records per-item durations into m.
func (w *Worker[T]) WithMetrics(m *observability.PipelineMetrics) *Worker[T] {
	w.metrics = m
	return w
}

// OnSuccess registers fn for items processed without error.
func (w *Worker[T]) OnSuccess(fn func(item T)) *Worker[T] {
	w.onSuccess = append(w.onSuccess, fn)
	return w
}

// OnError registers fn for items whose processing failed.
func (w *Worker[T]) OnError(fn ErrorFunc[T]) *Worker[T] {
	w.onError = append(w.onError, fn)
	return w
}

// Start runs the worker loop on its own goroutine.
func (w *Worker[T]) Start(ctx context.Context) *Worker[T] {
	w.Task.Start(ctx, w.run)
	return w
}

func (w *Worker[T]) run(ctx context.Context) error {
	for {
		item, ok := w.source.Pop()
		if !ok {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if w.limiter != nil {
			if err := w.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		if interrupted := w.handle(ctx, item); interrupted {
			return ctx.Err()
		}
	}
}

// handle runs the callback for one item and reports whether the run was
// cancelled underneath it.
func (w *Worker[T]) handle(ctx context.Context, item T) bool {
	key := w.keyOf(item)
	ctx, span := observability.StartSpan(ctx, observability.SpanProcessItem, trace.WithAttributes(
		attribute.Int(observability.AttrWorker, w.id),
		attribute.String(observability.AttrKey, key),
	))
	defer span.End()

	start := time.Now()
	var err error
	if recovered := panics.Try(func() { err = w.process(ctx, item, w.emitter) }); recovered != nil {
		err = fmt.Errorf("panic: %w", recovered.AsError())
	}

	if err != nil && ctx.Err() != nil && task.IsInterruption(err) {
		w.log.Debug("item abandoned on interrupt", logger.Fields(logger.FieldKey, key))
		return true
	}

	status := "ok"
	if err != nil {
		status = "error"
		observability.SetSpanError(ctx, err)
		for _, fn := range w.onError {
			fn(item, err)
		}
	} else {
		for _, fn := range w.onSuccess {
			fn(item)
		}
	}
	observability.SetSpanAttribute(ctx, observability.AttrStatus, status)
	if w.metrics != nil {
		w.metrics.RecordItem(ctx, status, time.Since(start))
	}
	return false
}
