package pipeline

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/sweep/errors"
	"github.com/kbukum/sweep/logger"
	"github.com/kbukum/sweep/observability"
	"github.com/kbukum/sweep/queue"
	"github.com/kbukum/sweep/task"
)

// Lister pages through a Source and pushes every item onto the work queue.
type Lister[T any] struct {
	*task.Task

	source   Source[T]
	dest     *queue.Bounded[T]
	prefix   string
	pageSize int
	onChunk  []func(chunk []T)
	log      *logger.Logger
}

// NewLister creates a Lister that fills dest from source.
func NewLister[T any](source Source[T], dest *queue.Bounded[T], prefix string, pageSize int, log *logger.Logger) *Lister[T] {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return &Lister[T]{
		Task:     task.New("lister"),
		source:   source,
		dest:     dest,
		prefix:   prefix,
		pageSize: pageSize,
		log:      log.WithComponent("lister"),
	}
}

// OnChunk registers fn to be called with each non-empty page before its
// items are queued.
func (l *Lister[T]) OnChunk(fn func(chunk []T)) *Lister[T] {
	l.onChunk = append(l.onChunk, fn)
	return l
}

// Start runs the listing loop on its own goroutine.
func (l *Lister[T]) Start(ctx context.Context) *Lister[T] {
	l.Task.Start(ctx, l.run)
	return l
}

func (l *Lister[T]) run(ctx context.Context) error {
	marker := ""
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		items, err := l.fetch(ctx, page, marker)
		if err != nil {
			if ctx.Err() != nil && task.IsInterruption(err) {
				return err
			}
			return errors.ListingFailed(marker, err)
		}
		if len(items) == 0 {
			l.log.Debug("listing complete", logger.Fields(logger.FieldPage, page, logger.FieldMarker, marker))
			return nil
		}

		l.log.Debug("page fetched", logger.Fields(
			logger.FieldPage, page,
			"size", len(items),
			logger.FieldMarker, marker,
		))

		for _, fn := range l.onChunk {
			fn(items)
		}
		for _, item := range items {
			if err := ctx.Err(); err != nil {
				return err
			}
			l.dest.Push(item)
		}
		marker = l.source.Key(items[len(items)-1])
	}
}

func (l *Lister[T]) fetch(ctx context.Context, page int, marker string) ([]T, error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanFetchPage, trace.WithAttributes(
		attribute.Int(observability.AttrPage, page),
	))
	defer span.End()

	items, err := l.source.FetchPage(ctx, l.prefix, marker, l.pageSize)
	if err != nil {
		observability.SetSpanError(ctx, err)
	}
	return items, err
}
