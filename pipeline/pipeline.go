package pipeline

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/sweep/errors"
	"github.com/kbukum/sweep/logger"
	"github.com/kbukum/sweep/observability"
	"github.com/kbukum/sweep/queue"
	"github.com/kbukum/sweep/resilience"
)

// Pipeline wires one Lister, N Workers and a Reporter for a single run.
// A Pipeline cannot be run twice.
type Pipeline[T any] struct {
	runID    string
	settings *settings
	log      *logger.Logger

	items    *queue.Bounded[T]
	stats    *Stats
	reporter *Reporter
	lister   *Lister[T]
	workers  []*Worker[T]

	mu          sync.Mutex
	started     bool
	cancel      context.CancelFunc
	interrupted atomic.Bool
}

// New builds a pipeline over src that runs process on every listed item.
func New[T any](src Source[T], process ProcessFunc[T], opts ...Option) *Pipeline[T] {
	s := resolveSettings(opts)
	runID := uuid.NewString()
	log := s.log.WithFields(logger.Fields(logger.FieldRunID, runID))

	p := &Pipeline[T]{
		runID:    runID,
		settings: s,
		log:      log.WithComponent("pipeline"),
		items:    queue.NewBounded[T](s.opts.QueueCapacity),
	}

	p.stats = NewStats(StatsConfig{
		Logger:          log,
		SummaryInterval: s.opts.SummaryInterval,
		EMAContribution: s.opts.EMAContribution,
		Clock:           s.clock,
		Metrics:         s.metrics,
		Backlog:         p.items.Items,
	})
	p.reporter = NewReporter(s.opts.ReportCapacity, p.stats.Aggregate)
	p.reporter.OnFinish(p.stats.LogTotals)
	p.reporter.OnFatal(func(err error) {
		p.log.Error("report aggregation failed", logger.Fields(logger.FieldError, err))
		p.drain()
	})

	p.lister = NewLister(src, p.items, s.opts.Prefix, s.opts.PageSize, log)
	p.lister.OnChunk(func(chunk []T) {
		p.reporter.Report(KindListed, len(chunk))
	})
	p.lister.OnFatal(func(err error) {
		p.log.Error("listing failed; draining queued items", logger.Fields(logger.FieldError, err))
	})

	var limiter *resilience.RateLimiter
	if s.opts.RateLimit > 0 {
		limiter = resilience.NewRateLimiter(resilience.RateLimiterConfig{
			Name: "pipeline",
			Rate: s.opts.RateLimit,
		})
	}

	p.workers = make([]*Worker[T], s.opts.Workers)
	for i := range p.workers {
		w := NewWorker(i+1, p.items, process, p.reporter, src.Key, log)
		w.WithRateLimiter(limiter).WithMetrics(s.metrics)
		w.OnSuccess(func(item T) {
			p.reporter.Report(KindSucceeded, src.Key(item))
			p.reporter.Report(KindProcessed, src.Key(item))
		})
		w.OnError(func(item T, err error) {
			key := src.Key(item)
			p.reporter.Report(KindFailed, Failure{Item: item, Key: key, Err: errors.ProcessingFailed(key, err)})
			p.reporter.Report(KindProcessed, key)
		})
		w.OnFinish(func() {
			w.log.Debug("worker finished")
		})
		p.workers[i] = w
	}

	// One end marker per worker, whatever way the listing stopped.
	p.lister.OnFinish(func() {
		for range p.workers {
			p.items.PushEnd()
		}
	})

	return p
}

// RunID returns the identifier attached to every log line of the run.
func (p *Pipeline[T]) RunID() string { return p.runID }

// Options returns the effective options after defaults.
func (p *Pipeline[T]) Options() Options { return p.settings.opts }

// Capacities returns the current work and report queue capacities.
func (p *Pipeline[T]) Capacities() (items, reports int) {
	return p.items.Cap(), p.reporter.Cap()
}

// Run starts every task and blocks until all of them have finished.
//
// Cancelling ctx has the same effect as Interrupt. An interrupted run
// returns its Totals and a nil error. A failed listing or aggregation is
// returned as an error once the other tasks have stopped.
func (p *Pipeline[T]) Run(ctx context.Context) (Totals, error) {
	totals := Totals{RunID: p.runID}
	if err := p.settings.opts.Validate(); err != nil {
		return totals, err
	}

	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return totals, errors.New(errors.ErrCodeInternal, "pipeline already ran")
	}
	p.started = true
	// Only Interrupt cancels the run, so queues are always opened first.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	p.cancel = cancel
	p.mu.Unlock()
	defer cancel()

	if p.interrupted.Load() {
		cancel()
	}
	stop := context.AfterFunc(ctx, p.Interrupt)
	defer stop()

	runCtx, span := observability.StartSpan(runCtx, observability.SpanRun, trace.WithAttributes(
		attribute.String(observability.AttrRunID, p.runID),
	))
	defer span.End()

	o := p.settings.opts
	p.log.Info("run started", logger.Fields(
		"workers", o.Workers,
		"page_size", o.PageSize,
		"queue_capacity", o.QueueCapacity,
		"report_capacity", o.ReportCapacity,
		"prefix", o.Prefix,
	))

	p.reporter.Start(runCtx)
	p.lister.Start(runCtx)
	for _, w := range p.workers {
		w.Start(runCtx)
	}

	var runErr error
	for _, w := range p.workers {
		if err := w.Join(); err != nil && runErr == nil {
			runErr = errors.Internal(err)
		}
	}
	if err := p.lister.Join(); err != nil {
		runErr = err
	}
	if err := p.reporter.Join(); err != nil && runErr == nil {
		runErr = errors.AggregationFailed(err)
	}

	totals = p.stats.Totals()
	totals.RunID = p.runID
	totals.Interrupted = p.interrupted.Load()

	switch {
	case runErr != nil:
		observability.SetSpanError(runCtx, runErr)
		p.log.Error("run failed", logger.Fields(logger.FieldError, runErr))
	case totals.Interrupted:
		p.log.Warn("run interrupted", logger.DurationFields(totals.Duration))
	default:
		p.log.Info("run completed", logger.DurationFields(totals.Duration))
	}
	return totals, runErr
}

// Interrupt stops the run: queue capacities are raised to queue.Unbounded
// first, then the run context is cancelled. Tasks finish their current
// item and run their finish hooks. Safe to call more than once and from
// any goroutine.
func (p *Pipeline[T]) Interrupt() {
	if !p.interrupted.CompareAndSwap(false, true) {
		return
	}
	p.log.Warn("interrupt received; draining")
	p.drain()
}

func (p *Pipeline[T]) drain() {
	p.items.SetCapacity(queue.Unbounded)
	p.reporter.SetCapacity(queue.Unbounded)

	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}
