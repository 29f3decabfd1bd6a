package pipeline

import (
	"context"
	"sync/atomic"

	"github.com/kbukum/sweep/queue"
	"github.com/kbukum/sweep/task"
)

// AggregateFunc is a Reporter's aggregation routine. It is called once when
// the Reporter starts. It either registers a sink with Each and returns, or
// consumes reports itself with Pop until the end marker.
type AggregateFunc func(r *Reporter)

// Reporter owns the report queue and its single consumer.
type Reporter struct {
	*task.Task

	reports   *queue.Bounded[Report]
	aggregate AggregateFunc
	sink      func(Report)
	drained   atomic.Bool
}

// NewReporter creates a Reporter whose queue holds up to capacity reports.
func NewReporter(capacity int, aggregate AggregateFunc) *Reporter {
	r := &Reporter{
		Task:      task.New("reporter"),
		reports:   queue.NewBounded[Report](capacity),
		aggregate: aggregate,
	}
	// Nothing consumes reports once the drain stops; open the queue so
	// late producers do not block.
	r.Task.OnFinish(func() { r.reports.SetCapacity(queue.Unbounded) })
	return r
}

// Report queues a report, blocking while the report queue is full.
func (r *Reporter) Report(kind Kind, payload any) {
	r.reports.Push(Report{Kind: kind, Payload: payload})
}

// Each sets the sink the default drain loop forwards reports to.
func (r *Reporter) Each(sink func(Report)) {
	r.sink = sink
}

// Pop takes the next report. ok is false once the end marker is reached.
func (r *Reporter) Pop() (rep Report, ok bool) {
	rep, ok = r.reports.Pop()
	if !ok {
		r.drained.Store(true)
	}
	return rep, ok
}

// Backlog returns the number of reports waiting.
func (r *Reporter) Backlog() int { return r.reports.Len() }

// Cap returns the current report queue capacity.
func (r *Reporter) Cap() int { return r.reports.Cap() }

// SetCapacity raises the report queue capacity.
func (r *Reporter) SetCapacity(n int) { r.reports.SetCapacity(n) }

// Start runs the aggregation routine, then the default drain loop unless
// the routine already consumed the end marker.
func (r *Reporter) Start(ctx context.Context) *Reporter {
	r.Task.Start(ctx, r.run)
	return r
}

// The drain loop ignores ctx: it always runs to the end marker so that
// producers are never left blocked on a full report queue.
func (r *Reporter) run(context.Context) error {
	if r.aggregate != nil {
		r.aggregate(r)
	}
	if r.drained.Load() {
		return nil
	}
	for {
		rep, ok := r.Pop()
		if !ok {
			return nil
		}
		if r.sink != nil {
			r.sink(rep)
		}
	}
}

// Join queues the end marker and waits for the drain and finish hooks.
func (r *Reporter) Join() error {
	r.reports.PushEnd()
	return r.Task.Join()
}
