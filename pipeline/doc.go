// Package pipeline runs a backpressured producer/consumer job over a paged
// item source.
//
// One Lister pages through a Source and pushes items onto a bounded work
// queue. N Workers pop items and run a ProcessFunc on each. Every component
// sends Reports to a single Reporter, whose aggregation routine (Stats by
// default) folds them into counters and logs a summary every
// SummaryInterval processed items.
//
// # Usage
//
//	src := pipeline.FromSlice(keys, func(k string) string { return k })
//	p := pipeline.New(src, func(ctx context.Context, key string, em pipeline.Emitter) error {
//	    em.Report(pipeline.KindUpdated, key)
//	    return nil
//	}, pipeline.WithWorkers(4))
//	totals, err := p.Run(ctx)
//
// # Shutdown
//
// Interrupt (or cancelling the ctx given to Run) first raises the capacity
// of both queues to queue.Unbounded so no producer stays blocked, then
// cancels the run. Every task still runs its finish hooks and the final
// summary is logged. An interrupted run returns its Totals and a nil error.
//
// A failed page fetch is fatal: workers drain what was already queued and
// Run returns the listing error. A failing item is only counted and logged.
package pipeline
