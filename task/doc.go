// Package task runs one unit of background work on its own goroutine and
// tracks its lifecycle.
//
// A Task runs its body exactly once, then runs its finish hooks in
// registration order, then unblocks Join. Hooks run on every exit path:
// normal return, interruption and fatal failure.
//
// Errors returned by the body fall into two tiers. Interruptions
// (context.Canceled, context.DeadlineExceeded, ErrInterrupted) are a silent
// exit path. Anything else, including a recovered panic, is fatal: it is
// handed to the OnFatal handler and returned from Join.
//
//	t := task.New("lister").
//	    OnFinish(func() { q.PushEnd() }).
//	    Start(ctx, func(ctx context.Context) error { return list(ctx) })
//	if err := t.Join(); err != nil {
//	    return err
//	}
package task
