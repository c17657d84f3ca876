// Package async is the Thread-shim Wrapper (C8): it runs cmdrunner.Run on
// a background goroutine and hands the caller a Future, so a caller
// consuming a queue or callback sink can interleave reads with the
// engine's execution instead of blocking on Run itself. It is a
// cooperating collaborator, not part of the core engine (spec.md §4.8).
//
// The done-channel idiom here is adapted from cluster.Worker's own
// Wait/done channel in worker.go, generalized from "wait for one
// supervised child" to "wait for one resolved value".
package async

import (
	"context"

	"github.com/riftproc/cmdrunner"
)

// Future resolves to the same (exit code, output) tuple cmdrunner.Run
// returns, once the background run completes.
type Future struct {
	done chan struct{}
	res  *cmdrunner.Result
}

// Run starts command on a background goroutine and returns immediately.
func Run(ctx context.Context, command cmdrunner.Command, opts ...cmdrunner.Option) *Future {
	f := &Future{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.res = cmdrunner.Run(ctx, command, opts...)
	}()
	return f
}

// Done returns a channel closed once Result is ready to read.
func (f *Future) Done() <-chan struct{} { return f.done }

// Wait blocks until the run completes or ctx is done, whichever comes
// first. A canceled ctx does not cancel the underlying run (that is
// what the ctx passed to Run is for) — it only bounds how long the
// caller is willing to wait for it, returning ctx.Err() in that case.
func (f *Future) Wait(ctx context.Context) (*cmdrunner.Result, error) {
	select {
	case <-f.done:
		return f.res, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TryResult returns the Result and true if the run has completed, or
// (nil, false) if it is still in flight.
func (f *Future) TryResult() (*cmdrunner.Result, bool) {
	select {
	case <-f.done:
		return f.res, true
	default:
		return nil, false
	}
}
