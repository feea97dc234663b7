package memoize

import (
	"context"
	"sync/atomic"
)

// Future is the eventual result of an asynchronously resolving call.
//
// Build one with Resolved, Rejected, Go or Defer; the zero value is not usable.
// Await may be called any number of times from any goroutine.
type Future[R any] struct {
	done    chan struct{}
	started atomic.Bool
	run     func(ctx context.Context) (R, error)

	value R
	err   error
}

// Resolved returns a Future already holding value.
func Resolved[R any](value R) *Future[R] {
	f := &Future[R]{done: make(chan struct{}), value: value}
	f.started.Store(true)
	close(f.done)
	return f
}

// Rejected returns a Future already holding err.
func Rejected[R any](err error) *Future[R] {
	f := &Future[R]{done: make(chan struct{}), err: err}
	f.started.Store(true)
	close(f.done)
	return f
}

// Go runs fn on a new goroutine and returns a Future for its result.
// It is meant for authors of AsyncFunc implementations.
func Go[R any](ctx context.Context, fn func(ctx context.Context) (R, error)) *Future[R] {
	f := &Future[R]{done: make(chan struct{})}
	f.started.Store(true)
	go func() {
		defer close(f.done)
		f.value, f.err = fn(ctx)
	}()
	return f
}

// Defer returns a Future that runs fn on the first Await, on the awaiting
// goroutine and with its context. Concurrent awaiters wait for that run.
func Defer[R any](fn func(ctx context.Context) (R, error)) *Future[R] {
	return &Future[R]{done: make(chan struct{}), run: fn}
}

// Await blocks until the Future resolves or ctx is done.
//
// When Await drives a deferred Future and ctx is cancelled mid-run, the
// Future resolves with whatever the run returned, typically ctx.Err().
func (f *Future[R]) Await(ctx context.Context) (R, error) {
	if f.started.CompareAndSwap(false, true) {
		defer close(f.done)
		f.value, f.err = f.run(ctx)
		return f.value, f.err
	}

	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	}
}

// Ready reports whether the Future has resolved.
func (f *Future[R]) Ready() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}
