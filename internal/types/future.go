package types

import (
	"context"
	"sync/atomic"
	"time"
)

// Future is the read side of a one-shot result cell. It is handed to the
// submitter and is the only way to observe the outcome of a task.
//
// A Future is written exactly once by its Promise. Every read after that
// observes the same value and error, from any number of goroutines.
type Future[R any] struct {
	id    uint64
	done  chan struct{}
	value R
	err   error
}

// Promise is the write side of a one-shot result cell. It is held by the
// worker executing the task.
type Promise[R any] struct {
	future   *Future[R]
	resolved atomic.Bool
}

// NewPromise creates a linked Promise/Future pair for the task with the given id.
func NewPromise[R any](id uint64) (*Promise[R], *Future[R]) {
	f := &Future[R]{
		id:   id,
		done: make(chan struct{}),
	}
	return &Promise[R]{future: f}, f
}

// Resolve stores the outcome and wakes every waiter. Only the first call has
// any effect; it reports whether this call was the one that stored the result.
func (p *Promise[R]) Resolve(value R, err error) bool {
	if !p.resolved.CompareAndSwap(false, true) {
		return false
	}

	p.future.value = value
	p.future.err = err
	close(p.future.done)
	return true
}

// ID returns the submission sequence number of the task behind this future.
func (f *Future[R]) ID() uint64 {
	return f.id
}

// Done returns a channel that is closed once the result is available.
// Useful in select statements alongside other channels.
func (f *Future[R]) Done() <-chan struct{} {
	return f.done
}

// IsReady reports whether the result is available without blocking.
func (f *Future[R]) IsReady() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Get blocks until the task has completed and returns its value or failure.
// It returns immediately if the result is already available.
func (f *Future[R]) Get() (R, error) {
	<-f.done
	return f.value, f.err
}

// TryGet returns the result if it is available. ready is false when the task
// has not completed yet, in which case value and err are zero.
func (f *Future[R]) TryGet() (value R, ready bool, err error) {
	select {
	case <-f.done:
		return f.value, true, f.err
	default:
		return value, false, nil
	}
}

// GetWithContext waits for the result or for ctx to be done, whichever comes
// first. Giving up the wait does not stop the task: it still runs to completion
// and a later Get observes its outcome.
func (f *Future[R]) GetWithContext(ctx context.Context) (R, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	}
}

// GetWithTimeout waits at most timeout for the result. A non-positive timeout
// waits forever. On expiry it returns context.DeadlineExceeded.
func (f *Future[R]) GetWithTimeout(timeout time.Duration) (R, error) {
	if timeout <= 0 {
		return f.Get()
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return f.GetWithContext(ctx)
}
