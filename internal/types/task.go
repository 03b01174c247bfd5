package types

import "context"

// Func is a zero-argument deferred computation. Callers bind their own
// arguments by closure before submission.
type Func[R any] func(ctx context.Context) (R, error)

// Task is a unit of work queued in a pool: the callable plus the write side
// of its result cell. The queue owns a Task until one worker pops it; from
// then on that worker owns it exclusively.
type Task[R any] struct {
	ID      uint64
	Fn      Func[R]
	Promise *Promise[R]
}

// NewTask wraps fn into a Task and returns the Future the submitter keeps.
func NewTask[R any](id uint64, fn Func[R]) (*Task[R], *Future[R]) {
	p, f := NewPromise[R](id)
	return &Task[R]{ID: id, Fn: fn, Promise: p}, f
}
