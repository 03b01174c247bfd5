package pool

import (
	"context"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/utkarsh5026/fixedpool/internal/cpu"
	"github.com/utkarsh5026/fixedpool/internal/types"
)

// worker is the consume loop run by each of the pool's goroutines.
// It parks inside Pop while the queue is empty and returns once the queue
// has been closed and drained.
func (p *Pool[R]) worker(workerID int) error {
	if p.conf.lockThreads {
		release, err := cpu.LockWorker(workerID, p.conf.pinThreads)
		defer release()
		if err != nil {
			p.logger.Warn("cpu pinning unavailable", zap.Int("worker", workerID), zap.Error(err))
		}
	}

	for {
		task, ok := p.queue.Pop()
		if !ok {
			return nil
		}

		depth := p.queue.Len()
		p.record(func(m MetricsRecorder) { m.RecordQueueDepth(p.conf.name, depth) })
		p.execute(workerID, task)
	}
}

// execute runs one task outside of any lock and publishes its outcome.
// Counters and the end hook are updated before the Future resolves, so a
// caller that has observed the result also observes the bookkeeping.
//
// A task that calls runtime.Goexit unwinds past recover. The deferred check
// still resolves its Future with ErrTaskExited and starts a replacement
// worker before this goroutine dies, so the pool keeps its size.
func (p *Pool[R]) execute(workerID int, t *types.Task[R]) {
	p.active.Add(1)
	start := time.Now()
	returned := false

	defer func() {
		p.active.Add(-1)
		if returned {
			return
		}

		var zero R
		p.finish(t, time.Since(start), zero, &TaskError{TaskID: t.ID, Err: ErrTaskExited})
		p.logger.Warn("task exited its worker, starting a replacement",
			zap.Uint64("task", t.ID), zap.Int("worker", workerID))
		p.group.Go(func() error {
			return p.worker(workerID)
		})
	}()

	if hook := p.conf.beforeTaskStart; hook != nil {
		safeCall(func() { hook(t.ID) })
	}

	value, err := runWithRecovery(p.conf.ctx, t)
	returned = true

	p.finish(t, time.Since(start), value, err)
}

// finish does the bookkeeping for a completed task and resolves its Future.
func (p *Pool[R]) finish(t *types.Task[R], elapsed time.Duration, value R, err error) {
	if err != nil {
		p.failed.Add(1)
	}
	p.completed.Add(1)

	p.record(func(m MetricsRecorder) {
		m.RecordTaskDuration(p.conf.name, elapsed, err != nil)
		if te, ok := err.(*TaskError); ok && te.Panicked {
			m.RecordTaskPanic(p.conf.name)
		}
	})

	if hook := p.conf.onTaskEnd; hook != nil {
		safeCall(func() { hook(t.ID, err) })
	}

	t.Promise.Resolve(value, err)
}

// runWithRecovery calls the task function and turns both returned errors
// and panics into a *TaskError. Exactly one of value or err is meaningful.
func runWithRecovery[R any](ctx context.Context, t *types.Task[R]) (value R, err error) {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)

			var zero R
			value = zero
			err = &TaskError{
				TaskID:     t.ID,
				Panicked:   true,
				PanicValue: r,
				Stack:      buf[:n],
			}
		}
	}()

	value, err = t.Fn(ctx)
	if err != nil {
		var zero R
		return zero, &TaskError{TaskID: t.ID, Err: err}
	}
	return value, nil
}
