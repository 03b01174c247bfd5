// Package pool provides a fixed-size worker pool that runs submitted
// functions and hands back a Future for each result.
//
// The primary type is Pool[R], a set of N workers created up front that
// consume a single unbounded FIFO queue. Submitting never blocks; tasks are
// dequeued strictly in the order they were accepted; every accepted task
// runs exactly once, even across shutdown.
//
// # Basic Usage
//
//	p, err := pool.New[int](4)
//	if err != nil {
//	    return err
//	}
//	defer p.Shutdown()
//
//	future, err := p.Submit(func(ctx context.Context) (int, error) {
//	    return 6 * 7, nil
//	})
//	if err != nil {
//	    return err // ErrPoolClosed after shutdown
//	}
//	answer, err := future.Get()
//
// Arguments are bound by closure. Go accepts a context-free function:
//
//	future, _ := p.Go(func() (int, error) { return add(a, b), nil })
//
// # Failures
//
// A task that returns an error or panics does not affect its worker or any
// other task. The failure is wrapped in a *TaskError and delivered only
// through the task's Future:
//
//	_, err := future.Get()
//	var te *pool.TaskError
//	if errors.As(err, &te) && te.Panicked {
//	    log.Printf("task %d panicked: %v", te.TaskID, te.PanicValue)
//	}
//
// The pool never logs, retries or drops a failure. Use the retry package to
// resubmit failed work with backoff.
//
// # Shutdown
//
// Shutdown rejects further submissions with ErrPoolClosed, wakes every idle
// worker, and blocks until the queue is drained and all workers have exited.
// It is idempotent. ShutdownWithContext and ShutdownTimeout bound the wait.
// Calling Shutdown from inside a task deadlocks, since the task's own worker
// can never exit.
//
// # Configuration Options
//
//   - WithContext(ctx): context passed to every task (never cancelled by the pool)
//   - WithName(name): label for logs and metrics
//   - WithLogger(logger): zap logger for lifecycle events
//   - WithQueueCapacity(n): initial queue capacity (the queue still grows)
//   - WithThreadAffinity(pin): lock workers to OS threads, optionally pin to cores
//   - WithBeforeTaskStart / WithOnTaskEnd: per-task hooks
//   - WithMetrics(recorder): event sink, see the metrics package
package pool
