package pool

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/utkarsh5026/fixedpool/internal/queue"
	"github.com/utkarsh5026/fixedpool/internal/types"
)

// Pool is a fixed-size set of workers consuming a single FIFO queue of
// submitted tasks.
//
// Workers are started by New and live until Shutdown; their number never
// changes. Submit never blocks: tasks beyond what the workers can take are
// buffered in an unbounded queue and served strictly in arrival order.
//
// Type parameters:
//   - R: The result type produced by tasks (use any for mixed results)
type Pool[R any] struct {
	conf    *poolConfig
	logger  *zap.Logger
	workers int

	queue *queue.FIFO[*types.Task[R]]
	group errgroup.Group // every worker, including replacements
	state atomic.Int32
	done  chan struct{} // closed when every worker has exited

	nextID    atomic.Uint64
	active    atomic.Int64
	submitted atomic.Uint64
	completed atomic.Uint64
	failed    atomic.Uint64
	rejected  atomic.Uint64
}

// New creates a pool and starts exactly workers worker goroutines before it
// returns.
//
// A worker count below one is rejected with ErrInvalidConfiguration rather
// than producing a pool that accepts tasks it can never run. Invalid option
// values are rejected the same way. On error no goroutine is left running.
//
// Example:
//
//	p, err := pool.New[string](4, pool.WithName("thumbnails"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer p.Shutdown()
//
//	future, _ := p.Submit(func(ctx context.Context) (string, error) {
//	    return render(ctx, "cat.png")
//	})
//	thumb, err := future.Get()
func New[R any](workers int, opts ...Option) (*Pool[R], error) {
	if workers <= 0 {
		return nil, invalidConfig("worker count must be positive, got %d", workers)
	}

	cfg, err := createConfig(opts...)
	if err != nil {
		return nil, err
	}

	p := &Pool[R]{
		conf:    cfg,
		logger:  cfg.logger.With(zap.String("pool", cfg.name)),
		workers: workers,
		queue:   queue.New[*types.Task[R]](cfg.queueCapacity),
		done:    make(chan struct{}),
	}
	p.state.Store(int32(StateRunning))

	for i := range workers {
		p.group.Go(func() error {
			return p.worker(i)
		})
	}

	go func() {
		_ = p.group.Wait()
		p.state.Store(int32(StateTerminated))
		p.logger.Info("pool drained", zap.Uint64("completed", p.completed.Load()))
		close(p.done)
	}()

	p.logger.Info("pool started", zap.Int("workers", workers))
	return p, nil
}

// Submit queues work for execution and returns a Future for its result.
// It never waits for the task to start or finish.
//
// Returns:
//   - future: resolves to the work's value, or to a *TaskError if it failed
//   - error: ErrPoolClosed once shutdown has begun, ErrNilTask for nil work
//
// Tasks accepted by Submit are dequeued in the order they were accepted and
// are guaranteed to run, even if Shutdown is called right after.
func (p *Pool[R]) Submit(work Func[R]) (*Future[R], error) {
	if work == nil {
		p.reject(RejectNilTask)
		return nil, ErrNilTask
	}

	if p.State() != StateRunning {
		p.reject(RejectClosed)
		return nil, ErrPoolClosed
	}

	task, future := types.NewTask(p.nextID.Add(1), work)

	if err := p.queue.Push(task); err != nil {
		if errors.Is(err, queue.ErrQueueClosed) {
			p.reject(RejectClosed)
			return nil, ErrPoolClosed
		}
		return nil, err
	}

	p.submitted.Add(1)
	p.record(func(m MetricsRecorder) {
		m.RecordSubmitted(p.conf.name)
		m.RecordQueueDepth(p.conf.name, p.queue.Len())
	})
	return future, nil
}

// Go is Submit for work that does not need the pool context.
func (p *Pool[R]) Go(work func() (R, error)) (*Future[R], error) {
	if work == nil {
		p.reject(RejectNilTask)
		return nil, ErrNilTask
	}

	return p.Submit(func(context.Context) (R, error) {
		return work()
	})
}

// Shutdown stops the pool from accepting tasks, lets the workers drain
// everything already queued, and blocks until all of them have exited.
//
// It is safe to call more than once and from several goroutines: the
// first call starts the shutdown, every call returns once the pool has
// terminated.
func (p *Pool[R]) Shutdown() {
	p.beginShutdown()
	<-p.done
}

// ShutdownWithContext starts shutdown like Shutdown but waits only until
// ctx is done. On expiry it returns an error wrapping both
// ErrShutdownTimeout and ctx.Err(); queued tasks still run to completion in
// the background and their futures still resolve.
func (p *Pool[R]) ShutdownWithContext(ctx context.Context) error {
	p.beginShutdown()

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrShutdownTimeout, ctx.Err())
	}
}

// ShutdownTimeout starts shutdown and waits at most timeout for the workers
// to finish (0 = wait forever).
//
// Example:
//
//	if err := p.ShutdownTimeout(5 * time.Second); err != nil {
//	    log.Printf("shutdown error: %v", err)
//	}
func (p *Pool[R]) ShutdownTimeout(timeout time.Duration) error {
	p.beginShutdown()
	return waitUntil(p.done, timeout)
}

// Close implements io.Closer. It is Shutdown and always returns nil.
func (p *Pool[R]) Close() error {
	p.Shutdown()
	return nil
}

// Done returns a channel closed once the pool has terminated.
func (p *Pool[R]) Done() <-chan struct{} {
	return p.done
}

// Workers returns the fixed number of workers.
func (p *Pool[R]) Workers() int {
	return p.workers
}

// Name returns the name set with WithName.
func (p *Pool[R]) Name() string {
	return p.conf.name
}

// State returns the current lifecycle phase.
func (p *Pool[R]) State() State {
	return State(p.state.Load())
}

// Stats returns a snapshot of the pool's counters.
func (p *Pool[R]) Stats() Stats {
	return Stats{
		Name:      p.conf.name,
		State:     p.State(),
		Workers:   p.workers,
		Queued:    p.queue.Len(),
		Active:    int(p.active.Load()),
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
		Rejected:  p.rejected.Load(),
	}
}

// beginShutdown performs the one-time running -> shutting-down transition.
// The queue is closed after the state flips, so a Submit racing with it
// is either queued (and later drained) or rejected, never lost.
func (p *Pool[R]) beginShutdown() {
	if !p.state.CompareAndSwap(int32(StateRunning), int32(StateShuttingDown)) {
		return
	}

	p.logger.Info("pool shutting down", zap.Int("queued", p.queue.Len()))
	p.queue.Close()
}

func (p *Pool[R]) reject(reason string) {
	p.rejected.Add(1)
	p.record(func(m MetricsRecorder) { m.RecordRejected(p.conf.name, reason) })
}

// record forwards an event to the metrics recorder, if any. A panicking
// recorder is contained like a panicking hook.
func (p *Pool[R]) record(fn func(m MetricsRecorder)) {
	if m := p.conf.metrics; m != nil {
		safeCall(func() { fn(m) })
	}
}
