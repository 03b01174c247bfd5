// Package retry resubmits failed work to a pool with backoff.
//
// A pool never retries on its own: a failed task is reported once through
// its Future and forgotten. Do is the caller-side loop that turns a failure
// into a fresh submission, waiting between attempts.
//
//	value, err := retry.Do(ctx, p, fetch,
//	    retry.WithMaxAttempts(5),
//	    retry.WithBackoff(retry.BackoffJittered, 50*time.Millisecond, 2*time.Second),
//	)
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/utkarsh5026/fixedpool/internal/backoff"
	"github.com/utkarsh5026/fixedpool/pool"
)

// BackoffKind selects how the delay grows between attempts.
type BackoffKind = backoff.Kind

const (
	BackoffExponential  = backoff.Exponential
	BackoffJittered     = backoff.Jittered
	BackoffDecorrelated = backoff.Decorrelated
)

// Submitter is the part of *pool.Pool that Do needs.
type Submitter[R any] interface {
	Submit(work pool.Func[R]) (*pool.Future[R], error)
}

// Option configures Do.
type Option func(*config)

type config struct {
	maxAttempts  int
	kind         backoff.Kind
	initialDelay time.Duration
	maxDelay     time.Duration
	jitter       float64
	retryIf      func(error) bool
	onRetry      func(attempt int, err error)
}

// WithMaxAttempts sets the total number of submissions, first one included.
// Values below one are ignored. Default: 3.
func WithMaxAttempts(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithBackoff sets the delay algorithm and its bounds.
// Default: exponential from 100ms, capped at 5s.
func WithBackoff(kind BackoffKind, initialDelay, maxDelay time.Duration) Option {
	return func(c *config) {
		c.kind = kind
		if initialDelay >= 0 {
			c.initialDelay = initialDelay
		}
		if maxDelay > 0 {
			c.maxDelay = maxDelay
		}
	}
}

// WithJitter sets the spread used by BackoffJittered (0.1 = ±10%).
func WithJitter(factor float64) Option {
	return func(c *config) {
		c.jitter = factor
	}
}

// WithRetryIf restricts retries to failures for which fn returns true.
// By default every task failure is retried.
func WithRetryIf(fn func(err error) bool) Option {
	return func(c *config) {
		c.retryIf = fn
	}
}

// WithOnRetry registers a callback invoked before each resubmission with the
// attempt number about to start (2 for the first retry) and the last error.
func WithOnRetry(fn func(attempt int, err error)) Option {
	return func(c *config) {
		c.onRetry = fn
	}
}

// Do submits work to s and waits for its result, resubmitting after a
// failure until it succeeds, the attempts run out, or ctx is done.
//
// Submission errors (pool.ErrPoolClosed, pool.ErrNilTask) end the loop at
// once. When the attempts are exhausted the last task failure is returned.
// Cancelling ctx abandons the wait; a task already running is not stopped.
func Do[R any](ctx context.Context, s Submitter[R], work pool.Func[R], opts ...Option) (R, error) {
	cfg := &config{
		maxAttempts:  3,
		kind:         backoff.Exponential,
		initialDelay: 100 * time.Millisecond,
		maxDelay:     5 * time.Second,
		jitter:       0.1,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	strategy := backoff.New(cfg.kind, cfg.initialDelay, cfg.maxDelay, cfg.jitter)

	var (
		zero    R
		lastErr error
	)

	for attempt := range cfg.maxAttempts {
		if attempt > 0 {
			if cfg.retryIf != nil && !cfg.retryIf(lastErr) {
				return zero, lastErr
			}
			if cfg.onRetry != nil {
				cfg.onRetry(attempt+1, lastErr)
			}
			if err := sleep(ctx, strategy.Next(attempt-1)); err != nil {
				return zero, err
			}
		}

		future, err := s.Submit(work)
		if err != nil {
			return zero, err
		}

		value, err := future.GetWithContext(ctx)
		if err == nil {
			return value, nil
		}
		if !errors.Is(err, pool.ErrTaskFailed) {
			// ctx ended while waiting
			return zero, err
		}
		lastErr = err
	}

	return zero, lastErr
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
