package pool

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

const (
	defaultName          = "pool"
	defaultQueueCapacity = 64
)

// Option is a functional option for configuring the pool.
type Option func(*poolConfig)

type poolConfig struct {
	ctx           context.Context
	name          string
	logger        *zap.Logger
	queueCapacity int

	lockThreads bool
	pinThreads  bool

	beforeTaskStart func(taskID uint64)
	onTaskEnd       func(taskID uint64, err error)
	metrics         MetricsRecorder

	// errs collects rejected option values; New reports them all at once.
	errs []error
}

// WithContext sets the context handed to every task. The pool never
// cancels it: shutdown drains the queue instead of interrupting work.
// Defaults to context.Background().
func WithContext(ctx context.Context) Option {
	return func(cfg *poolConfig) {
		if ctx == nil {
			cfg.errs = append(cfg.errs, invalidConfig("nil context"))
			return
		}
		cfg.ctx = ctx
	}
}

// WithName sets the name used in log records and metric labels.
func WithName(name string) Option {
	return func(cfg *poolConfig) {
		if name != "" {
			cfg.name = name
		}
	}
}

// WithLogger sets the logger for pool lifecycle events (start, shutdown,
// drained). Task failures are never logged. By default nothing is logged.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *poolConfig) {
		if logger == nil {
			cfg.errs = append(cfg.errs, invalidConfig("nil logger"))
			return
		}
		cfg.logger = logger
	}
}

// WithQueueCapacity sets the initial capacity of the pending-task queue.
// The queue is unbounded and grows past this value as needed; a larger
// starting capacity only avoids early reallocation.
func WithQueueCapacity(capacity int) Option {
	return func(cfg *poolConfig) {
		if capacity < 0 {
			cfg.errs = append(cfg.errs, invalidConfig("negative queue capacity %d", capacity))
			return
		}
		if capacity > 0 {
			cfg.queueCapacity = capacity
		}
	}
}

// WithThreadAffinity gives every worker its own locked OS thread. When pin
// is true each thread is additionally bound to one CPU core where the
// platform supports it (Linux, Windows).
func WithThreadAffinity(pin bool) Option {
	return func(cfg *poolConfig) {
		cfg.lockThreads = true
		cfg.pinThreads = pin
	}
}

// WithBeforeTaskStart registers a hook called by the worker right before
// it runs a task. A panicking hook is recovered and ignored.
func WithBeforeTaskStart(fn func(taskID uint64)) Option {
	return func(cfg *poolConfig) {
		cfg.beforeTaskStart = fn
	}
}

// WithOnTaskEnd registers a hook called after a task finishes and before
// its result is published. err is the *TaskError delivered to the Future,
// or nil. A panicking hook is recovered and ignored.
func WithOnTaskEnd(fn func(taskID uint64, err error)) Option {
	return func(cfg *poolConfig) {
		cfg.onTaskEnd = fn
	}
}

// WithMetrics attaches a recorder for submission, rejection, queue depth and
// task duration events. See the metrics package for a Prometheus exporter.
func WithMetrics(m MetricsRecorder) Option {
	return func(cfg *poolConfig) {
		cfg.metrics = m
	}
}

func createConfig(opts ...Option) (*poolConfig, error) {
	cfg := &poolConfig{
		ctx:           context.Background(),
		name:          defaultName,
		logger:        zap.NewNop(),
		queueCapacity: defaultQueueCapacity,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if len(cfg.errs) > 0 {
		return nil, errors.Join(cfg.errs...)
	}
	return cfg, nil
}
