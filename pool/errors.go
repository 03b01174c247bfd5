package pool

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfiguration is returned by New when the worker count or an
	// option value is unusable. No workers are started in that case.
	ErrInvalidConfiguration = errors.New("invalid pool configuration")

	// ErrPoolClosed is returned by Submit once shutdown has begun.
	// The task is not queued.
	ErrPoolClosed = errors.New("submit on closed pool")

	// ErrNilTask is returned by Submit when the work function is nil.
	ErrNilTask = errors.New("nil task submitted")

	// ErrShutdownTimeout is returned when a bounded shutdown gives up waiting.
	// The workers keep draining the queue in the background.
	ErrShutdownTimeout = errors.New("error in shutting down: timeout reached")

	// ErrTaskExited is the cause inside the *TaskError delivered for a task
	// that called runtime.Goexit instead of returning.
	ErrTaskExited = errors.New("task exited without returning")

	// ErrTaskFailed matches every *TaskError via errors.Is.
	ErrTaskFailed = errors.New("task failed")
)

// TaskError reports the failure of a submitted task. It is delivered only
// through the task's Future; the pool never logs or retries it.
//
// For a task that returned an error, Err holds that error and Unwrap exposes
// it. For a task that panicked, Panicked is set, PanicValue holds the value
// passed to panic and Stack holds the goroutine stack at the point of recovery.
type TaskError struct {
	TaskID     uint64
	Err        error
	Panicked   bool
	PanicValue any
	Stack      []byte
}

func (e *TaskError) Error() string {
	if e.Panicked {
		return fmt.Sprintf("task %d panicked: %v\nstack trace:\n%s", e.TaskID, e.PanicValue, e.Stack)
	}
	return fmt.Sprintf("task %d failed: %v", e.TaskID, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrTaskFailed) true for any task failure.
func (e *TaskError) Is(target error) bool {
	return target == ErrTaskFailed
}

// invalidConfig wraps ErrInvalidConfiguration with a formatted reason.
func invalidConfig(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfiguration, fmt.Sprintf(format, args...))
}
