package pool

import (
	"time"

	"github.com/utkarsh5026/fixedpool/internal/types"
)

// Func is a unit of work: a zero-argument computation producing a value of
// type R or an error. Callers bind their own arguments by closure.
//
// The context passed in is the pool's base context (see WithContext).
type Func[R any] = types.Func[R]

// Future is the caller's handle on a submitted task. Get blocks until the
// task has run and returns either its value or a *TaskError.
//
// Methods:
//   - Get: block until the result is ready
//   - GetWithContext / GetWithTimeout: bound the wait (the task keeps running)
//   - TryGet / IsReady / Done: non-blocking inspection
//   - ID: the task's submission id
type Future[R any] = types.Future[R]

// State is the lifecycle phase of a pool. It only ever moves forward.
type State int32

const (
	// StateRunning accepts submissions.
	StateRunning State = iota
	// StateShuttingDown rejects submissions while workers drain the queue.
	StateShuttingDown
	// StateTerminated means every worker has exited and the queue is empty.
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateShuttingDown:
		return "shutting-down"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Stats is a point-in-time snapshot of pool activity. Fields are read
// independently, so under load they need not add up exactly.
type Stats struct {
	Name      string
	State     State
	Workers   int
	Queued    int    // tasks waiting in the queue
	Active    int    // tasks currently executing
	Submitted uint64 // tasks accepted by Submit
	Completed uint64 // tasks whose result has been delivered
	Failed    uint64 // completed tasks that returned an error or panicked
	Rejected  uint64 // submissions refused (closed pool or nil task)
}

// MetricsRecorder receives pool events. Implementations must be safe for
// concurrent use; they are called from submitters and workers directly.
type MetricsRecorder interface {
	RecordSubmitted(pool string)
	RecordRejected(pool string, reason string)
	RecordQueueDepth(pool string, depth int)
	RecordTaskDuration(pool string, d time.Duration, failed bool)
	RecordTaskPanic(pool string)
}

// Rejection reasons passed to MetricsRecorder.RecordRejected.
const (
	RejectClosed  = "closed"
	RejectNilTask = "nil_task"
)
