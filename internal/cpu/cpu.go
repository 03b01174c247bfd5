// Package cpu binds pool workers to operating-system threads.
//
// Go schedules goroutines onto threads itself; a worker that calls
// LockWorker keeps its own dedicated OS thread for the rest of its life
// and, when pinning is requested and supported, stays on one CPU core.
package cpu

import "runtime"

// NumCPU returns the number of logical CPUs available.
func NumCPU() int {
	return runtime.NumCPU()
}

// coreFor maps a worker index onto a valid core index.
func coreFor(workerID int) int {
	n := runtime.NumCPU()
	if workerID < 0 {
		workerID = -workerID
	}
	return workerID % n
}
