//go:build darwin

package cpu

import "runtime"

// LockWorker locks the goroutine to an OS thread.
// CPU pinning is not available on macOS, so pin is ignored.
func LockWorker(workerID int, pin bool) (release func(), err error) {
	runtime.LockOSThread()
	return runtime.UnlockOSThread, nil
}
