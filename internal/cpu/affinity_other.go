//go:build !linux && !darwin && !windows

package cpu

import "runtime"

// LockWorker locks the goroutine to an OS thread. Pinning is unsupported
// on this platform and pin is ignored.
func LockWorker(workerID int, pin bool) (release func(), err error) {
	runtime.LockOSThread()
	return runtime.UnlockOSThread, nil
}
