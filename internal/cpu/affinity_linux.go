//go:build linux

package cpu

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

// pinToCore pins the current OS thread to a specific CPU core.
// Must be called after runtime.LockOSThread().
func pinToCore(core int) error {
	var mask unix.CPUSet
	mask.Zero()
	mask.Set(core)

	if err := unix.SchedSetaffinity(0, &mask); err != nil { // 0 = current thread
		return fmt.Errorf("pin thread to cpu %d: %w", core, err)
	}
	return nil
}

// LockWorker locks the calling goroutine to its OS thread and, if pin is
// set, restricts that thread to the core derived from workerID.
// The returned release func must be deferred by the worker. The thread
// stays locked even when pinning fails; the error is informational.
func LockWorker(workerID int, pin bool) (release func(), err error) {
	runtime.LockOSThread()
	release = runtime.UnlockOSThread

	if pin {
		err = pinToCore(coreFor(workerID))
	}
	return release, err
}
