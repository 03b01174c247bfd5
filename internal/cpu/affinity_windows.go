//go:build windows

package cpu

import (
	"fmt"
	"runtime"
	"syscall"
)

var (
	kernel32              = syscall.NewLazyDLL("kernel32.dll")
	setThreadAffinityMask = kernel32.NewProc("SetThreadAffinityMask")
	getCurrentThread      = kernel32.NewProc("GetCurrentThread")
)

// pinToCore pins the current OS thread to a specific CPU core.
// Must be called after runtime.LockOSThread().
func pinToCore(core int) error {
	handle, _, _ := getCurrentThread.Call()

	// Bit N = CPU N
	mask := uintptr(1) << uint(core)

	prevMask, _, err := setThreadAffinityMask.Call(handle, mask)
	if prevMask == 0 {
		return fmt.Errorf("pin thread to cpu %d: %w", core, err)
	}
	return nil
}

// LockWorker locks the calling goroutine to its OS thread and, if pin is
// set, restricts that thread to the core derived from workerID.
func LockWorker(workerID int, pin bool) (release func(), err error) {
	runtime.LockOSThread()
	release = runtime.UnlockOSThread

	if pin {
		err = pinToCore(coreFor(workerID))
	}
	return release, err
}
