package pool

import "time"

// waitUntil blocks until either the done channel is closed or the timeout is reached.
// It is used during graceful shutdown to wait for workers to complete their tasks.
func waitUntil(d <-chan struct{}, timeout time.Duration) error {
	if timeout <= 0 {
		<-d
		return nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-d:
		return nil
	case <-timer.C:
		return ErrShutdownTimeout
	}
}

// safeCall runs a user hook or recorder call, swallowing any panic so a
// misbehaving callback cannot take down the goroutine that invoked it.
func safeCall(fn func()) {
	defer func() {
		_ = recover()
	}()
	fn()
}
