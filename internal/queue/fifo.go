package queue

import (
	"errors"
	"sync"
)

var (
	ErrQueueClosed = errors.New("queue is closed")
)

// defaultInitialCapacity is used when the caller does not ask for a specific
// starting size. The ring doubles whenever it fills up.
const defaultInitialCapacity = 64

// FIFO is an unbounded first-in-first-out queue shared by any number of
// producers and consumers.
//
// All state, including the closed flag, is guarded by a single mutex, so a
// Push can never race past Close: an item is either accepted before the
// queue closes or rejected with ErrQueueClosed. Consumers park on a
// condition variable; Push wakes one of them, Close wakes all of them.
type FIFO[T any] struct {
	mu       sync.Mutex
	notEmpty *sync.Cond

	// ring holds items in [head, head+size) modulo len(ring).
	// len(ring) is always a power of two.
	ring []T
	head int
	size int

	closed bool
}

// New creates an empty queue with room for capacity items before it has to
// grow. A non-positive capacity selects the default.
func New[T any](capacity int) *FIFO[T] {
	if capacity <= 0 {
		capacity = defaultInitialCapacity
	}

	q := &FIFO[T]{
		ring: make([]T, nextPowerOfTwo(capacity)),
	}
	q.notEmpty = sync.NewCond(&q.mu)
	return q
}

// Push appends v at the tail and wakes one waiting consumer.
// It never blocks beyond the critical section.
func (q *FIFO[T]) Push(v T) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}

	if q.size == len(q.ring) {
		q.grow()
	}

	q.ring[(q.head+q.size)&(len(q.ring)-1)] = v
	q.size++
	debugLog("push: size=%d cap=%d", q.size, len(q.ring))
	q.mu.Unlock()

	q.notEmpty.Signal()
	return nil
}

// Pop removes and returns the head item, blocking while the queue is empty
// and still open. ok is false only once the queue is closed and fully
// drained; after that every Pop returns immediately with ok == false.
func (q *FIFO[T]) Pop() (v T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.size == 0 && !q.closed {
		q.notEmpty.Wait()
	}

	if q.size == 0 {
		return v, false
	}
	return q.popLocked(), true
}

// TryPop removes the head item if there is one, without blocking.
func (q *FIFO[T]) TryPop() (v T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.size == 0 {
		return v, false
	}
	return q.popLocked(), true
}

// Close stops the queue from accepting new items and wakes every waiting
// consumer. Items already queued stay poppable. Closing twice is a no-op;
// the return value reports whether this call closed the queue.
func (q *FIFO[T]) Close() bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.closed = true
	debugLog("close: %d items left to drain", q.size)
	q.mu.Unlock()

	q.notEmpty.Broadcast()
	return true
}

// Len returns the number of queued items.
func (q *FIFO[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// Closed reports whether Close has been called.
func (q *FIFO[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

func (q *FIFO[T]) popLocked() T {
	var zero T
	v := q.ring[q.head]
	q.ring[q.head] = zero // drop the reference so the item can be collected
	q.head = (q.head + 1) & (len(q.ring) - 1)
	q.size--
	return v
}

// grow doubles the ring, unwrapping the live items to the front.
func (q *FIFO[T]) grow() {
	oldCap := len(q.ring)
	newRing := make([]T, oldCap<<1)

	for i := range q.size {
		newRing[i] = q.ring[(q.head+i)&(oldCap-1)]
	}

	q.ring = newRing
	q.head = 0
	debugLog("grow: cap %d -> %d", oldCap, len(newRing))
}

// nextPowerOfTwo returns the next power of 2 >= n
func nextPowerOfTwo(n int) int {
	if n <= 0 {
		return 1
	}

	if n&(n-1) == 0 {
		return n
	}

	power := 1
	for power < n {
		power *= 2
	}
	return power
}
