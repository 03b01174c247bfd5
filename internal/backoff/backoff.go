// Package backoff computes delays between successive retries of a failed
// task. Strategies are safe for concurrent use.
package backoff

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Kind selects the delay algorithm.
type Kind int

const (
	// Exponential doubles the delay on every retry (default).
	Exponential Kind = iota
	// Jittered is Exponential with a random spread of ±jitter.
	Jittered
	// Decorrelated picks each delay at random between the initial delay and
	// three times the previous one (AWS "decorrelated jitter").
	Decorrelated
)

// maxShift keeps 1<<attempt from overflowing.
const maxShift = 62

// Strategy yields the delay before retry number attempt (0 = first retry).
type Strategy interface {
	Next(attempt int) time.Duration
}

// New returns a Strategy of the given kind. Delays never exceed maxDelay.
// jitter is clamped to [0, 1] and only used by Jittered.
func New(kind Kind, initialDelay, maxDelay time.Duration, jitter float64) Strategy {
	if maxDelay < initialDelay {
		maxDelay = initialDelay
	}

	switch kind {
	case Jittered:
		return &jittered{initial: initialDelay, max: maxDelay, factor: clamp(jitter, 0, 1)}
	case Decorrelated:
		return &decorrelated{initial: initialDelay, max: maxDelay, prev: initialDelay}
	default:
		return exponential{initial: initialDelay, max: maxDelay}
	}
}

// exponential: initial * 2^attempt, capped at max.
type exponential struct {
	initial, max time.Duration
}

func (e exponential) Next(attempt int) time.Duration {
	return expDelay(attempt, e.initial, e.max)
}

// jittered multiplies the exponential delay by a factor in [1-f, 1+f] so that
// tasks failing together do not all retry together.
type jittered struct {
	initial, max time.Duration
	factor       float64
}

func (j *jittered) Next(attempt int) time.Duration {
	base := expDelay(attempt, j.initial, j.max)
	mult := 1 + (rand.Float64()*2-1)*j.factor // #nosec G404 -- jitter does not need crypto rand
	return clamp(time.Duration(float64(base)*mult), 0, j.max)
}

// decorrelated: sleep = min(max, random(initial, prev*3)).
// Each delay depends on the previous one, which spreads concurrent retries
// better than per-attempt jitter.
type decorrelated struct {
	initial, max time.Duration

	mu   sync.Mutex
	prev time.Duration
}

func (d *decorrelated) Next(attempt int) time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()

	if attempt == 0 {
		d.prev = d.initial
		return d.initial
	}

	upper := min(d.prev*3, d.max)
	span := upper - d.initial
	if span <= 0 {
		d.prev = d.initial
		return d.initial
	}

	d.prev = d.initial + rand.N(span) // #nosec G404
	return d.prev
}

func expDelay(attempt int, initial, maxDelay time.Duration) time.Duration {
	if attempt < 0 {
		return 0
	}
	if attempt >= maxShift {
		return maxDelay
	}

	delay := initial * time.Duration(int64(1)<<uint(attempt))
	if delay > maxDelay || delay < 0 || (initial > 0 && delay/initial != time.Duration(int64(1)<<uint(attempt))) {
		return maxDelay
	}
	return delay
}

func clamp[T int | int64 | float64 | time.Duration](v, lo, hi T) T {
	return max(lo, min(v, hi))
}
