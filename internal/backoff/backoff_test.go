package backoff

import (
	"sync"
	"testing"
	"time"
)

func TestExponential(t *testing.T) {
	s := New(Exponential, 100*time.Millisecond, 2*time.Second, 0)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{-1, 0},
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{4, 1600 * time.Millisecond},
		{5, 2 * time.Second},
		{40, 2 * time.Second},
		{100, 2 * time.Second},
	}

	for _, tt := range tests {
		if got := s.Next(tt.attempt); got != tt.want {
			t.Errorf("Next(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestJittered(t *testing.T) {
	tests := []struct {
		name    string
		jitter  float64
		attempt int
		wantMin time.Duration
		wantMax time.Duration
	}{
		{name: "ten percent", jitter: 0.1, attempt: 1, wantMin: 180 * time.Millisecond, wantMax: 220 * time.Millisecond},
		{name: "no jitter", jitter: 0, attempt: 2, wantMin: 400 * time.Millisecond, wantMax: 400 * time.Millisecond},
		{name: "clamped factor", jitter: 5, attempt: 0, wantMin: 0, wantMax: 200 * time.Millisecond},
		{name: "capped", jitter: 0.5, attempt: 20, wantMin: 0, wantMax: time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(Jittered, 100*time.Millisecond, time.Second, tt.jitter)
			for range 100 {
				d := s.Next(tt.attempt)
				if d < tt.wantMin || d > tt.wantMax {
					t.Fatalf("delay %v outside [%v, %v]", d, tt.wantMin, tt.wantMax)
				}
			}
		})
	}
}

func TestDecorrelated(t *testing.T) {
	t.Run("first retry returns initial delay", func(t *testing.T) {
		s := New(Decorrelated, 100*time.Millisecond, 10*time.Second, 0)
		if d := s.Next(0); d != 100*time.Millisecond {
			t.Errorf("expected 100ms, got %v", d)
		}
	})

	t.Run("stays within bounds", func(t *testing.T) {
		s := New(Decorrelated, 100*time.Millisecond, 2*time.Second, 0)
		for attempt := range 50 {
			d := s.Next(attempt)
			if d < 100*time.Millisecond || d > 2*time.Second {
				t.Fatalf("attempt %d: delay %v out of range", attempt, d)
			}
		}
	})

	t.Run("max below initial", func(t *testing.T) {
		s := New(Decorrelated, time.Second, 500*time.Millisecond, 0)
		for attempt := range 5 {
			if d := s.Next(attempt); d != time.Second {
				t.Fatalf("attempt %d: expected 1s, got %v", attempt, d)
			}
		}
	})

	t.Run("concurrent use", func(t *testing.T) {
		s := New(Decorrelated, time.Millisecond, time.Second, 0)
		var wg sync.WaitGroup
		for range 16 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for attempt := range 100 {
					_ = s.Next(attempt)
				}
			}()
		}
		wg.Wait()
	})
}
