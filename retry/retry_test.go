package retry

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/utkarsh5026/fixedpool/pool"
)

func newPool(t *testing.T) *pool.Pool[int] {
	t.Helper()
	p, err := pool.New[int](2)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(p.Shutdown)
	return p
}

func TestDo(t *testing.T) {
	flaky := errors.New("flaky")

	tests := []struct {
		name         string
		failures     int32
		maxAttempts  int
		wantValue    int
		wantErr      error
		wantAttempts int32
	}{
		{name: "succeeds first time", failures: 0, maxAttempts: 3, wantValue: 7, wantAttempts: 1},
		{name: "succeeds after retries", failures: 2, maxAttempts: 3, wantValue: 7, wantAttempts: 3},
		{name: "exhausts attempts", failures: 10, maxAttempts: 3, wantErr: flaky, wantAttempts: 3},
		{name: "single attempt", failures: 1, maxAttempts: 1, wantErr: flaky, wantAttempts: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPool(t)
			var attempts atomic.Int32

			value, err := Do(context.Background(), p, func(ctx context.Context) (int, error) {
				if attempts.Add(1) <= tt.failures {
					return 0, flaky
				}
				return 7, nil
			},
				WithMaxAttempts(tt.maxAttempts),
				WithBackoff(BackoffExponential, time.Millisecond, 5*time.Millisecond),
			)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if !errors.Is(err, pool.ErrTaskFailed) {
					t.Errorf("expected a task failure, got %v", err)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if value != tt.wantValue {
				t.Errorf("expected value %d, got %d", tt.wantValue, value)
			}
			if n := attempts.Load(); n != tt.wantAttempts {
				t.Errorf("expected %d attempts, got %d", tt.wantAttempts, n)
			}
		})
	}
}

func TestDo_RetryIf(t *testing.T) {
	p := newPool(t)
	permanent := errors.New("permanent")
	var attempts atomic.Int32

	_, err := Do(context.Background(), p, func(ctx context.Context) (int, error) {
		attempts.Add(1)
		return 0, permanent
	},
		WithMaxAttempts(5),
		WithBackoff(BackoffJittered, time.Millisecond, time.Millisecond),
		WithRetryIf(func(err error) bool { return !errors.Is(err, permanent) }),
	)

	if !errors.Is(err, permanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if n := attempts.Load(); n != 1 {
		t.Errorf("expected no retries for a permanent failure, got %d attempts", n)
	}
}

func TestDo_OnRetry(t *testing.T) {
	p := newPool(t)
	var seen []int

	_, _ = Do(context.Background(), p, func(ctx context.Context) (int, error) {
		return 0, errors.New("always")
	},
		WithMaxAttempts(4),
		WithBackoff(BackoffDecorrelated, time.Millisecond, 2*time.Millisecond),
		WithOnRetry(func(attempt int, err error) {
			seen = append(seen, attempt)
		}),
	)

	want := []int{2, 3, 4}
	if len(seen) != len(want) {
		t.Fatalf("expected retries %v, got %v", want, seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("expected retries %v, got %v", want, seen)
		}
	}
}

func TestDo_ClosedPool(t *testing.T) {
	p, err := pool.New[int](1)
	if err != nil {
		t.Fatal(err)
	}
	p.Shutdown()

	_, err = Do(context.Background(), p, func(ctx context.Context) (int, error) {
		return 1, nil
	})
	if !errors.Is(err, pool.ErrPoolClosed) {
		t.Errorf("expected ErrPoolClosed, got %v", err)
	}
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	p := newPool(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := Do(ctx, p, func(ctx context.Context) (int, error) {
		return 0, errors.New("fail")
	},
		WithMaxAttempts(10),
		WithBackoff(BackoffExponential, time.Second, time.Minute),
	)

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Do did not honour cancellation promptly: %v", elapsed)
	}
}
