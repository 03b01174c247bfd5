package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/utkarsh5026/fixedpool/internal/config"
)

func benchConfig(workers, tasks, failEvery, retries int) *config.Config {
	cfg := config.Default()
	cfg.Pool.Workers = workers
	cfg.Load.Tasks = tasks
	cfg.Load.FailEvery = failEvery
	cfg.Load.Retries = retries
	cfg.Load.Work = ""
	return cfg
}

func TestRun(t *testing.T) {
	tests := []struct {
		name          string
		cfg           *config.Config
		wantSucceeded int
		wantFailed    int
		wantRetried   int64
	}{
		{"no failures", benchConfig(4, 100, 0, 0), 100, 0, 0},
		{"every fifth fails", benchConfig(2, 20, 5, 0), 16, 4, 0},
		{"retries recover failures", benchConfig(2, 20, 5, 1), 20, 0, 4},
		{"no tasks", benchConfig(1, 0, 0, 0), 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep, err := run(context.Background(), tt.cfg, runOptions{})
			if err != nil {
				t.Fatalf("run() error = %v", err)
			}
			if rep.Succeeded != tt.wantSucceeded || rep.Failed != tt.wantFailed {
				t.Errorf("succeeded/failed = %d/%d, want %d/%d",
					rep.Succeeded, rep.Failed, tt.wantSucceeded, tt.wantFailed)
			}
			if rep.Retried != tt.wantRetried {
				t.Errorf("Retried = %d, want %d", rep.Retried, tt.wantRetried)
			}
			if len(rep.Latencies) != tt.cfg.Load.Tasks {
				t.Errorf("len(Latencies) = %d, want %d", len(rep.Latencies), tt.cfg.Load.Tasks)
			}
			if rep.Stats.State.String() != "terminated" {
				t.Errorf("pool state = %s, want terminated", rep.Stats.State)
			}
		})
	}
}

func TestRunRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := run(context.Background(), benchConfig(2, 10, 0, 0), runOptions{registry: reg}); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	n, err := testutil.GatherAndCount(reg, "fixedpool_tasks_submitted_total")
	if err != nil {
		t.Fatalf("GatherAndCount() error = %v", err)
	}
	if n != 1 {
		t.Errorf("submitted series = %d, want 1", n)
	}
}

func TestRunCancelled(t *testing.T) {
	cfg := benchConfig(1, 1000, 0, 0)
	cfg.Load.Work = "10ms"

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := run(ctx, cfg, runOptions{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("run() error = %v, want context.DeadlineExceeded", err)
	}
}

func TestRunInvalidWork(t *testing.T) {
	cfg := benchConfig(1, 1, 0, 0)
	cfg.Load.Work = "soon"
	if _, err := run(context.Background(), cfg, runOptions{}); err == nil {
		t.Fatal("run() error = nil, want parse error")
	}
}

func TestSyntheticTask(t *testing.T) {
	task := syntheticTask(10, 0, 5)

	if _, err := task(context.Background()); !errors.Is(err, errSyntheticFailure) {
		t.Fatalf("first attempt error = %v, want errSyntheticFailure", err)
	}
	v, err := task(context.Background())
	if err != nil || v != 10 {
		t.Fatalf("second attempt = (%d, %v), want (10, nil)", v, err)
	}

	if _, err := syntheticTask(7, 0, 5)(context.Background()); err != nil {
		t.Fatalf("task 7 error = %v, want nil", err)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf)

	logger.Info("quiet")
	logger.Warn("loud", zap.Int("worker", 3))
	_ = logger.Sync()

	out := buf.String()
	if strings.Contains(out, "quiet") {
		t.Errorf("info record written at warn level:\n%s", out)
	}
	if !strings.Contains(out, `"msg":"loud"`) || !strings.Contains(out, `"worker":3`) {
		t.Errorf("warn record missing or malformed:\n%s", out)
	}
}

func TestPercentile(t *testing.T) {
	sorted := make([]time.Duration, 100)
	for i := range sorted {
		sorted[i] = time.Duration(i+1) * time.Millisecond
	}

	tests := []struct {
		name string
		in   []time.Duration
		q    float64
		want time.Duration
	}{
		{"empty", nil, 0.5, 0},
		{"min", sorted, 0, time.Millisecond},
		{"max", sorted, 1, 100 * time.Millisecond},
		{"p50", sorted, 0.50, 50 * time.Millisecond},
		{"p95", sorted, 0.95, 95 * time.Millisecond},
		{"p99", sorted, 0.99, 99 * time.Millisecond},
		{"single", []time.Duration{time.Second}, 0.99, time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := percentile(tt.in, tt.q); got != tt.want {
				t.Errorf("percentile(%v) = %v, want %v", tt.q, got, tt.want)
			}
		})
	}
}

func TestRenderReport(t *testing.T) {
	color.NoColor = true

	rep := report{
		Workers:   2,
		Tasks:     5,
		Succeeded: 4,
		Failed:    1,
		Elapsed:   time.Second,
		Latencies: []time.Duration{time.Millisecond, 2 * time.Millisecond},
	}

	var buf bytes.Buffer
	if err := renderReport(&buf, rep); err != nil {
		t.Fatalf("renderReport() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{"Succeeded", "Failed", "Throughput", "5 tasks/s", "1 of 5 tasks failed"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{1500 * time.Millisecond, "1.5s"},
		{2*time.Millisecond + 345*time.Microsecond, "2.35ms"},
		{1234 * time.Nanosecond, "1µs"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.in); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
