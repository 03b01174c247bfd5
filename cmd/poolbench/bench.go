package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/utkarsh5026/fixedpool/internal/config"
	"github.com/utkarsh5026/fixedpool/metrics"
	"github.com/utkarsh5026/fixedpool/pool"
	"github.com/utkarsh5026/fixedpool/retry"
)

var errSyntheticFailure = errors.New("synthetic failure")

type runOptions struct {
	progress bool
	out      io.Writer // progress bar and pool log output
	registry *prometheus.Registry
}

// report is what one benchmark run measured.
type report struct {
	Workers   int
	Tasks     int
	Succeeded int
	Failed    int
	Retried   int64
	Elapsed   time.Duration
	Latencies []time.Duration // sorted ascending, one per finished task
	Stats     pool.Stats
}

// Throughput returns finished tasks per second.
func (r report) Throughput() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Succeeded+r.Failed) / r.Elapsed.Seconds()
}

// Percentile returns the latency at quantile q in [0, 1].
func (r report) Percentile(q float64) time.Duration {
	return percentile(r.Latencies, q)
}

func percentile(sorted []time.Duration, q float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	switch {
	case q <= 0:
		return sorted[0]
	case q >= 1:
		return sorted[len(sorted)-1]
	}
	idx := int(q*float64(len(sorted))+0.5) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// run submits cfg.Load.Tasks synthetic tasks to a fresh pool and waits for all
// of them. Task failures are counted, not returned.
func run(ctx context.Context, cfg *config.Config, opts runOptions) (report, error) {
	work, err := cfg.WorkDuration()
	if err != nil {
		return report{}, err
	}
	if opts.out == nil {
		opts.out = io.Discard
	}

	reg := opts.registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	exporter, err := metrics.NewExporter("", reg, metrics.ExporterOptions{})
	if err != nil {
		return report{}, fmt.Errorf("metrics: %w", err)
	}

	if cfg.MetricsAddr != "" {
		stop := serveMetrics(cfg.MetricsAddr, reg, opts.out)
		defer stop()
	}

	logger := newLogger(opts.out)
	defer func() { _ = logger.Sync() }()

	poolOpts := []pool.Option{
		pool.WithContext(ctx),
		pool.WithName(cfg.Pool.Name),
		pool.WithLogger(logger),
		pool.WithMetrics(exporter),
	}
	if cfg.Pool.PinThreads {
		poolOpts = append(poolOpts, pool.WithThreadAffinity(true))
	}
	p, err := pool.New[int](cfg.Pool.Workers, poolOpts...)
	if err != nil {
		return report{}, err
	}
	defer p.Shutdown()

	limit := rate.Inf
	if cfg.Load.Rate > 0 {
		limit = rate.Limit(cfg.Load.Rate)
	}
	limiter := rate.NewLimiter(limit, max(cfg.Load.Burst, 1))

	var bar *progressbar.ProgressBar
	if opts.progress {
		bar = progressbar.NewOptions(cfg.Load.Tasks,
			progressbar.OptionSetWriter(opts.out),
			progressbar.OptionSetDescription("tasks"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionClearOnFinish(),
		)
	}

	var (
		mu        sync.Mutex
		latencies = make([]time.Duration, 0, cfg.Load.Tasks)
		succeeded int
		failed    int
		retried   atomic.Int64
	)
	record := func(latency time.Duration, taskErr error) {
		mu.Lock()
		latencies = append(latencies, latency)
		if taskErr != nil {
			failed++
		} else {
			succeeded++
		}
		mu.Unlock()
		if bar != nil {
			_ = bar.Add(1)
		}
	}

	retryOpts := []retry.Option{
		retry.WithMaxAttempts(cfg.Load.Retries + 1),
		retry.WithBackoff(retry.BackoffJittered, time.Millisecond, 50*time.Millisecond),
		retry.WithOnRetry(func(int, error) { retried.Add(1) }),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Pool.Workers*4 + 1)

	start := time.Now()
	g.Go(func() error {
		for i := 1; i <= cfg.Load.Tasks; i++ {
			if err := limiter.Wait(gctx); err != nil {
				return err
			}
			task := syntheticTask(i, work, cfg.Load.FailEvery)
			g.Go(func() error {
				submitted := time.Now()
				_, taskErr := execute(gctx, p, task, cfg.Load.Retries, retryOpts)
				if errors.Is(taskErr, pool.ErrPoolClosed) || gctx.Err() != nil {
					return taskErr
				}
				record(time.Since(submitted), taskErr)
				return nil
			})
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return report{}, err
	}
	if err := ctx.Err(); err != nil {
		return report{}, err
	}
	elapsed := time.Since(start)
	if bar != nil {
		_ = bar.Finish()
	}

	if err := p.ShutdownWithContext(ctx); err != nil {
		return report{}, err
	}

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	return report{
		Workers:   cfg.Pool.Workers,
		Tasks:     cfg.Load.Tasks,
		Succeeded: succeeded,
		Failed:    failed,
		Retried:   retried.Load(),
		Elapsed:   elapsed,
		Latencies: latencies,
		Stats:     p.Stats(),
	}, nil
}

// execute runs one task to completion, going through retry.Do when extra
// attempts are configured.
func execute(ctx context.Context, p *pool.Pool[int], task pool.Func[int], retries int, opts []retry.Option) (int, error) {
	if retries > 0 {
		return retry.Do(ctx, p, task, opts...)
	}
	fut, err := p.Submit(task)
	if err != nil {
		return 0, err
	}
	return fut.GetWithContext(ctx)
}

// syntheticTask sleeps for work and returns n. When failEvery is positive,
// every failEvery-th task fails its first attempt.
func syntheticTask(n int, work time.Duration, failEvery int) pool.Func[int] {
	var attempts atomic.Int32
	return func(ctx context.Context) (int, error) {
		first := attempts.Add(1) == 1
		if work > 0 {
			t := time.NewTimer(work)
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
				return 0, ctx.Err()
			}
		}
		if first && failEvery > 0 && n%failEvery == 0 {
			return 0, fmt.Errorf("task %d: %w", n, errSyntheticFailure)
		}
		return n, nil
	}
}

// newLogger builds a production-style JSON logger at warn level that writes
// to w instead of stderr.
func newLogger(w io.Writer) *zap.Logger {
	conf := zap.NewProductionConfig()
	conf.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(conf.EncoderConfig),
		zapcore.Lock(zapcore.AddSync(w)),
		conf.Level,
	)
	return zap.New(core)
}

// serveMetrics exposes reg on addr/metrics until the returned func is called.
func serveMetrics(addr string, reg *prometheus.Registry, logOut io.Writer) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			_, _ = fmt.Fprintf(logOut, "metrics server: %v\n", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
