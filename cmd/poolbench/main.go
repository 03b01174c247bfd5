// Command poolbench drives a fixed-size pool with a synthetic workload and
// prints throughput and latency figures.
//
//	poolbench --workers 8 --tasks 10000 --work 1ms --fail-every 50 --retries 1
//	poolbench --config bench.yaml --metrics-addr :9090
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"github.com/utkarsh5026/fixedpool/internal/config"
)

func main() {
	configFlag := flag.String("config", "", "Path to a YAML configuration file")
	envFileFlag := flag.String("env-file", ".env", "Optional .env file with POOLBENCH_* variables")
	workersFlag := flag.Int("workers", 0, "Number of pool workers (overrides config)")
	tasksFlag := flag.Int("tasks", -1, "Number of tasks to submit (overrides config)")
	failEveryFlag := flag.Int("fail-every", -1, "Every n-th task fails its first attempt; 0 = never (overrides config)")
	workFlag := flag.String("work", "", "Simulated work per task, e.g. 2ms (overrides config)")
	rateFlag := flag.Float64("rate", -1, "Submissions per second; 0 = unlimited (overrides config)")
	burstFlag := flag.Int("burst", 0, "Rate limiter burst (overrides config)")
	retriesFlag := flag.Int("retries", -1, "Extra attempts for failed tasks (overrides config)")
	pinFlag := flag.Bool("pin", false, "Pin workers to CPU cores")
	metricsAddrFlag := flag.String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	noProgressFlag := flag.Bool("no-progress", false, "Disable the progress bar")
	plainFlag := flag.Bool("plain", false, "Disable colors")
	flag.Parse()

	if *plainFlag {
		color.NoColor = true
	}

	cfg, err := config.Load(*configFlag, *envFileFlag)
	if err != nil {
		fatal(err)
	}

	// Flags only win when given explicitly.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "workers":
			cfg.Pool.Workers = *workersFlag
		case "tasks":
			cfg.Load.Tasks = *tasksFlag
		case "fail-every":
			cfg.Load.FailEvery = *failEveryFlag
		case "work":
			cfg.Load.Work = *workFlag
		case "rate":
			cfg.Load.Rate = *rateFlag
		case "burst":
			cfg.Load.Burst = *burstFlag
		case "retries":
			cfg.Load.Retries = *retriesFlag
		case "pin":
			cfg.Pool.PinThreads = *pinFlag
		case "metrics-addr":
			cfg.MetricsAddr = *metricsAddrFlag
		}
	})
	if err := cfg.Validate(); err != nil {
		fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	printHeader(os.Stdout, cfg)

	rep, err := run(ctx, cfg, runOptions{
		progress: !*noProgressFlag,
		out:      os.Stderr,
	})
	if err != nil {
		fatal(err)
	}

	if err := renderReport(os.Stdout, rep); err != nil {
		fatal(err)
	}

	if rep.Failed > 0 {
		os.Exit(2)
	}
}

func fatal(err error) {
	_, _ = red.Fprintf(os.Stderr, "poolbench: %v\n", err)
	os.Exit(1)
}
