package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/utkarsh5026/fixedpool/internal/config"
)

var (
	bold  = color.New(color.Bold)
	cyan  = color.New(color.FgCyan)
	green = color.New(color.FgGreen)
	red   = color.New(color.FgRed)
)

func printHeader(w io.Writer, cfg *config.Config) {
	_, _ = bold.Fprintf(w, "poolbench: %s\n", cfg.Pool.Name)
	_, _ = cyan.Fprintf(w, "  workers=%d tasks=%d work=%s fail-every=%d retries=%d\n",
		cfg.Pool.Workers, cfg.Load.Tasks, cfg.Load.Work, cfg.Load.FailEvery, cfg.Load.Retries)
	if cfg.Load.Rate > 0 {
		_, _ = cyan.Fprintf(w, "  rate=%.1f/s burst=%d\n", cfg.Load.Rate, cfg.Load.Burst)
	}
	if cfg.MetricsAddr != "" {
		_, _ = cyan.Fprintf(w, "  metrics on http://%s/metrics\n", cfg.MetricsAddr)
	}
	_, _ = fmt.Fprintln(w)
}

func renderReport(w io.Writer, r report) error {
	table := tablewriter.NewWriter(w)
	table.Header("Metric", "Value")

	rows := [][]string{
		{"Workers", strconv.Itoa(r.Workers)},
		{"Tasks", strconv.Itoa(r.Tasks)},
		{"Succeeded", strconv.Itoa(r.Succeeded)},
		{"Failed", strconv.Itoa(r.Failed)},
		{"Retries", strconv.FormatInt(r.Retried, 10)},
		{"Elapsed", formatDuration(r.Elapsed)},
		{"Throughput", fmt.Sprintf("%.0f tasks/s", r.Throughput())},
		{"Latency p50", formatDuration(r.Percentile(0.50))},
		{"Latency p95", formatDuration(r.Percentile(0.95))},
		{"Latency p99", formatDuration(r.Percentile(0.99))},
	}
	for _, row := range rows {
		if err := table.Append(row[0], row[1]); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	if r.Failed > 0 {
		_, _ = red.Fprintf(w, "\n%d of %d tasks failed\n", r.Failed, r.Tasks)
	} else {
		_, _ = green.Fprintf(w, "\nall %d tasks succeeded\n", r.Tasks)
	}
	return nil
}

// formatDuration rounds d to a readable precision for its magnitude.
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Second:
		return d.Round(time.Millisecond).String()
	case d >= time.Millisecond:
		return d.Round(10 * time.Microsecond).String()
	default:
		return d.Round(time.Microsecond).String()
	}
}
