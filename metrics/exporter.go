// Package metrics exports pool activity as Prometheus collectors.
//
//	reg := prometheus.NewRegistry()
//	exp, err := metrics.NewExporter("myapp", reg, metrics.ExporterOptions{})
//	p, err := pool.New[int](8, pool.WithName("ingest"), pool.WithMetrics(exp))
package metrics

import (
	"errors"
	"fmt"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/utkarsh5026/fixedpool/pool"
)

// ExporterOptions controls collector configuration.
type ExporterOptions struct {
	DurationBuckets []float64
}

// Exporter adapts pool.MetricsRecorder to Prometheus collectors.
type Exporter struct {
	tasksSubmitted *prom.CounterVec
	tasksRejected  *prom.CounterVec
	taskDuration   *prom.HistogramVec
	taskPanics     *prom.CounterVec
	queueDepth     *prom.GaugeVec
}

var _ pool.MetricsRecorder = (*Exporter)(nil)

// NewExporter creates and registers the pool collectors on reg.
// Registering twice on the same registry reuses the existing collectors,
// so several pools can share one exporter or one registry.
func NewExporter(namespace string, reg prom.Registerer, opts ExporterOptions) (*Exporter, error) {
	if namespace == "" {
		namespace = "fixedpool"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	buckets := opts.DurationBuckets
	if len(buckets) == 0 {
		buckets = prom.DefBuckets
	}

	submittedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "tasks_submitted_total",
		Help:      "Total number of tasks accepted by the pool.",
	}, []string{"pool"})
	rejectedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "tasks_rejected_total",
		Help:      "Total number of submissions refused by the pool.",
	}, []string{"pool", "reason"})
	durationVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "task_duration_seconds",
		Help:      "Task execution duration in seconds.",
		Buckets:   buckets,
	}, []string{"pool", "outcome"})
	panicVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "task_panics_total",
		Help:      "Total number of tasks that panicked.",
	}, []string{"pool"})
	depthVec := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "queue_depth",
		Help:      "Number of tasks waiting for a worker.",
	}, []string{"pool"})

	var err error
	if submittedVec, err = registerCollector(reg, submittedVec); err != nil {
		return nil, err
	}
	if rejectedVec, err = registerCollector(reg, rejectedVec); err != nil {
		return nil, err
	}
	if durationVec, err = registerCollector(reg, durationVec); err != nil {
		return nil, err
	}
	if panicVec, err = registerCollector(reg, panicVec); err != nil {
		return nil, err
	}
	if depthVec, err = registerCollector(reg, depthVec); err != nil {
		return nil, err
	}

	return &Exporter{
		tasksSubmitted: submittedVec,
		tasksRejected:  rejectedVec,
		taskDuration:   durationVec,
		taskPanics:     panicVec,
		queueDepth:     depthVec,
	}, nil
}

// RecordSubmitted counts an accepted task.
func (e *Exporter) RecordSubmitted(poolName string) {
	if e == nil {
		return
	}
	e.tasksSubmitted.WithLabelValues(normalizeLabel(poolName, "unknown")).Inc()
}

// RecordRejected counts a refused submission.
func (e *Exporter) RecordRejected(poolName string, reason string) {
	if e == nil {
		return
	}
	e.tasksRejected.WithLabelValues(normalizeLabel(poolName, "unknown"), normalizeLabel(reason, "unknown")).Inc()
}

// RecordQueueDepth records the current queue length.
func (e *Exporter) RecordQueueDepth(poolName string, depth int) {
	if e == nil {
		return
	}
	e.queueDepth.WithLabelValues(normalizeLabel(poolName, "unknown")).Set(float64(depth))
}

// RecordTaskDuration observes how long a task ran.
func (e *Exporter) RecordTaskDuration(poolName string, d time.Duration, failed bool) {
	if e == nil {
		return
	}
	e.taskDuration.WithLabelValues(normalizeLabel(poolName, "unknown"), outcomeLabel(failed)).Observe(d.Seconds())
}

// RecordTaskPanic counts a recovered task panic.
func (e *Exporter) RecordTaskPanic(poolName string) {
	if e == nil {
		return
	}
	e.taskPanics.WithLabelValues(normalizeLabel(poolName, "unknown")).Inc()
}

func normalizeLabel(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func outcomeLabel(failed bool) string {
	if failed {
		return "failure"
	}
	return "success"
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
