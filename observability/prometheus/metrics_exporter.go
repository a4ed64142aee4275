package prometheus

import (
	"errors"
	"fmt"
	"time"

	"github.com/bobbyc-brs/prime-runner/core"
	"github.com/bobbyc-brs/prime-runner/primes"
	prom "github.com/prometheus/client_golang/prometheus"
)

// DefaultNamespace prefixes every collector when no namespace is given.
const DefaultNamespace = "primes"

// ExporterOptions controls collector configuration.
type ExporterOptions struct {
	DurationBuckets []float64
	BatchBuckets    []float64
}

// MetricsExporter adapts core.Metrics and primes.Metrics to Prometheus collectors.
type MetricsExporter struct {
	taskDurationSeconds *prom.HistogramVec
	taskFailureTotal    *prom.CounterVec
	taskRejectedTotal   *prom.CounterVec
	queueDepth          *prom.GaugeVec

	batchDurationSeconds *prom.HistogramVec
	batchNumbersTotal    *prom.CounterVec
	inFlightBatches      *prom.GaugeVec
	frontierWaitSeconds  *prom.HistogramVec
	primesFoundTotal     *prom.CounterVec
}

var (
	_ core.Metrics   = (*MetricsExporter)(nil)
	_ primes.Metrics = (*MetricsExporter)(nil)
)

// NewMetricsExporter creates and registers the pool and engine collectors.
func NewMetricsExporter(namespace string, reg prom.Registerer, opts ExporterOptions) (*MetricsExporter, error) {
	namespace = normalizeLabel(namespace, DefaultNamespace)
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	buckets := opts.DurationBuckets
	if len(buckets) == 0 {
		buckets = prom.DefBuckets
	}
	batchBuckets := opts.BatchBuckets
	if len(batchBuckets) == 0 {
		batchBuckets = prom.ExponentialBuckets(0.0001, 4, 10)
	}

	durationVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "task_duration_seconds",
		Help:      "Task execution duration in seconds.",
		Buckets:   buckets,
	}, []string{"pool"})
	failureVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "task_failure_total",
		Help:      "Total number of tasks that panicked or returned an error.",
	}, []string{"pool", "reason"})
	rejectedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "task_rejected_total",
		Help:      "Total number of rejected tasks.",
	}, []string{"pool", "reason"})
	queueDepthVec := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "queue_depth",
		Help:      "Current queue depth.",
	}, []string{"pool"})

	batchDurationVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "batch_duration_seconds",
		Help:      "Time taken to classify one batch.",
		Buckets:   batchBuckets,
	}, []string{"calculator"})
	batchNumbersVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "batch_numbers_total",
		Help:      "Odd candidates classified by completed batches.",
	}, []string{"calculator"})
	inFlightVec := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "batches_in_flight",
		Help:      "Submitted batches that have not completed.",
	}, []string{"calculator"})
	frontierWaitVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "frontier_wait_seconds",
		Help:      "Time a batch waited for lower batches to publish divisors.",
		Buckets:   batchBuckets,
	}, []string{"calculator"})
	primesFoundVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "primes_found_total",
		Help:      "Primes discovered by worker batches.",
	}, []string{"calculator"})

	var err error
	if durationVec, err = registerCollector(reg, durationVec); err != nil {
		return nil, err
	}
	if failureVec, err = registerCollector(reg, failureVec); err != nil {
		return nil, err
	}
	if rejectedVec, err = registerCollector(reg, rejectedVec); err != nil {
		return nil, err
	}
	if queueDepthVec, err = registerCollector(reg, queueDepthVec); err != nil {
		return nil, err
	}
	if batchDurationVec, err = registerCollector(reg, batchDurationVec); err != nil {
		return nil, err
	}
	if batchNumbersVec, err = registerCollector(reg, batchNumbersVec); err != nil {
		return nil, err
	}
	if inFlightVec, err = registerCollector(reg, inFlightVec); err != nil {
		return nil, err
	}
	if frontierWaitVec, err = registerCollector(reg, frontierWaitVec); err != nil {
		return nil, err
	}
	if primesFoundVec, err = registerCollector(reg, primesFoundVec); err != nil {
		return nil, err
	}

	return &MetricsExporter{
		taskDurationSeconds:  durationVec,
		taskFailureTotal:     failureVec,
		taskRejectedTotal:    rejectedVec,
		queueDepth:           queueDepthVec,
		batchDurationSeconds: batchDurationVec,
		batchNumbersTotal:    batchNumbersVec,
		inFlightBatches:      inFlightVec,
		frontierWaitSeconds:  frontierWaitVec,
		primesFoundTotal:     primesFoundVec,
	}, nil
}

// RecordTaskDuration records task execution duration.
func (m *MetricsExporter) RecordTaskDuration(poolID string, duration time.Duration) {
	if m == nil {
		return
	}
	m.taskDurationSeconds.WithLabelValues(normalizeLabel(poolID, "unknown")).Observe(duration.Seconds())
}

// RecordTaskFailure records task panics and returned errors.
func (m *MetricsExporter) RecordTaskFailure(poolID string, reason string) {
	if m == nil {
		return
	}
	m.taskFailureTotal.WithLabelValues(normalizeLabel(poolID, "unknown"), normalizeLabel(reason, "unknown")).Inc()
}

// RecordQueueDepth records queue depth.
func (m *MetricsExporter) RecordQueueDepth(poolID string, depth int) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(normalizeLabel(poolID, "unknown")).Set(float64(depth))
}

// RecordTaskRejected records task rejection events.
func (m *MetricsExporter) RecordTaskRejected(poolID string, reason string) {
	if m == nil {
		return
	}
	m.taskRejectedTotal.WithLabelValues(normalizeLabel(poolID, "unknown"), normalizeLabel(reason, "unknown")).Inc()
}

// RecordBatchDuration records one completed batch.
func (m *MetricsExporter) RecordBatchDuration(name string, size int, duration time.Duration) {
	if m == nil {
		return
	}
	name = normalizeLabel(name, "unknown")
	m.batchDurationSeconds.WithLabelValues(name).Observe(duration.Seconds())
	m.batchNumbersTotal.WithLabelValues(name).Add(float64(size))
}

// RecordInFlightBatches records the current number of unfinished batches.
func (m *MetricsExporter) RecordInFlightBatches(name string, inFlight int) {
	if m == nil {
		return
	}
	m.inFlightBatches.WithLabelValues(normalizeLabel(name, "unknown")).Set(float64(inFlight))
}

// RecordFrontierWait records time spent blocked on the divisor frontier.
func (m *MetricsExporter) RecordFrontierWait(name string, duration time.Duration) {
	if m == nil {
		return
	}
	m.frontierWaitSeconds.WithLabelValues(normalizeLabel(name, "unknown")).Observe(duration.Seconds())
}

// RecordPrimeFound counts one prime.
func (m *MetricsExporter) RecordPrimeFound(name string) {
	if m == nil {
		return
	}
	m.primesFoundTotal.WithLabelValues(normalizeLabel(name, "unknown")).Inc()
}

func normalizeLabel(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
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
