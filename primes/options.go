package primes

import "github.com/bobbyc-brs/prime-runner/core"

type options struct {
	name            string
	batchSize       int
	logger          core.Logger
	metrics         Metrics
	schedulerConfig *core.TaskSchedulerConfig
}

func defaultOptions() options {
	return options{
		name:      "primes",
		batchSize: DefaultBatchSize,
		metrics:   NilMetrics{},
	}
}

// Option configures a Calculator.
type Option func(*options)

// WithName labels the calculator in logs and metrics.
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithBatchSize sets the number of odd candidates per batch.
func WithBatchSize(size int) Option {
	return func(o *options) { o.batchSize = size }
}

// WithLogger sets the engine logger. It is also handed to the pool unless
// WithSchedulerConfig supplies one.
func WithLogger(logger core.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics sets the engine metrics sink.
func WithMetrics(m Metrics) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithSchedulerConfig sets the pool's panic handler, metrics and rejection handler.
func WithSchedulerConfig(cfg *core.TaskSchedulerConfig) Option {
	return func(o *options) { o.schedulerConfig = cfg }
}
