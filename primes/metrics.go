package primes

import "time"

// Metrics receives engine-level measurements. Pool-level measurements go
// through core.Metrics.
//
// Methods are called from worker goroutines and must be safe for concurrent use.
type Metrics interface {
	// RecordBatchDuration records how long a batch of size numbers took.
	RecordBatchDuration(name string, size int, duration time.Duration)

	// RecordInFlightBatches records the number of submitted, unfinished batches.
	RecordInFlightBatches(name string, inFlight int)

	// RecordFrontierWait records time a worker spent waiting for lower batches.
	RecordFrontierWait(name string, duration time.Duration)

	// RecordPrimeFound counts one discovered prime.
	RecordPrimeFound(name string)
}

// NilMetrics discards everything.
type NilMetrics struct{}

func (NilMetrics) RecordBatchDuration(name string, size int, duration time.Duration) {}
func (NilMetrics) RecordInFlightBatches(name string, inFlight int)                   {}
func (NilMetrics) RecordFrontierWait(name string, duration time.Duration)            {}
func (NilMetrics) RecordPrimeFound(name string)                                      {}
