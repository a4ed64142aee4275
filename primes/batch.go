package primes

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync/atomic"
	"time"

	"github.com/bobbyc-brs/prime-runner/core"
	"golang.org/x/sync/semaphore"
)

const (
	// DefaultBatchSize is the number of odd candidates per batch.
	DefaultBatchSize = 1000

	// inFlightPerWorker bounds outstanding batches to this multiple of the worker count.
	inFlightPerWorker = 2
)

// Batch is a contiguous run of odd numbers [Start, End], step 2.
type Batch struct {
	Index int
	Start uint64
	End   uint64
}

// Len returns the number of odd candidates in the batch.
func (b Batch) Len() int {
	return int((b.End-b.Start)/2) + 1
}

// Partition yields the batches covering the odd numbers in [3, limit], in order.
// Boundaries depend only on limit and size.
func Partition(limit uint64, size int) iter.Seq[Batch] {
	return func(yield func(Batch) bool) {
		if limit < 3 || size < 1 {
			return
		}
		last := limit
		if last%2 == 0 {
			last--
		}
		span := 2 * uint64(size-1)

		for i, start := 0, uint64(3); ; i++ {
			end := last
			if last-start > span {
				end = start + span
			}
			if !yield(Batch{Index: i, Start: start, End: end}) {
				return
			}
			if end == last {
				return
			}
			start = end + 2
		}
	}
}

// WorkerPool is the part of the goroutine pool the scheduler needs.
type WorkerPool interface {
	Submit(task core.Task) (*core.Handle, error)
	Barrier()
	WorkerCount() int
}

// BatchScheduler submits one pool task per batch while keeping at most
// 2 × workers batches outstanding.
type BatchScheduler struct {
	name      string
	pool      WorkerPool
	batchSize int
	ceiling   int64
	metrics   Metrics
	onFailure func()

	inFlight  atomic.Int64
	submitted atomic.Int64
	completed atomic.Int64
}

// NewBatchScheduler creates a scheduler over pool. onFailure, if set, runs once
// per failed batch before its slot is released.
func NewBatchScheduler(name string, pool WorkerPool, batchSize int, metrics Metrics, onFailure func()) *BatchScheduler {
	if metrics == nil {
		metrics = NilMetrics{}
	}
	if onFailure == nil {
		onFailure = func() {}
	}
	return &BatchScheduler{
		name:      name,
		pool:      pool,
		batchSize: batchSize,
		ceiling:   int64(inFlightPerWorker * pool.WorkerCount()),
		metrics:   metrics,
		onFailure: onFailure,
	}
}

// Ceiling returns the maximum number of outstanding batches.
func (s *BatchScheduler) Ceiling() int { return int(s.ceiling) }

// Run partitions [3, limit] and runs process for every batch. It returns once
// every submitted batch has completed. After the first failed batch no further
// batches are submitted and the failure is returned wrapped.
func (s *BatchScheduler) Run(ctx context.Context, limit uint64, process func(context.Context, Batch) error) error {
	slots := semaphore.NewWeighted(s.ceiling)
	var failed atomic.Bool
	var pending []*core.Handle
	var errs []error

	for b := range Partition(limit, s.batchSize) {
		if err := slots.Acquire(ctx, 1); err != nil {
			errs = append(errs, err)
			break
		}
		if failed.Load() {
			slots.Release(1)
			break
		}

		s.metrics.RecordInFlightBatches(s.name, int(s.inFlight.Add(1)))
		h, err := s.pool.Submit(s.wrap(b, process, slots, &failed))
		if err != nil {
			s.metrics.RecordInFlightBatches(s.name, int(s.inFlight.Add(-1)))
			slots.Release(1)
			errs = append(errs, fmt.Errorf("submit batch %d: %w", b.Index, err))
			break
		}
		s.submitted.Add(1)
		pending = append(pending, h)
		pending = prune(pending, &errs)
	}

	s.pool.Barrier()
	for _, h := range pending {
		if err := h.Wait(); err != nil {
			errs = append(errs, err)
		}
	}
	return joinFailures(errs)
}

func (s *BatchScheduler) wrap(b Batch, process func(context.Context, Batch) error, slots *semaphore.Weighted, failed *atomic.Bool) core.Task {
	fail := func() {
		failed.Store(true)
		s.onFailure()
	}
	return func(ctx context.Context) error {
		defer func() {
			s.completed.Add(1)
			s.metrics.RecordInFlightBatches(s.name, int(s.inFlight.Add(-1)))
			slots.Release(1)
		}()
		defer func() {
			if r := recover(); r != nil {
				fail()
				panic(r)
			}
		}()

		start := time.Now()
		if err := process(ctx, b); err != nil {
			fail()
			return fmt.Errorf("batch %d [%d, %d]: %w", b.Index, b.Start, b.End, err)
		}
		s.metrics.RecordBatchDuration(s.name, b.Len(), time.Since(start))
		return nil
	}
}

// prune drops resolved handles, collecting their failures.
func prune(pending []*core.Handle, errs *[]error) []*core.Handle {
	kept := pending[:0]
	for _, h := range pending {
		select {
		case <-h.Done():
			if err := h.Err(); err != nil {
				*errs = append(*errs, err)
			}
		default:
			kept = append(kept, h)
		}
	}
	clear(pending[len(kept):])
	return kept
}

// joinFailures keeps root causes; batches that only stopped because of an
// abort are dropped when a real failure is present.
func joinFailures(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	var causes []error
	for _, err := range errs {
		if !errors.Is(err, ErrAborted) {
			causes = append(causes, err)
		}
	}
	if len(causes) == 0 {
		causes = errs
	}
	return errors.Join(causes...)
}

// InFlight returns the number of submitted, unfinished batches.
func (s *BatchScheduler) InFlight() int { return int(s.inFlight.Load()) }

// Submitted returns the number of batches handed to the pool.
func (s *BatchScheduler) Submitted() int { return int(s.submitted.Load()) }

// Completed returns the number of batches that finished, successfully or not.
func (s *BatchScheduler) Completed() int { return int(s.completed.Load()) }
