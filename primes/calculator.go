package primes

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	primerunner "github.com/bobbyc-brs/prime-runner"
	"github.com/bobbyc-brs/prime-runner/core"
	"github.com/google/uuid"
)

// ErrAlreadyComputed is returned when ComputeUpTo is called on a Calculator
// that has already processed a range.
var ErrAlreadyComputed = errors.New("calculator already computed a range")

// Stats is a point-in-time view of a Calculator.
type Stats struct {
	Name             string
	Limit            uint64
	Workers          int
	Processed        uint64
	PrimesFound      uint64
	InFlight         int
	BatchesSubmitted int
	BatchesCompleted int
	Covered          uint64
}

// Calculator classifies every integer in [2, limit] on a worker pool.
//
// Accessors are meant to be read after ComputeUpTo returns; reading them while
// it runs is safe but sees a partial state.
type Calculator struct {
	name      string
	batchSize int
	logger    core.Logger
	metrics   Metrics

	pool      *primerunner.GoroutineThreadPool
	list      *PrimeList
	oracle    *Oracle
	frontier  *Frontier
	agg       *Aggregator
	scheduler *BatchScheduler

	mu    sync.Mutex
	ran   bool
	limit atomic.Uint64

	// batchHook runs at the start of every batch; tests use it to inject faults
	batchHook func(Batch)
}

// New creates a Calculator with threadCount workers (0 = hardware parallelism)
// and starts its pool.
func New(threadCount int, opts ...Option) (*Calculator, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.batchSize < 1 {
		return nil, fmt.Errorf("%w: batch size %d", core.ErrInvalidArgument, o.batchSize)
	}
	if o.logger == nil {
		o.logger = core.NewDefaultLogger()
	}
	cfg := o.schedulerConfig
	if cfg == nil {
		cfg = &core.TaskSchedulerConfig{Logger: o.logger}
	}

	pool, err := primerunner.NewGoroutineThreadPoolWithConfig(o.name+"-pool", threadCount, cfg)
	if err != nil {
		return nil, err
	}

	list := NewPrimeList()
	c := &Calculator{
		name:      o.name,
		batchSize: o.batchSize,
		logger:    o.logger,
		metrics:   o.metrics,
		pool:      pool,
		list:      list,
		oracle:    NewOracle(list),
		frontier:  NewFrontier(list),
		agg:       NewAggregator(list),
	}
	c.scheduler = NewBatchScheduler(o.name, pool, o.batchSize, o.metrics, c.frontier.Abort)

	pool.Start(context.Background())
	return c, nil
}

// ComputeUpTo classifies every integer in [2, limit] and blocks until done.
// A limit below 2 is a no-op. A failed batch aborts the run and its error,
// matching core.ErrTaskFailure, is returned.
func (c *Calculator) ComputeUpTo(limit uint64) error {
	if limit < 2 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ran {
		return ErrAlreadyComputed
	}
	c.ran = true
	c.limit.Store(limit)

	runID := uuid.New().String()
	start := time.Now()
	c.logger.Info("computation started",
		core.F("run", runID),
		core.F("limit", limit),
		core.F("workers", c.pool.WorkerCount()),
		core.F("batch_size", c.batchSize),
		core.F("max_in_flight", c.scheduler.Ceiling()),
	)

	c.agg.recordSeed(2, 0)

	err := c.scheduler.Run(context.Background(), limit, func(ctx context.Context, b Batch) error {
		return c.processBatch(b, limit)
	})
	if err != nil {
		c.logger.Error("computation failed",
			core.F("run", runID),
			core.F("limit", limit),
			core.F("error", err),
		)
		return fmt.Errorf("compute primes up to %d: %w", limit, err)
	}

	c.logger.Info("computation finished",
		core.F("run", runID),
		core.F("processed", c.agg.TotalProcessed()),
		core.F("primes", c.agg.PrimesFound()),
		core.F("batches", c.scheduler.Submitted()),
		core.F("elapsed", time.Since(start)),
	)
	return nil
}

// processBatch classifies the odd numbers of b and, for each, its even successor
// up to limit. Primes found here are committed once the whole batch is done.
func (c *Calculator) processBatch(b Batch, limit uint64) error {
	if c.batchHook != nil {
		c.batchHook(b)
	}

	var local []uint64
	for n := b.Start; ; n += 2 {
		// Divisors below this batch must be committed before n can be judged.
		if need := min(DivisorBound(n), b.Start-2); c.frontier.Covered() < need {
			waitStart := time.Now()
			if err := c.frontier.Await(need); err != nil {
				return fmt.Errorf("classify %d: %w", n, err)
			}
			c.metrics.RecordFrontierWait(c.name, time.Since(waitStart))
		}

		t := time.Now()
		prime := c.oracle.isPrime(n, local)
		c.agg.Record(n, prime, time.Since(t))
		if prime {
			local = append(local, n)
			c.metrics.RecordPrimeFound(c.name)
		}

		if n < limit {
			t = time.Now()
			even := n + 1
			c.agg.Record(even, c.oracle.IsPrime(even), time.Since(t))
		}

		if n >= b.End {
			break
		}
	}

	c.frontier.Complete(b, local)
	return nil
}

// SnapshotPrimes returns the discovered primes in discovery order, starting with 2.
func (c *Calculator) SnapshotPrimes() []uint64 { return c.agg.SnapshotPrimes() }

// SnapshotResults returns one record per processed number, sorted by number.
func (c *Calculator) SnapshotResults() []ResultRecord { return c.agg.SnapshotResults() }

// TotalProcessed returns how many numbers have been classified.
func (c *Calculator) TotalProcessed() uint64 { return c.agg.TotalProcessed() }

// PrimesFound returns how many primes are known, including the seeded 2.
func (c *Calculator) PrimesFound() uint64 { return c.agg.PrimesFound() }

// Workers returns the resolved worker count.
func (c *Calculator) Workers() int { return c.pool.WorkerCount() }

// Pool exposes the underlying pool, e.g. for snapshot polling.
func (c *Calculator) Pool() *primerunner.GoroutineThreadPool { return c.pool }

// Stats returns current observability data for this calculator.
func (c *Calculator) Stats() Stats {
	return Stats{
		Name:             c.name,
		Limit:            c.limit.Load(),
		Workers:          c.pool.WorkerCount(),
		Processed:        c.agg.TotalProcessed(),
		PrimesFound:      c.agg.PrimesFound(),
		InFlight:         c.scheduler.InFlight(),
		BatchesSubmitted: c.scheduler.Submitted(),
		BatchesCompleted: c.scheduler.Completed(),
		Covered:          c.frontier.Covered(),
	}
}

// Close shuts the pool down. Safe to call more than once.
func (c *Calculator) Close() {
	c.pool.Shutdown()
}
