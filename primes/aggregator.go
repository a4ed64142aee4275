package primes

import (
	"cmp"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// ResultRecord is the outcome of checking one number.
type ResultRecord struct {
	Number  uint64        `json:"number"`
	IsPrime bool          `json:"is_prime"`
	Elapsed time.Duration `json:"elapsed_ns"`
}

func (r ResultRecord) String() string {
	verdict := "not prime"
	if r.IsPrime {
		verdict = "prime"
	}
	return fmt.Sprintf("%d is %s (calculated in %d µs)", r.Number, verdict, r.Elapsed.Microseconds())
}

// Aggregator collects per-number results, feeds discovered primes into the
// PrimeList and keeps the running counters.
//
// The counters are plain atomics outside either lock; they agree with the
// result and prime sets once all work has completed.
type Aggregator struct {
	list *PrimeList

	mu      sync.RWMutex
	results []ResultRecord

	processed atomic.Uint64
	primes    atomic.Uint64
}

// NewAggregator returns an Aggregator over list. The primes counter starts at
// one for the seeded 2.
func NewAggregator(list *PrimeList) *Aggregator {
	a := &Aggregator{list: list}
	a.primes.Store(uint64(list.Len()))
	return a
}

// Record stores the outcome for n. Each n must be recorded once.
func (a *Aggregator) Record(n uint64, isPrime bool, elapsed time.Duration) {
	a.insert(ResultRecord{Number: n, IsPrime: isPrime, Elapsed: elapsed})
	if isPrime {
		a.list.Append(n)
		a.primes.Add(1)
	}
	a.processed.Add(1)
}

// recordSeed stores the result for a prime the PrimeList was seeded with.
func (a *Aggregator) recordSeed(n uint64, elapsed time.Duration) {
	a.insert(ResultRecord{Number: n, IsPrime: true, Elapsed: elapsed})
	a.processed.Add(1)
}

func (a *Aggregator) insert(r ResultRecord) {
	a.mu.Lock()
	a.results = append(a.results, r)
	a.mu.Unlock()
}

// SnapshotPrimes returns the discovered primes in discovery order.
func (a *Aggregator) SnapshotPrimes() []uint64 {
	return a.list.Snapshot()
}

// SnapshotResults returns a copy of all results sorted by number.
func (a *Aggregator) SnapshotResults() []ResultRecord {
	a.mu.RLock()
	out := make([]ResultRecord, len(a.results))
	copy(out, a.results)
	a.mu.RUnlock()

	slices.SortFunc(out, func(x, y ResultRecord) int {
		return cmp.Compare(x.Number, y.Number)
	})
	return out
}

func (a *Aggregator) TotalProcessed() uint64 { return a.processed.Load() }
func (a *Aggregator) PrimesFound() uint64    { return a.primes.Load() }
