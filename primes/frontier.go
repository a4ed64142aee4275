package primes

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrAborted is returned to workers waiting on a Frontier that was aborted
// after another batch failed.
var ErrAborted = errors.New("computation aborted")

type completedBatch struct {
	end    uint64
	primes []uint64
}

// Frontier commits each batch's primes to the PrimeList divisor prefix strictly
// in batch order, so the prefix is ascending and gap-free.
//
// Batches finish in any order. A finished batch waits in done until every
// lower-indexed batch has been committed.
type Frontier struct {
	mu      sync.Mutex
	cond    *sync.Cond
	list    *PrimeList
	next    int
	done    map[int]completedBatch
	aborted bool

	// every odd number <= covered is classified and its primes committed
	covered atomic.Uint64
}

// NewFrontier returns a Frontier covering {2}.
func NewFrontier(list *PrimeList) *Frontier {
	f := &Frontier{
		list: list,
		done: make(map[int]completedBatch),
	}
	f.cond = sync.NewCond(&f.mu)
	f.covered.Store(2)
	return f
}

// Covered returns the highest number below which every odd number is committed.
func (f *Frontier) Covered() uint64 {
	return f.covered.Load()
}

// Complete records that b finished and found primes (ascending).
func (f *Frontier) Complete(b Batch, primes []uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.done[b.Index] = completedBatch{end: b.End, primes: primes}
	advanced := false
	for {
		c, ok := f.done[f.next]
		if !ok {
			break
		}
		delete(f.done, f.next)
		f.list.commit(c.primes)
		f.covered.Store(c.end)
		f.next++
		advanced = true
	}
	if advanced {
		f.cond.Broadcast()
	}
}

// Await blocks until Covered() >= need. It returns ErrAborted if the Frontier
// is aborted first.
func (f *Frontier) Await(need uint64) error {
	if f.covered.Load() >= need {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for f.covered.Load() < need && !f.aborted {
		f.cond.Wait()
	}
	if f.covered.Load() < need {
		return ErrAborted
	}
	return nil
}

// Abort releases every waiter. Batches waiting on a failed batch can never proceed.
func (f *Frontier) Abort() {
	f.mu.Lock()
	f.aborted = true
	f.mu.Unlock()
	f.cond.Broadcast()
}
