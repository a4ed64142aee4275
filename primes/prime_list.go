package primes

import "sync"

// PrimeList is the shared, append-only record of discovered primes.
//
// It keeps two views guarded by one RWMutex:
//   - found: every prime in the order workers discovered it (seeded with 2)
//   - divisors: the ascending prefix committed by the Frontier, used for trial division
//
// Neither view ever shrinks or rewrites an element, so a reader may copy a
// slice header under the read lock and iterate it after releasing the lock.
type PrimeList struct {
	mu       sync.RWMutex
	found    []uint64
	divisors []uint64
}

// NewPrimeList returns a list seeded with 2.
func NewPrimeList() *PrimeList {
	return &PrimeList{
		found:    []uint64{2},
		divisors: []uint64{2},
	}
}

// Append records a newly discovered prime.
func (l *PrimeList) Append(p uint64) {
	l.mu.Lock()
	l.found = append(l.found, p)
	l.mu.Unlock()
}

// Snapshot returns a copy of the primes in discovery order.
func (l *PrimeList) Snapshot() []uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]uint64, len(l.found))
	copy(out, l.found)
	return out
}

// Len returns the number of primes discovered so far.
func (l *PrimeList) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.found)
}

// Divisors returns the committed ascending prefix. The result must not be modified.
func (l *PrimeList) Divisors() []uint64 {
	l.mu.RLock()
	d := l.divisors
	l.mu.RUnlock()
	return d[:len(d):len(d)]
}

// commit extends the ascending prefix. ps must be ascending and greater than
// every value already committed.
func (l *PrimeList) commit(ps []uint64) {
	if len(ps) == 0 {
		return
	}
	l.mu.Lock()
	l.divisors = append(l.divisors, ps...)
	l.mu.Unlock()
}
