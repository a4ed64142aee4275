package primes

import (
	"math"
	"math/bits"
)

// Oracle decides primality by trial division against a PrimeList.
type Oracle struct {
	list *PrimeList
}

// NewOracle returns an Oracle reading divisors from list.
func NewOracle(list *PrimeList) *Oracle {
	return &Oracle{list: list}
}

// IsPrime reports whether n is prime, using the divisors committed so far.
// The answer is exact when every prime up to DivisorBound(n) is committed.
func (o *Oracle) IsPrime(n uint64) bool {
	return o.isPrime(n, nil)
}

// isPrime also tries local, the ascending primes a batch found since its last
// commit. Every value in local is greater than every committed divisor.
func (o *Oracle) isPrime(n uint64, local []uint64) bool {
	if n <= 1 {
		return false
	}
	if n == 2 {
		return true
	}
	if bits.OnesCount64(n) == 1 || n%2 == 0 {
		return false
	}

	bound := DivisorBound(n)
	for _, set := range [2][]uint64{o.list.Divisors(), local} {
		for _, p := range set {
			if p > bound {
				return true
			}
			if n%p == 0 {
				return false
			}
		}
	}
	return true
}

// DivisorBound is the largest divisor trial division must consider: floor(sqrt(n)) + 1.
func DivisorBound(n uint64) uint64 {
	return isqrt(n) + 1
}

// isqrt returns floor(sqrt(n)) exactly, correcting float64 rounding.
func isqrt(n uint64) uint64 {
	r := uint64(math.Sqrt(float64(n)))
	for r > 0 && r > n/r {
		r--
	}
	for (r+1) <= n/(r+1) {
		r++
	}
	return r
}
