package primes

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAggregator_RecordUpdatesSetsAndCounters(t *testing.T) {
	t.Parallel()

	list := NewPrimeList()
	a := NewAggregator(list)
	require.Equal(t, uint64(1), a.PrimesFound())
	require.Equal(t, uint64(0), a.TotalProcessed())

	a.Record(9, false, time.Microsecond)
	a.Record(7, true, time.Microsecond)
	a.Record(4, false, 0)

	require.Equal(t, uint64(3), a.TotalProcessed())
	require.Equal(t, uint64(2), a.PrimesFound())
	require.Equal(t, []uint64{2, 7}, a.SnapshotPrimes())
}

func TestAggregator_SnapshotResultsSorted(t *testing.T) {
	t.Parallel()

	a := NewAggregator(NewPrimeList())
	for _, n := range []uint64{15, 3, 11, 4, 9} {
		a.Record(n, naiveIsPrime(n), 0)
	}

	got := a.SnapshotResults()
	require.Len(t, got, 5)
	for i, want := range []uint64{3, 4, 9, 11, 15} {
		require.Equal(t, want, got[i].Number)
		require.Equal(t, naiveIsPrime(want), got[i].IsPrime)
	}
}

func TestAggregator_ConcurrentRecord(t *testing.T) {
	t.Parallel()

	list := NewPrimeList()
	a := NewAggregator(list)

	var wg sync.WaitGroup
	for w := uint64(0); w < 8; w++ {
		wg.Add(1)
		go func(w uint64) {
			defer wg.Done()
			for n := 3 + w; n < 2003; n += 8 {
				a.Record(n, naiveIsPrime(n), 0)
			}
		}(w)
	}
	wg.Wait()

	results := a.SnapshotResults()
	require.Len(t, results, 2000)
	require.Equal(t, uint64(2000), a.TotalProcessed())
	require.Equal(t, uint64(list.Len()), a.PrimesFound())
	for i, r := range results {
		require.Equal(t, uint64(i+3), r.Number)
	}
}

func TestResultRecord_String(t *testing.T) {
	t.Parallel()

	require.Equal(t, "7 is prime (calculated in 3 µs)",
		ResultRecord{Number: 7, IsPrime: true, Elapsed: 3 * time.Microsecond}.String())
	require.Equal(t, "8 is not prime (calculated in 0 µs)",
		ResultRecord{Number: 8}.String())
}
