package primes

import (
	"fmt"
	"testing"

	"github.com/bobbyc-brs/prime-runner/core"
	"github.com/stretchr/testify/require"
)

func newTestCalculator(t *testing.T, threads int, opts ...Option) *Calculator {
	t.Helper()
	opts = append([]Option{WithLogger(core.NewNoOpLogger())}, opts...)
	c, err := New(threads, opts...)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

// requireExactClassification checks one sorted record per integer in [2, limit]
// with correct flags, and counters consistent with the sets.
func requireExactClassification(t *testing.T, c *Calculator, limit uint64) {
	t.Helper()

	results := c.SnapshotResults()
	require.Len(t, results, int(limit-1))

	primeCount := 0
	for i, r := range results {
		n := uint64(i) + 2
		require.Equal(t, n, r.Number)
		require.Equalf(t, naiveIsPrime(n), r.IsPrime, "classification of %d", n)
		if r.IsPrime {
			primeCount++
		}
	}

	primes := c.SnapshotPrimes()
	require.Len(t, primes, primeCount)
	require.Equal(t, uint64(2), primes[0])
	require.Equal(t, uint64(len(results)), c.TotalProcessed())
	require.Equal(t, uint64(primeCount), c.PrimesFound())
}

func TestCalculator_LimitBelowTwoIsNoOp(t *testing.T) {
	t.Parallel()

	for _, limit := range []uint64{0, 1} {
		c := newTestCalculator(t, 2)
		require.NoError(t, c.ComputeUpTo(limit))
		require.Empty(t, c.SnapshotResults())
		require.Equal(t, []uint64{2}, c.SnapshotPrimes())
		require.Equal(t, uint64(0), c.TotalProcessed())
		require.Equal(t, uint64(1), c.PrimesFound())
	}
}

func TestCalculator_Boundaries(t *testing.T) {
	t.Parallel()

	c := newTestCalculator(t, 2)
	require.NoError(t, c.ComputeUpTo(2))
	require.Equal(t, []ResultRecord{{Number: 2, IsPrime: true}}, c.SnapshotResults())

	c = newTestCalculator(t, 2)
	require.NoError(t, c.ComputeUpTo(3))
	results := c.SnapshotResults()
	require.Len(t, results, 2)
	require.True(t, results[0].IsPrime)
	require.True(t, results[1].IsPrime)
	require.Equal(t, uint64(3), results[1].Number)

	c = newTestCalculator(t, 2)
	require.NoError(t, c.ComputeUpTo(9))
	require.ElementsMatch(t, []uint64{2, 3, 5, 7}, c.SnapshotPrimes())
	for _, r := range c.SnapshotResults() {
		switch r.Number {
		case 4, 6, 8, 9:
			require.False(t, r.IsPrime, r.Number)
		}
	}
	requireExactClassification(t, c, 9)
}

func TestCalculator_ClassificationAcrossThreadCounts(t *testing.T) {
	t.Parallel()

	const limit = 20_000
	var reference []bool
	for _, threads := range []int{1, 2, 8, 64} {
		t.Run(fmt.Sprintf("threads=%d", threads), func(t *testing.T) {
			// Small batches force many cross-batch divisor lookups.
			c := newTestCalculator(t, threads, WithBatchSize(7))
			require.NoError(t, c.ComputeUpTo(limit))
			requireExactClassification(t, c, limit)

			flags := make([]bool, 0, limit)
			for _, r := range c.SnapshotResults() {
				flags = append(flags, r.IsPrime)
			}
			if reference == nil {
				reference = flags
				return
			}
			require.Equal(t, reference, flags)
		})
	}
}

func TestCalculator_DefaultBatchSizeLargeRange(t *testing.T) {
	t.Parallel()

	c := newTestCalculator(t, 4)
	require.NoError(t, c.ComputeUpTo(200_000))
	require.Equal(t, uint64(17_984), c.PrimesFound())
	require.Equal(t, uint64(199_999), c.TotalProcessed())

	stats := c.Stats()
	require.Equal(t, uint64(200_000), stats.Limit)
	require.Equal(t, 100, stats.BatchesSubmitted)
	require.Equal(t, stats.BatchesSubmitted, stats.BatchesCompleted)
	require.Equal(t, 0, stats.InFlight)
	require.Equal(t, uint64(199_999), stats.Covered)
}

func TestCalculator_InFlightCeiling(t *testing.T) {
	t.Parallel()

	for _, threads := range []int{1, 3, 8} {
		metrics := &recordingMetrics{}
		c := newTestCalculator(t, threads, WithBatchSize(16), WithMetrics(metrics))
		require.NoError(t, c.ComputeUpTo(50_000))
		require.Greater(t, metrics.maxInFlight, 0)
		require.LessOrEqual(t, metrics.maxInFlight, 2*threads)
	}
}

func TestCalculator_SecondRunRejected(t *testing.T) {
	t.Parallel()

	c := newTestCalculator(t, 2)
	require.NoError(t, c.ComputeUpTo(100))
	require.ErrorIs(t, c.ComputeUpTo(200), ErrAlreadyComputed)
	require.NoError(t, c.ComputeUpTo(1))
	requireExactClassification(t, c, 100)
}

// TestCalculator_BatchFailureIsFatal verifies a faulty batch aborts the run
// Given: A calculator whose third batch panics
// When: ComputeUpTo runs a range needing later batches to wait on it
// Then: ComputeUpTo returns a task failure instead of hanging or dropping results silently
func TestCalculator_BatchFailureIsFatal(t *testing.T) {
	t.Parallel()

	c := newTestCalculator(t, 4, WithBatchSize(5))
	c.batchHook = func(b Batch) {
		if b.Index == 2 {
			panic(fmt.Sprintf("fault in batch %d", b.Index))
		}
	}

	err := c.ComputeUpTo(50_000)

	require.ErrorIs(t, err, core.ErrTaskFailure)
	var taskErr *core.TaskError
	require.ErrorAs(t, err, &taskErr)
	require.Equal(t, "fault in batch 2", taskErr.Panic)
	require.Less(t, c.TotalProcessed(), uint64(49_999))
}

func TestCalculator_ComputeAfterCloseFails(t *testing.T) {
	t.Parallel()

	c := newTestCalculator(t, 2)
	c.Close()
	c.Close()

	require.ErrorIs(t, c.ComputeUpTo(100), core.ErrPoolClosed)
}

func TestCalculator_InvalidArguments(t *testing.T) {
	t.Parallel()

	_, err := New(-1, WithLogger(core.NewNoOpLogger()))
	require.ErrorIs(t, err, core.ErrInvalidArgument)

	_, err = New(2, WithBatchSize(0), WithLogger(core.NewNoOpLogger()))
	require.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestCalculator_AutoDetectWorkers(t *testing.T) {
	t.Parallel()

	c := newTestCalculator(t, 0)
	require.GreaterOrEqual(t, c.Workers(), 1)
	require.NoError(t, c.ComputeUpTo(1_000))
	requireExactClassification(t, c, 1_000)
}
