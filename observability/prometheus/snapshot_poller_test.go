package prometheus

import (
	"context"
	"testing"
	"time"

	"github.com/bobbyc-brs/prime-runner/core"
	"github.com/bobbyc-brs/prime-runner/primes"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type poolStub struct {
	stats core.PoolStats
}

func (s poolStub) Stats() core.PoolStats { return s.stats }

type calculatorStub struct {
	stats primes.Stats
}

func (s calculatorStub) Stats() primes.Stats { return s.stats }

func TestSnapshotPoller_CollectsPoolAndCalculatorStats(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewSnapshotPoller("primes", reg, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewSnapshotPoller failed: %v", err)
	}

	poller.AddPool("pool-a", poolStub{stats: core.PoolStats{
		Queued:      4,
		Active:      2,
		Outstanding: 6,
		Workers:     8,
		Running:     true,
	}})
	poller.AddCalculator("calc-a", calculatorStub{stats: primes.Stats{
		Limit:            1000,
		Processed:        999,
		PrimesFound:      168,
		InFlight:         0,
		BatchesSubmitted: 2,
		BatchesCompleted: 2,
		Covered:          999,
	}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	poller.Start(ctx)
	defer poller.Stop()

	assertEventually(t, 2*time.Second, func() bool {
		active := testutil.ToFloat64(poller.poolActive.WithLabelValues("pool-a"))
		found := testutil.ToFloat64(poller.calcPrimes.WithLabelValues("calc-a"))
		return active == 2 && found == 168
	})

	if got := testutil.ToFloat64(poller.poolRunning.WithLabelValues("pool-a")); got != 1 {
		t.Fatalf("pool running gauge = %v, want 1", got)
	}
	if got := testutil.ToFloat64(poller.poolOutstanding.WithLabelValues("pool-a")); got != 6 {
		t.Fatalf("pool outstanding gauge = %v, want 6", got)
	}
	if got := testutil.ToFloat64(poller.calcCovered.WithLabelValues("calc-a")); got != 999 {
		t.Fatalf("covered gauge = %v, want 999", got)
	}
	if got := testutil.ToFloat64(poller.calcBatches.WithLabelValues("calc-a", "completed")); got != 2 {
		t.Fatalf("completed batches gauge = %v, want 2", got)
	}
}

// TestSnapshotPoller_RealCalculator verifies the final snapshot after Stop
// Given: A poller watching a live calculator and its pool
// When: The run finishes and the poller is stopped
// Then: The gauges hold the finished run's totals
func TestSnapshotPoller_RealCalculator(t *testing.T) {
	// Arrange
	reg := prom.NewRegistry()
	poller, err := NewSnapshotPoller("", reg, time.Hour)
	if err != nil {
		t.Fatalf("NewSnapshotPoller failed: %v", err)
	}
	calc, err := primes.New(2, primes.WithName("live"), primes.WithLogger(core.NewNoOpLogger()))
	if err != nil {
		t.Fatalf("primes.New failed: %v", err)
	}
	defer calc.Close()

	poller.AddCalculator("live", calc)
	poller.AddPool("live-pool", calc.Pool())
	poller.Start(context.Background())

	// Act
	if err := calc.ComputeUpTo(1000); err != nil {
		t.Fatalf("ComputeUpTo failed: %v", err)
	}
	poller.Stop()

	// Assert
	if got := testutil.ToFloat64(poller.calcPrimes.WithLabelValues("live")); got != 168 {
		t.Fatalf("primes gauge = %v, want 168", got)
	}
	if got := testutil.ToFloat64(poller.calcProcessed.WithLabelValues("live")); got != 999 {
		t.Fatalf("processed gauge = %v, want 999", got)
	}
	if got := testutil.ToFloat64(poller.poolWorkers.WithLabelValues("live-pool")); got != 2 {
		t.Fatalf("workers gauge = %v, want 2", got)
	}
	if got := testutil.ToFloat64(poller.poolOutstanding.WithLabelValues("live-pool")); got != 0 {
		t.Fatalf("outstanding gauge = %v, want 0", got)
	}
}

func TestSnapshotPoller_StartStop_Idempotent(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewSnapshotPoller("primes", reg, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("NewSnapshotPoller failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	poller.Start(ctx)
	poller.Start(ctx)
	poller.Stop()
	poller.Stop()

	// Restart after Stop
	poller.Start(ctx)
	poller.Stop()
}

func assertEventually(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}
