package prometheus

import (
	"context"
	"sync"
	"time"

	"github.com/bobbyc-brs/prime-runner/core"
	"github.com/bobbyc-brs/prime-runner/primes"
	prom "github.com/prometheus/client_golang/prometheus"
)

// PoolSnapshotProvider provides current pool stats snapshots.
type PoolSnapshotProvider interface {
	Stats() core.PoolStats
}

// CalculatorSnapshotProvider provides current calculator stats snapshots.
type CalculatorSnapshotProvider interface {
	Stats() primes.Stats
}

// SnapshotPoller periodically exports pool and calculator Stats() snapshots into Prometheus gauges.
type SnapshotPoller struct {
	interval time.Duration

	poolsMu sync.RWMutex
	pools   map[string]PoolSnapshotProvider

	calcsMu sync.RWMutex
	calcs   map[string]CalculatorSnapshotProvider

	poolQueued      *prom.GaugeVec
	poolActive      *prom.GaugeVec
	poolOutstanding *prom.GaugeVec
	poolWorkers     *prom.GaugeVec
	poolRunning     *prom.GaugeVec

	calcLimit     *prom.GaugeVec
	calcProcessed *prom.GaugeVec
	calcPrimes    *prom.GaugeVec
	calcCovered   *prom.GaugeVec
	calcBatches   *prom.GaugeVec

	stateMu sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(namespace string, reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	namespace = normalizeLabel(namespace, DefaultNamespace)
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	gauge := func(name, help string, labels ...string) *prom.GaugeVec {
		return prom.NewGaugeVec(prom.GaugeOpts{Namespace: namespace, Name: name, Help: help}, labels)
	}

	p := &SnapshotPoller{
		interval: interval,
		pools:    make(map[string]PoolSnapshotProvider),
		calcs:    make(map[string]CalculatorSnapshotProvider),

		poolQueued:      gauge("pool_queued", "Queued tasks per pool.", "pool"),
		poolActive:      gauge("pool_active", "Active tasks per pool.", "pool"),
		poolOutstanding: gauge("pool_outstanding", "Queued plus running tasks per pool.", "pool"),
		poolWorkers:     gauge("pool_workers", "Worker count per pool.", "pool"),
		poolRunning:     gauge("pool_running", "Pool running state (1=running, 0=stopped).", "pool"),

		calcLimit:     gauge("calculator_limit", "Upper bound of the current run.", "calculator"),
		calcProcessed: gauge("calculator_processed", "Numbers classified so far.", "calculator"),
		calcPrimes:    gauge("calculator_primes", "Primes found so far.", "calculator"),
		calcCovered:   gauge("calculator_covered", "Highest number whose primes are committed as divisors.", "calculator"),
		calcBatches:   gauge("calculator_batches", "Batch counts by state.", "calculator", "state"),
	}

	var err error
	for _, g := range []**prom.GaugeVec{
		&p.poolQueued, &p.poolActive, &p.poolOutstanding, &p.poolWorkers, &p.poolRunning,
		&p.calcLimit, &p.calcProcessed, &p.calcPrimes, &p.calcCovered, &p.calcBatches,
	} {
		if *g, err = registerCollector(reg, *g); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// AddPool adds or replaces a pool snapshot provider by name.
func (p *SnapshotPoller) AddPool(name string, provider PoolSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "pool")
	p.poolsMu.Lock()
	p.pools[name] = provider
	p.poolsMu.Unlock()
}

// AddCalculator adds or replaces a calculator snapshot provider by name.
func (p *SnapshotPoller) AddCalculator(name string, provider CalculatorSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "calculator")
	p.calcsMu.Lock()
	p.calcs[name] = provider
	p.calcsMu.Unlock()
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if p.running {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	done := p.done
	p.stateMu.Unlock()

	go p.loop(pollCtx, done)
}

// Stop stops periodic polling and takes a final snapshot; repeated calls are safe.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if !p.running {
		p.stateMu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.stateMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	p.stateMu.Lock()
	p.running = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()
}

func (p *SnapshotPoller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.CollectOnce()

	for {
		select {
		case <-ctx.Done():
			p.CollectOnce()
			return
		case <-ticker.C:
			p.CollectOnce()
		}
	}
}

// CollectOnce copies every registered provider's current stats into the gauges.
func (p *SnapshotPoller) CollectOnce() {
	p.poolsMu.RLock()
	for name, provider := range p.pools {
		stats := provider.Stats()
		p.poolQueued.WithLabelValues(name).Set(float64(stats.Queued))
		p.poolActive.WithLabelValues(name).Set(float64(stats.Active))
		p.poolOutstanding.WithLabelValues(name).Set(float64(stats.Outstanding))
		p.poolWorkers.WithLabelValues(name).Set(float64(stats.Workers))
		p.poolRunning.WithLabelValues(name).Set(boolGauge(stats.Running))
	}
	p.poolsMu.RUnlock()

	p.calcsMu.RLock()
	for name, provider := range p.calcs {
		stats := provider.Stats()
		p.calcLimit.WithLabelValues(name).Set(float64(stats.Limit))
		p.calcProcessed.WithLabelValues(name).Set(float64(stats.Processed))
		p.calcPrimes.WithLabelValues(name).Set(float64(stats.PrimesFound))
		p.calcCovered.WithLabelValues(name).Set(float64(stats.Covered))
		p.calcBatches.WithLabelValues(name, "in_flight").Set(float64(stats.InFlight))
		p.calcBatches.WithLabelValues(name, "submitted").Set(float64(stats.BatchesSubmitted))
		p.calcBatches.WithLabelValues(name, "completed").Set(float64(stats.BatchesCompleted))
	}
	p.calcsMu.RUnlock()
}

func boolGauge(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
