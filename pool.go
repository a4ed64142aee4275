package primerunner

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/bobbyc-brs/prime-runner/core"
)

// GoroutineThreadPool manages a fixed set of worker goroutines
// Responsible for pulling tasks from the scheduler and executing them
type GoroutineThreadPool struct {
	id        string
	workers   int
	scheduler *core.TaskScheduler
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	running   bool
	runningMu sync.RWMutex
	stopOnce  sync.Once
}

// NewGoroutineThreadPool creates a new GoroutineThreadPool.
// workers == 0 selects the detected hardware parallelism; negative values are rejected.
func NewGoroutineThreadPool(id string, workers int) (*GoroutineThreadPool, error) {
	return NewGoroutineThreadPoolWithConfig(id, workers, core.DefaultTaskSchedulerConfig())
}

// NewGoroutineThreadPoolWithConfig creates a pool whose scheduler uses the given handlers.
func NewGoroutineThreadPoolWithConfig(id string, workers int, config *core.TaskSchedulerConfig) (*GoroutineThreadPool, error) {
	n, err := ResolveWorkerCount(workers)
	if err != nil {
		return nil, err
	}
	return &GoroutineThreadPool{
		id:        id,
		workers:   n,
		scheduler: core.NewFIFOTaskSchedulerWithConfig(id, n, config),
	}, nil
}

// ResolveWorkerCount maps the auto-detect sentinel 0 to GOMAXPROCS.
func ResolveWorkerCount(workers int) (int, error) {
	if workers < 0 {
		return 0, fmt.Errorf("%w: worker count %d", core.ErrInvalidArgument, workers)
	}
	if workers == 0 {
		workers = max(runtime.GOMAXPROCS(0), 1)
	}
	return workers, nil
}

// Start starts all worker goroutines
func (tg *GoroutineThreadPool) Start(ctx context.Context) {
	tg.runningMu.Lock()
	defer tg.runningMu.Unlock()

	if tg.running || tg.scheduler.IsShutdown() {
		return
	}

	tg.ctx, tg.cancel = context.WithCancel(ctx)
	tg.running = true

	for i := 0; i < tg.workers; i++ {
		tg.wg.Add(1)
		go tg.workerLoop(i, tg.ctx)
	}
}

// Submit enqueues a task. It fails with core.ErrPoolClosed after Shutdown.
func (tg *GoroutineThreadPool) Submit(task core.Task) (*core.Handle, error) {
	return tg.scheduler.Post(task)
}

// Barrier blocks until every task submitted so far has completed.
// Concurrent submitters may extend the wait.
func (tg *GoroutineThreadPool) Barrier() {
	tg.scheduler.Wait()
}

// Shutdown stops accepting new work, lets queued work drain and joins the workers.
// Safe to call more than once.
func (tg *GoroutineThreadPool) Shutdown() {
	tg.stopOnce.Do(func() {
		tg.scheduler.Shutdown()

		tg.runningMu.RLock()
		running := tg.running
		tg.runningMu.RUnlock()
		if !running {
			return
		}

		tg.Join()
		if tg.cancel != nil {
			tg.cancel()
		}

		tg.runningMu.Lock()
		tg.running = false
		tg.runningMu.Unlock()
	})
}

// ID returns the ID of the thread pool
func (tg *GoroutineThreadPool) ID() string {
	return tg.id
}

// IsRunning returns whether the thread pool is running
func (tg *GoroutineThreadPool) IsRunning() bool {
	tg.runningMu.RLock()
	defer tg.runningMu.RUnlock()
	return tg.running
}

// workerLoop is the main loop for each worker
func (tg *GoroutineThreadPool) workerLoop(id int, ctx context.Context) {
	defer tg.wg.Done()
	stopCh := ctx.Done()

	for {
		item, ok := tg.scheduler.GetWork(stopCh)
		if !ok {
			return
		}

		tg.scheduler.OnTaskStart()
		err := tg.execute(ctx, id, item)
		item.Handle.Resolve(err)
		tg.scheduler.OnTaskEnd()
	}
}

// execute runs one task, converting a panic or returned error into a *core.TaskError
func (tg *GoroutineThreadPool) execute(ctx context.Context, workerID int, item core.TaskItem) (err error) {
	metrics := tg.scheduler.GetMetrics()
	start := time.Now()
	taskCtx := core.WithTaskID(ctx, item.ID)

	defer func() {
		metrics.RecordTaskDuration(tg.id, time.Since(start))
		if r := recover(); r != nil {
			stack := debug.Stack()
			tg.scheduler.GetPanicHandler().HandlePanic(taskCtx, tg.id, workerID, r, stack)
			metrics.RecordTaskFailure(tg.id, "panic")
			err = &core.TaskError{ID: item.ID, Panic: r, Stack: stack}
		}
	}()

	if taskErr := item.Task(taskCtx); taskErr != nil {
		metrics.RecordTaskFailure(tg.id, "error")
		return &core.TaskError{ID: item.ID, Err: taskErr}
	}
	return nil
}

// Join waits for all worker goroutines to finish
func (tg *GoroutineThreadPool) Join() {
	tg.wg.Wait()
}

// WorkerCount returns the number of workers
func (tg *GoroutineThreadPool) WorkerCount() int {
	return tg.workers
}

func (tg *GoroutineThreadPool) QueuedTaskCount() int {
	return tg.scheduler.QueuedTaskCount()
}

func (tg *GoroutineThreadPool) ActiveTaskCount() int {
	return tg.scheduler.ActiveTaskCount()
}

// GetScheduler exposes the scheduler for metrics lookups
func (tg *GoroutineThreadPool) GetScheduler() *core.TaskScheduler {
	return tg.scheduler
}

// Stats returns current observability data for this pool.
func (tg *GoroutineThreadPool) Stats() core.PoolStats {
	return core.PoolStats{
		ID:          tg.id,
		Workers:     tg.workers,
		Queued:      tg.QueuedTaskCount(),
		Active:      tg.ActiveTaskCount(),
		Outstanding: tg.scheduler.OutstandingTaskCount(),
		Running:     tg.IsRunning(),
		Closed:      tg.scheduler.IsShutdown(),
	}
}
