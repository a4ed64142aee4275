package core

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// TaskScheduler is the work source shared by a pool's workers.
// Tasks leave the queue in the order they were posted.
type TaskScheduler struct {
	id          string
	queue       TaskQueue
	signal      chan struct{}
	closed      chan struct{}
	closeOnce   sync.Once
	workerCount int

	metricQueued int32 // Waiting in queue
	metricActive int32 // Executing in Worker

	// outstanding counts queued + running tasks; idle is broadcast when it hits zero
	mu           sync.Mutex
	idle         *sync.Cond
	outstanding  int
	shuttingDown bool

	// Handlers and Metrics
	panicHandler        PanicHandler
	metrics             Metrics
	rejectedTaskHandler RejectedTaskHandler
	logger              Logger
}

func NewFIFOTaskScheduler(id string, workerCount int) *TaskScheduler {
	return NewFIFOTaskSchedulerWithConfig(id, workerCount, DefaultTaskSchedulerConfig())
}

func NewFIFOTaskSchedulerWithConfig(id string, workerCount int, config *TaskSchedulerConfig) *TaskScheduler {
	s := &TaskScheduler{
		id:          id,
		queue:       NewFIFOTaskQueue(),
		signal:      make(chan struct{}, workerCount*2),
		closed:      make(chan struct{}),
		workerCount: workerCount,
	}
	s.idle = sync.NewCond(&s.mu)

	// Apply config
	if config != nil {
		s.panicHandler = config.PanicHandler
		s.metrics = config.Metrics
		s.rejectedTaskHandler = config.RejectedTaskHandler
		s.logger = config.Logger
	}

	// Use defaults if not provided
	if s.logger == nil {
		s.logger = NewDefaultLogger()
	}
	if s.panicHandler == nil {
		s.panicHandler = &DefaultPanicHandler{Logger: s.logger}
	}
	if s.metrics == nil {
		s.metrics = &NilMetrics{}
	}
	if s.rejectedTaskHandler == nil {
		s.rejectedTaskHandler = &DefaultRejectedTaskHandler{Logger: s.logger}
	}

	return s
}

// Post enqueues a task and returns the handle it will resolve.
// It only blocks on the queue lock, never on worker availability.
func (s *TaskScheduler) Post(task Task) (*Handle, error) {
	if task == nil {
		return nil, fmt.Errorf("%w: nil task", ErrInvalidArgument)
	}

	s.mu.Lock()
	if s.shuttingDown {
		s.mu.Unlock()
		s.rejectedTaskHandler.HandleRejectedTask(s.id, "shutting down")
		s.metrics.RecordTaskRejected(s.id, "shutting down")
		return nil, ErrPoolClosed
	}
	id := GenerateTaskID()
	h := NewHandle(id)
	s.queue.Push(TaskItem{ID: id, Task: task, Handle: h})
	s.outstanding++
	s.mu.Unlock()

	depth := atomic.AddInt32(&s.metricQueued, 1)
	s.metrics.RecordQueueDepth(s.id, int(depth))

	select {
	case s.signal <- struct{}{}:
	default:
		// Signal channel full, but task is already queued
	}
	return h, nil
}

// GetWork (Called by Worker)
// After Shutdown it keeps returning queued tasks and reports false once the queue is empty.
func (s *TaskScheduler) GetWork(stopCh <-chan struct{}) (TaskItem, bool) {
	for {
		if item, ok := s.pop(); ok {
			return item, true
		}

		select {
		case <-s.signal:
			continue
		case <-s.closed:
			// A post that raced the shutdown flag is visible now
			return s.pop()
		case <-stopCh:
			return TaskItem{}, false
		}
	}
}

func (s *TaskScheduler) pop() (TaskItem, bool) {
	item, ok := s.queue.Pop()
	if !ok {
		return TaskItem{}, false
	}
	depth := atomic.AddInt32(&s.metricQueued, -1)
	s.metrics.RecordQueueDepth(s.id, int(depth))
	return item, true
}

// Wait blocks until every posted task has completed.
func (s *TaskScheduler) Wait() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.outstanding > 0 {
		s.idle.Wait()
	}
}

// Shutdown stops accepting tasks and wakes idle workers so they can drain and exit.
func (s *TaskScheduler) Shutdown() {
	s.mu.Lock()
	s.shuttingDown = true
	s.mu.Unlock()
	s.closeOnce.Do(func() { close(s.closed) })
}

// IsShutdown reports whether Shutdown has been called.
func (s *TaskScheduler) IsShutdown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shuttingDown
}

// Metrics
func (s *TaskScheduler) WorkerCount() int     { return s.workerCount }
func (s *TaskScheduler) QueuedTaskCount() int { return int(atomic.LoadInt32(&s.metricQueued)) }
func (s *TaskScheduler) ActiveTaskCount() int { return int(atomic.LoadInt32(&s.metricActive)) }

func (s *TaskScheduler) OutstandingTaskCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outstanding
}

func (s *TaskScheduler) OnTaskStart() {
	atomic.AddInt32(&s.metricActive, 1)
}

func (s *TaskScheduler) OnTaskEnd() {
	atomic.AddInt32(&s.metricActive, -1)

	s.mu.Lock()
	s.outstanding--
	if s.outstanding == 0 {
		s.idle.Broadcast()
	}
	s.mu.Unlock()
}

// GetPanicHandler returns the panic handler for this scheduler
func (s *TaskScheduler) GetPanicHandler() PanicHandler {
	return s.panicHandler
}

// GetMetrics returns the metrics collector for this scheduler
func (s *TaskScheduler) GetMetrics() Metrics {
	return s.metrics
}

// GetLogger returns the logger for this scheduler
func (s *TaskScheduler) GetLogger() Logger {
	return s.logger
}
