package core

import (
	"sync"
)

const (
	defaultQueueCap     = 16
	compactMinCap       = 64 // Don't compact if capacity is less than this
	compactShrinkFactor = 4  // Trigger compaction when len < cap/4
)

// TaskItem is a queued task together with the handle it resolves.
type TaskItem struct {
	ID     TaskID
	Task   Task
	Handle *Handle
}

// TaskQueue defines the interface for queue implementations
type TaskQueue interface {
	Push(item TaskItem)
	Pop() (TaskItem, bool)
	Len() int
	IsEmpty() bool
}

// =============================================================================
// FIFOTaskQueue
// =============================================================================

// FIFOTaskQueue hands tasks out strictly in push order.
type FIFOTaskQueue struct {
	mu    sync.Mutex
	tasks []TaskItem
}

func NewFIFOTaskQueue() *FIFOTaskQueue {
	return &FIFOTaskQueue{
		tasks: make([]TaskItem, 0, defaultQueueCap),
	}
}

func (q *FIFOTaskQueue) Push(item TaskItem) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, item)
}

func (q *FIFOTaskQueue) Pop() (TaskItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tasks) == 0 {
		return TaskItem{}, false
	}

	item := q.tasks[0]
	// Zero the slot so the backing array doesn't pin the closure
	q.tasks[0] = TaskItem{}
	q.tasks = q.tasks[1:]
	q.maybeCompactLocked()

	return item, true
}

func (q *FIFOTaskQueue) maybeCompactLocked() {
	n := len(q.tasks)
	c := cap(q.tasks)

	if c < compactMinCap {
		return
	}
	if n == 0 {
		q.tasks = make([]TaskItem, 0, defaultQueueCap)
		return
	}
	if n*compactShrinkFactor >= c {
		return
	}

	newCap := max(c/2, defaultQueueCap, n)

	newSlice := make([]TaskItem, n, newCap)
	copy(newSlice, q.tasks)
	q.tasks = newSlice
}

func (q *FIFOTaskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

func (q *FIFOTaskQueue) IsEmpty() bool {
	return q.Len() == 0
}
