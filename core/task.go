package core

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Task is the unit of work (Closure).
// A returned error or a panic resolves the task's Handle with a *TaskError.
type Task func(ctx context.Context) error

// TaskID identifies a single submission.
type TaskID uuid.UUID

// GenerateTaskID returns a fresh random TaskID.
func GenerateTaskID() TaskID {
	return TaskID(uuid.New())
}

func (id TaskID) String() string {
	return uuid.UUID(id).String()
}

// =============================================================================
// Handle: completion of one submitted task
// =============================================================================

// Handle is returned by a submission and resolves exactly once, when the task
// has run to completion (successfully or not).
type Handle struct {
	id   TaskID
	done chan struct{}
	once sync.Once
	err  error
}

// NewHandle creates an unresolved handle.
func NewHandle(id TaskID) *Handle {
	return &Handle{id: id, done: make(chan struct{})}
}

// ID returns the id of the task behind this handle.
func (h *Handle) ID() TaskID {
	return h.id
}

// Done is closed once the task has completed.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the task completes and returns its failure, if any.
// Calling Wait again returns the same result immediately.
func (h *Handle) Wait() error {
	<-h.done
	return h.err
}

// Err returns the task failure once resolved, nil otherwise.
func (h *Handle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

// Resolve completes the handle. Only the first call has any effect.
func (h *Handle) Resolve(err error) {
	h.once.Do(func() {
		h.err = err
		close(h.done)
	})
}

// =============================================================================
// Context Helper
// =============================================================================

type taskIDKeyType struct{}

var taskIDKey taskIDKeyType

// WithTaskID returns a context carrying the id of the running task.
func WithTaskID(ctx context.Context, id TaskID) context.Context {
	return context.WithValue(ctx, taskIDKey, id)
}

// GetCurrentTaskID retrieves the running task's id from context.
func GetCurrentTaskID(ctx context.Context) (TaskID, bool) {
	id, ok := ctx.Value(taskIDKey).(TaskID)
	return id, ok
}
