package core

import (
	"errors"
	"fmt"
)

var (
	// ErrPoolClosed is returned when work is submitted after shutdown.
	ErrPoolClosed = errors.New("pool is closed")

	// ErrInvalidArgument reports a rejected construction parameter.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrTaskFailure marks an error or panic raised inside a task.
	ErrTaskFailure = errors.New("task failure")
)

// TaskError describes a failed task. It matches ErrTaskFailure with errors.Is.
type TaskError struct {
	ID    TaskID
	Panic any    // recovered panic value, nil when the task returned an error
	Stack []byte // stack at the panic site
	Err   error  // error returned by the task
}

func (e *TaskError) Error() string {
	if e.Panic != nil {
		return fmt.Sprintf("task %s panicked: %v", e.ID, e.Panic)
	}
	return fmt.Sprintf("task %s failed: %v", e.ID, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

func (e *TaskError) Is(target error) bool {
	return target == ErrTaskFailure
}
