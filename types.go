package primerunner

import "github.com/bobbyc-brs/prime-runner/core"

// Re-export commonly used types from core package for convenience.
// This allows users to import only the primerunner package for pool use.

// Task is the unit of work (Closure)
type Task = core.Task

// Handle resolves once its task has completed
type Handle = core.Handle

// TaskError describes a task that panicked or returned an error
type TaskError = core.TaskError

// PoolStats is a point-in-time view of a pool
type PoolStats = core.PoolStats

// Sentinel errors
var (
	ErrPoolClosed      = core.ErrPoolClosed
	ErrInvalidArgument = core.ErrInvalidArgument
	ErrTaskFailure     = core.ErrTaskFailure
)
