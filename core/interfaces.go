package core

import (
	"context"
	"time"
)

// =============================================================================
// PanicHandler: Interface for handling task panics
// =============================================================================

// PanicHandler is called when a task panics during execution.
// The panic is still delivered to whoever waits on the task's Handle;
// the handler only observes it.
//
// Implementations should be thread-safe as they may be called concurrently.
type PanicHandler interface {
	// HandlePanic is called when a task panics.
	//
	// Parameters:
	// - ctx: The context of the panicked task (carries its TaskID)
	// - poolID: The id of the pool whose worker ran the task
	// - workerID: The id of the worker goroutine
	// - panicInfo: The recovered panic value
	// - stackTrace: The stack trace at the time of panic
	HandlePanic(ctx context.Context, poolID string, workerID int, panicInfo any, stackTrace []byte)
}

// DefaultPanicHandler logs panics through a Logger.
type DefaultPanicHandler struct {
	Logger Logger
}

// HandlePanic logs the panic at error level.
func (h *DefaultPanicHandler) HandlePanic(ctx context.Context, poolID string, workerID int, panicInfo any, stackTrace []byte) {
	logger := h.Logger
	if logger == nil {
		logger = NewDefaultLogger()
	}
	fields := []Field{F("pool", poolID), F("worker", workerID), F("panic", panicInfo), F("stack", string(stackTrace))}
	if id, ok := GetCurrentTaskID(ctx); ok {
		fields = append(fields, F("task", id.String()))
	}
	logger.Error("task panicked", fields...)
}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics defines the interface for collecting pool execution metrics.
// Implementations can send metrics to monitoring systems (Prometheus, StatsD, etc.).
//
// Methods should be non-blocking and fast to avoid impacting task execution performance.
type Metrics interface {
	// RecordTaskDuration records how long a task took to execute.
	RecordTaskDuration(poolID string, duration time.Duration)

	// RecordTaskFailure records that a task panicked or returned an error.
	RecordTaskFailure(poolID string, reason string)

	// RecordQueueDepth records the current queue depth.
	RecordQueueDepth(poolID string, depth int)

	// RecordTaskRejected records that a task was rejected (e.g., after shutdown).
	RecordTaskRejected(poolID string, reason string)
}

// NilMetrics provides a no-op metrics implementation.
// This is the default when no metrics interface is provided.
type NilMetrics struct{}

func (m *NilMetrics) RecordTaskDuration(poolID string, duration time.Duration) {}
func (m *NilMetrics) RecordTaskFailure(poolID string, reason string)          {}
func (m *NilMetrics) RecordQueueDepth(poolID string, depth int)               {}
func (m *NilMetrics) RecordTaskRejected(poolID string, reason string)         {}

// =============================================================================
// RejectedTaskHandler: Interface for handling rejected tasks
// =============================================================================

// RejectedTaskHandler is called when a submission is rejected by the scheduler.
// The submitter also receives ErrPoolClosed.
type RejectedTaskHandler interface {
	HandleRejectedTask(poolID string, reason string)
}

// DefaultRejectedTaskHandler logs rejected tasks at warn level.
type DefaultRejectedTaskHandler struct {
	Logger Logger
}

// HandleRejectedTask logs the rejected task.
func (h *DefaultRejectedTaskHandler) HandleRejectedTask(poolID string, reason string) {
	logger := h.Logger
	if logger == nil {
		logger = NewDefaultLogger()
	}
	logger.Warn("task rejected", F("pool", poolID), F("reason", reason))
}

// =============================================================================
// TaskSchedulerConfig: Configuration for TaskScheduler
// =============================================================================

// TaskSchedulerConfig holds configuration options for TaskScheduler.
// All fields are optional; if not provided, default implementations will be used.
type TaskSchedulerConfig struct {
	// PanicHandler is called when a task panics. Defaults to DefaultPanicHandler.
	PanicHandler PanicHandler

	// Metrics is called to record task execution metrics. Defaults to NilMetrics.
	Metrics Metrics

	// RejectedTaskHandler is called when a task is rejected. Defaults to DefaultRejectedTaskHandler.
	RejectedTaskHandler RejectedTaskHandler

	// Logger is shared by the default handlers. Defaults to DefaultLogger.
	Logger Logger
}

// DefaultTaskSchedulerConfig returns a config with default handlers.
func DefaultTaskSchedulerConfig() *TaskSchedulerConfig {
	logger := NewDefaultLogger()
	return &TaskSchedulerConfig{
		PanicHandler:        &DefaultPanicHandler{Logger: logger},
		Metrics:             &NilMetrics{},
		RejectedTaskHandler: &DefaultRejectedTaskHandler{Logger: logger},
		Logger:              logger,
	}
}
