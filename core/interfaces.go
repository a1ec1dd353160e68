package core

import (
	"context"
	"time"
)

// =============================================================================
// PanicHandler: Interface for handling task panics
// =============================================================================

// PanicHandler is called when a task body panics. The panic is already
// contained: it becomes the task's Failed outcome and never reaches the carrier.
//
// Implementations should be thread-safe as they may be called concurrently.
type PanicHandler interface {
	// HandlePanic is called when a task panics.
	//
	// Parameters:
	// - ctx: The context of the panicked task
	// - schedulerName: The name of the scheduler that owns the task
	// - taskID: The ID of the panicked task
	// - panicInfo: The panic value recovered from the task
	// - stackTrace: The stack trace at the time of panic
	HandlePanic(ctx context.Context, schedulerName string, taskID TaskID, panicInfo any, stackTrace []byte)
}

// DefaultPanicHandler logs panics through a Logger.
type DefaultPanicHandler struct {
	Logger Logger
}

// HandlePanic logs the panic at error level.
func (h *DefaultPanicHandler) HandlePanic(ctx context.Context, schedulerName string, taskID TaskID, panicInfo any, stackTrace []byte) {
	logger := h.Logger
	if logger == nil {
		logger = NewDefaultLogger()
	}
	logger.Error("task panicked",
		F("scheduler", schedulerName),
		F("task", taskID.String()),
		F("panic", panicInfo),
		F("stack", string(stackTrace)),
	)
}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics defines the interface for collecting runtime metrics.
// Implementations can send metrics to monitoring systems (Prometheus, StatsD, etc.).
//
// Methods should be non-blocking and fast; they are called on carrier and
// task goroutines.
type Metrics interface {
	// RecordTaskDuration records the wall time from first execution to termination.
	RecordTaskDuration(schedulerName string, priority TaskPriority, duration time.Duration)

	// RecordTaskOutcome records a terminal outcome.
	RecordTaskOutcome(schedulerName string, status OutcomeStatus)

	// RecordTaskPanic records that a task panicked during execution.
	RecordTaskPanic(schedulerName string, panicInfo any)

	// RecordQueueDepth records the current ready queue depth.
	RecordQueueDepth(schedulerName string, depth int)

	// RecordTaskRejected records that a submission was rejected.
	RecordTaskRejected(schedulerName string, reason string)

	// RecordTaskParked records a task releasing its carrier.
	RecordTaskParked(schedulerName string, reason string)

	// RecordPinnedBlock records a task blocking while pinned to its carrier.
	RecordPinnedBlock(schedulerName string, reason string, duration time.Duration)
}

// NilMetrics provides a no-op metrics implementation that does nothing.
// This is the default when no metrics interface is provided.
type NilMetrics struct{}

// RecordTaskDuration is a no-op.
func (m *NilMetrics) RecordTaskDuration(schedulerName string, priority TaskPriority, duration time.Duration) {
}

// RecordTaskOutcome is a no-op.
func (m *NilMetrics) RecordTaskOutcome(schedulerName string, status OutcomeStatus) {
}

// RecordTaskPanic is a no-op.
func (m *NilMetrics) RecordTaskPanic(schedulerName string, panicInfo any) {
}

// RecordQueueDepth is a no-op.
func (m *NilMetrics) RecordQueueDepth(schedulerName string, depth int) {
}

// RecordTaskRejected is a no-op.
func (m *NilMetrics) RecordTaskRejected(schedulerName string, reason string) {
}

// RecordTaskParked is a no-op.
func (m *NilMetrics) RecordTaskParked(schedulerName string, reason string) {
}

// RecordPinnedBlock is a no-op.
func (m *NilMetrics) RecordPinnedBlock(schedulerName string, reason string, duration time.Duration) {
}

// =============================================================================
// RejectedTaskHandler: Interface for handling rejected tasks
// =============================================================================

// RejectedTaskHandler is called when a submission is rejected because the
// scheduler is shutting down.
//
// Implementations should be thread-safe as they may be called concurrently.
type RejectedTaskHandler interface {
	HandleRejectedTask(schedulerName string, task *Task, reason string)
}

// DefaultRejectedTaskHandler logs rejected tasks.
type DefaultRejectedTaskHandler struct {
	Logger Logger
}

func (h *DefaultRejectedTaskHandler) HandleRejectedTask(schedulerName string, task *Task, reason string) {
	logger := h.Logger
	if logger == nil {
		logger = NewDefaultLogger()
	}
	logger.Warn("task rejected",
		F("scheduler", schedulerName),
		F("task", task.ID().String()),
		F("name", task.DisplayName()),
		F("reason", reason),
	)
}

// =============================================================================
// PinnedEventHandler: carrier pinning diagnostics
// =============================================================================

// PinnedEvent describes a task that blocked while pinned to its carrier.
type PinnedEvent struct {
	TaskID    TaskID        `json:"task_id"`
	TaskName  string        `json:"task_name"`
	CarrierID int           `json:"carrier_id"`
	Reason    string        `json:"reason"`
	Duration  time.Duration `json:"duration"`
	At        time.Time     `json:"at"`
}

// PinnedEventHandler receives PinnedEvents. Called on the pinned task's goroutine.
type PinnedEventHandler interface {
	HandlePinned(ev PinnedEvent)
}

// PinnedEventFunc adapts a function to PinnedEventHandler.
type PinnedEventFunc func(ev PinnedEvent)

func (f PinnedEventFunc) HandlePinned(ev PinnedEvent) { f(ev) }

// =============================================================================
// SchedulerConfig: Configuration for Scheduler
// =============================================================================

// SchedulerConfig holds configuration options for Scheduler.
// All handlers are optional; if not provided, default implementations will be used.
type SchedulerConfig struct {
	// Name labels logs and metrics. Defaults to "vtask".
	Name string

	// Carriers sizes the work signal buffer; it should match the carrier pool size.
	Carriers int

	// HistoryCapacity bounds the ring buffer of recent terminal tasks.
	HistoryCapacity int

	// DaemonByDefault is the daemon flag of tasks built without an explicit one.
	DaemonByDefault bool

	// Logger defaults to NewDefaultLogger (logrus standard logger).
	Logger Logger

	// PanicHandler is called when a task panics. Defaults to DefaultPanicHandler.
	PanicHandler PanicHandler

	// Metrics is called to record runtime metrics. Defaults to NilMetrics.
	Metrics Metrics

	// RejectedTaskHandler is called when a task is rejected. Defaults to DefaultRejectedTaskHandler.
	RejectedTaskHandler RejectedTaskHandler

	// PinnedEventHandler receives pinned blocking events. Optional.
	PinnedEventHandler PinnedEventHandler
}

// DefaultSchedulerConfig returns a config with default handlers.
func DefaultSchedulerConfig() *SchedulerConfig {
	logger := NewDefaultLogger()
	return &SchedulerConfig{
		Name:                "vtask",
		Carriers:            1,
		HistoryCapacity:     defaultTaskHistoryCapacity,
		Logger:              logger,
		PanicHandler:        &DefaultPanicHandler{Logger: logger},
		Metrics:             &NilMetrics{},
		RejectedTaskHandler: &DefaultRejectedTaskHandler{Logger: logger},
	}
}
