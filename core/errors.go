package core

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyStarted is returned when Start is called on a task that was already started.
	ErrAlreadyStarted = errors.New("task already started")

	// ErrSchedulerShutdown is returned when a task is submitted after shutdown began.
	ErrSchedulerShutdown = errors.New("scheduler is shut down")

	// ErrDoubleCompletion is the panic value raised when an outcome is recorded twice
	// for the same task. It indicates a scheduler bug and is never returned to callers.
	ErrDoubleCompletion = errors.New("task outcome recorded twice")

	// ErrInterrupted is delivered to a task woken from an interruptible wait, or
	// returned by CheckInterrupt when the interrupt flag is set.
	ErrInterrupted = errors.New("task interrupted")

	// ErrCancelled is the cause carried by a Cancelled outcome.
	ErrCancelled = errors.New("task cancelled")

	// ErrNotOwner is returned when a lock is released by a caller that does not hold it.
	ErrNotOwner = errors.New("lock not held by caller")

	// ErrNotInTask is returned by operations that require a task context.
	ErrNotInTask = errors.New("caller is not running inside a task")

	// ErrSelfJoin is returned when a task tries to join itself.
	ErrSelfJoin = errors.New("task cannot join itself")
)

// TaskFailedError wraps the error (or recovered panic) that terminated a task body.
type TaskFailedError struct {
	TaskID TaskID
	Name   string
	Cause  error
}

func (e *TaskFailedError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("task %s (%s) failed: %v", e.TaskID, e.Name, e.Cause)
	}
	return fmt.Sprintf("task %s failed: %v", e.TaskID, e.Cause)
}

func (e *TaskFailedError) Unwrap() error {
	return e.Cause
}

// PanicError is the cause recorded when a task body panics.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
