package core

// TaskState is the lifecycle state of a Task.
type TaskState int32

const (
	TaskStateUnstarted TaskState = iota
	TaskStateReady
	TaskStateRunning
	TaskStateParked
	TaskStatePinned
	TaskStateCompleted
	TaskStateFailed
)

func (s TaskState) String() string {
	switch s {
	case TaskStateUnstarted:
		return "UNSTARTED"
	case TaskStateReady:
		return "READY"
	case TaskStateRunning:
		return "RUNNING"
	case TaskStateParked:
		return "PARKED"
	case TaskStatePinned:
		return "PINNED"
	case TaskStateCompleted:
		return "COMPLETED"
	case TaskStateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// IsTerminal reports whether the state is Completed or Failed.
func (s TaskState) IsTerminal() bool {
	return s == TaskStateCompleted || s == TaskStateFailed
}

// MarshalText lets dumps render states by name.
func (s TaskState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// OutcomeStatus classifies a terminal outcome.
type OutcomeStatus int

const (
	OutcomeSuccess OutcomeStatus = iota
	OutcomeFailed
	OutcomeCancelled
)

func (s OutcomeStatus) String() string {
	switch s {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailed:
		return "failed"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

func (s OutcomeStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Outcome is the immutable terminal result of a task.
type Outcome struct {
	Status OutcomeStatus
	Value  any
	Err    error
}

// OK reports whether the task succeeded.
func (o Outcome) OK() bool {
	return o.Status == OutcomeSuccess
}
