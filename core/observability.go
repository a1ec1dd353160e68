package core

import "time"

// TaskExecutionRecord captures a terminal task.
type TaskExecutionRecord struct {
	TaskID      TaskID        `json:"task_id"`
	Name        string        `json:"name"`
	Scheduler   string        `json:"scheduler"`
	Priority    TaskPriority  `json:"priority"`
	Daemon      bool          `json:"daemon"`
	Status      OutcomeStatus `json:"status"`
	SubmittedAt time.Time     `json:"submitted_at"`
	StartedAt   time.Time     `json:"started_at"`
	FinishedAt  time.Time     `json:"finished_at"`
	Duration    time.Duration `json:"duration"`
	Parks       int64         `json:"parks"`
	Panicked    bool          `json:"panicked"`
}

// TaskInfo is a point-in-time view of a live task.
type TaskInfo struct {
	ID          TaskID       `json:"id"`
	Name        string       `json:"name"`
	State       TaskState    `json:"state"`
	Daemon      bool         `json:"daemon"`
	Priority    TaskPriority `json:"priority"`
	Interrupted bool         `json:"interrupted"`
	CarrierID   int          `json:"carrier_id"` // -1 when not mounted
	Parks       int64        `json:"parks"`
}

// SchedulerStats represents runtime observability state for a scheduler.
type SchedulerStats struct {
	Name      string `json:"name"`
	Live      int    `json:"live"`
	Ready     int    `json:"ready"`
	Running   int    `json:"running"`
	Parked    int    `json:"parked"`
	Pinned    int    `json:"pinned"`
	Delayed   int    `json:"delayed"`
	Completed int64  `json:"completed"`
	Failed    int64  `json:"failed"`
	Cancelled int64  `json:"cancelled"`
	Rejected  int64  `json:"rejected"`
	Shutdown  bool   `json:"shutdown"`
}

// PoolStats represents runtime observability state for a carrier pool.
type PoolStats struct {
	ID       string `json:"id"`
	Carriers int    `json:"carriers"`
	Idle     int    `json:"idle"`
	Busy     int    `json:"busy"`
	Pinned   int    `json:"pinned"`
	Running  bool   `json:"running"`
}
