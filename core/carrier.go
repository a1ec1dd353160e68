package core

import "sync/atomic"

// CarrierStatus is the occupancy of a carrier.
type CarrierStatus int32

const (
	CarrierIdle CarrierStatus = iota
	CarrierBusy
	CarrierPinned
)

func (s CarrierStatus) String() string {
	switch s {
	case CarrierIdle:
		return "IDLE"
	case CarrierBusy:
		return "BUSY"
	case CarrierPinned:
		return "PINNED"
	default:
		return "UNKNOWN"
	}
}

func (s CarrierStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Carrier is one worker of the carrier pool. It runs at most one task
// continuation at a time.
type Carrier struct {
	id       int
	status   atomic.Int32
	task     atomic.Pointer[Task]
	executed atomic.Int64
}

func NewCarrier(id int) *Carrier {
	return &Carrier{id: id}
}

func (c *Carrier) ID() int               { return c.id }
func (c *Carrier) Status() CarrierStatus { return CarrierStatus(c.status.Load()) }

// CurrentTask returns the task whose continuation this carrier runs, if any.
func (c *Carrier) CurrentTask() *Task { return c.task.Load() }

// Executed returns how many times this carrier resumed a task.
func (c *Carrier) Executed() int64 { return c.executed.Load() }

func (c *Carrier) setStatus(s CarrierStatus) {
	c.status.Store(int32(s))
}

func (c *Carrier) attach(t *Task) {
	c.task.Store(t)
	c.executed.Add(1)
	c.setStatus(CarrierBusy)
}

func (c *Carrier) detach() {
	c.task.Store(nil)
	c.setStatus(CarrierIdle)
}

// CarrierInfo is a point-in-time view of a carrier.
type CarrierInfo struct {
	ID       int           `json:"id"`
	Status   CarrierStatus `json:"status"`
	TaskID   TaskID        `json:"task_id,omitempty"`
	TaskName string        `json:"task_name,omitempty"`
	Executed int64         `json:"executed"`
}

func (c *Carrier) Info() CarrierInfo {
	info := CarrierInfo{
		ID:       c.id,
		Status:   c.Status(),
		Executed: c.Executed(),
	}
	if t := c.CurrentTask(); t != nil {
		info.TaskID = t.ID()
		info.TaskName = t.DisplayName()
	}
	return info
}
