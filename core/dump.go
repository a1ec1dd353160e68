package core

import (
	"encoding/json"
	"io"
	"sort"
)

// Dump is the JSON document written by WriteDump.
type Dump struct {
	Scheduler SchedulerStats        `json:"scheduler"`
	Carriers  []CarrierInfo         `json:"carriers"`
	Tasks     []TaskInfo            `json:"tasks"`
	Recent    []TaskExecutionRecord `json:"recent"`
}

// DumpAllTasks returns a snapshot of every live task, ordered by ID.
// Carriers are not listed; see Carriers.
func (s *Scheduler) DumpAllTasks() []TaskInfo {
	out := make([]TaskInfo, 0, s.live.Size())
	s.live.Range(func(_ TaskID, t *Task) bool {
		out = append(out, t.Info())
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Info returns a point-in-time view of t.
func (t *Task) Info() TaskInfo {
	info := TaskInfo{
		ID:          t.id,
		Name:        t.DisplayName(),
		State:       t.State(),
		Daemon:      t.daemon,
		Priority:    t.priority,
		Interrupted: t.IsInterrupted(),
		CarrierID:   -1,
		Parks:       t.parks.Load(),
	}
	if c := t.carrier.Load(); c != nil {
		info.CarrierID = c.ID()
	}
	return info
}

// Snapshot collects scheduler counters, carriers, live tasks and up to
// recent terminal records into one Dump.
func (s *Scheduler) Snapshot(recent int) Dump {
	d := Dump{
		Scheduler: s.Stats(),
		Carriers:  s.Carriers(),
		Tasks:     s.DumpAllTasks(),
		Recent:    s.RecentTasks(recent),
	}
	if d.Recent == nil {
		d.Recent = []TaskExecutionRecord{}
	}
	return d
}

// WriteDump writes an indented JSON Dump to w.
func (s *Scheduler) WriteDump(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s.Snapshot(defaultDumpRecent))
}

const defaultDumpRecent = 20
