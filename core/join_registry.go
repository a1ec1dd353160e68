package core

import (
	"fmt"
	"sync"
)

// JoinRegistry holds the waiters of tasks that are not yet terminal. The
// outcome itself lives on the task; an entry exists only while someone waits,
// so the registry is bounded by pending joins, not by tasks ever run.
type JoinRegistry struct {
	mu      sync.Mutex
	waiters map[TaskID][]func(Outcome)
}

func NewJoinRegistry() *JoinRegistry {
	return &JoinRegistry{
		waiters: make(map[TaskID][]func(Outcome)),
	}
}

// RegisterWaiter calls resume with the outcome of t. If t already completed,
// resume runs immediately on the caller's goroutine; otherwise it runs on the
// completing goroutine, after earlier registrations.
// resume must not block.
func (r *JoinRegistry) RegisterWaiter(t *Task, resume func(Outcome)) {
	r.mu.Lock()
	if o := t.outcome.Load(); o != nil {
		r.mu.Unlock()
		resume(*o)
		return
	}
	r.waiters[t.id] = append(r.waiters[t.id], resume)
	r.mu.Unlock()
}

// Complete records the outcome of t and resumes its waiters in registration
// order, then drops the entry. Recording a second outcome is a scheduler bug
// and panics with ErrDoubleCompletion.
func (r *JoinRegistry) Complete(t *Task, o Outcome) {
	r.mu.Lock()
	if !t.outcome.CompareAndSwap(nil, &o) {
		r.mu.Unlock()
		panic(fmt.Errorf("%w: task %s", ErrDoubleCompletion, t.id))
	}
	waiters := r.waiters[t.id]
	delete(r.waiters, t.id)
	r.mu.Unlock()

	for _, resume := range waiters {
		resume(o)
	}
}

// Waiters returns the number of waiters still pending on id.
func (r *JoinRegistry) Waiters(id TaskID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.waiters[id])
}

// Len returns the number of tasks with pending waiters.
func (r *JoinRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.waiters)
}
