package core

import (
	"strconv"
	"sync/atomic"
)

// Builder configures and creates tasks bound to one scheduler. A Builder is
// not safe for concurrent use; take a Factory for that.
type Builder struct {
	sched    *Scheduler
	name     string
	prefix   string
	counter  *atomic.Int64
	daemon   bool
	priority TaskPriority
}

// NewBuilder returns a builder for unnamed, non-daemon (unless the scheduler
// defaults otherwise), user-visible tasks.
func NewBuilder(s *Scheduler) *Builder {
	return &Builder{
		sched:    s,
		daemon:   s.daemonDefault,
		priority: TaskPriorityUserVisible,
	}
}

// Name sets a fixed name for every task built.
func (b *Builder) Name(name string) *Builder {
	b.name = name
	b.prefix = ""
	b.counter = nil
	return b
}

// NameWithOrdinal names tasks prefix+N, where N starts at start and grows by
// one for each task built.
func (b *Builder) NameWithOrdinal(prefix string, start int64) *Builder {
	b.name = ""
	b.prefix = prefix
	b.counter = new(atomic.Int64)
	b.counter.Store(start)
	return b
}

func (b *Builder) Daemon(on bool) *Builder {
	b.daemon = on
	return b
}

// Priority sets the advisory priority. It never affects ordering.
func (b *Builder) Priority(p TaskPriority) *Builder {
	b.priority = p
	return b
}

// Unstarted creates a task that runs body once started.
func (b *Builder) Unstarted(body Body) *Task {
	return newTask(b.sched, nextName(b.name, b.prefix, b.counter), b.daemon, b.priority, body.callable(), body)
}

// Start creates and submits a task running body.
func (b *Builder) Start(body Body) (*Task, error) {
	t := b.Unstarted(body)
	return t, t.Start()
}

// UnstartedCallable creates a task whose outcome carries fn's value.
func (b *Builder) UnstartedCallable(fn Callable) *Task {
	return newTask(b.sched, nextName(b.name, b.prefix, b.counter), b.daemon, b.priority, fn, fn)
}

func (b *Builder) StartCallable(fn Callable) (*Task, error) {
	t := b.UnstartedCallable(fn)
	return t, t.Start()
}

// Factory snapshots the builder. The factory keeps its own ordinal counter,
// starting where the builder's currently stands.
func (b *Builder) Factory() *Factory {
	f := &Factory{
		sched:    b.sched,
		name:     b.name,
		prefix:   b.prefix,
		daemon:   b.daemon,
		priority: b.priority,
	}
	if b.counter != nil {
		f.counter = new(atomic.Int64)
		f.counter.Store(b.counter.Load())
	}
	return f
}

func nextName(name, prefix string, counter *atomic.Int64) string {
	if counter == nil {
		return name
	}
	n := counter.Add(1) - 1
	return prefix + strconv.FormatInt(n, 10)
}

// Factory creates unstarted tasks from a fixed template. Safe for concurrent use.
type Factory struct {
	sched    *Scheduler
	name     string
	prefix   string
	counter  *atomic.Int64
	daemon   bool
	priority TaskPriority
}

// NewTask returns an unstarted task running body, with a fresh identity.
func (f *Factory) NewTask(body Body) *Task {
	return newTask(f.sched, nextName(f.name, f.prefix, f.counter), f.daemon, f.priority, body.callable(), body)
}

func (f *Factory) NewCallableTask(fn Callable) *Task {
	return newTask(f.sched, nextName(f.name, f.prefix, f.counter), f.daemon, f.priority, fn, fn)
}

// Scheduler returns the scheduler the factory's tasks are bound to.
func (f *Factory) Scheduler() *Scheduler {
	return f.sched
}
