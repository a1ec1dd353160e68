package core

import (
	"context"
	"runtime/debug"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// Body is the unit of work executed by a task.
type Body func(ctx context.Context) error

// Callable is a Body that produces a value on success.
type Callable func(ctx context.Context) (any, error)

func (b Body) callable() Callable {
	if b == nil {
		return nil
	}
	return func(ctx context.Context) (any, error) {
		return nil, b(ctx)
	}
}

// =============================================================================
// TaskID
// =============================================================================

// TaskID is a process-wide unique task sequence number. IDs are never reused.
type TaskID uint64

var taskIDSeq atomic.Uint64

// GenerateTaskID returns the next task sequence number.
func GenerateTaskID() TaskID {
	return TaskID(taskIDSeq.Add(1))
}

func (id TaskID) IsZero() bool {
	return id == 0
}

func (id TaskID) String() string {
	return "#" + strconv.FormatUint(uint64(id), 10)
}

// =============================================================================
// TaskPriority: advisory metadata, never used for ordering
// =============================================================================

type TaskPriority int

const (
	// TaskPriorityBestEffort: Lowest priority
	TaskPriorityBestEffort TaskPriority = iota

	// TaskPriorityUserVisible: Default priority
	TaskPriorityUserVisible

	// TaskPriorityUserBlocking: Highest priority
	TaskPriorityUserBlocking
)

func (p TaskPriority) String() string {
	switch p {
	case TaskPriorityBestEffort:
		return "best_effort"
	case TaskPriorityUserVisible:
		return "user_visible"
	case TaskPriorityUserBlocking:
		return "user_blocking"
	default:
		return "unknown"
	}
}

func (p TaskPriority) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// =============================================================================
// Task
// =============================================================================

// Task is a cooperatively scheduled unit of work. Its continuation is a
// goroutine that only makes progress while a Carrier has resumed it.
//
// A *Task is also the caller-facing handle: it is used to start, join and
// interrupt the task.
type Task struct {
	id       TaskID
	name     string
	daemon   bool
	priority TaskPriority
	fn       Callable
	source   any // user-supplied body, for naming
	sched    *Scheduler

	state   atomic.Int32
	started atomic.Bool
	spawned atomic.Bool

	// resumeCh hands a carrier to a parked continuation; yieldCh hands it back.
	resumeCh chan *Carrier
	yieldCh  chan struct{}
	carrier  atomic.Pointer[Carrier]
	pinDepth atomic.Int32
	parks    atomic.Int64

	intMu       sync.Mutex
	interrupted bool
	interruptCh chan struct{}

	localsMu sync.Mutex
	locals   map[any]any

	outcome atomic.Pointer[Outcome]

	createdAt   time.Time
	submittedAt atomic.Int64
	startedAt   atomic.Int64
}

func newTask(s *Scheduler, name string, daemon bool, priority TaskPriority, fn Callable, source any) *Task {
	t := &Task{
		id:          GenerateTaskID(),
		name:        name,
		daemon:      daemon,
		priority:    priority,
		fn:          fn,
		source:      source,
		sched:       s,
		resumeCh:    make(chan *Carrier),
		yieldCh:     make(chan struct{}),
		interruptCh: make(chan struct{}),
		createdAt:   time.Now(),
	}
	t.state.Store(int32(TaskStateUnstarted))
	return t
}

func (t *Task) ID() TaskID             { return t.id }
func (t *Task) Name() string           { return t.name }
func (t *Task) IsDaemon() bool         { return t.daemon }
func (t *Task) Priority() TaskPriority { return t.priority }
func (t *Task) State() TaskState       { return TaskState(t.state.Load()) }

// IsVirtual always reports true: every Task is multiplexed onto a carrier.
func (t *Task) IsVirtual() bool { return true }

// DisplayName returns the task name, or the body's function name when the task is unnamed.
func (t *Task) DisplayName() string {
	return resolveTaskName(t.source, t.name)
}

func (t *Task) String() string {
	return "Task[" + t.id.String() + "," + t.DisplayName() + "," + t.State().String() + "]"
}

// Start submits an unstarted task to its scheduler.
func (t *Task) Start() error {
	return t.sched.Submit(t)
}

// Outcome returns the recorded outcome once the task is terminal.
func (t *Task) Outcome() (Outcome, bool) {
	if o := t.outcome.Load(); o != nil {
		return *o, true
	}
	return Outcome{}, false
}

// Join blocks the calling goroutine until the task is terminal. It is meant for
// callers outside any task; tasks should use JoinContext so they park instead.
func (t *Task) Join() Outcome {
	f := t.JoinAsync()
	<-f.done
	return f.outcome
}

// JoinContext waits for the task through the blocking gate. Inside a task the
// caller parks; the wait is interruptible.
func (t *Task) JoinContext(ctx context.Context) (Outcome, error) {
	if CurrentTask(ctx) == t {
		return Outcome{}, ErrSelfJoin
	}
	return t.JoinAsync().Await(ctx)
}

// JoinAsync returns a Future completed with the task's outcome.
func (t *Task) JoinAsync() *Future {
	return newFuture(t)
}

func (t *Task) setState(s TaskState) {
	t.state.Store(int32(s))
}

func (t *Task) context() context.Context {
	return context.WithValue(t.sched.ctx, taskKey, t)
}

// run is the body of the continuation goroutine.
func (t *Task) run(c *Carrier) {
	t.carrier.Store(c)

	var (
		value    any
		err      error
		returned bool
	)
	defer func() {
		var o Outcome
		switch {
		case !returned:
			o = Outcome{Status: OutcomeCancelled, Err: ErrCancelled}
		case err != nil:
			o = Outcome{Status: OutcomeFailed, Err: &TaskFailedError{TaskID: t.id, Name: t.name, Cause: err}}
		default:
			o = Outcome{Status: OutcomeSuccess, Value: value}
		}
		t.sched.complete(t, o)
	}()

	value, err = t.invoke()
	returned = true
}

func (t *Task) invoke() (value any, err error) {
	ctx := t.context()
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			t.sched.onPanic(ctx, t, r, stack)
			err = &PanicError{Value: r, Stack: stack}
		}
	}()
	return t.fn(ctx)
}

// =============================================================================
// Context Helper
// =============================================================================

type taskKeyType struct{}

var taskKey taskKeyType

// CurrentTask returns the task whose body received ctx, or nil outside any task.
// A task's context must not be handed to other goroutines.
func CurrentTask(ctx context.Context) *Task {
	if ctx == nil {
		return nil
	}
	if v := ctx.Value(taskKey); v != nil {
		return v.(*Task)
	}
	return nil
}

// IsTask reports whether ctx belongs to a running task.
func IsTask(ctx context.Context) bool {
	return CurrentTask(ctx) != nil
}
