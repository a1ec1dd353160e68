package core

import (
	"context"
	"errors"
	"sync"

	"github.com/hashicorp/go-multierror"
)

// ErrExecutorClosed is returned by Submit after Close or ShutdownNow.
var ErrExecutorClosed = errors.New("executor is closed")

// Executor starts one task per submission and tracks them until Close.
type Executor struct {
	builder *Builder

	mu       sync.Mutex
	closed   bool
	tasks    map[TaskID]*Task
	pending  int
	allDone  chan struct{}
	doneOnce sync.Once
	firstErr error
	failures *multierror.Error
}

func NewExecutor(s *Scheduler) *Executor {
	return NewExecutorWithBuilder(NewBuilder(s))
}

// NewExecutorWithBuilder creates tasks through b. b must not be used elsewhere afterwards.
func NewExecutorWithBuilder(b *Builder) *Executor {
	return &Executor{
		builder: b,
		tasks:   make(map[TaskID]*Task),
		allDone: make(chan struct{}),
	}
}

// Submit starts a task running body.
func (e *Executor) Submit(body Body) (*Future, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrExecutorClosed
	}
	return e.startLocked(e.builder.Unstarted(body))
}

// SubmitCallable starts a task running fn; its value is available from the Future.
func (e *Executor) SubmitCallable(fn Callable) (*Future, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrExecutorClosed
	}
	return e.startLocked(e.builder.UnstartedCallable(fn))
}

// startLocked is called with e.mu held and releases it.
func (e *Executor) startLocked(t *Task) (*Future, error) {
	e.tasks[t.id] = t
	e.pending++
	e.mu.Unlock()

	if err := t.Start(); err != nil {
		e.mu.Lock()
		delete(e.tasks, t.id)
		e.pending--
		e.maybeDoneLocked()
		e.mu.Unlock()
		return nil, err
	}

	// Waiters are registered only for started tasks; a task that already
	// finished resumes them immediately.
	f := t.JoinAsync()
	t.sched.joins.RegisterWaiter(t, func(o Outcome) { e.finished(t, o) })
	return f, nil
}

func (e *Executor) finished(t *Task, o Outcome) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.tasks, t.id)
	e.pending--
	if !o.OK() {
		if e.firstErr == nil {
			e.firstErr = o.Err
		}
		e.failures = multierror.Append(e.failures, o.Err)
	}
	e.maybeDoneLocked()
}

func (e *Executor) maybeDoneLocked() {
	if e.closed && e.pending == 0 {
		e.doneOnce.Do(func() { close(e.allDone) })
	}
}

// Pending returns the number of submitted tasks that are not yet terminal.
func (e *Executor) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pending
}

// ShutdownNow stops accepting submissions and interrupts every pending task.
func (e *Executor) ShutdownNow() {
	e.mu.Lock()
	e.closed = true
	tasks := make([]*Task, 0, len(e.tasks))
	for _, t := range e.tasks {
		tasks = append(tasks, t)
	}
	e.maybeDoneLocked()
	e.mu.Unlock()

	for _, t := range tasks {
		t.Interrupt()
	}
}

// Close blocks the calling goroutine until every submitted task is terminal.
// Tasks should call CloseContext so they park instead.
func (e *Executor) Close() error {
	return e.CloseContext(context.Background())
}

// CloseContext stops accepting submissions and waits through the blocking
// gate until every submitted task is terminal. If the wait is interrupted or
// ctx ends first, pending tasks are interrupted and the wait continues.
// Returns the first failure in completion order.
func (e *Executor) CloseContext(ctx context.Context) error {
	e.mu.Lock()
	e.closed = true
	e.maybeDoneLocked()
	e.mu.Unlock()

	if err := WaitFor(ctx, e.allDone); err != nil {
		e.ShutdownNow()
		waitUninterruptibly(ctx, e.allDone)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.firstErr
}

// Failures returns every failure observed so far, or nil.
func (e *Executor) Failures() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.failures.ErrorOrNil()
}

// WithExecutor runs fn with a fresh executor and closes it on every exit
// path. A panic in fn is re-raised after Close. When both fn and Close fail,
// the errors are combined.
func WithExecutor(ctx context.Context, s *Scheduler, fn func(e *Executor) error) (err error) {
	e := NewExecutor(s)
	defer func() {
		r := recover()
		closeErr := e.CloseContext(ctx)
		if r != nil {
			panic(r)
		}
		switch {
		case err == nil:
			err = closeErr
		case closeErr != nil:
			err = multierror.Append(err, closeErr)
		}
	}()
	return fn(e)
}
