package core

import "context"

// Future is an awaitable view of a task's terminal outcome.
type Future struct {
	task    *Task
	done    chan struct{}
	outcome Outcome
}

func newFuture(t *Task) *Future {
	f := &Future{task: t, done: make(chan struct{})}
	t.sched.joins.RegisterWaiter(t, func(o Outcome) {
		f.outcome = o
		close(f.done)
	})
	return f
}

// Task returns the task this future observes.
func (f *Future) Task() *Task {
	return f.task
}

// Done is closed once the outcome is available.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Result returns the outcome without waiting.
func (f *Future) Result() (Outcome, bool) {
	select {
	case <-f.done:
		return f.outcome, true
	default:
		return Outcome{}, false
	}
}

// Await waits for the outcome through the blocking gate: a task parks, any
// other caller blocks its goroutine. The wait is interruptible.
func (f *Future) Await(ctx context.Context) (Outcome, error) {
	if err := WaitFor(ctx, f.done); err != nil {
		return Outcome{}, err
	}
	return f.outcome, nil
}

// Get blocks until the task is terminal and returns its value and error.
func (f *Future) Get() (any, error) {
	<-f.done
	return f.outcome.Value, f.outcome.Err
}
