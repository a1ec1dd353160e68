package core

import (
	"context"
	"runtime"
	"time"
)

// =============================================================================
// Blocking Gate: every blocking call made by a task goes through here and is
// either parked (carrier released) or, inside a pinned section, run in place
// (carrier held).
// =============================================================================

// BlockingKind tells whether a primitive parks its task or pins its carrier.
type BlockingKind int

const (
	// ParkCompatible primitives release the carrier while they wait.
	ParkCompatible BlockingKind = iota

	// PinInducing primitives hold the carrier for as long as they are held.
	PinInducing
)

func (k BlockingKind) String() string {
	switch k {
	case ParkCompatible:
		return "park-compatible"
	case PinInducing:
		return "pin-inducing"
	default:
		return "unknown"
	}
}

// Primitive is implemented by every synchronization primitive of the runtime.
type Primitive interface {
	BlockingKind() BlockingKind
}

// Classify reports how p behaves when a task blocks on it.
func Classify(p Primitive) BlockingKind {
	return p.BlockingKind()
}

// Park reasons, used in metrics and pinned events.
const (
	reasonSleep = "sleep"
	reasonYield = "yield"
	reasonWait  = "wait"
	reasonLock  = "lock"
	reasonIO    = "io"

	reasonMonitorEnter = "monitor-enter"
)

// park suspends t around wait. Unless t is pinned, the carrier is handed back
// before wait runs and t is requeued once wait returns. Inside a pinned
// section wait runs with the carrier held.
//
// Must only be called from t's own goroutine while it holds a carrier.
func (t *Task) park(reason string, wait func() error) error {
	if t.pinDepth.Load() > 0 {
		start := time.Now()
		var err error
		if wait != nil {
			err = wait()
		}
		t.sched.onPinnedBlock(t, reason, time.Since(start))
		return err
	}

	t.parks.Add(1)
	t.sched.onPark(t, reason)
	t.setState(TaskStateParked)
	t.carrier.Store(nil)

	var err error
	if wait == nil {
		// Nothing to wait for: requeue before releasing the carrier so
		// yielding tasks keep their FIFO turn.
		requeued := t.sched.requeue(t)
		t.yieldCh <- struct{}{}
		if !requeued {
			runtime.Goexit()
		}
	} else {
		t.yieldCh <- struct{}{}
		err = wait()
		if !t.sched.requeue(t) {
			runtime.Goexit()
		}
	}
	select {
	case c := <-t.resumeCh:
		t.carrier.Store(c)
	case <-t.sched.killed:
		runtime.Goexit()
	}
	return err
}

// await blocks the calling goroutine until ch is closed, ctx is done, or
// (when interruptible) the task is interrupted.
func (t *Task) await(ctx context.Context, ch <-chan struct{}, interruptible bool) error {
	var intr <-chan struct{}
	if interruptible {
		intr = t.interruptSignal()
	}
	select {
	case <-ch:
		return nil
	case <-intr:
		// A ready condition wins over a concurrent interrupt
		select {
		case <-ch:
			return nil
		default:
		}
		return ErrInterrupted
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Task) pin() {
	if t.pinDepth.Add(1) == 1 {
		t.setState(TaskStatePinned)
		if c := t.carrier.Load(); c != nil {
			c.setStatus(CarrierPinned)
		}
	}
}

func (t *Task) unpin() {
	if t.pinDepth.Add(-1) == 0 {
		t.setState(TaskStateRunning)
		if c := t.carrier.Load(); c != nil {
			c.setStatus(CarrierBusy)
		}
	}
}

// IsPinned reports whether the task is inside a pinned section.
func (t *Task) IsPinned() bool {
	return t.pinDepth.Load() > 0
}

// =============================================================================
// Gate operations
// =============================================================================

// Sleep suspends the caller for d. A task parks and frees its carrier; any
// other caller blocks its goroutine. Interruptible.
func Sleep(ctx context.Context, d time.Duration) error {
	t := CurrentTask(ctx)
	if t == nil {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if t.IsInterrupted() {
		return ErrInterrupted
	}
	if d <= 0 {
		return nil
	}

	return t.park(reasonSleep, func() error {
		fired := make(chan struct{})
		wake := t.sched.delays.Schedule(d, func() { close(fired) })
		err := t.await(ctx, fired, true)
		if err != nil {
			t.sched.delays.Cancel(wake)
		}
		return err
	})
}

// Yield gives the carrier up and requeues the caller at the tail of the
// ready queue. Outside a task it only hints the Go scheduler.
func Yield(ctx context.Context) {
	t := CurrentTask(ctx)
	if t == nil {
		runtime.Gosched()
		return
	}
	_ = t.park(reasonYield, nil)
}

// WaitFor waits until ch is closed. A task parks while waiting. Interruptible.
func WaitFor(ctx context.Context, ch <-chan struct{}) error {
	t := CurrentTask(ctx)
	if t == nil {
		select {
		case <-ch:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	select {
	case <-ch:
		return nil
	default:
	}
	if t.IsInterrupted() {
		return ErrInterrupted
	}

	return t.park(reasonWait, func() error {
		return t.await(ctx, ch, true)
	})
}

// waitUninterruptibly is WaitFor without interrupt or ctx observation.
func waitUninterruptibly(ctx context.Context, ch <-chan struct{}) {
	t := CurrentTask(ctx)
	if t == nil {
		<-ch
		return
	}
	select {
	case <-ch:
		return
	default:
	}
	_ = t.park(reasonWait, func() error {
		<-ch
		return nil
	})
}

// BlockingIO runs fn, which may block on I/O, with the caller's carrier
// released for the duration. It is not interruptible: fn runs to completion.
func BlockingIO(ctx context.Context, fn func() error) error {
	t := CurrentTask(ctx)
	if t == nil {
		return fn()
	}
	return t.park(reasonIO, fn)
}
