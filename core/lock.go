package core

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// =============================================================================
// ReentrantLock: park-compatible mutual exclusion
// =============================================================================

// ReentrantLock is a FIFO mutual-exclusion lock that parks waiting tasks, so
// contention never occupies a carrier. A task may re-acquire a lock it holds.
// Callers outside any task share one anonymous, non-reentrant identity.
type ReentrantLock struct {
	mu      sync.Mutex
	owner   any
	holds   int
	waiters []*lockWaiter
}

type lockWaiter struct {
	owner   any
	granted chan struct{}
}

type externalOwner struct{ _ byte }

var _ Primitive = (*ReentrantLock)(nil)

func NewReentrantLock() *ReentrantLock {
	return &ReentrantLock{}
}

func (l *ReentrantLock) BlockingKind() BlockingKind { return ParkCompatible }

// Lock acquires the lock, parking the calling task while it waits.
// It ignores interrupts; ctx cancellation still aborts the wait.
func (l *ReentrantLock) Lock(ctx context.Context) error {
	return l.lock(ctx, false)
}

// LockInterruptibly acquires the lock, returning ErrInterrupted if the calling
// task is interrupted before it is granted.
func (l *ReentrantLock) LockInterruptibly(ctx context.Context) error {
	return l.lock(ctx, true)
}

// TryLock acquires the lock only if it is free or already held by the caller.
func (l *ReentrantLock) TryLock(ctx context.Context) bool {
	owner := lockOwner(ctx)
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tryAcquireLocked(owner)
}

// Unlock releases one hold. The final release hands the lock directly to the
// longest waiting caller.
func (l *ReentrantLock) Unlock(ctx context.Context) error {
	owner := lockOwner(ctx)

	l.mu.Lock()
	if l.holds == 0 || !canRelease(l.owner, owner) {
		l.mu.Unlock()
		return ErrNotOwner
	}
	l.holds--
	if l.holds > 0 {
		l.mu.Unlock()
		return nil
	}
	next := l.handOffLocked()
	l.mu.Unlock()

	if next != nil {
		close(next.granted)
	}
	return nil
}

// handOffLocked clears the owner and grants the lock to the longest waiter.
// The caller closes the returned waiter's channel after unlocking.
func (l *ReentrantLock) handOffLocked() *lockWaiter {
	l.owner = nil
	l.holds = 0
	if len(l.waiters) == 0 {
		return nil
	}
	next := l.waiters[0]
	l.waiters[0] = nil
	l.waiters = l.waiters[1:]
	l.owner = next.owner
	l.holds = 1
	return next
}

// IsLocked reports whether any caller holds the lock.
func (l *ReentrantLock) IsLocked() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.holds > 0
}

// HoldCount returns the number of holds by the calling task.
func (l *ReentrantLock) HoldCount(ctx context.Context) int {
	owner := lockOwner(ctx)
	l.mu.Lock()
	defer l.mu.Unlock()
	if isReentry(l.owner, owner) {
		return l.holds
	}
	return 0
}

// QueueLength returns the number of callers waiting for the lock.
func (l *ReentrantLock) QueueLength() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.waiters)
}

func (l *ReentrantLock) lock(ctx context.Context, interruptible bool) error {
	owner := lockOwner(ctx)

	l.mu.Lock()
	if l.tryAcquireLocked(owner) {
		l.mu.Unlock()
		return nil
	}
	if t, ok := owner.(*Task); ok && interruptible && t.IsInterrupted() {
		l.mu.Unlock()
		return ErrInterrupted
	}
	w := &lockWaiter{owner: owner, granted: make(chan struct{})}
	l.waiters = append(l.waiters, w)
	l.mu.Unlock()

	var err error
	if t, ok := owner.(*Task); ok {
		// park exits the goroutine when the scheduler is killed; the task
		// must not leave behind a queued waiter or a hold it never saw.
		returned := false
		defer func() {
			if !returned {
				l.discard(w)
			}
		}()
		err = t.park(reasonLock, func() error {
			return t.await(ctx, w.granted, interruptible)
		})
		returned = true
	} else {
		select {
		case <-w.granted:
		case <-ctx.Done():
			err = ctx.Err()
		}
	}
	if err == nil {
		return nil
	}
	return l.abandon(w, err)
}

// abandon withdraws w after a failed wait. If the lock was granted in the
// meantime the caller keeps it and the wait counts as successful.
func (l *ReentrantLock) abandon(w *lockWaiter, cause error) error {
	l.mu.Lock()
	for i, other := range l.waiters {
		if other == w {
			l.waiters = append(l.waiters[:i], l.waiters[i+1:]...)
			l.mu.Unlock()
			return cause
		}
	}
	l.mu.Unlock()
	// Already granted: ownership was transferred to us
	return nil
}

// discard withdraws w, or releases the lock if it was already granted to w.
func (l *ReentrantLock) discard(w *lockWaiter) {
	l.mu.Lock()
	for i, other := range l.waiters {
		if other == w {
			l.waiters = append(l.waiters[:i], l.waiters[i+1:]...)
			l.mu.Unlock()
			return
		}
	}
	var next *lockWaiter
	if l.holds > 0 && l.owner == w.owner {
		next = l.handOffLocked()
	}
	l.mu.Unlock()

	if next != nil {
		close(next.granted)
	}
}

func (l *ReentrantLock) tryAcquireLocked(owner any) bool {
	if l.holds == 0 && len(l.waiters) == 0 {
		l.owner = owner
		l.holds = 1
		return true
	}
	if l.holds > 0 && isReentry(l.owner, owner) {
		l.holds++
		return true
	}
	return false
}

func lockOwner(ctx context.Context) any {
	if t := CurrentTask(ctx); t != nil {
		return t
	}
	return &externalOwner{}
}

// isReentry reports whether caller may take another hold. Only tasks re-enter.
func isReentry(holder, caller any) bool {
	th, ok := holder.(*Task)
	if !ok {
		return false
	}
	tc, ok := caller.(*Task)
	return ok && th == tc
}

// canRelease reports whether caller may release a hold taken by holder.
// Callers outside tasks have no identity, so any of them may release an
// external hold.
func canRelease(holder, caller any) bool {
	if isReentry(holder, caller) {
		return true
	}
	_, he := holder.(*externalOwner)
	_, ce := caller.(*externalOwner)
	return he && ce
}

// =============================================================================
// Monitor: pin-inducing mutual exclusion
// =============================================================================

// Monitor is a legacy-style reentrant monitor. A task inside Synchronized is
// pinned: its carrier cannot run any other task until the section exits, and
// every blocking call made inside the section blocks the carrier itself.
type Monitor struct {
	mu    sync.Mutex
	owner atomic.Pointer[Task]
}

var _ Primitive = (*Monitor)(nil)

func NewMonitor() *Monitor {
	return &Monitor{}
}

func (m *Monitor) BlockingKind() BlockingKind { return PinInducing }

// Synchronized runs fn while holding the monitor. Inside a task the carrier
// is pinned for the whole section, including the wait to enter it.
func (m *Monitor) Synchronized(ctx context.Context, fn func() error) error {
	t := CurrentTask(ctx)
	if t == nil {
		m.mu.Lock()
		defer m.mu.Unlock()
		return fn()
	}

	t.pin()
	defer t.unpin()

	if m.owner.Load() == t {
		return fn()
	}

	if !m.mu.TryLock() {
		start := time.Now()
		m.mu.Lock()
		t.sched.onPinnedBlock(t, reasonMonitorEnter, time.Since(start))
	}
	m.owner.Store(t)
	defer func() {
		m.owner.Store(nil)
		m.mu.Unlock()
	}()
	return fn()
}

// IsHeldBy reports whether t currently owns the monitor.
func (m *Monitor) IsHeldBy(t *Task) bool {
	return t != nil && m.owner.Load() == t
}
