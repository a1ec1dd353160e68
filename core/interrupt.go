package core

import "context"

// Interrupt sets the task's interrupt flag. A task parked on an interruptible
// wait wakes with ErrInterrupted; a running or pinned task only notices at its
// next check point. The flag stays set until the task consumes it.
func (t *Task) Interrupt() {
	t.intMu.Lock()
	defer t.intMu.Unlock()
	if t.interrupted {
		return
	}
	t.interrupted = true
	close(t.interruptCh)
}

// IsInterrupted reports the flag without consuming it.
func (t *Task) IsInterrupted() bool {
	t.intMu.Lock()
	defer t.intMu.Unlock()
	return t.interrupted
}

// ClearInterrupt consumes the flag and returns its previous value.
func (t *Task) ClearInterrupt() bool {
	t.intMu.Lock()
	defer t.intMu.Unlock()
	if !t.interrupted {
		return false
	}
	t.interrupted = false
	t.interruptCh = make(chan struct{})
	return true
}

// interruptSignal returns a channel closed while the flag is set.
func (t *Task) interruptSignal() <-chan struct{} {
	t.intMu.Lock()
	defer t.intMu.Unlock()
	return t.interruptCh
}

// CheckInterrupt is a cooperative check point. It returns ErrInterrupted if
// the calling task's flag is set; the flag is not consumed.
func CheckInterrupt(ctx context.Context) error {
	t := CurrentTask(ctx)
	if t == nil {
		return nil
	}
	if t.IsInterrupted() {
		return ErrInterrupted
	}
	return nil
}

// Interrupted consumes the calling task's flag and reports whether it was set.
func Interrupted(ctx context.Context) bool {
	t := CurrentTask(ctx)
	if t == nil {
		return false
	}
	return t.ClearInterrupt()
}
