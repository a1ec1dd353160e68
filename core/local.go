package core

import "context"

// LocalKey identifies a task-local value of type T. Each task sees only its
// own value; the store is created on first write and cleared when the task
// terminates.
type LocalKey[T any] struct {
	initial func() T
}

// NewLocalKey creates a key whose unset value is the zero value of T.
func NewLocalKey[T any]() *LocalKey[T] {
	return &LocalKey[T]{}
}

// NewLocalKeyWithInitial creates a key whose unset value is produced by initial
// on first Get and stored for the calling task.
func NewLocalKeyWithInitial[T any](initial func() T) *LocalKey[T] {
	return &LocalKey[T]{initial: initial}
}

// Get returns the calling task's value. ok is false outside a task, or when
// the value is unset and the key has no initial supplier.
func (k *LocalKey[T]) Get(ctx context.Context) (value T, ok bool) {
	t := CurrentTask(ctx)
	if t == nil {
		return value, false
	}

	t.localsMu.Lock()
	v, found := t.locals[k]
	t.localsMu.Unlock()

	if found {
		return v.(T), true
	}
	if k.initial == nil {
		return value, false
	}

	// initial may itself touch other keys
	value = k.initial()
	t.localsMu.Lock()
	t.setLocalLocked(k, value)
	t.localsMu.Unlock()
	return value, true
}

// Set stores value for the calling task.
func (k *LocalKey[T]) Set(ctx context.Context, value T) error {
	t := CurrentTask(ctx)
	if t == nil {
		return ErrNotInTask
	}
	t.localsMu.Lock()
	t.setLocalLocked(k, value)
	t.localsMu.Unlock()
	return nil
}

// Remove deletes the calling task's value.
func (k *LocalKey[T]) Remove(ctx context.Context) {
	t := CurrentTask(ctx)
	if t == nil {
		return
	}
	t.localsMu.Lock()
	delete(t.locals, k)
	t.localsMu.Unlock()
}

func (t *Task) setLocalLocked(key, value any) {
	if t.locals == nil {
		t.locals = make(map[any]any)
	}
	t.locals[key] = value
}

// LocalCount returns the number of task-local entries currently held.
func (t *Task) LocalCount() int {
	t.localsMu.Lock()
	defer t.localsMu.Unlock()
	return len(t.locals)
}

func (t *Task) clearLocals() {
	t.localsMu.Lock()
	t.locals = nil
	t.localsMu.Unlock()
}
