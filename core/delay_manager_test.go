package core

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// TestDelayManager_FiresInDeadlineOrder verifies wake-ups fire earliest first
// Given: Three wake-ups scheduled out of order
// When: All deadlines pass
// Then: They fired in deadline order
func TestDelayManager_FiresInDeadlineOrder(t *testing.T) {
	// Arrange
	dm := NewDelayManager()
	defer dm.Stop()

	var mu sync.Mutex
	var order []int
	done := make(chan struct{})
	record := func(n int) func() {
		return func() {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, n)
			if len(order) == 3 {
				close(done)
			}
		}
	}

	// Act
	dm.Schedule(60*time.Millisecond, record(3))
	dm.Schedule(20*time.Millisecond, record(1))
	dm.Schedule(40*time.Millisecond, record(2))

	// Assert
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("wake-ups did not fire")
	}
	mu.Lock()
	defer mu.Unlock()
	for i, want := range []int{1, 2, 3} {
		if order[i] != want {
			t.Fatalf("order = %v, want [1 2 3]", order)
		}
	}
}

// TestDelayManager_Cancel verifies a cancelled wake-up never fires
func TestDelayManager_Cancel(t *testing.T) {
	dm := NewDelayManager()
	defer dm.Stop()

	var fired atomic.Bool
	w := dm.Schedule(30*time.Millisecond, func() { fired.Store(true) })

	if !dm.Cancel(w) {
		t.Fatal("Cancel of pending wake-up should return true")
	}
	if dm.Cancel(w) {
		t.Error("second Cancel should return false")
	}
	if dm.TaskCount() != 0 {
		t.Errorf("TaskCount = %d, want 0", dm.TaskCount())
	}

	time.Sleep(80 * time.Millisecond)
	if fired.Load() {
		t.Error("cancelled wake-up fired")
	}
}

// TestDelayManager_StopReleasesPending verifies Stop fires pending wake-ups early
// Given: A wake-up an hour away
// When: The manager is stopped
// Then: The wake-up fires promptly, and later schedules fire immediately
func TestDelayManager_StopReleasesPending(t *testing.T) {
	// Arrange
	dm := NewDelayManager()
	first := make(chan struct{})
	dm.Schedule(time.Hour, func() { close(first) })

	// Act
	dm.Stop()

	// Assert
	select {
	case <-first:
	case <-time.After(time.Second):
		t.Fatal("pending wake-up was not released by Stop")
	}

	second := make(chan struct{})
	dm.Schedule(time.Hour, func() { close(second) })
	select {
	case <-second:
	case <-time.After(time.Second):
		t.Fatal("Schedule after Stop did not fire immediately")
	}
}

// TestDelayManager_ConcurrentSchedule verifies concurrent registrations all fire
func TestDelayManager_ConcurrentSchedule(t *testing.T) {
	dm := NewDelayManager()
	defer dm.Stop()

	const n = 100
	var fired atomic.Int32
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			dm.Schedule(time.Duration(i%10)*5*time.Millisecond, func() { fired.Add(1) })
		}()
	}
	wg.Wait()

	deadline := time.After(2 * time.Second)
	for fired.Load() < n {
		select {
		case <-deadline:
			t.Fatalf("fired = %d, want %d", fired.Load(), n)
		case <-time.After(5 * time.Millisecond):
		}
	}
}
