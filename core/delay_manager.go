package core

import (
	"container/heap"
	"context"
	"sync"
	"time"
)

// DelayedWake is a timed wake-up registered by a parked task.
type DelayedWake struct {
	RunAt time.Time
	fire  func()
	index int // for heap interface
}

// DelayedWakeHeap implements heap.Interface
type DelayedWakeHeap []*DelayedWake

func (h DelayedWakeHeap) Len() int           { return len(h) }
func (h DelayedWakeHeap) Less(i, j int) bool { return h[i].RunAt.Before(h[j].RunAt) }
func (h DelayedWakeHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *DelayedWakeHeap) Push(x any) {
	n := len(*h)
	item := x.(*DelayedWake)
	item.index = n
	*h = append(*h, item)
}

func (h *DelayedWakeHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil // avoid memory leak
	item.index = -1
	*h = old[0 : n-1]
	return item
}

func (h *DelayedWakeHeap) Peek() *DelayedWake {
	if len(*h) == 0 {
		return nil
	}
	return (*h)[0]
}

// DelayManager fires timed wake-ups for parked tasks from a single timer goroutine,
// so a sleeping task holds neither a carrier nor a runtime timer of its own.
type DelayManager struct {
	pq      DelayedWakeHeap
	mu      sync.Mutex
	wakeup  chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	stopped bool
}

func NewDelayManager() *DelayManager {
	ctx, cancel := context.WithCancel(context.Background())
	dm := &DelayManager{
		pq:     make(DelayedWakeHeap, 0),
		wakeup: make(chan struct{}, 1),
		ctx:    ctx,
		cancel: cancel,
	}
	heap.Init(&dm.pq)
	go dm.loop()
	return dm
}

// Schedule registers fire to be called once delay has elapsed.
// fire runs on the manager goroutine and must not block. Once the manager is
// stopped, fire is called immediately on a new goroutine.
func (dm *DelayManager) Schedule(delay time.Duration, fire func()) *DelayedWake {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	item := &DelayedWake{
		RunAt: time.Now().Add(delay),
		fire:  fire,
		index: -1,
	}
	if dm.stopped {
		go fire()
		return item
	}
	heap.Push(&dm.pq, item)

	if item.index == 0 {
		select {
		case dm.wakeup <- struct{}{}:
		default:
		}
	}
	return item
}

// Cancel removes a pending wake-up. It returns false if it already fired.
func (dm *DelayManager) Cancel(w *DelayedWake) bool {
	if w == nil {
		return false
	}
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if w.index < 0 || w.index >= len(dm.pq) || dm.pq[w.index] != w {
		return false
	}
	heap.Remove(&dm.pq, w.index)
	return true
}

func (dm *DelayManager) loop() {
	timer := time.NewTimer(time.Hour)
	timer.Stop()

	for {
		// Calculate next run time
		nextRun, ok := dm.calculateNextRun()
		if !ok {
			// No wake-ups, wait indefinitely
			nextRun = 1000 * time.Hour
		}

		timer.Reset(nextRun)

		select {
		case <-dm.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			dm.processExpired()
		case <-dm.wakeup:
			// New earliest wake-up, need to recalculate
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		}
	}
}

// calculateNextRun determines how long to wait until the next wake-up.
// ok is false when nothing is pending.
func (dm *DelayManager) calculateNextRun() (time.Duration, bool) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	item := dm.pq.Peek()
	if item == nil {
		return 0, false
	}

	d := time.Until(item.RunAt)
	if d < 0 {
		d = 0
	}
	return d, true
}

func (dm *DelayManager) processExpired() {
	dm.mu.Lock()

	now := time.Now()
	var expired []*DelayedWake

	for dm.pq.Len() > 0 {
		item := dm.pq.Peek()
		if item.RunAt.After(now) {
			break
		}
		heap.Pop(&dm.pq)
		expired = append(expired, item)
	}

	dm.mu.Unlock()

	// Fire outside the lock
	for _, item := range expired {
		item.fire()
	}
}

// Stop terminates the timer goroutine and fires every pending wake-up early.
func (dm *DelayManager) Stop() {
	dm.cancel()

	dm.mu.Lock()
	pending := dm.pq
	dm.pq = make(DelayedWakeHeap, 0)
	heap.Init(&dm.pq)
	dm.stopped = true
	dm.mu.Unlock()

	// Release sleepers that are still waiting
	for _, item := range pending {
		item.index = -1
		go item.fire()
	}
}

func (dm *DelayManager) TaskCount() int {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	return len(dm.pq)
}
