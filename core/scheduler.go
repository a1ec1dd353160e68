package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// Scheduler owns the ready queue and the registry of live tasks. Carriers pull
// work with GetWork and run it with Execute.
type Scheduler struct {
	name   string
	queue  *ReadyQueue
	signal chan struct{}

	delays  *DelayManager
	joins   *JoinRegistry
	live    *xsync.MapOf[TaskID, *Task]
	history *executionHistory

	carriersMu sync.RWMutex
	carriers   []*Carrier

	// ctx is the parent of every task context; cancelled by ShutdownNow.
	ctx    context.Context
	cancel context.CancelFunc

	// lifecycleMu orders submissions against shutdown.
	lifecycleMu  sync.RWMutex
	shuttingDown atomic.Bool
	killed       chan struct{}
	killOnce     sync.Once

	nonDaemon atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	cancelled atomic.Int64
	rejected  atomic.Int64

	daemonDefault bool

	// Handlers and Metrics
	logger              Logger
	panicHandler        PanicHandler
	metrics             Metrics
	rejectedTaskHandler RejectedTaskHandler
	pinnedHandler       PinnedEventHandler
}

func NewScheduler(carriers int) *Scheduler {
	return NewSchedulerWithConfig(&SchedulerConfig{Carriers: carriers})
}

func NewSchedulerWithConfig(config *SchedulerConfig) *Scheduler {
	if config == nil {
		config = DefaultSchedulerConfig()
	}
	carriers := max(config.Carriers, 1)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		name:          config.Name,
		queue:         NewReadyQueue(),
		signal:        make(chan struct{}, carriers*2),
		delays:        NewDelayManager(),
		joins:         NewJoinRegistry(),
		live:          xsync.NewMapOf[TaskID, *Task](),
		history:       newExecutionHistory(config.HistoryCapacity),
		ctx:           ctx,
		cancel:        cancel,
		killed:        make(chan struct{}),
		daemonDefault: config.DaemonByDefault,
		logger:        config.Logger,
		panicHandler:  config.PanicHandler,
		metrics:       config.Metrics,
		pinnedHandler: config.PinnedEventHandler,

		rejectedTaskHandler: config.RejectedTaskHandler,
	}

	// Use defaults if not provided
	if s.name == "" {
		s.name = "vtask"
	}
	if s.logger == nil {
		s.logger = NewDefaultLogger()
	}
	if s.panicHandler == nil {
		s.panicHandler = &DefaultPanicHandler{Logger: s.logger}
	}
	if s.metrics == nil {
		s.metrics = &NilMetrics{}
	}
	if s.rejectedTaskHandler == nil {
		s.rejectedTaskHandler = &DefaultRejectedTaskHandler{Logger: s.logger}
	}

	return s
}

func (s *Scheduler) Name() string { return s.name }

// Registry returns the join registry of this scheduler.
func (s *Scheduler) Registry() *JoinRegistry { return s.joins }

// RegisterCarrier makes c visible to introspection.
func (s *Scheduler) RegisterCarrier(c *Carrier) {
	s.carriersMu.Lock()
	s.carriers = append(s.carriers, c)
	s.carriersMu.Unlock()
}

// =============================================================================
// Submission
// =============================================================================

// Submit moves an unstarted task to Ready and enqueues it at the tail.
func (s *Scheduler) Submit(t *Task) error {
	if t.sched != s {
		return fmt.Errorf("task %s belongs to scheduler %q, not %q", t.id, t.sched.name, s.name)
	}

	if t.started.Load() {
		return ErrAlreadyStarted
	}

	s.lifecycleMu.RLock()
	defer s.lifecycleMu.RUnlock()

	if s.shuttingDown.Load() {
		s.reject(t, "shutdown")
		return ErrSchedulerShutdown
	}
	if !t.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	t.submittedAt.Store(time.Now().UnixNano())
	s.live.Store(t.id, t)
	if !t.daemon {
		s.nonDaemon.Add(1)
	}
	s.enqueue(t)
	return nil
}

func (s *Scheduler) reject(t *Task, reason string) {
	s.rejected.Add(1)
	s.rejectedTaskHandler.HandleRejectedTask(s.name, t, reason)
	s.metrics.RecordTaskRejected(s.name, reason)
}

func (s *Scheduler) enqueue(t *Task) {
	t.setState(TaskStateReady)
	s.queue.Push(t)
	s.metrics.RecordQueueDepth(s.name, s.queue.Len())

	select {
	case s.signal <- struct{}{}:
	default:
		// Signal channel full, but task is already queued
	}
}

// requeue puts a parked task back on the ready queue. It bypasses the
// shutdown check so in-flight tasks can finish during graceful shutdown, and
// reports false once the scheduler was killed.
func (s *Scheduler) requeue(t *Task) bool {
	select {
	case <-s.killed:
		return false
	default:
	}
	s.enqueue(t)
	return true
}

// =============================================================================
// Carrier side
// =============================================================================

// GetWork blocks the calling carrier until a Ready task is available.
// It returns false once stopCh is closed or the scheduler was killed.
func (s *Scheduler) GetWork(stopCh <-chan struct{}) (*Task, bool) {
	for {
		select {
		case <-s.killed:
			return nil, false
		default:
		}

		if t, ok := s.queue.Pop(); ok {
			return t, true
		}

		select {
		case <-s.signal:
			continue
		case <-stopCh:
			return nil, false
		case <-s.killed:
			return nil, false
		}
	}
}

// Execute mounts t on c and blocks c until t parks or terminates.
func (s *Scheduler) Execute(c *Carrier, t *Task) {
	c.attach(t)
	defer c.detach()

	t.setState(TaskStateRunning)
	if t.spawned.CompareAndSwap(false, true) {
		t.startedAt.Store(time.Now().UnixNano())
		go t.run(c)
	} else {
		select {
		case t.resumeCh <- c:
		case <-s.killed:
			return
		}
	}
	<-t.yieldCh
}

// =============================================================================
// Completion
// =============================================================================

// complete records the outcome of t. Runs on t's goroutine, or on the
// shutting-down goroutine for tasks that never ran.
func (s *Scheduler) complete(t *Task, o Outcome) {
	t.clearLocals()

	if o.Status == OutcomeSuccess {
		t.setState(TaskStateCompleted)
		s.completed.Add(1)
	} else {
		t.setState(TaskStateFailed)
		if o.Status == OutcomeCancelled {
			s.cancelled.Add(1)
		} else {
			s.failed.Add(1)
		}
	}

	finishedAt := time.Now()
	record := TaskExecutionRecord{
		TaskID:      t.id,
		Name:        t.DisplayName(),
		Scheduler:   s.name,
		Priority:    t.priority,
		Daemon:      t.daemon,
		Status:      o.Status,
		SubmittedAt: unixNanoTime(t.submittedAt.Load()),
		StartedAt:   unixNanoTime(t.startedAt.Load()),
		FinishedAt:  finishedAt,
		Parks:       t.parks.Load(),
	}
	var pe *PanicError
	record.Panicked = errors.As(o.Err, &pe)
	if !record.StartedAt.IsZero() {
		record.Duration = finishedAt.Sub(record.StartedAt)
		s.metrics.RecordTaskDuration(s.name, t.priority, record.Duration)
	}
	s.history.Add(record)
	s.metrics.RecordTaskOutcome(s.name, o.Status)

	// Leave the live set before joiners resume; publish the outcome before
	// the non-daemon count drops.
	s.live.Delete(t.id)
	s.joins.Complete(t, o)
	if !t.daemon {
		s.nonDaemon.Add(-1)
	}

	// Hand the carrier back if t was mounted
	if t.carrier.Swap(nil) != nil {
		t.yieldCh <- struct{}{}
	}
}

func unixNanoTime(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

func (s *Scheduler) onPanic(ctx context.Context, t *Task, r any, stack []byte) {
	s.metrics.RecordTaskPanic(s.name, r)
	s.panicHandler.HandlePanic(ctx, s.name, t.id, r, stack)
}

func (s *Scheduler) onPark(t *Task, reason string) {
	s.metrics.RecordTaskParked(s.name, reason)
}

func (s *Scheduler) onPinnedBlock(t *Task, reason string, d time.Duration) {
	ev := PinnedEvent{
		TaskID:    t.id,
		TaskName:  t.DisplayName(),
		CarrierID: -1,
		Reason:    reason,
		Duration:  d,
		At:        time.Now(),
	}
	if c := t.carrier.Load(); c != nil {
		ev.CarrierID = c.ID()
	}

	s.metrics.RecordPinnedBlock(s.name, reason, d)
	s.logger.Warn("task blocked while pinned to its carrier",
		F("scheduler", s.name),
		F("task", t.id.String()),
		F("name", ev.TaskName),
		F("carrier", ev.CarrierID),
		F("reason", reason),
		F("duration", d),
	)
	if s.pinnedHandler != nil {
		s.pinnedHandler.HandlePinned(ev)
	}
}

// =============================================================================
// Shutdown
// =============================================================================

// IsShutdown reports whether submissions are being rejected.
func (s *Scheduler) IsShutdown() bool {
	return s.shuttingDown.Load()
}

// Killed is closed once ShutdownNow ran.
func (s *Scheduler) Killed() <-chan struct{} {
	return s.killed
}

func (s *Scheduler) beginShutdown() {
	s.lifecycleMu.Lock()
	s.shuttingDown.Store(true)
	s.lifecycleMu.Unlock()
}

// Shutdown rejects new submissions and waits until every non-daemon task is
// terminal, then cancels whatever daemon tasks remain. Returns an error if
// timeout elapses first; the remaining tasks are cancelled in that case too.
func (s *Scheduler) Shutdown(timeout time.Duration) error {
	s.beginShutdown()
	s.logger.Info("scheduler shutting down",
		F("scheduler", s.name),
		F("non_daemon", s.nonDaemon.Load()),
	)

	deadline := time.After(timeout)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		if s.nonDaemon.Load() == 0 {
			s.ShutdownNow()
			return nil
		}
		select {
		case <-deadline:
			remaining := s.nonDaemon.Load()
			s.logger.Error("scheduler shutdown timed out",
				F("scheduler", s.name),
				F("timeout", timeout),
				F("remaining", remaining),
			)
			s.ShutdownNow()
			return fmt.Errorf("shutdown timeout after %v with %d non-daemon tasks live", timeout, remaining)
		case <-ticker.C:
		}
	}
}

// ShutdownNow rejects new submissions, cancels queued tasks that never ran,
// and interrupts every live task. Parked tasks are cancelled when they would
// next need a carrier. Running tasks are not preempted.
func (s *Scheduler) ShutdownNow() {
	s.beginShutdown()

	s.killOnce.Do(func() {
		close(s.killed)

		for _, t := range s.queue.Drain() {
			if !t.spawned.Load() {
				s.complete(t, Outcome{Status: OutcomeCancelled, Err: ErrCancelled})
			}
		}

		s.live.Range(func(_ TaskID, t *Task) bool {
			t.Interrupt()
			return true
		})
		s.delays.Stop()
		s.cancel()

		s.logger.Info("scheduler stopped",
			F("scheduler", s.name),
			F("completed", s.completed.Load()),
			F("failed", s.failed.Load()),
			F("cancelled", s.cancelled.Load()),
		)
	})
}

// =============================================================================
// Introspection
// =============================================================================

// Carriers returns a snapshot of every registered carrier.
func (s *Scheduler) Carriers() []CarrierInfo {
	s.carriersMu.RLock()
	defer s.carriersMu.RUnlock()
	out := make([]CarrierInfo, 0, len(s.carriers))
	for _, c := range s.carriers {
		out = append(out, c.Info())
	}
	return out
}

// Lookup returns a live task by ID.
func (s *Scheduler) Lookup(id TaskID) (*Task, bool) {
	return s.live.Load(id)
}

// RecentTasks returns up to limit records of terminal tasks, newest first.
func (s *Scheduler) RecentTasks(limit int) []TaskExecutionRecord {
	return s.history.Recent(limit)
}

// LastTask returns the most recently terminated task record.
func (s *Scheduler) LastTask() (TaskExecutionRecord, bool) {
	return s.history.Last()
}

func (s *Scheduler) QueuedTaskCount() int  { return s.queue.Len() }
func (s *Scheduler) LiveTaskCount() int    { return s.live.Size() }
func (s *Scheduler) DelayedTaskCount() int { return s.delays.TaskCount() }

// Stats returns a snapshot of scheduler counters.
func (s *Scheduler) Stats() SchedulerStats {
	stats := SchedulerStats{
		Name:      s.name,
		Ready:     s.queue.Len(),
		Delayed:   s.delays.TaskCount(),
		Completed: s.completed.Load(),
		Failed:    s.failed.Load(),
		Cancelled: s.cancelled.Load(),
		Rejected:  s.rejected.Load(),
		Shutdown:  s.shuttingDown.Load(),
	}
	s.live.Range(func(_ TaskID, t *Task) bool {
		stats.Live++
		switch t.State() {
		case TaskStateRunning:
			stats.Running++
		case TaskStateParked:
			stats.Parked++
		case TaskStatePinned:
			stats.Pinned++
		}
		return true
	})
	return stats
}
