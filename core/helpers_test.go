package core

import (
	"sync"
	"testing"
	"time"
)

// newTestScheduler returns a quiet scheduler sized for n carriers.
func newTestScheduler(n int) *Scheduler {
	logger := NewNoOpLogger()
	return NewSchedulerWithConfig(&SchedulerConfig{
		Name:                "test",
		Carriers:            n,
		Logger:              logger,
		PanicHandler:        &DefaultPanicHandler{Logger: logger},
		RejectedTaskHandler: &DefaultRejectedTaskHandler{Logger: logger},
	})
}

// startCarriers runs n carrier loops against s until the test ends.
// The returned function stops them early; it is safe to call more than once.
func startCarriers(t *testing.T, s *Scheduler, n int) func() {
	t.Helper()
	stopCh := make(chan struct{})
	var wg sync.WaitGroup
	for i := range n {
		c := NewCarrier(i)
		s.RegisterCarrier(c)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				task, ok := s.GetWork(stopCh)
				if !ok {
					return
				}
				s.Execute(c, task)
			}
		}()
	}

	var once sync.Once
	stop := func() {
		once.Do(func() {
			s.ShutdownNow()
			close(stopCh)
			wg.Wait()
		})
	}
	t.Cleanup(stop)
	return stop
}

// newTestRuntime returns a scheduler with n running carriers.
func newTestRuntime(t *testing.T, n int) *Scheduler {
	t.Helper()
	s := newTestScheduler(n)
	startCarriers(t, s, n)
	return s
}

// joinWithin joins task or fails the test after timeout.
func joinWithin(t *testing.T, task *Task, timeout time.Duration) Outcome {
	t.Helper()
	f := task.JoinAsync()
	select {
	case <-f.Done():
		o, _ := f.Result()
		return o
	case <-time.After(timeout):
		t.Fatalf("task %s did not terminate within %v (state %s)", task.ID(), timeout, task.State())
		return Outcome{}
	}
}

// waitForState polls until task reaches want or fails the test.
func waitForState(t *testing.T, task *Task, want TaskState, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if task.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("task %s state = %s, want %s", task.ID(), task.State(), want)
}
