package vtask

import (
	"context"
	"testing"
	"time"

	"github.com/Swind/go-vtask/core"
)

func TestCarrierPool_StartStop(t *testing.T) {
	s := core.NewSchedulerWithConfig(&core.SchedulerConfig{Carriers: 2, Logger: core.NewNoOpLogger()})
	p := NewCarrierPool("pool", s, 2)

	if p.IsRunning() {
		t.Fatal("pool running before Start")
	}
	p.Start(context.Background())
	p.Start(context.Background()) // no-op
	if !p.IsRunning() || p.CarrierCount() != 2 || p.ID() != "pool" || p.GetScheduler() != s {
		t.Fatalf("pool state: running=%v count=%d", p.IsRunning(), p.CarrierCount())
	}

	task, _ := core.NewBuilder(s).Start(func(ctx context.Context) error { return nil })
	task.Join()

	p.Stop()
	if p.IsRunning() {
		t.Error("pool still running after Stop")
	}
	if !s.IsShutdown() {
		t.Error("scheduler not shut down by Stop")
	}
}

// TestCarrierPool_StopNeverStarted verifies queued tasks are cancelled without carriers
func TestCarrierPool_StopNeverStarted(t *testing.T) {
	s := core.NewSchedulerWithConfig(&core.SchedulerConfig{Carriers: 1, Logger: core.NewNoOpLogger()})
	p := NewCarrierPool("idle", s, 1)
	task, _ := core.NewBuilder(s).Start(func(ctx context.Context) error { return nil })

	p.Stop()

	o, ok := task.Outcome()
	if !ok || o.Status != core.OutcomeCancelled {
		t.Errorf("outcome = %+v, %v", o, ok)
	}
}

// TestCarrierPool_Stats verifies a pinned carrier is counted as pinned
// Given: One task blocking inside a monitor on a 2-carrier pool
// When: Stats is read
// Then: One carrier is pinned and one is idle
func TestCarrierPool_Stats(t *testing.T) {
	// Arrange
	s := core.NewSchedulerWithConfig(&core.SchedulerConfig{Carriers: 2, Logger: core.NewNoOpLogger()})
	p := NewCarrierPool("stats", s, 2)
	p.Start(context.Background())
	defer p.Stop()

	release := make(chan struct{})
	entered := make(chan struct{})
	m := core.NewMonitor()
	task, _ := core.NewBuilder(s).Start(func(ctx context.Context) error {
		return m.Synchronized(ctx, func() error {
			close(entered)
			return core.WaitFor(ctx, release)
		})
	})
	<-entered
	time.Sleep(10 * time.Millisecond)

	// Act
	stats := p.Stats()

	// Assert
	if stats.Pinned != 1 || stats.Idle != 1 || stats.Busy != 0 {
		t.Errorf("stats = %+v", stats)
	}
	close(release)
	task.Join()
}
