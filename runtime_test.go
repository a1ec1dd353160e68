package vtask

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Swind/go-vtask/core"
)

func newQuietRuntime(t *testing.T, carriers int) *Runtime {
	t.Helper()
	cfg := core.DefaultSchedulerConfig()
	cfg.Name = "rt-test"
	cfg.Carriers = carriers
	cfg.Logger = core.NewNoOpLogger()
	cfg.PanicHandler = &core.DefaultPanicHandler{Logger: cfg.Logger}
	cfg.RejectedTaskHandler = &core.DefaultRejectedTaskHandler{Logger: cfg.Logger}
	rt, err := NewRuntime(cfg)
	if err != nil {
		t.Fatalf("NewRuntime failed: %v", err)
	}
	t.Cleanup(rt.ShutdownNow)
	return rt
}

func TestNewRuntime_RejectsZeroCarriers(t *testing.T) {
	cfg := core.DefaultSchedulerConfig()
	cfg.Carriers = 0
	if _, err := NewRuntime(cfg); err == nil {
		t.Error("expected error for zero carriers")
	}
}

// TestRuntime_SpawnAndJoin verifies the basic task lifecycle through the runtime
// Given: A runtime with 2 carriers
// When: A callable task parks once and returns a value
// Then: Join observes the value and the task is Completed
func TestRuntime_SpawnAndJoin(t *testing.T) {
	// Arrange
	rt := newQuietRuntime(t, 2)

	// Act
	task, err := rt.SpawnCallable(func(ctx context.Context) (any, error) {
		if err := Sleep(ctx, 5*time.Millisecond); err != nil {
			return nil, err
		}
		return "done", nil
	})
	if err != nil {
		t.Fatalf("SpawnCallable failed: %v", err)
	}
	o := task.Join()

	// Assert
	if !o.OK() || o.Value != "done" {
		t.Errorf("outcome = %+v", o)
	}
	if task.State() != core.TaskStateCompleted {
		t.Errorf("state = %s", task.State())
	}
	if rt.Stats().Completed != 1 {
		t.Errorf("completed = %d", rt.Stats().Completed)
	}
}

// TestRuntime_ManySleepersOnFewCarriers verifies parked tasks do not hold carriers
func TestRuntime_ManySleepersOnFewCarriers(t *testing.T) {
	rt := newQuietRuntime(t, 2)
	var done atomic.Int32

	start := time.Now()
	err := rt.WithExecutor(context.Background(), func(e *core.Executor) error {
		for range 200 {
			if _, err := e.Submit(func(ctx context.Context) error {
				defer done.Add(1)
				return Sleep(ctx, 50*time.Millisecond)
			}); err != nil {
				return err
			}
		}
		return nil
	})
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("WithExecutor failed: %v", err)
	}
	if done.Load() != 200 {
		t.Errorf("done = %d, want 200", done.Load())
	}
	if elapsed > time.Second {
		t.Errorf("elapsed %v: sleepers appear to hold carriers", elapsed)
	}
}

func TestRuntime_ShutdownRejectsNewTasks(t *testing.T) {
	rt := newQuietRuntime(t, 1)

	if err := rt.Shutdown(time.Second); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if !rt.IsShutdown() || rt.Pool().IsRunning() {
		t.Errorf("IsShutdown=%v running=%v", rt.IsShutdown(), rt.Pool().IsRunning())
	}
	if _, err := rt.Spawn(func(ctx context.Context) error { return nil }); !errors.Is(err, core.ErrSchedulerShutdown) {
		t.Errorf("Spawn after shutdown err = %v", err)
	}
}

// TestRuntime_ShutdownWaitsForNonDaemon verifies graceful shutdown lets user tasks finish
func TestRuntime_ShutdownWaitsForNonDaemon(t *testing.T) {
	rt := newQuietRuntime(t, 1)
	var finished atomic.Bool
	task, _ := rt.Spawn(func(ctx context.Context) error {
		if err := Sleep(ctx, 30*time.Millisecond); err != nil {
			return err
		}
		finished.Store(true)
		return nil
	})

	if err := rt.Shutdown(time.Second); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	if !finished.Load() {
		t.Error("non-daemon task did not finish before shutdown returned")
	}
	if o, ok := task.Outcome(); !ok || !o.OK() {
		t.Errorf("outcome = %+v, %v", o, ok)
	}
}

func TestRuntime_Introspection(t *testing.T) {
	rt := newQuietRuntime(t, 3)
	release := make(chan struct{})
	defer close(release)

	task, _ := rt.NewBuilder().Name("blocked").Start(func(ctx context.Context) error {
		return WaitFor(ctx, release)
	})
	deadline := time.Now().Add(time.Second)
	for task.State() != core.TaskStateParked && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	infos := rt.DumpAllTasks()
	if len(infos) != 1 || infos[0].Name != "blocked" || infos[0].State != core.TaskStateParked {
		t.Errorf("DumpAllTasks = %+v", infos)
	}
	if got := len(rt.Carriers()); got != 3 {
		t.Errorf("carriers = %d, want 3", got)
	}
	if ps := rt.PoolStats(); ps.Carriers != 3 || !ps.Running || ps.ID != "rt-test-carriers" {
		t.Errorf("PoolStats = %+v", ps)
	}

	var buf bytes.Buffer
	if err := rt.WriteDump(&buf); err != nil {
		t.Fatalf("WriteDump failed: %v", err)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("invalid dump: %v", err)
	}
	for _, key := range []string{"scheduler", "carriers", "tasks", "recent"} {
		if _, ok := doc[key]; !ok {
			t.Errorf("dump missing %q", key)
		}
	}
}
