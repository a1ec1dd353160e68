package vtask

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/Swind/go-vtask/core"
)

func TestGlobalRuntime_NotInitialized(t *testing.T) {
	ShutdownGlobalRuntime()

	if _, err := Spawn(func(ctx context.Context) error { return nil }); !errors.Is(err, ErrRuntimeNotInitialized) {
		t.Errorf("Spawn err = %v, want ErrRuntimeNotInitialized", err)
	}
	if err := ScopedExecutor(func(e *core.Executor) error { return nil }); !errors.Is(err, ErrRuntimeNotInitialized) {
		t.Errorf("ScopedExecutor err = %v, want ErrRuntimeNotInitialized", err)
	}

	defer func() {
		if recover() == nil {
			t.Error("GetGlobalRuntime did not panic")
		}
	}()
	GetGlobalRuntime()
}

// TestGlobalRuntime_Helpers verifies the package-level helpers share one runtime
// Given: An initialized global runtime
// When: Tasks are started through Spawn, Build and ScopedExecutor
// Then: They all run on the same scheduler and names follow the builder prefix
func TestGlobalRuntime_Helpers(t *testing.T) {
	// Arrange
	InitGlobalRuntime(2)
	defer ShutdownGlobalRuntime()
	rt := GetGlobalRuntime()
	InitGlobalRuntime(8) // no-op
	if GetGlobalRuntime() != rt || rt.Pool().CarrierCount() != 2 {
		t.Fatal("second InitGlobalRuntime replaced the runtime")
	}

	// Act
	spawned, err := Spawn(func(ctx context.Context) error { return Sleep(ctx, 0) })
	if err != nil {
		t.Fatalf("Spawn failed: %v", err)
	}
	b := Build("job-")
	named := b.Unstarted(func(ctx context.Context) error { return nil })
	f := FactoryFrom(b)
	fromFactory := f.NewTask(func(ctx context.Context) error { return nil })

	var ran atomic.Int32
	err = ScopedExecutor(func(e *core.Executor) error {
		for range 10 {
			if _, err := e.Submit(func(ctx context.Context) error {
				ran.Add(1)
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})

	// Assert
	if err != nil {
		t.Fatalf("ScopedExecutor failed: %v", err)
	}
	if ran.Load() != 10 {
		t.Errorf("ran = %d, want 10", ran.Load())
	}
	if o := spawned.Join(); !o.OK() {
		t.Errorf("spawned outcome = %+v", o)
	}
	if named.Name() != "job-0" || fromFactory.Name() != "job-1" {
		t.Errorf("names = %q, %q", named.Name(), fromFactory.Name())
	}
	if f.Scheduler() != rt.Scheduler() {
		t.Error("factory is not bound to the global scheduler")
	}
}
