package vtask_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	vtask "github.com/Swind/go-vtask"
	"github.com/Swind/go-vtask/core"
)

func ExampleRuntime_SpawnCallable() {
	rt, err := vtask.NewRuntimeWithCarriers(2)
	if err != nil {
		panic(err)
	}
	defer rt.ShutdownNow()

	task, _ := rt.SpawnCallable(func(ctx context.Context) (any, error) {
		if err := vtask.Sleep(ctx, 10*time.Millisecond); err != nil {
			return nil, err
		}
		return 42, nil
	})
	outcome := task.Join()
	fmt.Println(outcome.Status, outcome.Value)
	// Output: success 42
}

func ExampleRuntime_WithExecutor() {
	rt, err := vtask.NewRuntimeWithCarriers(4)
	if err != nil {
		panic(err)
	}
	defer rt.ShutdownNow()

	var total atomic.Int64
	err = rt.WithExecutor(context.Background(), func(e *core.Executor) error {
		for i := 1; i <= 100; i++ {
			n := int64(i)
			if _, err := e.Submit(func(ctx context.Context) error {
				if err := vtask.Sleep(ctx, time.Millisecond); err != nil {
					return err
				}
				total.Add(n)
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	fmt.Println(total.Load(), err)
	// Output: 5050 <nil>
}
