// Package vtask provides a cooperative task runtime that multiplexes many
// lightweight tasks onto a small, fixed pool of carrier goroutines.
//
// A task runs on a carrier until it suspends. Blocking calls made through the
// runtime's gate (Sleep, Yield, WaitFor, BlockingIO, ReentrantLock, joins)
// park the task and hand its carrier to the next Ready task. Inside a
// Monitor.Synchronized section the task is pinned instead: blocking calls keep
// the carrier occupied and are reported as pinned events.
//
// # Quick Start
//
// Initialize the global runtime at application startup:
//
//	vtask.InitGlobalRuntime(4) // 4 carriers
//	defer vtask.ShutdownGlobalRuntime()
//
// Spawn a task and join it:
//
//	t, _ := vtask.Spawn(func(ctx context.Context) error {
//		return vtask.Sleep(ctx, 100*time.Millisecond)
//	})
//	outcome := t.Join()
//
// # Key Concepts
//
// Task: the unit of work and its own handle. Tasks move through Unstarted,
// Ready, Running, Parked, Pinned, Completed and Failed.
//
// Builder and Factory: configure names (fixed or prefix plus ordinal), the
// daemon flag and an advisory priority. Scheduling is strict FIFO.
//
// Executor: starts one task per submission; Close waits for all of them and
// reports the first failure.
//
// Interrupt: a per-task flag. Parked interruptible waits wake with
// core.ErrInterrupted; running code observes the flag at CheckInterrupt.
//
// # Example
//
//	rt, err := vtask.NewRuntimeWithCarriers(4)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer rt.Shutdown(5 * time.Second)
//
//	err = rt.WithExecutor(context.Background(), func(e *core.Executor) error {
//		for i := 0; i < 1000; i++ {
//			if _, err := e.Submit(func(ctx context.Context) error {
//				return vtask.Sleep(ctx, 50*time.Millisecond)
//			}); err != nil {
//				return err
//			}
//		}
//		return nil
//	})
package vtask
