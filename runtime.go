package vtask

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Swind/go-vtask/core"
)

// Runtime bundles a Scheduler with the CarrierPool serving it.
type Runtime struct {
	scheduler *core.Scheduler
	pool      *CarrierPool
}

// NewRuntime creates and starts a runtime. A nil cfg uses core.DefaultSchedulerConfig.
func NewRuntime(cfg *core.SchedulerConfig) (*Runtime, error) {
	if cfg == nil {
		cfg = core.DefaultSchedulerConfig()
	}
	if cfg.Carriers < 1 {
		return nil, fmt.Errorf("carriers must be at least 1, got %d", cfg.Carriers)
	}

	s := core.NewSchedulerWithConfig(cfg)
	r := &Runtime{
		scheduler: s,
		pool:      NewCarrierPool(s.Name()+"-carriers", s, cfg.Carriers),
	}
	r.pool.Start(context.Background())
	return r, nil
}

// NewRuntimeWithCarriers creates and starts a runtime with default handlers.
func NewRuntimeWithCarriers(carriers int) (*Runtime, error) {
	cfg := core.DefaultSchedulerConfig()
	cfg.Carriers = carriers
	return NewRuntime(cfg)
}

func (r *Runtime) Scheduler() *core.Scheduler { return r.scheduler }
func (r *Runtime) Pool() *CarrierPool         { return r.pool }

// Spawn starts a task running body with default builder settings.
func (r *Runtime) Spawn(body core.Body) (*core.Task, error) {
	return r.NewBuilder().Start(body)
}

// SpawnCallable starts a task whose outcome carries fn's value.
func (r *Runtime) SpawnCallable(fn core.Callable) (*core.Task, error) {
	return r.NewBuilder().StartCallable(fn)
}

func (r *Runtime) NewBuilder() *core.Builder {
	return core.NewBuilder(r.scheduler)
}

func (r *Runtime) NewExecutor() *core.Executor {
	return core.NewExecutor(r.scheduler)
}

// WithExecutor runs fn with a scoped executor that is closed before returning.
func (r *Runtime) WithExecutor(ctx context.Context, fn func(e *core.Executor) error) error {
	return core.WithExecutor(ctx, r.scheduler, fn)
}

// DumpAllTasks lists live tasks ordered by ID.
func (r *Runtime) DumpAllTasks() []core.TaskInfo {
	return r.scheduler.DumpAllTasks()
}

// Carriers lists the carriers of the pool.
func (r *Runtime) Carriers() []core.CarrierInfo {
	return r.pool.Carriers()
}

func (r *Runtime) WriteDump(w io.Writer) error {
	return r.scheduler.WriteDump(w)
}

func (r *Runtime) Stats() core.SchedulerStats {
	return r.scheduler.Stats()
}

func (r *Runtime) PoolStats() core.PoolStats {
	return r.pool.Stats()
}

// Shutdown stops accepting tasks and waits up to timeout for non-daemon tasks
// to finish. Remaining tasks are cancelled either way.
func (r *Runtime) Shutdown(timeout time.Duration) error {
	return r.pool.StopGraceful(timeout)
}

// ShutdownNow cancels queued tasks, interrupts live ones and stops the carriers.
func (r *Runtime) ShutdownNow() {
	r.pool.Stop()
}

// IsShutdown reports whether the runtime stopped accepting tasks.
func (r *Runtime) IsShutdown() bool {
	return r.scheduler.IsShutdown()
}

// ErrRuntimeNotInitialized is returned by the global helpers before InitGlobalRuntime.
var ErrRuntimeNotInitialized = errors.New("global runtime not initialized")
