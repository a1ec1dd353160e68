package vtask

import (
	"context"
	"sync"

	"github.com/Swind/go-vtask/core"
)

// =============================================================================
// Global Runtime Helper (Singleton)
// =============================================================================

var (
	globalRuntime *Runtime
	globalMu      sync.Mutex
)

// InitGlobalRuntime initializes the global runtime with the specified number of carriers.
// It is a no-op if the global runtime already exists.
func InitGlobalRuntime(carriers int) {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalRuntime != nil {
		return // Already initialized
	}

	rt, err := NewRuntimeWithCarriers(max(carriers, 1))
	if err != nil {
		panic(err)
	}
	globalRuntime = rt
}

// GetGlobalRuntime returns the global runtime instance.
// It panics if InitGlobalRuntime has not been called.
func GetGlobalRuntime() *Runtime {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalRuntime == nil {
		panic("GlobalRuntime not initialized. Call InitGlobalRuntime() first.")
	}
	return globalRuntime
}

func lookupGlobalRuntime() (*Runtime, error) {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalRuntime == nil {
		return nil, ErrRuntimeNotInitialized
	}
	return globalRuntime, nil
}

// ShutdownGlobalRuntime stops the global runtime immediately.
func ShutdownGlobalRuntime() {
	globalMu.Lock()
	rt := globalRuntime
	globalRuntime = nil
	globalMu.Unlock()

	// Tasks may still call the global helpers while the carriers drain
	if rt != nil {
		rt.ShutdownNow()
	}
}

// Spawn starts body on the global runtime.
func Spawn(body core.Body) (*core.Task, error) {
	rt, err := lookupGlobalRuntime()
	if err != nil {
		return nil, err
	}
	return rt.Spawn(body)
}

// Build returns a builder on the global runtime naming tasks prefix0, prefix1, ...
func Build(prefix string) *core.Builder {
	return GetGlobalRuntime().NewBuilder().NameWithOrdinal(prefix, 0)
}

// FactoryFrom snapshots b into a Factory.
func FactoryFrom(b *core.Builder) *core.Factory {
	return b.Factory()
}

// ScopedExecutor runs fn with an executor on the global runtime and closes it
// before returning, even if fn panics.
func ScopedExecutor(fn func(e *core.Executor) error) error {
	rt, err := lookupGlobalRuntime()
	if err != nil {
		return err
	}
	return rt.WithExecutor(context.Background(), fn)
}
