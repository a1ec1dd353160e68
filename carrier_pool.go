package vtask

import (
	"context"
	"sync"
	"time"

	"github.com/Swind/go-vtask/core"
)

// CarrierPool manages a fixed set of carrier goroutines.
// Each carrier pulls Ready tasks from the scheduler and runs them until they park or finish.
type CarrierPool struct {
	id        string
	scheduler *core.Scheduler
	carriers  []*core.Carrier
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	running   bool
	runningMu sync.RWMutex
}

// NewCarrierPool creates a pool of n carriers serving s. n below 1 is raised to 1.
func NewCarrierPool(id string, s *core.Scheduler, n int) *CarrierPool {
	n = max(n, 1)
	p := &CarrierPool{
		id:        id,
		scheduler: s,
		carriers:  make([]*core.Carrier, n),
	}
	for i := range p.carriers {
		c := core.NewCarrier(i)
		p.carriers[i] = c
		s.RegisterCarrier(c)
	}
	return p
}

// Start starts all carrier goroutines
func (p *CarrierPool) Start(ctx context.Context) {
	p.runningMu.Lock()
	defer p.runningMu.Unlock()

	if p.running {
		return // Already running
	}

	p.ctx, p.cancel = context.WithCancel(ctx)
	p.running = true

	for _, c := range p.carriers {
		p.wg.Add(1)
		go p.carrierLoop(c, p.ctx)
	}
}

// Stop shuts the scheduler down immediately and waits for the carriers to exit.
// A task that is running and never suspends keeps its carrier, and Stop waits for it.
func (p *CarrierPool) Stop() {
	// Always shutdown scheduler so queued tasks are cancelled
	// even if pool was never started
	p.scheduler.ShutdownNow()

	p.runningMu.Lock()
	if !p.running {
		p.runningMu.Unlock()
		return
	}
	p.runningMu.Unlock()

	p.halt()
}

// StopGraceful waits up to timeout for every non-daemon task to finish, then stops.
// Returns error if timeout is exceeded before tasks complete
func (p *CarrierPool) StopGraceful(timeout time.Duration) error {
	p.runningMu.RLock()
	running := p.running
	p.runningMu.RUnlock()

	if !running {
		p.scheduler.ShutdownNow()
		return nil
	}

	// Carriers keep running while the scheduler drains; the error (if any)
	// is returned after they are stopped.
	err := p.scheduler.Shutdown(timeout)
	p.halt()
	return err
}

func (p *CarrierPool) halt() {
	if p.cancel != nil {
		p.cancel()
	}
	p.Join()

	p.runningMu.Lock()
	p.running = false
	p.runningMu.Unlock()
}

// ID returns the ID of the carrier pool
func (p *CarrierPool) ID() string {
	return p.id
}

// IsRunning returns whether the carrier pool is running
func (p *CarrierPool) IsRunning() bool {
	p.runningMu.RLock()
	defer p.runningMu.RUnlock()
	return p.running
}

// carrierLoop is the main loop for each carrier
func (p *CarrierPool) carrierLoop(c *core.Carrier, ctx context.Context) {
	defer p.wg.Done()
	stopCh := ctx.Done()

	for {
		t, ok := p.scheduler.GetWork(stopCh)
		if !ok {
			return
		}
		p.scheduler.Execute(c, t)
	}
}

// Join waits for all carrier goroutines to finish
func (p *CarrierPool) Join() {
	p.wg.Wait()
}

// CarrierCount returns the number of carriers
func (p *CarrierPool) CarrierCount() int {
	return len(p.carriers)
}

func (p *CarrierPool) GetScheduler() *core.Scheduler {
	return p.scheduler
}

// Carriers lists every carrier with its status and mounted task.
func (p *CarrierPool) Carriers() []core.CarrierInfo {
	out := make([]core.CarrierInfo, 0, len(p.carriers))
	for _, c := range p.carriers {
		out = append(out, c.Info())
	}
	return out
}

// Stats returns carrier occupancy counts.
func (p *CarrierPool) Stats() core.PoolStats {
	stats := core.PoolStats{
		ID:       p.id,
		Carriers: len(p.carriers),
		Running:  p.IsRunning(),
	}
	for _, c := range p.carriers {
		switch c.Status() {
		case core.CarrierIdle:
			stats.Idle++
		case core.CarrierBusy:
			stats.Busy++
		case core.CarrierPinned:
			stats.Pinned++
		}
	}
	return stats
}
