package prometheus

import (
	"context"
	"sync"
	"time"

	"github.com/Swind/go-vtask/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// SchedulerSnapshotProvider provides current scheduler stats snapshots.
type SchedulerSnapshotProvider interface {
	Stats() core.SchedulerStats
}

// PoolSnapshotProvider provides current carrier pool stats snapshots.
type PoolSnapshotProvider interface {
	Stats() core.PoolStats
}

// SnapshotPoller periodically exports scheduler/pool Stats() snapshots into Prometheus gauges.
type SnapshotPoller struct {
	interval time.Duration

	schedulersMu sync.RWMutex
	schedulers   map[string]SchedulerSnapshotProvider

	poolsMu sync.RWMutex
	pools   map[string]PoolSnapshotProvider

	schedulerTasks      *prom.GaugeVec
	schedulerTerminated *prom.GaugeVec
	schedulerRejected   *prom.GaugeVec
	schedulerShutdown   *prom.GaugeVec

	poolCarriers *prom.GaugeVec
	poolRunning  *prom.GaugeVec

	stateMu sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(namespace string, reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if namespace == "" {
		namespace = "vtask"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	schedulerTasks := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "scheduler_tasks",
		Help:      "Tasks per scheduler by state (live, ready, running, parked, pinned, delayed).",
	}, []string{"scheduler", "state"})
	schedulerTerminated := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "scheduler_terminated_total",
		Help:      "Terminated task count snapshot by outcome.",
	}, []string{"scheduler", "status"})
	schedulerRejected := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "scheduler_rejected_total",
		Help:      "Rejected submission count snapshot.",
	}, []string{"scheduler"})
	schedulerShutdown := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "scheduler_shutdown",
		Help:      "Scheduler shutdown state (1=shutting down, 0=accepting).",
	}, []string{"scheduler"})

	poolCarriers := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "pool_carriers",
		Help:      "Carriers per pool by status (idle, busy, pinned, total).",
	}, []string{"pool", "status"})
	poolRunning := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "pool_running",
		Help:      "Pool running state (1=running, 0=stopped).",
	}, []string{"pool"})

	var err error
	if schedulerTasks, err = registerCollector(reg, schedulerTasks); err != nil {
		return nil, err
	}
	if schedulerTerminated, err = registerCollector(reg, schedulerTerminated); err != nil {
		return nil, err
	}
	if schedulerRejected, err = registerCollector(reg, schedulerRejected); err != nil {
		return nil, err
	}
	if schedulerShutdown, err = registerCollector(reg, schedulerShutdown); err != nil {
		return nil, err
	}
	if poolCarriers, err = registerCollector(reg, poolCarriers); err != nil {
		return nil, err
	}
	if poolRunning, err = registerCollector(reg, poolRunning); err != nil {
		return nil, err
	}

	return &SnapshotPoller{
		interval:            interval,
		schedulers:          make(map[string]SchedulerSnapshotProvider),
		pools:               make(map[string]PoolSnapshotProvider),
		schedulerTasks:      schedulerTasks,
		schedulerTerminated: schedulerTerminated,
		schedulerRejected:   schedulerRejected,
		schedulerShutdown:   schedulerShutdown,
		poolCarriers:        poolCarriers,
		poolRunning:         poolRunning,
	}, nil
}

// AddScheduler adds or replaces a scheduler snapshot provider by name.
func (p *SnapshotPoller) AddScheduler(name string, provider SchedulerSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "scheduler")
	p.schedulersMu.Lock()
	p.schedulers[name] = provider
	p.schedulersMu.Unlock()
}

// AddPool adds or replaces a pool snapshot provider by name.
func (p *SnapshotPoller) AddPool(name string, provider PoolSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "pool")
	p.poolsMu.Lock()
	p.pools[name] = provider
	p.poolsMu.Unlock()
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if p.running {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	p.stateMu.Unlock()

	go p.loop(pollCtx, p.done)
}

// Stop stops periodic polling; repeated calls are safe.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if !p.running {
		p.stateMu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.stateMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	p.stateMu.Lock()
	p.running = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()
}

func (p *SnapshotPoller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.collectOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.collectOnce()
		}
	}
}

func (p *SnapshotPoller) collectOnce() {
	p.schedulersMu.RLock()
	for name, provider := range p.schedulers {
		stats := provider.Stats()
		p.schedulerTasks.WithLabelValues(name, "live").Set(float64(stats.Live))
		p.schedulerTasks.WithLabelValues(name, "ready").Set(float64(stats.Ready))
		p.schedulerTasks.WithLabelValues(name, "running").Set(float64(stats.Running))
		p.schedulerTasks.WithLabelValues(name, "parked").Set(float64(stats.Parked))
		p.schedulerTasks.WithLabelValues(name, "pinned").Set(float64(stats.Pinned))
		p.schedulerTasks.WithLabelValues(name, "delayed").Set(float64(stats.Delayed))
		p.schedulerTerminated.WithLabelValues(name, core.OutcomeSuccess.String()).Set(float64(stats.Completed))
		p.schedulerTerminated.WithLabelValues(name, core.OutcomeFailed.String()).Set(float64(stats.Failed))
		p.schedulerTerminated.WithLabelValues(name, core.OutcomeCancelled.String()).Set(float64(stats.Cancelled))
		p.schedulerRejected.WithLabelValues(name).Set(float64(stats.Rejected))
		p.schedulerShutdown.WithLabelValues(name).Set(boolGauge(stats.Shutdown))
	}
	p.schedulersMu.RUnlock()

	p.poolsMu.RLock()
	for name, provider := range p.pools {
		stats := provider.Stats()
		p.poolCarriers.WithLabelValues(name, "idle").Set(float64(stats.Idle))
		p.poolCarriers.WithLabelValues(name, "busy").Set(float64(stats.Busy))
		p.poolCarriers.WithLabelValues(name, "pinned").Set(float64(stats.Pinned))
		p.poolCarriers.WithLabelValues(name, "total").Set(float64(stats.Carriers))
		p.poolRunning.WithLabelValues(name).Set(boolGauge(stats.Running))
	}
	p.poolsMu.RUnlock()
}

func boolGauge(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
