package settings

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

const defaultProbeTTL = 5 * time.Minute

// QuantizeBelow is the host memory under which quantized models are advised.
const QuantizeBelow uint64 = 16 << 30

type HostInfo struct {
	OS           string    `json:"os"`
	Arch         string    `json:"arch"`
	CPUModel     string    `json:"cpu_model,omitempty"`
	LogicalCPUs  int       `json:"logical_cpus"`
	MemoryTotal  uint64    `json:"memory_total"`
	MemoryFree   uint64    `json:"memory_available"`
	MemoryUsedPc float64   `json:"memory_used_percent"`
	ProbedAt     time.Time `json:"probed_at"`
}

type HostProber interface {
	Probe(ctx context.Context) (*HostInfo, error)
}

// SystemProber reads host facts through gopsutil.
type SystemProber struct{}

func (SystemProber) Probe(ctx context.Context) (*HostInfo, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("read memory: %w", err)
	}
	info := &HostInfo{
		OS:           runtime.GOOS,
		Arch:         runtime.GOARCH,
		MemoryTotal:  vm.Total,
		MemoryFree:   vm.Available,
		MemoryUsedPc: vm.UsedPercent,
		ProbedAt:     time.Now(),
	}

	if n, err := cpu.CountsWithContext(ctx, true); err == nil {
		info.LogicalCPUs = n
	} else {
		info.LogicalCPUs = runtime.NumCPU()
	}
	if cpus, err := cpu.InfoWithContext(ctx); err == nil && len(cpus) > 0 {
		info.CPUModel = cpus[0].ModelName
	}
	return info, nil
}

// CachedProbe wraps a HostProber with a TTL and falls back to the last
// good result when a probe fails.
type CachedProbe struct {
	prober HostProber
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time

	mu     sync.RWMutex
	cached *HostInfo
}

func NewCachedProbe(prober HostProber, logger *slog.Logger) *CachedProbe {
	return &CachedProbe{
		prober: prober,
		ttl:    defaultProbeTTL,
		logger: logger,
		now:    time.Now,
	}
}

// Get returns the cached host info if fresh, otherwise re-probes.
func (c *CachedProbe) Get(ctx context.Context) (*HostInfo, error) {
	c.mu.RLock()
	if c.cached != nil && c.now().Sub(c.cached.ProbedAt) < c.ttl {
		info := c.cached
		c.mu.RUnlock()
		return info, nil
	}
	c.mu.RUnlock()

	return c.Refresh(ctx)
}

// Refresh forces a probe regardless of cache freshness.
func (c *CachedProbe) Refresh(ctx context.Context) (*HostInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	info, err := c.prober.Probe(ctx)
	if err != nil {
		c.logger.Warn("host probe failed", "error", err)
		if c.cached != nil {
			c.logger.Info("returning stale host info")
			return c.cached, nil
		}
		return nil, err
	}
	if info.ProbedAt.IsZero() {
		info.ProbedAt = c.now()
	}
	c.cached = info
	return info, nil
}
