// Package memory watches heap usage against the configured runtime limit
// and sheds cached fetch results under pressure.
package memory

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yash/flightinsight/internal/metrics"
)

// ---------------------------------------------------------------------------
// State
// ---------------------------------------------------------------------------

// State is the current memory pressure level.
type State int

const (
	StateNormal State = iota
	// StateWarning means heap is above 80% of the soft limit.
	StateWarning
	// StateCritical means heap is at or above the soft limit.
	StateCritical
	// StateEmergency means heap is within 5% of the hard limit.
	StateEmergency
)

func (s State) String() string {
	switch s {
	case StateNormal:
		return "normal"
	case StateWarning:
		return "warning"
	case StateCritical:
		return "critical"
	case StateEmergency:
		return "emergency"
	default:
		return "unknown"
	}
}

// Stats is one heap sample.
type Stats struct {
	HeapMB     float64 `json:"heap_mb"`
	SysMB      float64 `json:"sys_mb"`
	NumGC      uint32  `json:"num_gc"`
	State      State   `json:"-"`
	UsageRatio float64 `json:"usage_ratio"` // of the soft limit; 0 when unlimited
}

// Config bounds the monitor. A zero LimitMB disables pressure states; the
// monitor then only records samples.
type Config struct {
	LimitMB  int
	Interval time.Duration
}

// SoftLimitMB is 80% of the hard limit.
func (c Config) SoftLimitMB() float64 { return float64(c.LimitMB) * 0.8 }

// Listener is called on every state change.
type Listener func(from, to State, stats Stats)

// ---------------------------------------------------------------------------
// Monitor
// ---------------------------------------------------------------------------

// Monitor samples the heap on a ticker.
type Monitor struct {
	cfg    Config
	logger *slog.Logger
	read   func() runtime.MemStats

	mu        sync.RWMutex
	state     State
	stats     Stats
	listeners []Listener

	critical atomic.Bool
	running  atomic.Bool
	cancel   context.CancelFunc
	done     chan struct{}
}

// New creates a monitor. A zero interval defaults to five seconds.
func New(cfg Config, logger *slog.Logger) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		cfg:    cfg,
		logger: logger,
		read: func() runtime.MemStats {
			var ms runtime.MemStats
			runtime.ReadMemStats(&ms)
			return ms
		},
	}
}

// AddListener registers a state change callback.
func (m *Monitor) AddListener(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// Start samples once and then keeps sampling until ctx ends or Stop is
// called.
func (m *Monitor) Start(ctx context.Context) {
	if m.running.Swap(true) {
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	m.Check()
	go m.loop(ctx)
}

// Stop halts sampling and waits for the loop to exit.
func (m *Monitor) Stop() {
	if !m.running.Swap(false) {
		return
	}
	m.cancel()
	<-m.done
}

// Stats returns the latest sample.
func (m *Monitor) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}

// State returns the latest state.
func (m *Monitor) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// IsCritical is a lock-free check for critical or worse.
func (m *Monitor) IsCritical() bool { return m.critical.Load() }

func (m *Monitor) loop(ctx context.Context) {
	defer close(m.done)
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check()
		}
	}
}

// Check takes one sample, updates gauges and notifies listeners when the
// state changed.
func (m *Monitor) Check() Stats {
	ms := m.read()
	heapMB := float64(ms.HeapAlloc) / 1024 / 1024

	stats := Stats{
		HeapMB: heapMB,
		SysMB:  float64(ms.Sys) / 1024 / 1024,
		NumGC:  ms.NumGC,
	}
	if m.cfg.LimitMB > 0 {
		soft := m.cfg.SoftLimitMB()
		stats.UsageRatio = heapMB / soft
		switch {
		case heapMB >= float64(m.cfg.LimitMB)*0.95:
			stats.State = StateEmergency
		case heapMB >= soft:
			stats.State = StateCritical
		case heapMB >= soft*0.8:
			stats.State = StateWarning
		}
	}

	m.mu.Lock()
	prev := m.state
	m.state = stats.State
	m.stats = stats
	listeners := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()

	m.critical.Store(stats.State >= StateCritical)
	metrics.HeapBytes.Set(float64(ms.HeapAlloc))
	metrics.MemoryState.Set(float64(stats.State))

	if prev != stats.State {
		m.logger.Warn("memory state changed",
			"from", prev,
			"to", stats.State,
			"heap_mb", heapMB,
			"ratio", stats.UsageRatio)
		for _, l := range listeners {
			l(prev, stats.State, stats)
		}
	}
	return stats
}

// ---------------------------------------------------------------------------
// Pressure Handling
// ---------------------------------------------------------------------------

// Shedder drops reclaimable data.
type Shedder interface {
	FlushCache() int
}

// ShedOnPressure returns a listener that flushes s when the state rises to
// critical or worse, and forces a collection in an emergency.
func ShedOnPressure(s Shedder, logger *slog.Logger) Listener {
	return func(from, to State, stats Stats) {
		if to < StateCritical || to <= from {
			return
		}
		n := s.FlushCache()
		logger.Warn("memory pressure, flushed fetch cache", "entries", n, "state", to)
		if to == StateEmergency {
			runtime.GC()
		}
	}
}
