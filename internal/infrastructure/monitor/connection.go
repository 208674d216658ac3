package monitor

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// PingFunc checks one dependency. A nil error means it is reachable.
type PingFunc func(ctx context.Context) error

// Probe is a named dependency check.
type Probe struct {
	Name    string
	Timeout time.Duration
	Ping    PingFunc
}

// SizeFunc reports the current outbox backlog.
type SizeFunc func() (int, error)

type Monitor struct {
	probes []Probe
	outbox SizeFunc

	status   Status
	mu       sync.RWMutex
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	logger   *zap.Logger
}

func New(interval time.Duration, logger *zap.Logger, outbox SizeFunc, probes ...Probe) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	for i := range probes {
		if probes[i].Timeout <= 0 {
			probes[i].Timeout = 3 * time.Second
		}
	}
	return &Monitor{
		probes:   probes,
		outbox:   outbox,
		interval: interval,
		stopCh:   make(chan struct{}),
		logger:   logger,
	}
}

func (m *Monitor) Start() {
	m.Refresh()
	go m.loop()
}

func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

// IsOnline reports whether every probe passed on the last check.
func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return !m.status.LastCheck.IsZero() && m.status.Healthy()
}

// Component returns a health view limited to one named probe.
func (m *Monitor) Component(name string) ComponentHealth {
	return ComponentHealth{monitor: m, name: name}
}

func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	components := make(map[string]bool, len(m.status.Components))
	for name, up := range m.status.Components {
		components[name] = up
	}
	status := m.status
	status.Components = components
	return status
}

// Refresh runs every probe once and stores the result.
func (m *Monitor) Refresh() {
	status := Status{
		Components: make(map[string]bool, len(m.probes)),
		LastCheck:  time.Now(),
	}
	for _, probe := range m.probes {
		up := m.check(probe)
		status.Components[probe.Name] = up
	}
	if m.outbox != nil {
		size, err := m.outbox()
		if err != nil {
			m.logger.Warn("outbox size check failed", zap.Error(err))
		}
		status.OutboxSize = size
	}

	m.mu.Lock()
	previous := m.status.Components
	m.status = status
	m.mu.Unlock()

	for name, up := range status.Components {
		if was, ok := previous[name]; ok && was != up {
			m.logger.Info("dependency state changed", zap.String("component", name), zap.Bool("online", up))
		}
	}
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Refresh()
		case <-m.stopCh:
			return
		}
	}
}

func (m *Monitor) check(probe Probe) bool {
	if probe.Ping == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), probe.Timeout)
	defer cancel()
	return probe.Ping(ctx) == nil
}

// ComponentHealth satisfies IsOnline for a single dependency.
type ComponentHealth struct {
	monitor *Monitor
	name    string
}

func (c ComponentHealth) IsOnline() bool {
	c.monitor.mu.RLock()
	defer c.monitor.mu.RUnlock()
	return c.monitor.status.Components[c.name]
}
