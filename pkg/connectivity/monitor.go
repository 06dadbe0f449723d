package connectivity

import (
	"context"
	"sync"
	"time"

	"github.com/angelmondragon/packfinderz-cart/pkg/logger"
)

// Monitor polls a Checker and publishes transitions to subscribers.
// Transitions are delivered from the Run goroutine, never from the caller of IsConnected.
type Monitor struct {
	probe    Checker
	interval time.Duration
	logg     *logger.Logger

	subs subscribers
	wake chan struct{}

	mu        sync.RWMutex
	known     bool
	online    bool
	delivered bool
}

func NewMonitor(probe Checker, interval time.Duration, logg *logger.Logger) *Monitor {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Monitor{probe: probe, interval: interval, logg: logg, wake: make(chan struct{}, 1)}
}

// IsConnected runs a fresh probe and records the result. A transition is queued
// for the Run loop.
func (m *Monitor) IsConnected(ctx context.Context) bool {
	online := m.probe.IsConnected(ctx)
	m.observe(ctx, online)
	return online
}

// Last returns the most recent observation without probing.
func (m *Monitor) Last() (online bool, known bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online, m.known
}

func (m *Monitor) Subscribe(fn func(online bool)) func() {
	return m.subs.add(fn)
}

// Run polls until ctx is cancelled and delivers queued transitions.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.IsConnected(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.wake:
			m.deliver()
		case <-ticker.C:
			m.IsConnected(ctx)
		}
	}
}

func (m *Monitor) observe(ctx context.Context, online bool) {
	m.mu.Lock()
	changed := !m.known || m.online != online
	if !m.known {
		// The first observation only establishes a baseline.
		m.delivered = online
	}
	m.known = true
	m.online = online
	m.mu.Unlock()

	if !changed {
		return
	}
	if m.logg != nil {
		m.logg.Info(m.logg.WithField(ctx, "online", online), "connectivity.changed")
	}
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// deliver notifies subscribers when the latest observation differs from the last
// delivered one. Flaps between two wakes collapse into nothing.
func (m *Monitor) deliver() {
	m.mu.Lock()
	if !m.known || m.online == m.delivered {
		m.mu.Unlock()
		return
	}
	m.delivered = m.online
	online := m.online
	m.mu.Unlock()

	m.subs.notify(online)
}
