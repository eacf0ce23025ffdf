// Package connectivity tracks whether the plantcare server is reachable.
package connectivity

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/plantcare/internal/logging"
)

type Mode string

const (
	ModeUnknown Mode = "unknown"
	ModeOnline  Mode = "online"
	ModeOffline Mode = "offline"
)

const pingTimeout = 3 * time.Second

// Pinger is the health probe, normally client.Client.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Monitor holds the current mode. Until the first successful probe the mode
// is unknown, which callers treat as offline.
type Monitor struct {
	pinger Pinger
	log    logging.Logger

	mu          sync.RWMutex
	mode        Mode
	onReconnect []func(context.Context)
}

func NewMonitor(p Pinger, logger logging.Logger) *Monitor {
	return &Monitor{pinger: p, log: logger.With("module", "connectivity"), mode: ModeUnknown}
}

func (m *Monitor) Mode() Mode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mode
}

func (m *Monitor) IsOnline() bool {
	return m.Mode() == ModeOnline
}

// MarkOffline records a transport failure observed outside the probe loop.
func (m *Monitor) MarkOffline() {
	m.setMode(context.Background(), ModeOffline)
}

// OnReconnect registers fn to run whenever the mode becomes online from
// any other mode.
func (m *Monitor) OnReconnect(fn func(context.Context)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onReconnect = append(m.onReconnect, fn)
}

// Check probes the server once and updates the mode.
func (m *Monitor) Check(ctx context.Context) Mode {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	err := m.pinger.Ping(pingCtx)
	cancel()

	if err != nil {
		if ctx.Err() != nil {
			return m.Mode()
		}
		m.log.Debug(ctx, "ping failed", "error", err)
		m.setMode(ctx, ModeOffline)
	} else {
		m.setMode(ctx, ModeOnline)
	}
	return m.Mode()
}

// Run probes every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Check(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (m *Monitor) setMode(ctx context.Context, mode Mode) {
	m.mu.Lock()
	prev := m.mode
	m.mode = mode
	hooks := append([]func(context.Context){}, m.onReconnect...)
	m.mu.Unlock()

	if prev == mode {
		return
	}
	m.log.Info(ctx, "connectivity changed", "from", prev, "to", mode)

	if mode == ModeOnline {
		for _, fn := range hooks {
			fn(ctx)
		}
	}
}
