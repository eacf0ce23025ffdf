package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the cache's Prometheus collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	Lookups   *prometheus.CounterVec
	Fallbacks prometheus.Counter
	Evictions *prometheus.CounterVec
}

// NewMetrics registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Lookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "plantcare",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Cache lookups by result (fresh, stale, miss).",
		}, []string{"result"}),
		Fallbacks: f.NewCounter(prometheus.CounterOpts{
			Namespace: "plantcare",
			Subsystem: "cache",
			Name:      "fallbacks_total",
			Help:      "Operations served by the in-memory fallback after a primary store error.",
		}),
		Evictions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "plantcare",
			Subsystem: "cache",
			Name:      "evictions_total",
			Help:      "Entries removed, by reason (invalidate, expired).",
		}, []string{"reason"}),
	}
}

func (m *Metrics) lookup(result string) {
	if m != nil {
		m.Lookups.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) fallback() {
	if m != nil {
		m.Fallbacks.Inc()
	}
}

func (m *Metrics) evicted(reason string, n int) {
	if m != nil && n > 0 {
		m.Evictions.WithLabelValues(reason).Add(float64(n))
	}
}
