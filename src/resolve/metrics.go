package resolve

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "lintcascade"

// Metrics counts cache traffic. A nil *Metrics records nothing.
type Metrics struct {
	lookups *prometheus.CounterVec
	entries *prometheus.GaugeVec
}

// NewMetrics registers the resolver metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		lookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "config_cache",
			Name:      "lookups_total",
			Help:      "Configuration cache lookups by cache and result (hit or miss).",
		}, []string{"cache", "result"}),
		entries: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "config_cache",
			Name:      "entries",
			Help:      "Configurations currently held by each cache.",
		}, []string{"cache"}),
	}
}

func (m *Metrics) lookup(cache string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.lookups.WithLabelValues(cache, result).Inc()
}

func (m *Metrics) size(cache string, n int) {
	if m == nil {
		return
	}
	m.entries.WithLabelValues(cache).Set(float64(n))
}
