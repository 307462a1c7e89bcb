package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics records JSON-RPC activity against the rewards ledger.
type LedgerMetrics struct {
	requests *prometheus.CounterVec
	errors   *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	pools    prometheus.Gauge
}

var (
	ledgerMetricsOnce sync.Once
	ledgerRegistry    *LedgerMetrics
)

// Metrics returns the lazily-initialised ledger metrics registry.
func Metrics() *LedgerMetrics {
	ledgerMetricsOnce.Do(func() {
		ledgerRegistry = &LedgerMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "stakevault",
				Subsystem: "rpc",
				Name:      "requests_total",
				Help:      "Total JSON-RPC requests segmented by method and outcome.",
			}, []string{"method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "stakevault",
				Subsystem: "rpc",
				Name:      "errors_total",
				Help:      "Total JSON-RPC errors segmented by method.",
			}, []string{"method"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "stakevault",
				Subsystem: "rpc",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for JSON-RPC handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"method"}),
			pools: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "stakevault",
				Subsystem: "ledger",
				Name:      "pools",
				Help:      "Number of reward pools ever created.",
			}),
		}
		prometheus.MustRegister(
			ledgerRegistry.requests,
			ledgerRegistry.errors,
			ledgerRegistry.latency,
			ledgerRegistry.pools,
		)
	})
	return ledgerRegistry
}

// ObserveRequest records one handled request.
func (m *LedgerMetrics) ObserveRequest(method, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, outcome).Inc()
	if outcome != "ok" {
		m.errors.WithLabelValues(method).Inc()
	}
	m.latency.WithLabelValues(method).Observe(duration.Seconds())
}

// SetPoolCount updates the pool gauge.
func (m *LedgerMetrics) SetPoolCount(count uint64) {
	if m == nil {
		return
	}
	m.pools.Set(float64(count))
}
