// Package metrics holds the risk gate's Prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts gate decisions and measures the external assessor.
type Metrics struct {
	AnalyzeTotal     *prometheus.CounterVec // by decision action
	PrecheckBlocks   prometheus.Counter
	AssessorDuration prometheus.Histogram
	AssessorFailures prometheus.Counter
	OverrideTotal    *prometheus.CounterVec // by outcome: applied, forbidden, not_found
	CacheHits        prometheus.Counter
	CacheMisses      prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		AnalyzeTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "riskgate_analyze_total",
			Help: "Analyze runs by decision action",
		}, []string{"decision"}),
		PrecheckBlocks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "riskgate_precheck_hard_blocks_total",
			Help: "Analyze runs hard-blocked by the precheck before any AI call",
		}),
		AssessorDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "riskgate_assessor_duration_seconds",
			Help:    "External risk assessor call latency",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
		}),
		AssessorFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "riskgate_assessor_failures_total",
			Help: "External risk assessor failures (transport, timeout, malformed reply)",
		}),
		OverrideTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "riskgate_override_total",
			Help: "Override attempts by outcome",
		}, []string{"outcome"}),
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "riskgate_status_cache_hits_total",
			Help: "Gate status cache hits",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "riskgate_status_cache_misses_total",
			Help: "Gate status cache misses",
		}),
	}
}

// The helpers below are nil-safe so unit tests can run without registering
// collectors on the default registry.

// ObserveAnalyze records an analyze run's decision action.
func (m *Metrics) ObserveAnalyze(decision string) {
	if m == nil {
		return
	}
	m.AnalyzeTotal.WithLabelValues(decision).Inc()
}

// ObservePrecheckBlock records a precheck hard block.
func (m *Metrics) ObservePrecheckBlock() {
	if m == nil {
		return
	}
	m.PrecheckBlocks.Inc()
}

// ObserveAssessor records the assessor call duration and failure state.
func (m *Metrics) ObserveAssessor(start time.Time, failed bool) {
	if m == nil {
		return
	}
	m.AssessorDuration.Observe(time.Since(start).Seconds())
	if failed {
		m.AssessorFailures.Inc()
	}
}

// ObserveOverride records an override attempt outcome: applied, forbidden,
// or not_found.
func (m *Metrics) ObserveOverride(outcome string) {
	if m == nil {
		return
	}
	m.OverrideTotal.WithLabelValues(outcome).Inc()
}

// ObserveCache records a cache lookup result.
func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHits.Inc()
	} else {
		m.CacheMisses.Inc()
	}
}
