// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	registry *prometheus.Registry

	// Swap metrics
	SwapsTotal        *prometheus.CounterVec
	SwapDuration      prometheus.Histogram
	PointsTransferred prometheus.Counter

	// Moderation metrics
	ModerationsTotal *prometheus.CounterVec

	// Ledger metrics
	LedgerEntriesTotal *prometheus.CounterVec

	// Infrastructure metrics
	StatsCacheTotal  *prometheus.CounterVec
	EventPublishErrs prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered on
// its own registry, so tests can build as many as they need.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "rewear"
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		SwapsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "swap",
			Name:      "requests_total",
			Help:      "Total number of swap proposals by outcome",
		}, []string{"outcome"}),
		SwapDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "swap",
			Name:      "duration_seconds",
			Help:      "Swap proposal duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		PointsTransferred: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "swap",
			Name:      "points_transferred_total",
			Help:      "Total number of points moved by committed swaps",
		}),

		ModerationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "moderation",
			Name:      "actions_total",
			Help:      "Total number of moderation actions by action and outcome",
		}, []string{"action", "outcome"}),

		LedgerEntriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "entries_total",
			Help:      "Total number of ledger entries written by reason",
		}, []string{"reason"}),

		StatsCacheTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stats",
			Name:      "cache_requests_total",
			Help:      "Stats cache lookups by result",
		}, []string{"result"}),
		EventPublishErrs: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "publish_errors_total",
			Help:      "Total number of domain events that failed to publish",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordSwap records the outcome of a swap proposal.
func (m *Metrics) RecordSwap(outcome string, seconds float64, points int64) {
	m.SwapsTotal.WithLabelValues(outcome).Inc()
	m.SwapDuration.Observe(seconds)
	if outcome == OutcomeCommitted {
		m.PointsTransferred.Add(float64(points))
	}
}

// RecordModeration records a moderation action.
func (m *Metrics) RecordModeration(action, outcome string) {
	m.ModerationsTotal.WithLabelValues(action, outcome).Inc()
}

// RecordLedgerEntry counts a written ledger entry.
func (m *Metrics) RecordLedgerEntry(reason string) {
	m.LedgerEntriesTotal.WithLabelValues(reason).Inc()
}

// RecordCacheLookup counts a stats cache hit or miss.
func (m *Metrics) RecordCacheLookup(hit bool) {
	if hit {
		m.StatsCacheTotal.WithLabelValues("hit").Inc()
		return
	}
	m.StatsCacheTotal.WithLabelValues("miss").Inc()
}

// Swap outcome labels
const (
	OutcomeCommitted = "committed"
	OutcomeRejected  = "rejected"
	OutcomeConflict  = "conflict"
	OutcomeError     = "error"
	OutcomeOK        = "ok"
)
