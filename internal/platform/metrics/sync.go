// Package metrics exposes Prometheus collectors for league syncs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "fantasy_hoops"

// SyncMetrics implements the sync service's recorder on top of Prometheus.
type SyncMetrics struct {
	runs          *prometheus.CounterVec
	categories    *prometheus.CounterVec
	gateDecisions *prometheus.CounterVec
	duration      *prometheus.HistogramVec
}

// NewSyncMetrics registers the sync collectors on reg; nil uses the default registerer.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &SyncMetrics{
		runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sync_runs_total",
				Help:      "Executed league sync runs by trigger and outcome",
			},
			[]string{"trigger", "status"},
		),
		categories: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sync_categories_total",
				Help:      "League data categories synced by outcome",
			},
			[]string{"category", "status"},
		),
		gateDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sync_gate_decisions_total",
				Help:      "Sync gate decisions (sync, fresh, debounced, locked)",
			},
			[]string{"decision"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "sync_duration_seconds",
				Help:      "Wall time of executed league sync runs",
				Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 80},
			},
			[]string{"trigger"},
		),
	}
}

func (m *SyncMetrics) ObserveGateDecision(decision string) {
	m.gateDecisions.WithLabelValues(decision).Inc()
}

func (m *SyncMetrics) ObserveCategory(category, status string) {
	m.categories.WithLabelValues(category, status).Inc()
}

func (m *SyncMetrics) ObserveRun(trigger, status string, duration time.Duration) {
	m.runs.WithLabelValues(trigger, status).Inc()
	m.duration.WithLabelValues(trigger).Observe(duration.Seconds())
}
