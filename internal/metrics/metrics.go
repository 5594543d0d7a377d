// Package metrics exposes prometheus collectors for the decision pipeline.
// The per-action decision counter is the primary bias monitor: a drifting
// BUY share shows up here before it shows up in the P&L.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collectors bundles every pipeline metric behind one registry.
type Collectors struct {
	Registry *prometheus.Registry

	DecisionsTotal     *prometheus.CounterVec
	CycleSymbolsTotal  *prometheus.CounterVec
	GuardFailuresTotal prometheus.Counter
	OutcomesTotal      *prometheus.CounterVec
	DecisionConfidence prometheus.Histogram
	PendingPredictions prometheus.Gauge
}

// New creates all collectors on a fresh registry.
func New() *Collectors {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Collectors{
		Registry: registry,
		DecisionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "trading_decisions_total",
			Help: "Decisions emitted, by action. Watch the BUY share for bias drift.",
		}, []string{"action"}),
		CycleSymbolsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "trading_cycle_symbols_total",
			Help: "Per-symbol cycle results: decided, skipped_data, blocked, duplicate.",
		}, []string{"result"}),
		GuardFailuresTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "trading_guard_failures_total",
			Help: "Temporal integrity guard failures; each one aborted a full cycle.",
		}),
		OutcomesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "trading_outcomes_total",
			Help: "Evaluated outcomes by success.",
		}, []string{"success"}),
		DecisionConfidence: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "trading_decision_confidence",
			Help:    "Final confidence distribution across decisions.",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
		PendingPredictions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "trading_pending_predictions",
			Help: "Predictions matured but not yet evaluated.",
		}),
	}
}
