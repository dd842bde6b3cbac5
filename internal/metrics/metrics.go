// Package metrics defines the Prometheus metrics of the brief service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "briefs"

var (
	// confirmations counts ledger confirmations applied in guided review.
	// Labels: origin (explicit, edit, visibility)
	confirmations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "review",
		Name:      "confirmations_total",
		Help:      "Ledger confirmations applied during guided review",
	}, []string{"origin"})

	// signals counts outbound field-confirmed signals after deduplication.
	// Labels: origin
	signals = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "review",
		Name:      "signals_total",
		Help:      "Field-confirmed signals emitted, at most one per field per session",
	}, []string{"origin"})

	// saves counts review saves by mode and result.
	// Labels: mode (silent, explicit), result (ok, error, skipped, stale)
	saves = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "review",
		Name:      "saves_total",
		Help:      "Guided review saves by mode and result",
	}, []string{"mode", "result"})

	// saveLatency measures the store round-trip of a review save.
	// Labels: mode
	saveLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "review",
		Name:      "save_duration_seconds",
		Help:      "Store round-trip of guided review saves in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"mode"})

	// transitions counts lifecycle transitions.
	// Labels: event, result (ok, rejected, error)
	transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "lifecycle",
		Name:      "transitions_total",
		Help:      "Lifecycle transitions by event and result",
	}, []string{"event", "result"})

	// audits counts audit projections served.
	// Labels: mode (all, client), ledger (present, absent)
	audits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "audit",
		Name:      "views_total",
		Help:      "Audit projections served",
	}, []string{"mode", "ledger"})
)

// RecordConfirmation records a ledger confirmation with the given origin.
func RecordConfirmation(origin string) {
	confirmations.WithLabelValues(origin).Inc()
}

// RecordSignal records an emitted field-confirmed signal.
func RecordSignal(origin string) {
	signals.WithLabelValues(origin).Inc()
}

// RecordSave records a review save. durationSec is ignored for skipped saves.
func RecordSave(mode, result string, durationSec float64) {
	saves.WithLabelValues(mode, result).Inc()
	if result != "skipped" {
		saveLatency.WithLabelValues(mode).Observe(durationSec)
	}
}

// RecordTransition records a lifecycle transition attempt.
func RecordTransition(event, result string) {
	transitions.WithLabelValues(event, result).Inc()
}

// RecordAudit records a served audit projection.
func RecordAudit(mode, ledger string) {
	audits.WithLabelValues(mode, ledger).Inc()
}
