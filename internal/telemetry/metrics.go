// Package telemetry exposes Prometheus metrics for the ingestion
// pipeline and an optional scrape endpoint for long batch runs.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetchAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waterzone_fetch_attempts_total",
			Help: "Document fetch attempts, labeled by strategy and outcome.",
		},
		[]string{"strategy", "outcome"},
	)

	fetchFallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "waterzone_fetch_fallbacks_total",
			Help: "Times the browser-automation strategy was engaged after a blocked direct request.",
		},
	)

	zonesIngestedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "waterzone_zones_ingested_total",
			Help: "Zones successfully extracted and stored.",
		},
	)

	rowsFailedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waterzone_rows_failed_total",
			Help: "Input rows that terminally failed, labeled by pipeline stage.",
		},
		[]string{"stage"},
	)

	measurementsInsertedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "waterzone_measurements_inserted_total",
			Help: "Measurement rows written to the store.",
		},
	)
)

// CountFetchAttempt records one strategy attempt and its outcome
// ("ok", "blocked", "not_found", "error").
func CountFetchAttempt(strategy, outcome string) {
	fetchAttemptsTotal.WithLabelValues(strategy, outcome).Inc()
}

// CountFallback records a promotion from the direct strategy to the
// browser strategy.
func CountFallback() {
	fetchFallbacksTotal.Inc()
}

// CountZoneIngested records a completed per-zone transaction.
func CountZoneIngested() {
	zonesIngestedTotal.Inc()
}

// CountRowFailed records a row-scoped terminal failure at the named
// stage ("fetch", "extract", "store").
func CountRowFailed(stage string) {
	rowsFailedTotal.WithLabelValues(stage).Inc()
}

// AddMeasurements records measurement rows written for a zone.
func AddMeasurements(n int) {
	measurementsInsertedTotal.Add(float64(n))
}
