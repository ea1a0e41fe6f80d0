// Package metrics provides Prometheus instrumentation for connector
// operations. Metrics are registered once at package load via promauto;
// connectors record through the helper functions rather than touching
// the collectors directly.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bifrost",
			Subsystem: "connector",
			Name:      "query_duration_seconds",
			Help:      "Duration of query execution in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		},
		[]string{"connector_type", "status"},
	)

	queriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bifrost",
			Subsystem: "connector",
			Name:      "queries_total",
			Help:      "Total number of queries executed",
		},
		[]string{"connector_type", "status"},
	)

	rowsReturned = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bifrost",
			Subsystem: "connector",
			Name:      "rows_returned",
			Help:      "Number of rows returned per query",
			Buckets:   []float64{1, 10, 50, 100, 500, 1000, 5000, 10000, 50000},
		},
		[]string{"connector_type"},
	)

	discoveryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bifrost",
			Subsystem: "connector",
			Name:      "schema_discovery_duration_seconds",
			Help:      "Duration of full schema discovery in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 15.0, 30.0, 60.0},
		},
		[]string{"connector_type"},
	)

	discoveryWarnings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bifrost",
			Subsystem: "connector",
			Name:      "schema_discovery_warnings_total",
			Help:      "Per-entity failures tolerated during schema discovery",
		},
		[]string{"connector_type"},
	)

	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bifrost",
			Subsystem: "connector",
			Name:      "errors_total",
			Help:      "Total number of connector errors",
		},
		[]string{"connector_type", "error_type"},
	)

	activeConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "bifrost",
			Subsystem: "connector",
			Name:      "active_connections",
			Help:      "Number of open connection handles",
		},
		[]string{"connector_type"},
	)
)

// ObserveQuery records one query execution outcome.
func ObserveQuery(connectorType string, duration time.Duration, rows int, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	queryDuration.WithLabelValues(connectorType, status).Observe(duration.Seconds())
	queriesTotal.WithLabelValues(connectorType, status).Inc()
	if err == nil {
		rowsReturned.WithLabelValues(connectorType).Observe(float64(rows))
	}
}

// ObserveDiscovery records one schema discovery run.
func ObserveDiscovery(connectorType string, duration time.Duration, warnings int) {
	discoveryDuration.WithLabelValues(connectorType).Observe(duration.Seconds())
	if warnings > 0 {
		discoveryWarnings.WithLabelValues(connectorType).Add(float64(warnings))
	}
}

// RecordError counts a connector error by category.
func RecordError(connectorType, errorType string) {
	errorsTotal.WithLabelValues(connectorType, errorType).Inc()
}

// ConnectionOpened increments the open-handle gauge.
func ConnectionOpened(connectorType string) {
	activeConnections.WithLabelValues(connectorType).Inc()
}

// ConnectionClosed decrements the open-handle gauge.
func ConnectionClosed(connectorType string) {
	activeConnections.WithLabelValues(connectorType).Dec()
}
