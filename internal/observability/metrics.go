// Package observability provides Prometheus metrics and OpenTelemetry tracing for the application.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by operation type.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hemobank_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hemobank_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// RequestsSubmitted counts public blood request submissions by blood type.
	RequestsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hemobank_requests_submitted_total",
		Help: "Total number of blood requests submitted",
	}, []string{"blood_type"})

	// RequestStatusChanges counts request status transitions by target status.
	RequestStatusChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hemobank_request_status_changes_total",
		Help: "Total number of blood request status changes",
	}, []string{"status"})

	// UnitsReserved counts inventory units reserved for requests.
	UnitsReserved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hemobank_units_reserved_total",
		Help: "Total number of blood units reserved",
	})

	// UnitsConsumed counts inventory units consumed by fulfillments.
	UnitsConsumed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hemobank_units_consumed_total",
		Help: "Total number of blood units consumed to fulfill requests",
	})
)

// ObserveQuery records the latency of a database query.
func ObserveQuery(operation, table string, start time.Time) {
	DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
}
