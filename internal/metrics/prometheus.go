package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ORDER_RESULT_SAVED    = "saved"
	ORDER_RESULT_DEGRADED = "degraded"
	ORDER_RESULT_INVALID  = "invalid"
	ORDER_RESULT_FAILED   = "failed"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"service", "method", "route", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storefront_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "route"},
	)

	// OrdersTotal counts order intake outcomes: saved, degraded, invalid, failed.
	OrdersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_orders_total",
			Help: "Total number of orders received by outcome",
		},
		[]string{"result"},
	)

	// CircuitBreakerState is 0 when closed, 1 when open and 2 when half-open.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "storefront_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"circuit_name"},
	)

	PersistenceReady = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "storefront_persistence_ready",
			Help: "Whether the persistence layer answered the last ping (1=ready, 0=not ready)",
		},
		[]string{"driver"},
	)
)
