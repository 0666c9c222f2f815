package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Registrations counts registration attempts by outcome
	// (success|duplicate_username|duplicate_email|invalid_invite|error).
	Registrations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aigc_registrations_total",
			Help: "Total number of registration attempts",
		},
		[]string{"result"},
	)

	// LedgerOperations counts balance mutations by kind (credit|debit|transfer) and result.
	LedgerOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aigc_ledger_operations_total",
			Help: "Total number of points ledger operations",
		},
		[]string{"kind", "result"},
	)

	// PointsMoved sums the absolute points moved per action tag.
	PointsMoved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aigc_points_moved_total",
			Help: "Absolute points credited or debited",
		},
		[]string{"action"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aigc_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
