package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Backend API metrics
	BackendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sellengine_backend_requests_total",
			Help: "Total number of trading backend requests",
		},
		[]string{"endpoint", "status"},
	)

	BackendRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sellengine_backend_retries_total",
			Help: "Total number of retried backend requests",
		},
		[]string{"endpoint"},
	)

	BackendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sellengine_backend_duration_seconds",
			Help:    "Backend request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// Quote metrics
	QuoteTierProbes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sellengine_quote_tier_probes_total",
			Help: "Quote probes by slippage tier and outcome",
		},
		[]string{"tier_bps", "outcome"},
	)

	PriceImpact = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sellengine_price_impact_pct",
		Help:    "Price impact of accepted quotes in percent",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
	})

	// Swap metrics
	SwapStates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sellengine_swap_state_transitions_total",
			Help: "Swap state machine transitions",
		},
		[]string{"state"},
	)

	ConfirmationAttempts = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sellengine_confirmation_attempts",
		Help:    "Confirmation polls needed per swap",
		Buckets: []float64{1, 2, 3, 4, 5},
	})

	// Fee collection metrics
	FeeOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sellengine_fee_outcomes_total",
			Help: "Service fee collection outcomes",
		},
		[]string{"status"},
	)

	// HTTP metrics (ops server)
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sellengine_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sellengine_http_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)
