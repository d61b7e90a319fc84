package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wealthvue_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wealthvue_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Portfolio metrics
	PortfolioNAVGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "wealthvue_portfolio_nav",
			Help: "Latest computed portfolio NAV",
		},
		[]string{"currency"},
	)

	NAVSnapshotsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wealthvue_nav_snapshots_total",
			Help: "Daily NAV snapshots recorded, by trigger",
		},
		[]string{"trigger"}, // lazy, cron
	)

	// External service metrics
	FXFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wealthvue_fx_fetches_total",
			Help: "FX rate fetch attempts",
		},
		[]string{"outcome"}, // success, error
	)

	QuoteLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wealthvue_quote_lookups_total",
			Help: "Market quote lookups during price refresh",
		},
		[]string{"outcome"},
	)

	AIExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wealthvue_ai_extractions_total",
			Help: "AI extraction requests",
		},
		[]string{"kind", "outcome"}, // kind: text, screenshot, estimate
	)

	AIProviderRotationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wealthvue_ai_provider_rotations_total",
			Help: "Times a quota error forced rotation to the next provider",
		},
	)
)

// RecordHTTPRequest records metrics for an HTTP request
func RecordHTTPRequest(method, endpoint, statusCode string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration)
}
