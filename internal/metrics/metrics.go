// Package metrics defines Prometheus metrics for flipradar.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "flipradar"

// HTTP metrics.
var (
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"method", "path", "status"})

	HealthzUp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "healthz_up",
		Help:      "1 if the last liveness probe succeeded, 0 otherwise.",
	})

	ReadyzUp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "readyz_up",
		Help:      "1 if the last readiness probe succeeded, 0 otherwise.",
	})
)

// Scan metrics.
var (
	ScanListingsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scan_listings_total",
		Help:      "Total number of listings scraped.",
	})

	ScanErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scan_errors_total",
		Help:      "Total number of scan errors.",
	})

	ScanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "scan_duration_seconds",
		Help:      "Duration of scan cycles in seconds.",
		Buckets:   prometheus.DefBuckets,
	})
)

// Classification metrics.
var (
	BundleClassificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bundle_classifications_total",
		Help:      "Total bundle classifications by resulting type.",
	}, []string{"bundle_type"})

	EnrichmentsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "enrichments_total",
		Help:      "Total number of detail-page enrichment fetches.",
	})

	DedupedListingsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "deduped_listings_total",
		Help:      "Total number of listings dropped as identity duplicates.",
	})
)

// Pricing metrics.
var (
	PriceResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "price_resolutions_total",
		Help:      "Total price aggregations by resolved source tier.",
	}, []string{"source"})

	PriceSampleSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "price_sample_size",
		Help:      "Observations surviving aggregation per identity.",
		Buckets:   prometheus.LinearBuckets(0, 1, 6),
	})
)

// Oracle metrics.
var (
	OracleCallsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "oracle_calls_total",
		Help:      "Total cumulative price oracle calls.",
	})

	OracleFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "oracle_failures_total",
		Help:      "Total number of price oracle failures.",
	})

	OracleDailyUsage = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "oracle_daily_usage",
		Help:      "Oracle call count within the rolling 24-hour budget window.",
	})

	OracleBudgetHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "oracle_budget_hits_total",
		Help:      "Total number of times the daily oracle budget was exhausted.",
	})
)

// Evaluation metrics.
var (
	EvaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "evaluations_total",
		Help:      "Total listing evaluations by strategy.",
	}, []string{"strategy"})

	ExpectedProfit = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "expected_profit_chf",
		Help:      "Distribution of expected profit on buy verdicts.",
		Buckets:   prometheus.LinearBuckets(0, 25, 9),
	})

	NotificationFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notification_failures_total",
		Help:      "Total number of notification send failures.",
	})
)
