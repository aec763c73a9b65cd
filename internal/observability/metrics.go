package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// river-risk pipeline.
type Metrics struct {
	RequestsTotal       *prometheus.CounterVec // labels: endpoint={nearby,flood_stage,weather}, outcome={ok,validation,rate_limited,timeout,upstream,error}
	StationsReturned    prometheus.Histogram
	StationsSkipped     prometheus.Counter
	RiskAlertsPublished prometheus.Counter

	// Upstream fetch metrics.
	UpstreamRequests *prometheus.CounterVec   // labels: provider={usgs,nwps,weather}, outcome={success,rejected,unavailable,timeout}
	UpstreamRetries  prometheus.Counter
	UpstreamDuration *prometheus.HistogramVec // labels: provider

	// Local gate metrics.
	CacheLookups          *prometheus.CounterVec // labels: class={stations,weather}, result={hit,miss,stale}
	RateLimitRejections   *prometheus.CounterVec // labels: class
	FloodStageResolutions *prometheus.CounterVec // labels: source={official,calculated}
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RequestsTotal,
		m.StationsReturned,
		m.StationsSkipped,
		m.RiskAlertsPublished,
		m.UpstreamRequests,
		m.UpstreamRetries,
		m.UpstreamDuration,
		m.CacheLookups,
		m.RateLimitRejections,
		m.FloodStageResolutions,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "river_watch",
			Name:      "requests_total",
			Help:      "API requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		StationsReturned: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "river_watch",
			Name:      "stations_returned",
			Help:      "Stations returned per nearby-rivers request.",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100},
		}),
		StationsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "river_watch",
			Name:      "stations_skipped_total",
			Help:      "Stations dropped for missing stage data or failed enrichment.",
		}),
		RiskAlertsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "river_watch",
			Name:      "risk_alerts_published_total",
			Help:      "High-risk station alerts published to the alert topic.",
		}),
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "river_watch",
			Name:      "upstream_requests_total",
			Help:      "Upstream API requests by provider and outcome.",
		}, []string{"provider", "outcome"}),
		UpstreamRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "river_watch",
			Name:      "upstream_retries_total",
			Help:      "Retry attempts against upstream providers.",
		}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "river_watch",
			Name:      "upstream_request_duration_seconds",
			Help:      "Upstream API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"provider"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "river_watch",
			Name:      "cache_lookups_total",
			Help:      "Response cache lookups by data class and result.",
		}, []string{"class", "result"}),
		RateLimitRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "river_watch",
			Name:      "rate_limit_rejections_total",
			Help:      "Calls rejected by the local per-class rate gate.",
		}, []string{"class"}),
		FloodStageResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "river_watch",
			Name:      "flood_stage_resolutions_total",
			Help:      "Flood-stage sets resolved, by source.",
		}, []string{"source"}),
	}
}
