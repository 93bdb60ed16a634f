package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nba_cache_lookups_total",
			Help: "Total number of cache lookups by result",
		},
		[]string{"result"},
	)

	CacheFetchErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nba_cache_fetch_errors_total",
			Help: "Total number of failed remote fetches behind the cache",
		},
	)

	CacheFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nba_cache_fetch_duration_seconds",
			Help:    "Duration of remote fetches behind the cache",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 0.05s to ~25s
		},
	)

	StatsRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nba_stats_requests_total",
			Help: "Total number of stats API requests by endpoint and status",
		},
		[]string{"endpoint", "status"},
	)

	DashboardHTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nba_dashboard_http_requests_total",
			Help: "Total number of dashboard API requests",
		},
		[]string{"route", "status"},
	)
)
