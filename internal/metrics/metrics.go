package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// UpstreamRequests tracks upstream attempts by route and classified outcome
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_upstream_requests_total",
			Help: "Total number of upstream request attempts",
		},
		[]string{"route", "outcome"},
	)

	// UpstreamRetries tracks backoff waits scheduled before a retry
	UpstreamRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_upstream_retries_total",
			Help: "Total number of upstream retries",
		},
		[]string{"route"},
	)

	// UpstreamLatency tracks per-attempt latency
	UpstreamLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_upstream_latency_seconds",
			Help:    "Upstream attempt latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// EmojiCacheLookups tracks guild emoji cache hits and misses
	EmojiCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_emoji_cache_lookups_total",
			Help: "Guild emoji cache lookups",
		},
		[]string{"result"},
	)

	// LinkOutcomes tracks terminal states of the account linking flow
	LinkOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_link_outcomes_total",
			Help: "Account linking outcomes",
		},
		[]string{"outcome"},
	)

	// HTTPRequests tracks inbound requests served by the relay
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_http_requests_total",
			Help: "Inbound HTTP requests",
		},
		[]string{"route", "code"},
	)

	// UpstreamStatus is 1 for the monitor's current status and 0 for the others
	UpstreamStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "relay_upstream_status",
			Help: "Current upstream health as seen by the relay",
		},
		[]string{"status"},
	)
)
