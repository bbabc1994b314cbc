// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the watcher.
type Metrics struct {
	// Stream metrics
	NotificationsReceived prometheus.Counter
	Reconnects            prometheus.Counter
	HeartbeatMisses       prometheus.Counter
	StreamConnected       prometheus.Gauge

	// Processing metrics
	DuplicatesSkipped prometheus.Counter
	LookupErrors      prometheus.Counter
	RecordsMalformed  prometheus.Counter
	TransfersMatched  prometheus.Counter
	AlertsBroadcast   prometheus.Counter

	// Latency metrics
	LookupLatency prometheus.Histogram
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "transfer_watch"
	}

	return &Metrics{
		NotificationsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "notifications_received_total",
			Help:      "Total number of log notifications received",
		}),
		Reconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "reconnects_total",
			Help:      "Total number of reconnect attempts scheduled",
		}),
		HeartbeatMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "heartbeat_misses_total",
			Help:      "Total number of unanswered liveness probes that forced teardown",
		}),
		StreamConnected: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "connected",
			Help:      "Whether the subscription stream is currently open (1) or not (0)",
		}),
		DuplicatesSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "processor",
			Name:      "duplicates_skipped_total",
			Help:      "Total number of notifications skipped by the signature cache",
		}),
		LookupErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "processor",
			Name:      "lookup_errors_total",
			Help:      "Total number of failed or empty transaction lookups",
		}),
		RecordsMalformed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "processor",
			Name:      "records_malformed_total",
			Help:      "Total number of records rejected as malformed",
		}),
		TransfersMatched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "processor",
			Name:      "transfers_matched_total",
			Help:      "Total number of transfers matching the amount policy",
		}),
		AlertsBroadcast: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "processor",
			Name:      "alerts_broadcast_total",
			Help:      "Total number of alerts handed to the notification sink",
		}),
		LookupLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "processor",
			Name:      "lookup_latency_seconds",
			Help:      "Transaction lookup latency",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
