package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request latency (seconds).
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// Notification store operation latency (seconds).
	StoreOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notification_store_op_duration_seconds",
			Help:    "Notification store operation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"operation"},
	)

	// MQ consume latency (milliseconds).
	MQConsumeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mq_consume_latency_ms",
			Help:    "MQ message consumption latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10ms to ~10s
		},
		[]string{"routing_key", "queue"},
	)

	// Live push outcomes per recipient session.
	PushDeliveredCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notification_push_delivered_total",
			Help: "Total notifications pushed to live sessions",
		},
	)

	PushFailedCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notification_push_failed_total",
			Help: "Total push attempts that failed and evicted a session",
		},
	)

	// Currently registered live sessions.
	LiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "notification_live_sessions",
			Help: "Number of currently registered live sessions",
		},
	)

	// Notifications created, by type.
	NotificationCreatedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_created_total",
			Help: "Total notifications created",
		},
		[]string{"type", "severity"},
	)
)

// RecordHTTPRequestDuration records one HTTP request observation.
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordStoreOpDuration records one store operation observation.
func RecordStoreOpDuration(operation string, duration time.Duration) {
	StoreOpDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordMQConsumeLatency records one MQ consumption observation.
func RecordMQConsumeLatency(routingKey, queue string, duration time.Duration) {
	MQConsumeLatency.WithLabelValues(routingKey, queue).Observe(float64(duration.Milliseconds()))
}

// IncrementNotificationCreated bumps the creation counter.
func IncrementNotificationCreated(notificationType, severity string) {
	NotificationCreatedCount.WithLabelValues(notificationType, severity).Inc()
}
