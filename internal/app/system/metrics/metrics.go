// internal/app/system/metrics/metrics.go
// Package metrics exposes Prometheus counters for push delivery and
// chat-provider calls.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Notification outcomes.
const (
	Delivered = "delivered"
	Offline   = "offline"
	Failed    = "failed"
)

// Mirror call outcomes.
const (
	OK        = "ok"
	Error     = "error"
	Timeout   = "timeout"
	Fatal     = "fatal"
	Swallowed = "swallowed"
)

var (
	// notificationsTotal counts push notifications by event and outcome.
	notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lingohub_notifications_total",
		Help: "Push notifications by event name and outcome",
	}, []string{"event", "outcome"})

	// mirrorCallsTotal counts chat-provider calls by operation and outcome.
	mirrorCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lingohub_mirror_calls_total",
		Help: "Chat provider calls by operation and outcome",
	}, []string{"op", "outcome"})

	// mirrorCallDuration tracks chat-provider latency.
	mirrorCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lingohub_mirror_call_duration_seconds",
		Help:    "Chat provider call duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms to ~5s
	}, []string{"op"})

	// mirrorFailuresHandled counts how callers treated failed calls.
	mirrorFailuresHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lingohub_mirror_failures_handled_total",
		Help: "Failed chat provider calls by operation and handling (fatal or swallowed)",
	}, []string{"op", "handling"})

	// connectedUsers is the number of users with a live push connection.
	connectedUsers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lingohub_connected_users",
		Help: "Users with a live push connection",
	})
)

// Notification records one dispatch attempt.
func Notification(event, outcome string) {
	notificationsTotal.WithLabelValues(event, outcome).Inc()
}

// MirrorCall records one provider call.
func MirrorCall(op, outcome string, seconds float64) {
	mirrorCallsTotal.WithLabelValues(op, outcome).Inc()
	mirrorCallDuration.WithLabelValues(op).Observe(seconds)
}

// MirrorFailure records how a caller handled a failed provider call.
func MirrorFailure(op, handling string) {
	mirrorFailuresHandled.WithLabelValues(op, handling).Inc()
}

// SetConnectedUsers publishes the presence registry size.
func SetConnectedUsers(n int) {
	connectedUsers.Set(float64(n))
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
