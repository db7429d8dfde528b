package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records login attempts by result (success|failure|locked|unconfirmed).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "welltrack_auth_attempts_total",
			Help: "Total number of login attempts",
		},
		[]string{"result"},
	)

	// OTPIssued counts one-time codes issued per purpose.
	OTPIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "welltrack_otp_issued_total",
			Help: "Total number of one-time codes issued",
		},
		[]string{"purpose"},
	)

	// TokenRotations counts refresh token rotations by result (rotated|rejected).
	TokenRotations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "welltrack_refresh_rotations_total",
			Help: "Total number of refresh token rotations",
		},
		[]string{"result"},
	)

	// RemindersSent counts reminder notifications produced by the sweep, per type.
	RemindersSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "welltrack_reminders_sent_total",
			Help: "Total number of wellness reminders sent",
		},
		[]string{"type"},
	)

	// RealtimeConnections tracks open websocket connections.
	RealtimeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "welltrack_realtime_connections",
			Help: "Number of open realtime connections",
		},
	)

	// RequestsInFlight tracks HTTP requests currently being served.
	RequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "welltrack_http_requests_in_flight",
			Help: "Number of HTTP requests being served",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "welltrack_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
