// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the docchat client and the mock backend.
package observability

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rhuss/docchat/pkg/api"
)

// LatencyBuckets defines histogram buckets suited for document-chat calls.
// Uploads and full streamed answers can take tens of seconds.
var LatencyBuckets = []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

// Backend call labels.
const (
	CallProcessDocument = "process_document"
	CallStartSession    = "start_session"
	CallSendMessage     = "send_message"
	CallHistory         = "history"
)

var (
	// RequestsTotal counts HTTP requests served by the mock backend by
	// method, route and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docchat_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "route", "status"},
	)

	// RequestDuration records served request duration in seconds.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docchat_request_duration_seconds",
			Help:    "Request duration",
			Buckets: LatencyBuckets,
		},
		[]string{"method", "route"},
	)

	// StreamingConnections tracks chat message responses being streamed by the server.
	StreamingConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "docchat_streaming_connections_active",
			Help: "Active streaming connections",
		},
	)

	// BackendRequestsTotal counts client calls to the backend by call and outcome.
	BackendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docchat_backend_requests_total",
			Help: "Backend requests",
		},
		[]string{"call", "status"},
	)

	// BackendLatency records client call latency in seconds. For send_message
	// it covers the whole stream.
	BackendLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docchat_backend_latency_seconds",
			Help:    "Backend latency",
			Buckets: LatencyBuckets,
		},
		[]string{"call"},
	)

	// StreamChunksTotal counts decoded fragments delivered to callers.
	StreamChunksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "docchat_stream_chunks_total",
			Help: "Streamed chunks",
		},
	)

	// StreamBytesTotal counts raw body bytes read from message streams.
	StreamBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "docchat_stream_bytes_total",
			Help: "Streamed bytes",
		},
	)

	// ActiveStreams tracks message streams currently being read by the client.
	ActiveStreams = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "docchat_streams_active",
			Help: "Active client streams",
		},
	)

	// RateLimitRejectedTotal counts requests rejected by the mock backend limiter.
	RateLimitRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docchat_ratelimit_rejected_total",
			Help: "Rate limit rejections",
		},
		[]string{"route"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		StreamingConnections,
		BackendRequestsTotal,
		BackendLatency,
		StreamChunksTotal,
		StreamBytesTotal,
		ActiveStreams,
		RateLimitRejectedTotal,
	)
}

// ObserveBackendCall records the outcome and latency of one client call.
func ObserveBackendCall(call string, start time.Time, err error) {
	BackendRequestsTotal.WithLabelValues(call, OutcomeLabel(err)).Inc()
	BackendLatency.WithLabelValues(call).Observe(time.Since(start).Seconds())
}

// OutcomeLabel maps an error to the status label used by BackendRequestsTotal.
func OutcomeLabel(err error) string {
	if err == nil {
		return "ok"
	}
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		return string(apiErr.Type)
	}
	return "error"
}
