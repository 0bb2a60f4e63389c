// Package metrics defines prometheus metrics to expose
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "solace_api_request_duration_seconds",
			Help:    "Total time taken for requests in seconds",
			Buckets: []float64{1, 2.5, 5, 10, 15, 20, 25, 30, 40, 50, 75, 100, 150, 200, 350, 400, 500, 600},
		},
		[]string{"model", "endpoint"},
	)

	TimeToFirstToken = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "solace_api_time_to_first_token_seconds",
			Help:    "Time to first token in seconds",
			Buckets: []float64{.5, 1, 2.5, 5, 10, 15, 20, 25, 30, 40, 50, 75, 100, 150, 200, 350, 400, 500, 600},
		},
		[]string{"model", "endpoint"},
	)

	RequestCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solace_api_request_count_total",
			Help: "Total number of requests processed",
		},
		[]string{"model", "endpoint", "status"},
	)

	RateLimitedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solace_api_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"bucket"},
	)

	AdmissionDeniedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solace_api_admission_denied_total",
			Help: "Requests rejected by the concurrent stream cap",
		},
		[]string{"endpoint"},
	)

	InflightStreams = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "solace_api_inflight_streams",
			Help: "Currently open streaming requests",
		},
		[]string{"client"},
	)

	CanceledRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solace_api_canceled_requests_total",
			Help: "Streams whose client disconnected before completion",
		},
		[]string{"model", "endpoint"},
	)

	TranscriptTruncations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "solace_api_transcript_truncations_total",
			Help: "Transcripts truncated at the configured character cap",
		},
	)

	StoreCommitRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "solace_api_store_commit_retries_total",
			Help: "Message commits retried after a store failure",
		},
	)

	ErrorCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solace_api_error_count",
			Help: "Error count",
		},
		[]string{"model", "endpoint", "from"},
	)

	ResponseCodes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solace_api_status_code",
			Help: "Status Codes",
		},
		[]string{"path", "status_code"},
	)
)
