package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "votebank_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "votebank_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	StageDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "votebank_query_stage_duration_seconds",
			Help:    "Latency of each question pipeline stage.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"stage"},
	)

	QueryErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "votebank_query_errors_total",
			Help: "Failed questions by error type.",
		},
		[]string{"type"},
	)

	ComposerFallbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "votebank_composer_fallbacks_total",
			Help: "Answers built from the raw-rows template because completion failed.",
		},
	)

	StreamFramesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "votebank_stream_frames_total",
			Help: "Server-sent event frames written, by kind.",
		},
		[]string{"kind"},
	)

	DBConnectRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "votebank_db_connect_retries_total",
			Help: "Failed database connection attempts that were retried.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDurationSeconds,
		StageDurationSeconds,
		QueryErrorsTotal,
		ComposerFallbacksTotal,
		StreamFramesTotal,
		DBConnectRetriesTotal,
	)
}

// ObserveStage records how long a pipeline stage took since start.
func ObserveStage(stage string, start time.Time) {
	StageDurationSeconds.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
