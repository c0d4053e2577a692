package server

import (
	"strconv"

	"github.com/MeKo-Tech/orient/internal/orientation"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orient_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orient_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	detectRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orient_detect_requests_total",
			Help: "Total number of orientation detection requests",
		},
		[]string{"type", "status"}, // type: http, websocket
	)

	detectDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orient_detect_duration_seconds",
			Help:    "Orientation detection duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"strategy"},
	)

	detectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orient_detections_total",
			Help: "Detected orientations by current rotation",
		},
		[]string{"current_orientation", "low_confidence"},
	)

	trialScore = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orient_trial_score",
			Help:    "Score of each rotation trial",
			Buckets: []float64{0, .1, .2, .3, .4, .5, .6, .7, .8, .9, 1},
		},
		[]string{"angle"},
	)

	trialFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orient_trial_failures_total",
			Help: "Rotation trials that failed, timed out or panicked",
		},
		[]string{"angle"},
	)

	uploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "orient_upload_size_bytes",
			Help:    "Size of uploaded images in bytes",
			Buckets: []float64{1024, 10 * 1024, 100 * 1024, 1024 * 1024, 10 * 1024 * 1024, 50 * 1024 * 1024},
		},
	)

	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "orient_websocket_active_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	websocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orient_websocket_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"direction"}, // direction: sent, received
	)
)

// MetricsObserver records engine diagnostics as Prometheus metrics.
type MetricsObserver struct{}

var _ orientation.Observer = MetricsObserver{}

func (MetricsObserver) OnTrial(h orientation.Hypothesis) {
	angle := strconv.Itoa(h.Angle)
	if h.Failed() {
		trialFailuresTotal.WithLabelValues(angle).Inc()
		return
	}
	trialScore.WithLabelValues(angle).Observe(h.Score)
}

func (MetricsObserver) OnResult(r orientation.Result) {
	detectionsTotal.WithLabelValues(strconv.Itoa(r.CurrentOrientation), strconv.FormatBool(r.LowConfidence)).Inc()
	detectDuration.WithLabelValues(r.Strategy).Observe(r.Duration.Seconds())
}
