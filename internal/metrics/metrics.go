// Package metrics exposes Prometheus collectors for the preview gateway.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JakeFAU/story-preview-gateway/internal/preview"
)

var (
	previewRequestsTotal       *prometheus.CounterVec
	viewIncrementsTotal        *prometheus.CounterVec
	storeLookupDurationSeconds *prometheus.HistogramVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	rateLimitedRequestsTotal   prometheus.Counter

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		previewRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "preview_requests_total",
				Help: "Total number of preview lookups, labeled by audience and outcome.",
			},
			[]string{"audience", "outcome"},
		)

		viewIncrementsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "preview_view_increments_total",
				Help: "Total number of view increments issued, labeled by result.",
			},
			[]string{"result"},
		)

		storeLookupDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "preview_store_lookup_duration_seconds",
				Help:    "Histogram of document store lookup latencies, labeled by result.",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
			},
			[]string{"result"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		rateLimitedRequestsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "preview_rate_limited_requests_total",
				Help: "Total number of requests rejected by the per-client rate limiter.",
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveRateLimited counts a request rejected by the rate limiter.
func ObserveRateLimited() {
	rateLimitedRequestsTotal.Inc()
}

// Recorder implements preview.Recorder on top of the package collectors.
type Recorder struct{}

// NewRecorder initializes the collectors and returns a Recorder.
func NewRecorder() Recorder {
	Init()
	return Recorder{}
}

// ObserveOutcome counts a resolved preview.
func (Recorder) ObserveOutcome(audience preview.Audience, kind preview.OutcomeKind) {
	previewRequestsTotal.WithLabelValues(string(audience), kind.String()).Inc()
}

// ObserveIncrement counts a view increment attempt.
func (Recorder) ObserveIncrement(err error) {
	viewIncrementsTotal.WithLabelValues(resultLabel(err)).Inc()
}

// ObserveLookup records how long a store lookup took.
func (Recorder) ObserveLookup(d time.Duration, err error) {
	storeLookupDurationSeconds.WithLabelValues(resultLabel(err)).Observe(d.Seconds())
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
