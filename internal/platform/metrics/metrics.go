package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the interview pipeline.
type Metrics struct {
	registry               *prometheus.Registry
	requestsTotal          prometheus.Counter
	segmentsIngestedTotal  prometheus.Counter
	attemptsCompletedTotal prometheus.Counter
	uploadErrorsTotal      prometheus.Counter
	activeAttempts         prometheus.Gauge
	errorsTotal            prometheus.Counter
	segmentBytes           prometheus.Histogram
}

// New creates and registers Prometheus metrics for the pipeline.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "interview_requests_total",
		Help: "Total number of HTTP requests received",
	})
	segmentsIngestedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "interview_segments_ingested_total",
		Help: "Total number of media segments successfully ingested",
	})
	attemptsCompletedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "interview_attempts_completed_total",
		Help: "Total number of attempts moved to COMPLETED",
	})
	uploadErrorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "interview_upload_errors_total",
		Help: "Total number of object-store upload failures",
	})
	activeAttempts := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "interview_active_attempts",
		Help: "Number of attempts that are not COMPLETED",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "interview_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})
	segmentBytes := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "interview_segment_bytes",
		Help:    "Size distribution of ingested media segments",
		Buckets: prometheus.ExponentialBuckets(64*1024, 2, 10),
	})

	registry.MustRegister(
		requestsTotal,
		segmentsIngestedTotal,
		attemptsCompletedTotal,
		uploadErrorsTotal,
		activeAttempts,
		errorsTotal,
		segmentBytes,
	)

	return &Metrics{
		registry:               registry,
		requestsTotal:          requestsTotal,
		segmentsIngestedTotal:  segmentsIngestedTotal,
		attemptsCompletedTotal: attemptsCompletedTotal,
		uploadErrorsTotal:      uploadErrorsTotal,
		activeAttempts:         activeAttempts,
		errorsTotal:            errorsTotal,
		segmentBytes:           segmentBytes,
	}
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncSegmentsIngested increments the ingested segments counter.
func (m *Metrics) IncSegmentsIngested() {
	m.segmentsIngestedTotal.Inc()
}

// IncAttemptsCompleted increments the completed attempts counter.
func (m *Metrics) IncAttemptsCompleted() {
	m.attemptsCompletedTotal.Inc()
}

// IncUploadErrors increments the upload failure counter.
func (m *Metrics) IncUploadErrors() {
	m.uploadErrorsTotal.Inc()
}

// SetActiveAttempts sets the active attempts gauge.
func (m *Metrics) SetActiveAttempts(n int) {
	m.activeAttempts.Set(float64(n))
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// ObserveSegmentBytes records the size of one ingested segment.
func (m *Metrics) ObserveSegmentBytes(n float64) {
	m.segmentBytes.Observe(n)
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values
// (e.g. active attempts).
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
