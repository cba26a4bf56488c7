// v1
// internal/observability/metrics.go
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the Prometheus instruments for the dashboard service.
// Each instance owns its registry, so constructing one per process (or
// per test) never collides.
type Metrics struct {
	registry          *prometheus.Registry
	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	readingsIngested  *prometheus.CounterVec
	decodeErrors      prometheus.Counter
	seriesRequests    *prometheus.CounterVec
	cbState           *prometheus.GaugeVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		readingsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "readings_ingested_total",
			Help: "Total bin readings accepted into the buffer by source transport.",
		}, []string{"source"}),
		decodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ingest_decode_errors_total",
			Help: "Total reading payloads rejected during decode.",
		}),
		seriesRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "series_requests_total",
			Help: "Total series computations served by metric and granularity.",
		}, []string{"metric", "granularity"}),
		cbState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cb_state",
			Help: "Circuit breaker state gauge (0 closed, 1 half, 2 open).",
		}, []string{"target"}),
	}

	m.registry.MustRegister(
		m.httpRequestsTotal,
		m.httpDuration,
		m.readingsIngested,
		m.decodeErrors,
		m.seriesRequests,
		m.cbState,
	)

	m.cbState.WithLabelValues("kafka").Set(0)

	return m
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// WrapHandler records the request count and latency for a named route.
func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		duration := time.Since(start).Seconds()
		if m != nil {
			m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
			m.httpDuration.WithLabelValues(route).Observe(duration)
		}
	})
}

// Handler exposes the scrape endpoint for this instance's registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ReadingIngested(source string) {
	if m == nil {
		return
	}
	m.readingsIngested.WithLabelValues(source).Inc()
}

func (m *Metrics) IngestDecodeError() {
	if m == nil {
		return
	}
	m.decodeErrors.Inc()
}

func (m *Metrics) SeriesComputed(metric, granularity string) {
	if m == nil {
		return
	}
	m.seriesRequests.WithLabelValues(metric, granularity).Inc()
}

func (m *Metrics) SetCircuitBreakerState(target string, state float64) {
	if m == nil {
		return
	}
	m.cbState.WithLabelValues(target).Set(state)
}
