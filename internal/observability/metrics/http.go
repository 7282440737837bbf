package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPServerMetrics owns the API service registry: HTTP server metrics plus
// the query pipeline counters consumed by the use case layer.
type HTTPServerMetrics struct {
	registry *prometheus.Registry
	service  string

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	retrievalQuality     *prometheus.HistogramVec
	queryDuration        *prometheus.HistogramVec
	decisionsTotal       *prometheus.CounterVec
	fallbackTotal        *prometheus.CounterVec
	verificationDefaults *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsqa",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docsqa",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "docsqa",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	retrievalQuality := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docsqa",
			Subsystem: "pipeline",
			Name:      "retrieval_quality",
			Help:      "Distribution of retrieval quality scores per query.",
			Buckets:   prometheus.LinearBuckets(0, 0.05, 21),
		},
		[]string{"service"},
	)
	queryDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docsqa",
			Subsystem: "pipeline",
			Name:      "query_duration_seconds",
			Help:      "End-to-end query pipeline duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	decisionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsqa",
			Subsystem: "pipeline",
			Name:      "decisions_total",
			Help:      "Total query decisions by outcome.",
		},
		[]string{"service", "decision"},
	)
	fallbackTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsqa",
			Subsystem: "pipeline",
			Name:      "fallback_total",
			Help:      "Total queries that triggered the retrieval fallback.",
		},
		[]string{"service"},
	)
	verificationDefaults := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsqa",
			Subsystem: "pipeline",
			Name:      "verification_defaults_total",
			Help:      "Total queries where a verification check fell back to conservative defaults.",
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		retrievalQuality,
		queryDuration,
		decisionsTotal,
		fallbackTotal,
		verificationDefaults,
	)

	return &HTTPServerMetrics{
		registry:             registry,
		service:              service,
		requestTotal:         requestTotal,
		requestDuration:      requestDuration,
		requestInFlight:      requestInFlight,
		retrievalQuality:     retrievalQuality,
		queryDuration:        queryDuration,
		decisionsTotal:       decisionsTotal,
		fallbackTotal:        fallbackTotal,
		verificationDefaults: verificationDefaults,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			m.service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(m.service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/documents/"):
		return "/v1/documents/{document_id}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) ObserveRetrievalQuality(rq float64) {
	m.retrievalQuality.WithLabelValues(m.service).Observe(rq)
}

func (m *HTTPServerMetrics) ObserveQueryDuration(seconds float64) {
	m.queryDuration.WithLabelValues(m.service).Observe(seconds)
}

func (m *HTTPServerMetrics) IncDecision(decision string) {
	if decision == "" {
		decision = "unknown"
	}
	m.decisionsTotal.WithLabelValues(m.service, decision).Inc()
}

func (m *HTTPServerMetrics) IncFallback() {
	m.fallbackTotal.WithLabelValues(m.service).Inc()
}

func (m *HTTPServerMetrics) IncVerificationDefault() {
	m.verificationDefaults.WithLabelValues(m.service).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}
