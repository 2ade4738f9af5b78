// Package metrics exports scheduling engine and HTTP request metrics to Prometheus.
package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/meeting-scheduler/internal/scheduler"
)

const namespace = "meeting_scheduler"

// Metrics owns the collectors for engine operations and HTTP traffic.
type Metrics struct {
	registry          *prometheus.Registry
	operationDuration *prometheus.HistogramVec
	operationErrors   *prometheus.CounterVec
	slotCandidates    prometheus.Histogram
	slotsRanked       prometheus.Histogram
	requestDuration   *prometheus.HistogramVec
	requests          *prometheus.CounterVec
}

// New registers every collector on a fresh registry.
func New() (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "operation_duration_seconds",
			Help:      "Latency of scheduling engine operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		operationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "operation_errors_total",
			Help:      "Count of failed scheduling engine operations.",
		}, []string{"operation"}),
		slotCandidates: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "slot_candidates",
			Help:      "Candidate slots generated per slot search.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
		slotsRanked: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "slots_ranked",
			Help:      "Slots returned per slot search.",
			Buckets:   prometheus.LinearBuckets(0, 5, 6),
		}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency of HTTP requests by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"method", "route", "code"}),
	}

	collectors := []prometheus.Collector{
		m.operationDuration,
		m.operationErrors,
		m.slotCandidates,
		m.slotsRanked,
		m.requestDuration,
		m.requests,
		collectors.NewGoCollector(),
	}
	for _, collector := range collectors {
		if err := m.registry.Register(collector); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}
	return m, nil
}

// ObserveOperation records the latency and outcome of an engine operation.
func (m *Metrics) ObserveOperation(operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		m.operationErrors.WithLabelValues(operation).Inc()
	}
}

// ObserveSlotSearch records how many candidates a slot search scored and kept.
func (m *Metrics) ObserveSlotSearch(candidates, ranked int) {
	if m == nil {
		return
	}
	m.slotCandidates.Observe(float64(candidates))
	m.slotsRanked.Observe(float64(ranked))
}

// Handler serves the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware counts requests per route. Routes come from the ServeMux pattern,
// so it must wrap the mux directly.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(recorder, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		m.requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(recorder.status)).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(status int) {
	if !r.wroteHeader {
		r.status = status
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

var _ scheduler.Observer = (*Metrics)(nil)
