// Package metrics exposes Prometheus instrumentation for Candela.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector the server registers. All fields are
// safe for concurrent use.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpInflight        prometheus.Gauge

	loginsTotal         *prometheus.CounterVec
	candleDeletesTotal  *prometheus.CounterVec
	referenceAuditsTotal prometheus.Counter

	gcCollectedTotal prometheus.Counter
	gcLastRun        prometheus.Gauge
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "candela_http_requests_total",
			Help: "Total HTTP requests processed, by method, route and status.",
		}, []string{"method", "route", "status"}),

		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "candela_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),

		httpInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "candela_http_inflight_requests",
			Help: "HTTP requests currently being served.",
		}),

		loginsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "candela_logins_total",
			Help: "Login attempts by result (success, failure).",
		}, []string{"result"}),

		candleDeletesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "candela_candle_deletes_total",
			Help: "Candle delete attempts by outcome (deleted, blocked, not_found).",
		}, []string{"outcome"}),

		referenceAuditsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "candela_reference_audits_total",
			Help: "Reference audits performed.",
		}),

		gcCollectedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "candela_media_gc_collected_total",
			Help: "Orphaned media objects removed by the garbage collector.",
		}),

		gcLastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "candela_media_gc_last_run_timestamp_seconds",
			Help: "Unix timestamp of the last completed media GC sweep.",
		}),
	}

	registry.MustRegister(
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.httpInflight,
		m.loginsTotal,
		m.candleDeletesTotal,
		m.referenceAuditsTotal,
		m.gcCollectedTotal,
		m.gcLastRun,
	)

	return m
}

// Handler returns the /metrics endpoint handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordLogin records a login attempt.
func (m *Metrics) RecordLogin(result string) {
	m.loginsTotal.WithLabelValues(result).Inc()
}

// RecordCandleDelete records a candle delete attempt.
func (m *Metrics) RecordCandleDelete(outcome string) {
	m.candleDeletesTotal.WithLabelValues(outcome).Inc()
}

// RecordReferenceAudit records a reference audit.
func (m *Metrics) RecordReferenceAudit() {
	m.referenceAuditsTotal.Inc()
}

// RecordGCSweep records a completed media GC sweep.
func (m *Metrics) RecordGCSweep(collected int) {
	m.gcCollectedTotal.Add(float64(collected))
	m.gcLastRun.SetToCurrentTime()
}

// Middleware instruments HTTP requests. The route label uses the chi
// route pattern, not the raw path, to keep cardinality bounded.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.httpInflight.Inc()
		start := time.Now()

		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}

		m.httpInflight.Dec()
		m.httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		m.httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
