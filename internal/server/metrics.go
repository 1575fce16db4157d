package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/matzehuels/openchain/pkg/observability"
)

// Metrics holds the server's Prometheus collectors. It also implements the
// observability hook interfaces so library events are counted.
type Metrics struct {
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	backendRequests *prometheus.CounterVec
	backendDuration *prometheus.HistogramVec
	backendErrors   *prometheus.CounterVec

	cacheEvents *prometheus.CounterVec

	layoutRuns     prometheus.Counter
	layoutTicks    prometheus.Histogram
	layoutDuration prometheus.Histogram

	analysisRequests *prometheus.CounterVec
	analysisDuration prometheus.Histogram
	analysisStale    prometheus.Counter

	liveSessions prometheus.Gauge
	rateLimited  prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "openchain_http_requests_total",
			Help: "HTTP requests served, by route and status.",
		}, []string{"method", "route", "status"}),
		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "openchain_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"method", "route"}),

		backendRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "openchain_backend_requests_total",
			Help: "Requests to the recommendation backend, by path and status.",
		}, []string{"path", "status"}),
		backendDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "openchain_backend_request_duration_seconds",
			Help:    "Recommendation backend latency.",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"path"}),
		backendErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "openchain_backend_errors_total",
			Help: "Backend requests that failed without a response.",
		}, []string{"path"}),

		cacheEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "openchain_cache_events_total",
			Help: "Response cache hits, misses and writes.",
		}, []string{"key_type", "event"}),

		layoutRuns: f.NewCounter(prometheus.CounterOpts{
			Name: "openchain_layout_runs_total",
			Help: "Force layout runs started.",
		}),
		layoutTicks: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "openchain_layout_ticks",
			Help:    "Ticks until a layout cooled.",
			Buckets: prometheus.LinearBuckets(50, 50, 10),
		}),
		layoutDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "openchain_layout_duration_seconds",
			Help:    "Wall time until a layout cooled.",
			Buckets: prometheus.DefBuckets,
		}),

		analysisRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "openchain_analysis_requests_total",
			Help: "Analysis requests, by outcome.",
		}, []string{"outcome"}),
		analysisDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "openchain_analysis_duration_seconds",
			Help:    "Analysis request latency.",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 20, 30},
		}),
		analysisStale: f.NewCounter(prometheus.CounterOpts{
			Name: "openchain_analysis_stale_total",
			Help: "Analysis results dropped because a newer request existed.",
		}),

		liveSessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "openchain_live_sessions",
			Help: "Open live graph sessions.",
		}),
		rateLimited: f.NewCounter(prometheus.CounterOpts{
			Name: "openchain_rate_limited_total",
			Help: "Analyze requests rejected by the rate limiter.",
		}),
	}
}

// Install registers m as the process-wide observability hooks.
func (m *Metrics) Install() {
	observability.SetLayoutHooks(m)
	observability.SetAnalysisHooks(m)
	observability.SetCacheHooks(m)
	observability.SetHTTPHooks(m)
}

func (m *Metrics) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) OnLayoutStart(context.Context, int) { m.layoutRuns.Inc() }

func (m *Metrics) OnLayoutSettled(_ context.Context, _ int, ticks int, d time.Duration) {
	m.layoutTicks.Observe(float64(ticks))
	m.layoutDuration.Observe(d.Seconds())
}

func (m *Metrics) OnAnalysisStart(context.Context, uint64) {}

func (m *Metrics) OnAnalysisComplete(_ context.Context, _ uint64, outcome string, d time.Duration) {
	m.analysisRequests.WithLabelValues(outcome).Inc()
	m.analysisDuration.Observe(d.Seconds())
}

func (m *Metrics) OnAnalysisStale(context.Context, uint64) { m.analysisStale.Inc() }

func (m *Metrics) OnCacheHit(_ context.Context, keyType string) {
	m.cacheEvents.WithLabelValues(keyType, "hit").Inc()
}

func (m *Metrics) OnCacheMiss(_ context.Context, keyType string) {
	m.cacheEvents.WithLabelValues(keyType, "miss").Inc()
}

func (m *Metrics) OnCacheSet(_ context.Context, keyType string, _ int) {
	m.cacheEvents.WithLabelValues(keyType, "set").Inc()
}

func (m *Metrics) OnRequest(context.Context, string, string, string) {}

func (m *Metrics) OnResponse(_ context.Context, _, _, path string, status int, d time.Duration) {
	m.backendRequests.WithLabelValues(path, strconv.Itoa(status)).Inc()
	m.backendDuration.WithLabelValues(path).Observe(d.Seconds())
}

func (m *Metrics) OnError(_ context.Context, _, _, path string, _ error) {
	m.backendErrors.WithLabelValues(path).Inc()
}

var (
	_ observability.LayoutHooks   = (*Metrics)(nil)
	_ observability.AnalysisHooks = (*Metrics)(nil)
	_ observability.CacheHooks    = (*Metrics)(nil)
	_ observability.HTTPHooks     = (*Metrics)(nil)
)
