package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/matzehuels/countrymap/pkg/observability"
)

// Metrics bundles the Prometheus collectors for the server and implements
// the observability hooks so the loader, cache and widget feed them.
type Metrics struct {
	gatherer prometheus.Gatherer

	httpRequests  *prometheus.CounterVec
	httpDurations *prometheus.HistogramVec

	loads         *prometheus.CounterVec
	loadDurations *prometheus.HistogramVec
	loaded        prometheus.Gauge
	renders       *prometheus.CounterVec

	cacheOps *prometheus.CounterVec

	fetches *prometheus.CounterVec

	events   *prometheus.CounterVec
	sessions prometheus.Counter
}

// NewMetrics registers the collectors on reg.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		gatherer: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "countrymap_http_requests_total",
			Help: "HTTP requests served, by route and status code.",
		}, []string{"route", "code"}),
		httpDurations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "countrymap_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"route"}),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "countrymap_document_loads_total",
			Help: "Document loads, by kind and result.",
		}, []string{"kind", "result"}),
		loadDurations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "countrymap_document_load_duration_seconds",
			Help:    "Document load latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		loaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "countrymap_metrics_loaded",
			Help: "1 when the metrics document is loaded, 0 otherwise.",
		}),
		renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "countrymap_renders_total",
			Help: "Pipeline renders, by result.",
		}, []string{"result"}),
		cacheOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "countrymap_cache_operations_total",
			Help: "Cache operations, by key type and operation.",
		}, []string{"key_type", "op"}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "countrymap_upstream_requests_total",
			Help: "Outbound document fetches, by host and status code.",
		}, []string{"host", "code"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "countrymap_widget_events_total",
			Help: "Widget events applied, by type.",
		}, []string{"type"}),
		sessions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "countrymap_sessions_created_total",
			Help: "Sessions created.",
		}),
	}

	reg.MustRegister(
		m.httpRequests, m.httpDurations,
		m.loads, m.loadDurations, m.loaded, m.renders,
		m.cacheOps, m.fetches,
		m.events, m.sessions,
	)
	return m
}

// Install sets m as the process-wide observability hooks.
func (m *Metrics) Install() {
	observability.SetPipelineHooks(m)
	observability.SetCacheHooks(m)
	observability.SetHTTPHooks(m)
	observability.SetWidgetHooks(m)
}

// SetLoaded records whether the metrics document is loaded.
func (m *Metrics) SetLoaded(ok bool) {
	if ok {
		m.loaded.Set(1)
		return
	}
	m.loaded.Set(0)
}

// Middleware records request counts and latency by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		m.httpRequests.WithLabelValues(route, strconv.Itoa(ww.Status())).Inc()
		m.httpDurations.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// PipelineHooks

func (m *Metrics) OnLoadStart(context.Context, string, string) {}

func (m *Metrics) OnLoadComplete(_ context.Context, kind, _ string, _ int, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.loads.WithLabelValues(kind, result).Inc()
	m.loadDurations.WithLabelValues(kind).Observe(d.Seconds())
}

func (m *Metrics) OnRenderStart(context.Context, []string) {}

func (m *Metrics) OnRenderComplete(_ context.Context, _ []string, _ time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.renders.WithLabelValues(result).Inc()
}

// CacheHooks

func (m *Metrics) OnCacheHit(_ context.Context, keyType string) {
	m.cacheOps.WithLabelValues(keyType, "hit").Inc()
}

func (m *Metrics) OnCacheMiss(_ context.Context, keyType string) {
	m.cacheOps.WithLabelValues(keyType, "miss").Inc()
}

func (m *Metrics) OnCacheSet(_ context.Context, keyType string, _ int) {
	m.cacheOps.WithLabelValues(keyType, "set").Inc()
}

// HTTPHooks

func (m *Metrics) OnRequest(context.Context, string, string, string) {}

func (m *Metrics) OnResponse(_ context.Context, _, host, _ string, status int, _ time.Duration) {
	m.fetches.WithLabelValues(host, strconv.Itoa(status)).Inc()
}

func (m *Metrics) OnError(_ context.Context, _, host, _ string, _ error) {
	m.fetches.WithLabelValues(host, "error").Inc()
}

// WidgetHooks

func (m *Metrics) OnEvent(_ context.Context, event string) {
	m.events.WithLabelValues(event).Inc()
}

func (m *Metrics) OnSessionCreated(context.Context) {
	m.sessions.Inc()
}
