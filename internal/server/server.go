// Package server serves the countrymap widget over HTTP.
//
// The server loads the metrics and geometry documents once at startup and
// keeps each browser's widget state in a [session.Store]. Browser events
// (hover, search, select, pan, zoom, reset) are posted to the session and
// applied with [widget.Apply]; the map is re-rendered from the stored state.
//
// Routes:
//
//	GET  /                              HTML shell
//	GET  /features.json                 geometry document
//	GET  /country_requests_data.json    metrics document
//	GET  /map.svg?session=ID            SVG for a session's state
//	GET  /api/countries?q=QUERY         search results
//	POST /api/sessions                  create a session
//	GET  /api/sessions/{id}             session state and tooltip
//	POST /api/sessions/{id}/events      apply one widget event
//	GET  /metrics                       Prometheus metrics
//	GET  /healthz                       liveness and load phase
package server

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/countrymap/pkg/geo"
	"github.com/matzehuels/countrymap/pkg/loader"
	"github.com/matzehuels/countrymap/pkg/observability"
	"github.com/matzehuels/countrymap/pkg/pipeline"
	"github.com/matzehuels/countrymap/pkg/session"
	"github.com/matzehuels/countrymap/pkg/widget"
)

// Options configures a Server.
type Options struct {
	// Loader fetches the documents. Required.
	Loader *loader.Loader

	// Store keeps session state. Defaults to a MemoryStore.
	Store session.Store

	// Pipeline supplies sources, projection and colors.
	Pipeline pipeline.Options

	// SessionTTL is the idle lifetime of a session.
	SessionTTL time.Duration

	// Registry receives the Prometheus collectors. Nil disables /metrics.
	Registry *prometheus.Registry

	Logger *log.Logger
}

// Server is the HTTP surface of the widget.
type Server struct {
	loader  *loader.Loader
	store   session.Store
	opts    pipeline.Options
	ttl     time.Duration
	logger  *log.Logger
	metrics *Metrics

	// sessions serializes event application per session ID. Only events
	// hitting this process are ordered; instances sharing a store are not.
	sessions keyedMutex

	mu   sync.RWMutex
	docs documents
}

// documents is what the last Load produced.
type documents struct {
	load        widget.LoadState
	features    []geo.Feature
	metricsRaw  []byte
	featuresRaw []byte
	metricsErr  error
	featuresErr error
}

// New creates a server. Call [Server.Load] before serving.
func New(o Options) (*Server, error) {
	if o.Loader == nil {
		return nil, stderrors.New("server: loader is required")
	}
	if o.Store == nil {
		o.Store = session.NewMemoryStore()
	}
	if o.SessionTTL <= 0 {
		o.SessionTTL = session.DefaultTTL
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if err := o.Pipeline.ValidateForLoad(); err != nil {
		return nil, err
	}
	if err := o.Pipeline.ValidateForRender(); err != nil {
		return nil, err
	}

	s := &Server{
		loader: o.Loader,
		store:  o.Store,
		opts:   o.Pipeline,
		ttl:    o.SessionTTL,
		logger: o.Logger,
		docs:   documents{load: widget.LoadState{Phase: widget.NotLoaded}},
	}
	if o.Registry != nil {
		s.metrics = NewMetrics(o.Registry)
		s.metrics.Install()
	}
	return s, nil
}

// Load fetches both documents. Failures are kept as state: the server keeps
// serving, the map falls back to neutral fills and the data endpoints
// answer 502. The returned error is the first failure, for logging.
func (s *Server) Load(ctx context.Context) error {
	s.mu.Lock()
	s.docs.load = widget.Apply(widget.State{Load: s.docs.load}, widget.LoadStarted{}).Load
	s.mu.Unlock()

	var next documents
	features, fdoc, ferr := s.loader.Features(ctx, s.opts.FeaturesSource, s.opts.Refresh)
	next.features, next.featuresRaw, next.featuresErr = features, fdoc.Data, ferr
	if ferr != nil {
		s.logger.Error("features unavailable", "source", s.opts.FeaturesSource, "error", ferr)
		next.featuresRaw = nil
	}

	state := widget.New()
	_, mdoc, merr := s.loader.Dataset(ctx, s.opts.MetricsSource, s.opts.Refresh, func(e widget.Event) {
		state = widget.Apply(state, e)
	}, s.opts.ScaleOptions()...)
	next.load, next.metricsErr = state.Load, merr
	if merr == nil {
		next.metricsRaw = mdoc.Data
	}

	s.mu.Lock()
	s.docs = next
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.SetLoaded(next.load.Phase == widget.Loaded)
	}
	s.logger.Info("documents loaded",
		"phase", next.load.Phase,
		"features", len(next.features))

	if ferr != nil {
		return ferr
	}
	return merr
}

// snapshot returns the current documents.
func (s *Server) snapshot() documents {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docs
}

// Handler returns the HTTP handler with all routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
	}

	r.Get("/", s.handleIndex)
	r.Get("/map.js", s.handleScript)
	r.Get("/features.json", s.handleFeatures)
	r.Get("/country_requests_data.json", s.handleMetrics)
	r.Get("/map.svg", s.handleMap)
	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/countries", s.handleCountries)
		r.Post("/sessions", s.handleCreateSession)
		r.Get("/sessions/{id}", s.handleGetSession)
		r.Post("/sessions/{id}/events", s.handleEvent)
	})

	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.metrics.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// logRequests logs each request at debug level.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).Round(time.Microsecond),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// RunCleanup removes expired sessions every interval until ctx is done.
func (s *Server) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.store.Cleanup(ctx); err != nil {
				s.logger.Warn("session cleanup failed", "error", err)
			}
		}
	}
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully within shutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string, readTimeout, writeTimeout, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	go s.RunCleanup(ctx, time.Minute)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return ctx.Err()
}

// Close releases the session store.
func (s *Server) Close() error {
	if s.metrics != nil {
		observability.Reset()
	}
	return s.store.Close()
}
