package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/countrymap/pkg/cache"
	"github.com/matzehuels/countrymap/pkg/countries"
	"github.com/matzehuels/countrymap/pkg/geo"
	"github.com/matzehuels/countrymap/pkg/loader"
	"github.com/matzehuels/countrymap/pkg/render"
	"github.com/matzehuels/countrymap/pkg/widget"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and server use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache, loader and logger - it
// doesn't store pipeline results. Multiple goroutines can safely use the
// same Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Loader *loader.Loader
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Loader: loader.New(c, keyer, cache.TTLDocument, logger),
		Logger: logger,
	}
}

// Documents is the output of the load stage.
type Documents struct {
	Metrics  []countries.Metric
	Features []geo.Feature

	// Events are the load transitions reported while fetching the metrics.
	Events []widget.Event

	// LoadErr is set when the metrics failed to load.
	LoadErr error

	metricsHash  string
	featuresHash string
}

// ContentHash identifies the document pair for artifact cache keys.
func (d *Documents) ContentHash() string {
	return cache.Hash([]byte(d.metricsHash + ":" + d.featuresHash))
}

// Names returns the feature names in document order.
func (d *Documents) Names() []string {
	names := make([]string, len(d.Features))
	for i, f := range d.Features {
		names[i] = f.Name
	}
	return names
}

// Execute runs the complete load → render pipeline with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	result := &Result{
		Artifacts: make(map[string][]byte),
	}

	// Stage 1: Load
	loadStart := time.Now()
	docs, info, err := r.LoadWithCacheInfo(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	result.Metrics = docs.Metrics
	result.Features = docs.Features
	result.LoadErr = docs.LoadErr
	result.ContentHash = docs.ContentHash()
	result.Stats.LoadTime = time.Since(loadStart)
	result.Stats.RecordCount = len(docs.Metrics)
	result.Stats.FeatureCount = len(docs.Features)
	result.CacheInfo = info

	r.Logger.Info("loaded documents",
		"records", len(docs.Metrics),
		"features", len(docs.Features),
		"duration", result.Stats.LoadTime)

	state := r.State(docs, opts)
	result.State = state

	unmatched := widget.Unmatched(state, docs.Names())
	result.Stats.UnmatchedCount = len(unmatched)
	for _, name := range unmatched {
		r.Logger.Debug("no metrics for country, using fallback fill", "country", name)
	}

	// Stage 2: Render
	renderStart := time.Now()
	artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, docs, state, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = renderHit

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// LoadWithCacheInfo fetches both documents and returns cache hit info.
// A features failure is returned as an error. A metrics failure is recorded
// in Documents.LoadErr so the map can still be drawn.
func (r *Runner) LoadWithCacheInfo(ctx context.Context, opts Options) (*Documents, CacheInfo, error) {
	var info CacheInfo
	r.applyLogger(&opts)
	if err := opts.ValidateForLoad(); err != nil {
		return nil, info, err
	}

	features, fdoc, err := r.Loader.Features(ctx, opts.FeaturesSource, opts.Refresh)
	if err != nil {
		return nil, info, err
	}
	info.FeaturesHit = fdoc.Cached

	docs := &Documents{
		Features:     features,
		featuresHash: fdoc.Hash(),
	}

	data, mdoc, err := r.Loader.Dataset(ctx, opts.MetricsSource, opts.Refresh, func(e widget.Event) {
		docs.Events = append(docs.Events, e)
	}, opts.ScaleOptions()...)
	if err != nil {
		r.Logger.Warn("metrics unavailable, rendering fallback colors", "source", opts.MetricsSource, "error", err)
		docs.LoadErr = err
		return docs, info, nil
	}
	info.MetricsHit = mdoc.Cached
	docs.Metrics = data.Metrics
	docs.metricsHash = mdoc.Hash()

	return docs, info, nil
}

// Load is a convenience wrapper that calls LoadWithCacheInfo and discards the cache hit info.
func (r *Runner) Load(ctx context.Context, opts Options) (*Documents, error) {
	docs, _, err := r.LoadWithCacheInfo(ctx, opts)
	return docs, err
}

// State replays the load events and the requested view, search and hover
// as widget events.
func (r *Runner) State(docs *Documents, opts Options) widget.State {
	opts.SetViewDefaults()
	s := widget.ApplyAll(widget.New(), docs.Events...)

	if opts.Select != "" {
		if sel, ok := widget.Select(docs.Features, opts.Select); ok {
			s = widget.Apply(s, sel)
		} else {
			r.Logger.Warn("cannot select country", "country", opts.Select)
		}
	} else if view := opts.View(); !view.IsInitial() {
		s = widget.Apply(s, widget.MoveEnd{View: view})
	}

	s = widget.Apply(s, widget.SetQuery{Query: opts.Query})

	if opts.Hover != "" {
		sel, ok := widget.Select(docs.Features, opts.Hover)
		if !ok {
			r.Logger.Warn("cannot hover country", "country", opts.Hover)
			return s
		}
		x, y := opts.Projection().Screen(s.View, sel.Centroid)
		s = widget.Apply(s, widget.PointerEnter{
			Country: opts.Hover,
			Cursor:  widget.Cursor{X: x, Y: y},
		})
	}
	return s
}

// RenderWithCacheInfo generates artifacts with caching and returns cache hit info.
// Renders of a failed metrics load are never cached.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, docs *Documents, state widget.State, opts Options) (map[string][]byte, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}

	cacheable := docs.LoadErr == nil
	contentHash := docs.ContentHash()

	if cacheable {
		artifacts := make(map[string][]byte)
		for _, format := range opts.Formats {
			cacheKey := r.Keyer.ArtifactKey(contentHash, opts.ArtifactKeyOpts(format))
			data, hit, err := r.Cache.Get(ctx, cacheKey)
			if err != nil || !hit {
				break
			}
			artifacts[format] = data
		}
		if len(artifacts) == len(opts.Formats) {
			return artifacts, true, nil // All artifacts from cache
		}
	}

	scene := render.Scene{
		Features:   docs.Features,
		State:      state,
		Projection: opts.Projection(),
		Fallback:   opts.FallbackColor(),
	}
	rendered, err := Render(ctx, scene, opts)
	if err != nil {
		return nil, false, err
	}

	if cacheable {
		for format, data := range rendered {
			cacheKey := r.Keyer.ArtifactKey(contentHash, opts.ArtifactKeyOpts(format))
			_ = r.Cache.Set(ctx, cacheKey, data, cache.TTLArtifact)
		}
	}

	return rendered, false, nil // Cache miss
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
