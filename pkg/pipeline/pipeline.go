// Package pipeline provides the load → render pipeline for countrymap.
//
// This package loads the metrics and geometry documents, replays the
// requested view as widget events, and renders the result. The CLI and the
// HTTP server both go through it so they share defaults, validation and
// caching.
//
// # Architecture
//
// The pipeline consists of two stages:
//
//  1. Load: fetch and decode the metrics and features documents
//  2. Render: build the widget state and emit SVG, PNG, PDF or JSON
//
// A metrics failure does not abort the run. The map is still drawn with
// fallback fills and the failure is reported in [Result.LoadErr], the same
// way the widget shows a map whose data never arrived.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{
//	    MetricsSource:  "country_requests_data.json",
//	    FeaturesSource: "features.json",
//	    Query:          "fin",
//	    Formats:        []string{"svg"},
//	}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Artifacts["svg"]
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/countrymap/pkg/cache"
	"github.com/matzehuels/countrymap/pkg/colorscale"
	"github.com/matzehuels/countrymap/pkg/countries"
	"github.com/matzehuels/countrymap/pkg/errors"
	"github.com/matzehuels/countrymap/pkg/geo"
	"github.com/matzehuels/countrymap/pkg/widget"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and Server
// =============================================================================

const (
	// DefaultMetricsSource is the metrics document the widget fetches.
	DefaultMetricsSource = "country_requests_data.json"

	// DefaultFeaturesSource is the geometry document the widget fetches.
	DefaultFeaturesSource = "features.json"

	// DefaultWidth is the canvas width in pixels.
	DefaultWidth = geo.DefaultWidth

	// DefaultHeight is the canvas height in pixels.
	DefaultHeight = geo.DefaultHeight

	// DefaultScale is the projection scale.
	DefaultScale = geo.DefaultScale

	// DefaultRotate is the projection's longitude rotation in degrees.
	DefaultRotate = geo.DefaultRotate

	// DefaultPNGScale is the rasterization factor for PNG output.
	DefaultPNGScale = 2.0

	// DefaultMaxResults is how many search results the SVG lists.
	DefaultMaxResults = 10
)

// Format constants for output formats.
const (
	FormatSVG  = "svg"
	FormatPNG  = "png"
	FormatPDF  = "pdf"
	FormatJSON = "json"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatSVG:  true,
	FormatPNG:  true,
	FormatPDF:  true,
	FormatJSON: true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the pipeline.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Load options
	MetricsSource  string `json:"metrics,omitempty"`
	FeaturesSource string `json:"features,omitempty"`
	Refresh        bool   `json:"refresh,omitempty"`

	// View options
	Width  int      `json:"width,omitempty"`
	Height int      `json:"height,omitempty"`
	Scale  float64  `json:"scale,omitempty"`
	Rotate *float64 `json:"rotate,omitempty"` // nil means DefaultRotate
	Query  string   `json:"query,omitempty"`
	Select string   `json:"select,omitempty"` // country to recenter on, as a search selection
	Hover  string   `json:"hover,omitempty"`  // country whose tooltip is shown
	Lon    float64  `json:"lon,omitempty"`
	Lat    float64  `json:"lat,omitempty"`
	Zoom   float64  `json:"zoom,omitempty"`

	// Render options
	Formats     []string `json:"formats,omitempty"`
	Low         string   `json:"low,omitempty"`
	High        string   `json:"high,omitempty"`
	Fallback    string   `json:"fallback,omitempty"`
	Clamp       bool     `json:"clamp,omitempty"`
	Legend      bool     `json:"legend,omitempty"`
	Results     bool     `json:"results,omitempty"`
	Interactive bool     `json:"interactive,omitempty"`
	PNGScale    float64  `json:"png_scale,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Metrics is the decoded metrics list, nil if it failed to load.
	Metrics []countries.Metric

	// Features is the decoded geometry.
	Features []geo.Feature

	// State is the widget state the artifacts were rendered from.
	State widget.State

	// ContentHash identifies the document pair.
	ContentHash string

	// LoadErr is the metrics load failure, if any. The artifacts are still
	// rendered, with fallback fills.
	LoadErr error

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	RecordCount    int
	FeatureCount   int
	UnmatchedCount int
	LoadTime       time.Duration
	RenderTime     time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	MetricsHit  bool // Whether the metrics document came from cache
	FeaturesHit bool // Whether the features document came from cache
	RenderHit   bool // Whether all artifacts came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidFormat, "invalid format: %q (must be one of: svg, png, pdf, json)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateColors checks that the scale colors parse.
func ValidateColors(low, high, fallback string) error {
	opts := []colorscale.Option{colorscale.WithRange(low, high)}
	if fallback != "" {
		opts = append(opts, colorscale.WithFallback(fallback))
	}
	if _, err := colorscale.New(0, opts...); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidColor, err, "invalid colors")
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults for the full pipeline.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForLoad(); err != nil {
		return err
	}
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForLoad sets source defaults and checks both sources.
func (o *Options) ValidateForLoad() error {
	if o.MetricsSource == "" {
		o.MetricsSource = DefaultMetricsSource
	}
	if o.FeaturesSource == "" {
		o.FeaturesSource = DefaultFeaturesSource
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if err := errors.ValidateSource(o.MetricsSource); err != nil {
		return err
	}
	return errors.ValidateSource(o.FeaturesSource)
}

// SetViewDefaults sets default values for the projection and view.
func (o *Options) SetViewDefaults() {
	if o.Width == 0 {
		o.Width = DefaultWidth
	}
	if o.Height == 0 {
		o.Height = DefaultHeight
	}
	if o.Scale == 0 {
		o.Scale = DefaultScale
	}
	if o.Rotate == nil {
		r := float64(DefaultRotate)
		o.Rotate = &r
	}
	if o.Zoom == 0 {
		o.Zoom = 1
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// SetRenderDefaults sets default values for rendering.
func (o *Options) SetRenderDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	if o.Low == "" {
		o.Low = colorscale.DefaultLow
	}
	if o.High == "" {
		o.High = colorscale.DefaultHigh
	}
	if o.Fallback == "" {
		o.Fallback = colorscale.DefaultFallback
	}
	if o.PNGScale == 0 {
		o.PNGScale = DefaultPNGScale
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForRender validates and sets defaults for rendering.
func (o *Options) ValidateForRender() error {
	o.SetViewDefaults()
	o.SetRenderDefaults()
	if o.Width < 0 || o.Height < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "canvas size must be positive, got %dx%d", o.Width, o.Height)
	}
	if o.Scale < 0 || o.PNGScale < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "scale must be positive")
	}
	if err := errors.ValidateQuery(o.Query); err != nil {
		return err
	}
	if err := errors.ValidateView(o.Lon, o.Lat, o.Zoom); err != nil {
		return err
	}
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	return ValidateColors(o.Low, o.High, o.Fallback)
}

// Projection returns the projection for the configured canvas.
func (o *Options) Projection() geo.Projection {
	p := geo.NewProjection()
	if o.Width > 0 {
		p.Width = float64(o.Width)
	}
	if o.Height > 0 {
		p.Height = float64(o.Height)
	}
	if o.Scale > 0 {
		p.Scale = o.Scale
	}
	if o.Rotate != nil {
		p.Rotate = *o.Rotate
	}
	return p
}

// View returns the configured pan/zoom position.
func (o *Options) View() geo.View {
	zoom := o.Zoom
	if zoom == 0 {
		zoom = 1
	}
	return geo.View{Center: [2]float64{o.Lon, o.Lat}, Zoom: zoom}
}

// ScaleOptions returns the color scale options.
func (o *Options) ScaleOptions() []colorscale.Option {
	var opts []colorscale.Option
	if o.Low != "" || o.High != "" {
		low, high := o.Low, o.High
		if low == "" {
			low = colorscale.DefaultLow
		}
		if high == "" {
			high = colorscale.DefaultHigh
		}
		opts = append(opts, colorscale.WithRange(low, high))
	}
	if o.Fallback != "" {
		opts = append(opts, colorscale.WithFallback(o.Fallback))
	}
	if o.Clamp {
		opts = append(opts, colorscale.WithClamp())
	}
	return opts
}

// FallbackColor returns the normalized fallback fill.
func (o *Options) FallbackColor() string {
	scale, err := colorscale.New(0, o.ScaleOptions()...)
	if err != nil {
		return colorscale.MustNew(0).Fallback()
	}
	return scale.Fallback()
}

// ArtifactKeyOpts returns cache key options for artifact rendering.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	p := o.Projection()
	return cache.ArtifactKeyOpts{
		Format:      format,
		Width:       int(p.Width),
		Height:      int(p.Height),
		Scale:       p.Scale,
		Rotate:      p.Rotate,
		Query:       o.Query,
		Select:      o.Select,
		Hover:       o.Hover,
		Lon:         o.Lon,
		Lat:         o.Lat,
		Zoom:        o.Zoom,
		Low:         o.Low,
		High:        o.High,
		Fallback:    o.Fallback,
		Clamp:       o.Clamp,
		Legend:      o.Legend,
		Results:     o.Results,
		Interactive: o.Interactive,
		PNGScale:    o.PNGScale,
	}
}
