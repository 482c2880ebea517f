// Package colorscale maps request counts onto a two-stop linear color
// gradient.
//
// The domain is [0, Max] where Max is the largest request count in the
// loaded dataset. Values are interpolated component-wise in sRGB between the
// low and high endpoint colors, so ColorFor(0) is exactly the low color and
// ColorFor(Max) exactly the high color. Values outside the domain are
// extrapolated unless the scale was built with [WithClamp]; the emitted hex
// is always a valid color.
package colorscale

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/matzehuels/countrymap/pkg/countries"
)

// Default endpoint and fallback colors.
const (
	DefaultLow      = "#c9f0f3"
	DefaultHigh     = "#169dd3"
	DefaultFallback = "#EEE"
)

// Scale is a linear color scale over [0, Max].
type Scale struct {
	low, high colorful.Color
	fallback  string
	max       float64
	clamp     bool
}

// Option configures a [Scale].
type Option func(*config)

type config struct {
	low, high, fallback string
	clamp               bool
}

// WithRange sets the endpoint colors as hex strings (#rgb or #rrggbb).
func WithRange(low, high string) Option {
	return func(c *config) { c.low, c.high = low, high }
}

// WithFallback sets the color used for countries without data.
func WithFallback(hex string) Option { return func(c *config) { c.fallback = hex } }

// WithClamp restricts inputs to [0, Max] before interpolating.
func WithClamp() Option { return func(c *config) { c.clamp = true } }

// New builds a scale with domain [0, max].
func New(max float64, opts ...Option) (*Scale, error) {
	cfg := config{low: DefaultLow, high: DefaultHigh, fallback: DefaultFallback}
	for _, opt := range opts {
		opt(&cfg)
	}

	low, err := colorful.Hex(cfg.low)
	if err != nil {
		return nil, fmt.Errorf("low color %q: %w", cfg.low, err)
	}
	high, err := colorful.Hex(cfg.high)
	if err != nil {
		return nil, fmt.Errorf("high color %q: %w", cfg.high, err)
	}
	fallback, err := colorful.Hex(cfg.fallback)
	if err != nil {
		return nil, fmt.Errorf("fallback color %q: %w", cfg.fallback, err)
	}

	return &Scale{
		low:      low,
		high:     high,
		fallback: fallback.Hex(),
		max:      max,
		clamp:    cfg.clamp,
	}, nil
}

// MustNew is like [New] but panics on invalid colors.
func MustNew(max float64, opts ...Option) *Scale {
	s, err := New(max, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// Max returns the upper end of the domain.
func (s *Scale) Max() float64 { return s.max }

// Low returns the lower endpoint color as #rrggbb.
func (s *Scale) Low() string { return s.low.Hex() }

// High returns the upper endpoint color as #rrggbb.
func (s *Scale) High() string { return s.high.Hex() }

// Fallback returns the color for countries without data as #rrggbb.
func (s *Scale) Fallback() string { return s.fallback }

// WithMax returns a copy of s with a new domain maximum.
func (s *Scale) WithMax(max float64) *Scale {
	c := *s
	c.max = max
	return &c
}

// ColorFor returns the #rrggbb color for v. A zero domain degenerates to
// the low endpoint.
func (s *Scale) ColorFor(v float64) string {
	if s.max == 0 {
		return s.low.Hex()
	}
	t := v / s.max
	if s.clamp {
		t = min(max(t, 0), 1)
	}
	return s.low.BlendRgb(s.high, t).Clamped().Hex()
}

// FillFor returns the fill for a feature given its metric lookup result.
// Unmatched features and records whose requests do not parse get the
// fallback color.
func (s *Scale) FillFor(m countries.Metric, ok bool) string {
	if !ok {
		return s.fallback
	}
	n, err := countries.ParseRequests(m)
	if err != nil {
		return s.fallback
	}
	return s.ColorFor(float64(n))
}

// Stop is one legend entry.
type Stop struct {
	Value float64 `json:"value"`
	Color string  `json:"color"`
}

// Stops returns n evenly spaced legend stops from 0 to Max inclusive.
// n is raised to 2 if smaller.
func (s *Scale) Stops(n int) []Stop {
	n = max(n, 2)
	stops := make([]Stop, n)
	for i := 0; i < n; i++ {
		v := s.max * float64(i) / float64(n-1)
		stops[i] = Stop{Value: v, Color: s.ColorFor(v)}
	}
	return stops
}
