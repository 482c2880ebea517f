package colorscale

import (
	"regexp"
	"testing"

	"github.com/matzehuels/countrymap/pkg/countries"
)

var hexColor = regexp.MustCompile(`^#[0-9a-f]{6}$`)

func TestColorForEndpoints(t *testing.T) {
	for _, max := range []float64{1, 42, 1200, 1e9} {
		s := MustNew(max)
		if got := s.ColorFor(0); got != DefaultLow {
			t.Errorf("max=%v: ColorFor(0) = %s, want %s", max, got, DefaultLow)
		}
		if got := s.ColorFor(max); got != DefaultHigh {
			t.Errorf("max=%v: ColorFor(max) = %s, want %s", max, got, DefaultHigh)
		}
	}
}

func TestColorForMidpoint(t *testing.T) {
	s := MustNew(100, WithRange("#000000", "#ffffff"))
	// 0.5 * 255 = 127.5 rounds to 128
	if got := s.ColorFor(50); got != "#808080" {
		t.Errorf("ColorFor(50) = %s, want #808080", got)
	}
}

func TestColorForZeroDomain(t *testing.T) {
	s := MustNew(0)
	for _, v := range []float64{0, 5, -1} {
		if got := s.ColorFor(v); got != DefaultLow {
			t.Errorf("ColorFor(%v) with max 0 = %s, want low endpoint", v, got)
		}
	}
}

func TestColorForOutOfDomain(t *testing.T) {
	s := MustNew(10)
	for _, v := range []float64{-100, 25, 1e6} {
		if got := s.ColorFor(v); !hexColor.MatchString(got) {
			t.Errorf("ColorFor(%v) = %q, not a valid color", v, got)
		}
	}

	clamped := MustNew(10, WithClamp())
	if got := clamped.ColorFor(25); got != DefaultHigh {
		t.Errorf("clamped ColorFor(25) = %s, want %s", got, DefaultHigh)
	}
	if got := clamped.ColorFor(-5); got != DefaultLow {
		t.Errorf("clamped ColorFor(-5) = %s, want %s", got, DefaultLow)
	}
}

func TestFillFor(t *testing.T) {
	tests := []struct {
		name   string
		max    float64
		metric countries.Metric
		ok     bool
		want   string
	}{
		{"unmatched", 100, countries.Metric{}, false, "#eeeeee"},
		{"unmatched zero domain", 0, countries.Metric{}, false, "#eeeeee"},
		{"matched max", 100, countries.Metric{Requests: "100"}, true, DefaultHigh},
		{"matched zero", 100, countries.Metric{Requests: "0"}, true, DefaultLow},
		{"unparseable", 100, countries.Metric{Requests: "n/a"}, true, "#eeeeee"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := MustNew(tt.max)
			if got := s.FillFor(tt.metric, tt.ok); got != tt.want {
				t.Errorf("FillFor() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestNewInvalidColor(t *testing.T) {
	if _, err := New(1, WithRange("blue", "#fff")); err == nil {
		t.Error("New() should reject non-hex low color")
	}
	if _, err := New(1, WithFallback("#12")); err == nil {
		t.Error("New() should reject malformed fallback color")
	}
}

func TestStops(t *testing.T) {
	s := MustNew(100)
	stops := s.Stops(5)
	if len(stops) != 5 {
		t.Fatalf("Stops(5) length = %d", len(stops))
	}
	if stops[0].Color != DefaultLow || stops[4].Color != DefaultHigh {
		t.Errorf("Stops endpoints = %s..%s", stops[0].Color, stops[4].Color)
	}
	if stops[2].Value != 50 {
		t.Errorf("Stops(5)[2].Value = %v, want 50", stops[2].Value)
	}
	if got := len(s.Stops(0)); got != 2 {
		t.Errorf("Stops(0) length = %d, want 2", got)
	}
}

func TestWithMax(t *testing.T) {
	s := MustNew(0)
	grown := s.WithMax(10)
	if s.Max() != 0 || grown.Max() != 10 {
		t.Errorf("WithMax should copy: original %v, copy %v", s.Max(), grown.Max())
	}
	if grown.ColorFor(10) != DefaultHigh {
		t.Errorf("WithMax copy ColorFor(max) = %s", grown.ColorFor(10))
	}
}
