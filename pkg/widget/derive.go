package widget

import (
	"github.com/matzehuels/countrymap/pkg/countries"
)

// TooltipOffset is the horizontal distance between cursor and tooltip.
const TooltipOffset = 10

// Stroke colors and widths.
const (
	HighlightStroke      = "red"
	HighlightStrokeWidth = 2
	DefaultStroke        = "white"
	DefaultStrokeWidth   = 0.5
)

// TooltipView is the tooltip to display while hovering.
type TooltipView struct {
	X     float64  `json:"x"`
	Y     float64  `json:"y"`
	Lines []string `json:"lines"`
}

// Tooltip returns the tooltip for s. It is visible only while hovering and
// sits at the cursor position captured on enter, shifted right.
func Tooltip(s State) (TooltipView, bool) {
	if !s.Hover.Active {
		return TooltipView{}, false
	}
	lines := []string{s.Hover.Country}
	if s.Hover.Requests != nil {
		lines = append(lines, "Requests: "+*s.Hover.Requests)
	}
	return TooltipView{
		X:     s.Hover.Cursor.X + TooltipOffset,
		Y:     s.Hover.Cursor.Y,
		Lines: lines,
	}, true
}

// Results returns the metric records matching the current query, in
// document order. It is empty for an empty query or before load.
func Results(s State) []countries.Metric {
	d := s.Data()
	if d == nil {
		return nil
	}
	return countries.Filter(s.Query, d.Metrics)
}

// Highlighted reports whether the feature named name matches the query.
func Highlighted(s State, name string) bool {
	return countries.Matches(name, s.Query)
}

// Style is the paint for one country shape.
type Style struct {
	Fill        string  `json:"fill"`
	Stroke      string  `json:"stroke"`
	StrokeWidth float64 `json:"strokeWidth"`
	Highlighted bool    `json:"highlighted"`
	Matched     bool    `json:"matched"`
}

// FeatureStyle returns the paint for the feature named name. Before load
// the fill is fallback; once loaded, countries without a record get the
// dataset scale's fallback color.
func FeatureStyle(s State, name, fallback string) Style {
	st := Style{Stroke: DefaultStroke, StrokeWidth: DefaultStrokeWidth}
	if Highlighted(s, name) {
		st.Highlighted = true
		st.Stroke = HighlightStroke
		st.StrokeWidth = HighlightStrokeWidth
	}

	d := s.Data()
	if d == nil {
		st.Fill = fallback
		return st
	}
	m, ok := d.Lookup(name)
	st.Matched = ok
	st.Fill = d.Scale.FillFor(m, ok)
	return st
}

// Unmatched returns the names from features with no metric record.
func Unmatched(s State, names []string) []string {
	d := s.Data()
	if d == nil {
		return nil
	}
	var out []string
	for _, name := range names {
		if _, ok := d.Lookup(name); !ok {
			out = append(out, name)
		}
	}
	return out
}
