package render

import (
	"bytes"
	"fmt"
	"html"
	"strconv"

	"github.com/matzehuels/countrymap/pkg/widget"
)

// Outline colors for the sphere and graticule.
const (
	OutlineStroke      = "#E4E5E6"
	OutlineStrokeWidth = 0.5
)

const countryCSS = `
    .country { outline: none; }
    .country:hover { stroke: red; stroke-width: 2; }
    .tooltip text { font-family: sans-serif; font-size: 12px; fill: #222; }
    .legend text, .results text { font-family: sans-serif; font-size: 11px; fill: #333; }`

// SVGOption configures optional overlays for [RenderSVG].
type SVGOption func(*svgRenderer)

type svgRenderer struct {
	legend      bool
	legendStops int
	results     bool
	maxResults  int
	interaction bool
	tooltip     bool
}

// WithLegend draws the color scale legend with five labelled stops.
func WithLegend() SVGOption { return func(r *svgRenderer) { r.legend = true } }

// WithResults lists the search matches beside the map, at most max of
// them followed by a count of the rest. A max of zero or less lists all.
func WithResults(max int) SVGOption {
	return func(r *svgRenderer) { r.results, r.maxResults = true, max }
}

// WithInteraction embeds the hover tooltip script.
func WithInteraction() SVGOption { return func(r *svgRenderer) { r.interaction = true } }

// WithTooltip draws the tooltip for the state's current hover.
func WithTooltip() SVGOption { return func(r *svgRenderer) { r.tooltip = true } }

func newSVGRenderer(opts ...SVGOption) svgRenderer {
	r := svgRenderer{legendStops: 5, maxResults: 10}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// RenderSVG draws the scene.
func RenderSVG(scene Scene, opts ...SVGOption) []byte {
	r := newSVGRenderer(opts...)
	p := scene.projection()

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" class="countrymap" viewBox="0 0 %s %s" width="%s" height="%s">`+"\n",
		num(p.Width), num(p.Height), num(p.Width), num(p.Height))
	fmt.Fprintf(&buf, "  <style>%s\n  </style>\n", countryCSS)

	fmt.Fprintf(&buf, `  <g class="zoom" transform="%s">`+"\n", p.ZoomTransform(scene.State.View))
	fmt.Fprintf(&buf, `    <path class="sphere" d="%s" fill="none" stroke="%s" stroke-width="%s"/>`+"\n",
		p.Sphere(), OutlineStroke, num(OutlineStrokeWidth))
	fmt.Fprintf(&buf, `    <path class="graticule" d="%s" fill="none" stroke="%s" stroke-width="%s"/>`+"\n",
		p.Graticule(), OutlineStroke, num(OutlineStrokeWidth))
	renderCountries(&buf, scene)
	buf.WriteString("  </g>\n")

	if r.legend {
		renderLegend(&buf, scene, r.legendStops)
	}
	if r.results {
		renderResults(&buf, scene, r.maxResults)
	}
	renderTooltip(&buf, scene, r.tooltip)
	if r.interaction {
		renderTooltipScript(&buf)
	}

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func renderCountries(buf *bytes.Buffer, scene Scene) {
	p := scene.projection()
	data := scene.State.Data()

	buf.WriteString(`    <g class="countries">` + "\n")
	for i, f := range scene.Features {
		d := p.Path(f.Geometry)
		if d == "" {
			continue
		}
		st := widget.FeatureStyle(scene.State, f.Name, scene.fallback())

		class := "country"
		if st.Highlighted {
			class += " highlight"
		}
		fmt.Fprintf(buf, `      <path id="country-%d" class="%s" data-name="%s"`, i, class, html.EscapeString(f.Name))
		if m, ok := data.Lookup(f.Name); ok {
			fmt.Fprintf(buf, ` data-requests="%s"`, html.EscapeString(m.Requests))
		}
		fmt.Fprintf(buf, ` d="%s" fill="%s" stroke="%s" stroke-width="%s" fill-rule="evenodd"/>`+"\n",
			d, st.Fill, st.Stroke, num(st.StrokeWidth))
	}
	buf.WriteString("    </g>\n")
}

// num formats a coordinate with at most two decimals.
func num(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	for s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	if s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}
	if s == "-0" {
		return "0"
	}
	return s
}
