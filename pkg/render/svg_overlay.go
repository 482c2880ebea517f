package render

import (
	"bytes"
	"fmt"
	"html"
	"strconv"

	"github.com/matzehuels/countrymap/pkg/widget"
)

const (
	tooltipLineHeight = 16.0
	tooltipPadding    = 6.0
	tooltipCharWidth  = 7.0

	legendX      = 16.0
	legendWidth  = 160.0
	legendHeight = 10.0
	legendBottom = 36.0

	resultsX          = 16.0
	resultsY          = 24.0
	resultsLineHeight = 15.0
)

const tooltipJS = `
    const svg = document.querySelector('svg.countrymap');
    const tip = svg.querySelector('.tooltip');
    const bg = tip.querySelector('rect');
    const lines = tip.querySelectorAll('tspan');
    function toSVG(e) {
      const pt = svg.createSVGPoint();
      pt.x = e.clientX; pt.y = e.clientY;
      return pt.matrixTransform(svg.getScreenCTM().inverse());
    }
    svg.querySelectorAll('.country').forEach(el => {
      el.addEventListener('mouseenter', e => {
        const p = toSVG(e);
        lines[0].textContent = el.dataset.name;
        lines[1].textContent = el.dataset.requests !== undefined ? 'Requests: ' + el.dataset.requests : '';
        tip.setAttribute('transform', 'translate(' + (p.x + 10).toFixed(1) + ',' + p.y.toFixed(1) + ')');
        tip.setAttribute('visibility', 'visible');
        const box = tip.querySelector('text').getBBox();
        bg.setAttribute('width', (box.width + 12).toFixed(1));
        bg.setAttribute('height', (box.height + 12).toFixed(1));
      });
      el.addEventListener('mouseleave', () => tip.setAttribute('visibility', 'hidden'));
    });`

// renderTooltip always emits the tooltip group so the script has a target.
// It is visible only when show is set and the state is hovering.
func renderTooltip(buf *bytes.Buffer, scene Scene, show bool) {
	tip, hovering := widget.Tooltip(scene.State)
	visible := show && hovering

	lines := []string{"", ""}
	copy(lines, tip.Lines)

	width, height := 0.0, 0.0
	if visible {
		longest := 0
		for _, l := range tip.Lines {
			longest = max(longest, len([]rune(l)))
		}
		width = float64(longest)*tooltipCharWidth + 2*tooltipPadding
		height = float64(len(tip.Lines))*tooltipLineHeight + 2*tooltipPadding
	}

	visibility := "hidden"
	if visible {
		visibility = "visible"
	}
	fmt.Fprintf(buf, `  <g class="tooltip" pointer-events="none" visibility="%s" transform="translate(%s,%s)">`+"\n",
		visibility, num(tip.X), num(tip.Y))
	fmt.Fprintf(buf, `    <rect width="%s" height="%s" rx="3" fill="white" stroke="#999" stroke-width="0.5"/>`+"\n",
		num(width), num(height))
	buf.WriteString(`    <text>`)
	for i, l := range lines {
		fmt.Fprintf(buf, `<tspan x="%s" y="%s">%s</tspan>`,
			num(tooltipPadding), num(tooltipPadding+float64(i+1)*tooltipLineHeight-4), html.EscapeString(l))
	}
	buf.WriteString("</text>\n  </g>\n")
}

func renderTooltipScript(buf *bytes.Buffer) {
	fmt.Fprintf(buf, "  <script type=\"text/javascript\"><![CDATA[%s\n  ]]></script>\n", tooltipJS)
}

// renderLegend draws a gradient bar from 0 to the dataset maximum. Nothing
// is drawn before load.
func renderLegend(buf *bytes.Buffer, scene Scene, stops int) {
	data := scene.State.Data()
	if data == nil {
		return
	}
	p := scene.projection()
	y := p.Height - legendBottom

	buf.WriteString(`  <g class="legend">` + "\n")
	buf.WriteString(`    <defs><linearGradient id="legend-gradient">`)
	ss := data.Scale.Stops(stops)
	for i, s := range ss {
		offset := float64(i) / float64(len(ss)-1) * 100
		fmt.Fprintf(buf, `<stop offset="%s%%" stop-color="%s"/>`, num(offset), s.Color)
	}
	buf.WriteString("</linearGradient></defs>\n")
	fmt.Fprintf(buf, `    <rect x="%s" y="%s" width="%s" height="%s" fill="url(#legend-gradient)" stroke="#ccc" stroke-width="0.5"/>`+"\n",
		num(legendX), num(y), num(legendWidth), num(legendHeight))
	fmt.Fprintf(buf, `    <text x="%s" y="%s">0</text>`+"\n", num(legendX), num(y+legendHeight+13))
	fmt.Fprintf(buf, `    <text x="%s" y="%s" text-anchor="end">%s</text>`+"\n",
		num(legendX+legendWidth), num(y+legendHeight+13), strconv.FormatInt(data.Max, 10))
	fmt.Fprintf(buf, `    <text x="%s" y="%s">Requests</text>`+"\n", num(legendX), num(y-5))
	buf.WriteString("  </g>\n")
}

// renderResults lists up to limit search results in the top-left corner.
func renderResults(buf *bytes.Buffer, scene Scene, limit int) {
	results := widget.Results(scene.State)
	if len(results) == 0 {
		return
	}

	buf.WriteString(`  <g class="results">` + "\n")
	fmt.Fprintf(buf, `    <text x="%s" y="%s" font-weight="bold">%s</text>`+"\n",
		num(resultsX), num(resultsY), html.EscapeString("Results for \""+scene.State.Query+"\""))
	for i, m := range results {
		if limit > 0 && i == limit {
			fmt.Fprintf(buf, `    <text x="%s" y="%s">… %d more</text>`+"\n",
				num(resultsX), num(resultsY+float64(i+1)*resultsLineHeight), len(results)-limit)
			break
		}
		fmt.Fprintf(buf, `    <text x="%s" y="%s" data-name="%s">%s</text>`+"\n",
			num(resultsX), num(resultsY+float64(i+1)*resultsLineHeight),
			html.EscapeString(m.CountryName), html.EscapeString(m.CountryName))
	}
	buf.WriteString("  </g>\n")
}
