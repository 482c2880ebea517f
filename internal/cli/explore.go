package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/countrymap/pkg/countries"
	"github.com/matzehuels/countrymap/pkg/errors"
	"github.com/matzehuels/countrymap/pkg/geo"
	"github.com/matzehuels/countrymap/pkg/pipeline"
	"github.com/matzehuels/countrymap/pkg/render"
	"github.com/matzehuels/countrymap/pkg/widget"
)

// searchPlaceholder matches the placeholder of the browser widget.
const searchPlaceholder = "Hae maa..."

// Explorer key steps.
const (
	panStep  = 40.0 // surface pixels per shift+arrow
	zoomStep = 1.5
	maxZoom  = 8.0
)

// exploreCommand creates the explore command.
func (c *CLI) exploreCommand() *cobra.Command {
	var (
		metrics  string
		features string
		output   string
		noCache  bool
		refresh  bool
	)

	cmd := &cobra.Command{
		Use:   "explore",
		Short: "Search and browse the dataset interactively",
		Long: `Open an interactive view of the widget: type to search, move through the
results, press enter to select a country (recentering the view at zoom 3),
tab to show its tooltip, shift+arrows to pan, pgup/pgdown to zoom and
ctrl+r to reset. ctrl+s writes the current map as SVG.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := c.Config.PipelineOptions()
			if cmd.Flags().Changed("metrics") {
				opts.MetricsSource = metrics
			}
			if cmd.Flags().Changed("features") {
				opts.FeaturesSource = features
			}
			opts.Refresh = refresh
			opts.Logger = c.Logger
			return c.runExplore(cmd.Context(), opts, output, noCache)
		},
	}

	cmd.Flags().StringVar(&metrics, "metrics", "", "metrics document path or URL")
	cmd.Flags().StringVar(&features, "features", "", "geometry document path or URL")
	cmd.Flags().StringVarP(&output, "output", "o", defaultOutputBase+".svg", "file written by ctrl+s")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the document cache")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "refetch remote documents even if cached")
	return cmd
}

func (c *CLI) runExplore(ctx context.Context, opts pipeline.Options, output string, noCache bool) error {
	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, "Loading documents...")
	spinner.Start()
	docs, err := runner.Load(ctx, opts)
	spinner.Stop()
	if err != nil {
		return err
	}
	if err := opts.ValidateForRender(); err != nil {
		return err
	}

	m := newExploreModel(docs.Features, runner.State(docs, opts), opts)
	m.save = func(s widget.State) error {
		scene := render.Scene{
			Features:   docs.Features,
			State:      s,
			Projection: opts.Projection(),
			Fallback:   opts.FallbackColor(),
		}
		svg := render.RenderSVG(scene, pipeline.SVGOptions(opts)...)
		return writeOutput(output, svg)
	}
	m.output = output

	final, err := tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen()).Run()
	if err != nil {
		return err
	}
	if fm, ok := final.(exploreModel); ok && fm.saved {
		printFile(output)
	}
	return nil
}

// =============================================================================
// exploreModel - Interactive widget
// =============================================================================

var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorTeal)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	tooltipStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorGray).Padding(0, 1)
)

// exploreModel is the bubbletea model of the terminal widget. All state
// changes go through widget.Apply.
type exploreModel struct {
	input    textinput.Model
	features []geo.Feature
	proj     geo.Projection
	state    widget.State
	results  []countries.Metric

	cursor int
	offset int
	height int

	status string
	output string
	saved  bool
	save   func(widget.State) error
}

func newExploreModel(features []geo.Feature, state widget.State, opts pipeline.Options) exploreModel {
	in := textinput.New()
	in.Placeholder = searchPlaceholder
	in.CharLimit = errors.MaxQueryLength
	in.SetValue(state.Query)
	in.Focus()

	m := exploreModel{
		input:    in,
		features: features,
		proj:     opts.Projection(),
		state:    state,
		height:   12,
	}
	m.refresh()
	return m
}

func (m exploreModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m exploreModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "up":
			m.move(-1)
			return m, nil
		case "down":
			m.move(1)
			return m, nil
		case "enter":
			m.selectCurrent()
			return m, nil
		case "tab":
			m.toggleHover()
			return m, nil
		case "ctrl+r":
			m.apply(widget.ResetView{})
			m.status = "View reset"
			return m, nil
		case "pgup":
			m.zoom(zoomStep)
			return m, nil
		case "pgdown":
			m.zoom(1 / zoomStep)
			return m, nil
		case "shift+left":
			m.pan(panStep, 0)
			return m, nil
		case "shift+right":
			m.pan(-panStep, 0)
			return m, nil
		case "shift+up":
			m.pan(0, panStep)
			return m, nil
		case "shift+down":
			m.pan(0, -panStep)
			return m, nil
		case "ctrl+s":
			m.saveMap()
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.height = max(msg.Height-14, 3)
		return m, nil
	}

	var cmd tea.Cmd
	before := m.input.Value()
	m.input, cmd = m.input.Update(msg)
	if q := m.input.Value(); q != before {
		m.apply(widget.SetQuery{Query: q})
		m.cursor, m.offset = 0, 0
	}
	return m, cmd
}

// apply runs one widget event and refreshes the derived result list.
func (m *exploreModel) apply(e widget.Event) {
	m.state = widget.Apply(m.state, e)
	m.refresh()
}

func (m *exploreModel) refresh() {
	m.results = widget.Results(m.state)
	if m.cursor >= len(m.results) {
		m.cursor = max(len(m.results)-1, 0)
	}
}

func (m *exploreModel) move(delta int) {
	if len(m.results) == 0 {
		return
	}
	m.cursor = min(max(m.cursor+delta, 0), len(m.results)-1)
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+m.height {
		m.offset = m.cursor - m.height + 1
	}
}

func (m *exploreModel) current() (countries.Metric, bool) {
	if m.cursor < 0 || m.cursor >= len(m.results) {
		return countries.Metric{}, false
	}
	return m.results[m.cursor], true
}

// selectCurrent recenters on the highlighted result and clears the query.
func (m *exploreModel) selectCurrent() {
	r, ok := m.current()
	if !ok {
		return
	}
	sel, ok := widget.Select(m.features, r.CountryName)
	if !ok {
		m.status = fmt.Sprintf("No geometry for %s", r.CountryName)
		return
	}
	m.apply(sel)
	m.input.SetValue("")
	m.cursor, m.offset = 0, 0
	m.status = "Selected " + r.CountryName
}

// toggleHover shows the tooltip for the highlighted result, as if the
// pointer entered the country at its centroid.
func (m *exploreModel) toggleHover() {
	if m.state.Hover.Active {
		m.apply(widget.PointerLeave{})
		return
	}
	name := ""
	if r, ok := m.current(); ok {
		name = r.CountryName
	}
	f, ok := geo.Find(m.features, name)
	if !ok {
		return
	}
	c, ok := geo.Centroid(f)
	if !ok {
		return
	}
	x, y := m.proj.Screen(m.state.View, c)
	m.apply(widget.PointerEnter{Country: name, Cursor: widget.Cursor{X: x, Y: y}})
}

func (m *exploreModel) zoom(factor float64) {
	v := m.state.View
	v.Zoom = min(max(v.Zoom*factor, 1), maxZoom)
	m.apply(widget.MoveEnd{View: v})
}

func (m *exploreModel) pan(dx, dy float64) {
	m.apply(widget.MoveEnd{View: m.proj.Pan(m.state.View, dx, dy)})
}

func (m *exploreModel) saveMap() {
	if m.save == nil {
		return
	}
	if err := m.save(m.state); err != nil {
		m.status = "Save failed: " + err.Error()
		return
	}
	m.saved = true
	m.status = "Wrote " + m.output
}

func (m exploreModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("countrymap"))
	b.WriteString("  ")
	b.WriteString(listDimStyle.Render(m.loadStatus()))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	switch {
	case m.state.Query == "":
	case len(m.results) == 0:
		b.WriteString(listDimStyle.Render("  no matches"))
		b.WriteString("\n")
	default:
		b.WriteString(m.resultsTable())
		b.WriteString("\n")
		b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.cursor+1, len(m.results))))
		b.WriteString("\n")
	}

	if tip, ok := widget.Tooltip(m.state); ok {
		b.WriteString("\n")
		b.WriteString(tooltipStyle.Render(strings.Join(tip.Lines, "\n")))
		b.WriteString("\n")
	}

	v := m.state.View
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("center %.2f, %.2f · zoom %g", v.Center[0], v.Center[1], v.Zoom)))
	if m.status != "" {
		b.WriteString("  ")
		b.WriteString(StyleHighlight.Render(m.status))
	}
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ move  ⏎ select  tab tooltip  shift+←→↑↓ pan  pgup/pgdn zoom  ctrl+r reset  ctrl+s save  esc quit"))
	return b.String()
}

func (m exploreModel) loadStatus() string {
	switch m.state.Load.Phase {
	case widget.Loaded:
		return plural(len(m.state.Load.Data.Metrics), "record")
	case widget.Failed:
		return "metrics unavailable: " + errors.UserMessage(m.state.Load.Err)
	}
	return m.state.Load.Phase.String()
}

func (m exploreModel) resultsTable() string {
	end := min(m.offset+m.height, len(m.results))
	data := m.state.Data()

	rows := make([][]string, 0, end-m.offset)
	for i := m.offset; i < end; i++ {
		r := m.results[i]
		marker := "  "
		if i == m.cursor {
			marker = "▸ "
		}
		rows = append(rows, []string{marker, swatch(data.Scale.FillFor(r, true)), r.CountryName, r.Requests})
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "", "Country", "Requests").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return lipgloss.NewStyle().Foreground(colorGray).Bold(true)
			}
			if m.offset+row == m.cursor {
				return listSelectedStyle
			}
			if col == 2 {
				return StyleMatch
			}
			return StyleValue
		}).
		Render()
}
