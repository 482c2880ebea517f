package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/countrymap/pkg/errors"
	"github.com/matzehuels/countrymap/pkg/pipeline"
)

// defaultOutputBase names output files when --output is not given.
const defaultOutputBase = "countrymap"

// renderFlags holds the flags of the render command. Zero values defer to
// the config file.
type renderFlags struct {
	output   string
	formats  string
	metrics  string
	features string
	noCache  bool
	refresh  bool

	query  string
	sel    string
	hover  string
	lon    float64
	lat    float64
	zoom   float64
	width  int
	height int
	scale  float64
	rotate float64

	low      string
	high     string
	fallback string
	clamp    bool

	legend      bool
	results     bool
	interactive bool
	pngScale    float64
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var f renderFlags

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the map to SVG, PNG, PDF or JSON",
		Long: `Render the choropleth for a metrics document and a geometry document.

The widget state can be set from flags: --query highlights matching countries,
--select recenters on a country the way picking a search result does, --hover
shows a country's tooltip, and --lon/--lat/--zoom set the view directly.`,
		Example: `  countrymap render
  countrymap render -f svg,png -o out/map --query fin
  countrymap render --metrics https://example.com/country_requests_data.json --select Finland`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.renderOptions(cmd, &f)
			if err != nil {
				return err
			}
			return c.runRender(cmd.Context(), opts, f.output, f.noCache)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.output, "output", "o", "", "output file (single format) or base path (multiple)")
	flags.StringVarP(&f.formats, "format", "f", "", "output format(s): svg (default), png, pdf, json (comma-separated)")
	flags.StringVar(&f.metrics, "metrics", "", "metrics document path or URL")
	flags.StringVar(&f.features, "features", "", "geometry document path or URL")
	flags.BoolVar(&f.noCache, "no-cache", false, "disable the document and artifact cache")
	flags.BoolVar(&f.refresh, "refresh", false, "refetch remote documents even if cached")

	flags.StringVarP(&f.query, "query", "q", "", "search query; matching countries are outlined")
	flags.StringVar(&f.sel, "select", "", "recenter on this country at zoom 3")
	flags.StringVar(&f.hover, "hover", "", "show the tooltip for this country")
	flags.Float64Var(&f.lon, "lon", 0, "view center longitude")
	flags.Float64Var(&f.lat, "lat", 0, "view center latitude")
	flags.Float64Var(&f.zoom, "zoom", 0, "view zoom factor (default 1)")
	flags.IntVar(&f.width, "width", 0, "canvas width in pixels")
	flags.IntVar(&f.height, "height", 0, "canvas height in pixels")
	flags.Float64Var(&f.scale, "scale", 0, "projection scale")
	flags.Float64Var(&f.rotate, "rotate", 0, "projection rotation in degrees")

	flags.StringVar(&f.low, "low", "", "color for zero requests")
	flags.StringVar(&f.high, "high", "", "color for the maximum")
	flags.StringVar(&f.fallback, "fallback", "", "color for countries without data")
	flags.BoolVar(&f.clamp, "clamp", false, "clamp colors to the scale range")

	flags.BoolVar(&f.legend, "legend", true, "draw the color legend")
	flags.BoolVar(&f.results, "results", false, "list search results on the map")
	flags.BoolVar(&f.interactive, "interactive", false, "embed the hover script in the SVG")
	flags.Float64Var(&f.pngScale, "png-scale", 0, "PNG rasterization factor (default 2)")

	return cmd
}

// renderOptions layers the flags the user set over the config.
func (c *CLI) renderOptions(cmd *cobra.Command, f *renderFlags) (pipeline.Options, error) {
	opts := c.Config.PipelineOptions()
	flags := cmd.Flags()

	opts.Formats = parseFormats(f.formats)
	if err := pipeline.ValidateFormats(opts.Formats); err != nil {
		return opts, err
	}

	setString := func(name string, dst *string, v string) {
		if flags.Changed(name) {
			*dst = v
		}
	}
	setString("metrics", &opts.MetricsSource, f.metrics)
	setString("features", &opts.FeaturesSource, f.features)
	setString("low", &opts.Low, f.low)
	setString("high", &opts.High, f.high)
	setString("fallback", &opts.Fallback, f.fallback)

	if flags.Changed("width") {
		opts.Width = f.width
	}
	if flags.Changed("height") {
		opts.Height = f.height
	}
	if flags.Changed("scale") {
		opts.Scale = f.scale
	}
	if flags.Changed("rotate") {
		rotate := f.rotate
		opts.Rotate = &rotate
	}
	if flags.Changed("clamp") {
		opts.Clamp = f.clamp
	}
	if flags.Changed("legend") {
		opts.Legend = f.legend
	}

	opts.Refresh = f.refresh
	opts.Query = f.query
	opts.Select = f.sel
	opts.Hover = f.hover
	opts.Lon, opts.Lat, opts.Zoom = f.lon, f.lat, f.zoom
	opts.Results = f.results
	opts.Interactive = f.interactive
	opts.PNGScale = f.pngScale
	opts.Logger = c.Logger

	if f.pngScale < 0 {
		return opts, errors.New(errors.ErrCodeInvalidInput, "--png-scale must be positive")
	}
	return opts, nil
}

func (c *CLI) runRender(ctx context.Context, opts pipeline.Options, output string, noCache bool) error {
	logger := loggerFromContext(ctx)

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, "Rendering map...")
	spinner.Start()
	prog := newProgress(logger)

	result, err := runner.Execute(ctx, opts)
	if err != nil {
		spinner.StopWithError("Render failed")
		return err
	}
	spinner.Stop()

	if result.LoadErr != nil {
		printWarning("Metrics unavailable, countries use the fallback color: %s", errors.UserMessage(result.LoadErr))
	}

	paths := outputPaths(output, opts.Formats)
	written := make([]string, 0, len(paths))
	for _, format := range opts.Formats {
		data, ok := result.Artifacts[format]
		if !ok {
			continue
		}
		path := paths[format]
		if err := writeOutput(path, data); err != nil {
			return err
		}
		logger.Debugf("Wrote %s: %d bytes", path, len(data))
		written = append(written, path)
	}
	prog.done(fmt.Sprintf("Rendered %s", strings.Join(opts.Formats, ", ")))

	printSuccess("Map rendered")
	for _, p := range written {
		printFile(p)
	}
	printStats(result.Stats.RecordCount, result.Stats.FeatureCount, result.Stats.UnmatchedCount, result.CacheInfo.RenderHit)
	return nil
}

// outputPaths maps each format to its file. A single format writes to
// output as given; several formats share output as a base name.
func outputPaths(output string, formats []string) map[string]string {
	paths := make(map[string]string, len(formats))
	if len(formats) == 1 && output != "" {
		paths[formats[0]] = output
		return paths
	}
	base := output
	if base == "" {
		base = defaultOutputBase
	}
	base = strings.TrimSuffix(base, filepath.Ext(base))
	for _, f := range formats {
		paths[f] = base + "." + f
	}
	return paths
}

// writeOutput writes data to path, creating parent directories.
func writeOutput(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
