package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/matzehuels/countrymap/pkg/observability"
	"github.com/matzehuels/countrymap/pkg/render"
)

// Render generates output artifacts in the requested formats.
func Render(ctx context.Context, scene render.Scene, opts Options) (map[string][]byte, error) {
	start := time.Now()
	observability.Pipeline().OnRenderStart(ctx, opts.Formats)

	artifacts, err := renderFormats(ctx, scene, opts)
	observability.Pipeline().OnRenderComplete(ctx, opts.Formats, time.Since(start), err)
	return artifacts, err
}

func renderFormats(ctx context.Context, scene render.Scene, opts Options) (map[string][]byte, error) {
	var svg []byte
	svgOnce := func() []byte {
		if svg == nil {
			svg = render.RenderSVG(scene, SVGOptions(opts)...)
		}
		return svg
	}

	artifacts := make(map[string][]byte)
	for _, format := range opts.Formats {
		var data []byte
		var err error

		switch format {
		case FormatSVG:
			data = svgOnce()
		case FormatPNG:
			data, err = render.ToPNG(ctx, svgOnce(), opts.PNGScale)
		case FormatPDF:
			data, err = render.ToPDF(ctx, svgOnce())
		case FormatJSON:
			data, err = render.RenderJSON(scene)
		default:
			return nil, fmt.Errorf("unsupported format: %s", format)
		}

		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}

	return artifacts, nil
}

// SVGOptions translates pipeline options to SVG sink options.
func SVGOptions(opts Options) []render.SVGOption {
	var out []render.SVGOption
	if opts.Legend {
		out = append(out, render.WithLegend())
	}
	if opts.Results {
		out = append(out, render.WithResults(DefaultMaxResults))
	}
	if opts.Interactive {
		out = append(out, render.WithInteraction())
	}
	if opts.Hover != "" {
		out = append(out, render.WithTooltip())
	}
	return out
}
