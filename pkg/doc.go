// Package pkg provides the libraries behind countrymap, a world choropleth
// of per-country request counts.
//
// # Overview
//
// A metrics document lists request counts per country; a geometry document
// holds the country shapes. The map colors each country by its count and
// supports hover tooltips, search with highlighting, and pan/zoom:
//
//	metrics document ──► [countries] ──► [colorscale]
//	                                          │
//	geometry document ─► [geo] ───────────────┤
//	                                          ▼
//	            events ──► [widget] state ──► [render] ──► SVG/PNG/PDF/JSON
//
// # Main Packages
//
// [countries] decodes the metrics document and implements the
// case-insensitive name search.
//
// [colorscale] maps request counts onto a linear two-color ramp with a
// fallback for countries without data.
//
// [geo] decodes the geometry document and holds the Equal Earth projection,
// SVG path generation, centroids, and the pan/zoom view.
//
// [widget] is the widget's state machine: load phase, hover, query and
// view, changed only through [widget.Apply].
//
// [render] draws a widget state as SVG or exports it as JSON; PNG and PDF
// are converted from the SVG.
//
// ## Infrastructure
//
// [loader] fetches documents from files or URLs through the [cache].
//
// [pipeline] ties load, state replay and render together for the CLI and
// server.
//
// [session] stores per-browser widget state (memory, file, Redis, MongoDB).
//
// [observability] defines hooks that the server's Prometheus collectors
// implement.
//
// [errors] carries error codes that map onto HTTP statuses.
//
// # Quick Start
//
//	r := pipeline.NewRunner(nil, nil, nil)
//	res, err := r.Execute(ctx, pipeline.Options{Query: "fin", Formats: []string{"svg"}})
//	if err != nil {
//	    return err
//	}
//	os.WriteFile("map.svg", res.Artifacts["svg"], 0o644)
//
// [countries]: https://pkg.go.dev/github.com/matzehuels/countrymap/pkg/countries
// [colorscale]: https://pkg.go.dev/github.com/matzehuels/countrymap/pkg/colorscale
// [geo]: https://pkg.go.dev/github.com/matzehuels/countrymap/pkg/geo
// [widget]: https://pkg.go.dev/github.com/matzehuels/countrymap/pkg/widget
// [widget.Apply]: https://pkg.go.dev/github.com/matzehuels/countrymap/pkg/widget#Apply
// [render]: https://pkg.go.dev/github.com/matzehuels/countrymap/pkg/render
// [loader]: https://pkg.go.dev/github.com/matzehuels/countrymap/pkg/loader
// [cache]: https://pkg.go.dev/github.com/matzehuels/countrymap/pkg/cache
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/countrymap/pkg/pipeline
// [session]: https://pkg.go.dev/github.com/matzehuels/countrymap/pkg/session
// [observability]: https://pkg.go.dev/github.com/matzehuels/countrymap/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/countrymap/pkg/errors
package pkg
