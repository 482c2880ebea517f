// Package render draws the country map.
//
// [RenderSVG] writes a self-contained SVG: the sphere outline and graticule,
// one path per country painted from [widget.FeatureStyle], a zoom group
// positioned from the widget's view, and optional overlays (legend, search
// results, tooltip). With [WithInteraction] the SVG carries a small script
// that shows the hover tooltip in a browser without a server.
//
// [RenderJSON] exports the same scene as data for API clients, and [ToPNG]
// and [ToPDF] convert an SVG through rsvg-convert.
//
// Countries are written in document order so output is byte-for-byte
// reproducible for the same inputs.
package render
