// Package geo decodes country geometry and projects it onto the map canvas.
//
// # Geometry
//
// Country shapes arrive as a GeoJSON FeatureCollection. [Decode] reads one
// with paulmach/orb and exposes each feature as a [Feature] whose Name is the
// "name" property; every other property is passed through untouched. The
// name is the join key against the metrics document.
//
// # Projection
//
// [Projection] implements the Equal Earth projection on an 800x450 canvas
// with the central meridian rotated to 10°E. It converts lon/lat points to
// canvas pixels and back, and turns polygon geometry into SVG path data.
// Rings that cross the antimeridian of the rotated projection are split and
// clipped so no path streaks across the map.
//
// # Views
//
// A [View] is a pan/zoom position: the lon/lat point shown at the canvas
// center and a zoom factor. [Projection.ZoomTransform] turns it into an SVG
// transform attribute for the group that holds the country paths.
package geo
