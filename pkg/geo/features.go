package geo

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// NameProperty is the feature property joined against country names.
const NameProperty = "name"

// ErrNoFeatures is returned when a document decodes but holds no features.
var ErrNoFeatures = errors.New("feature collection has no features")

// Feature is one country shape.
type Feature struct {
	Name       string
	Geometry   orb.Geometry
	Properties geojson.Properties
}

// Decode reads a GeoJSON FeatureCollection. Features without geometry are
// kept so they still appear in name lookups; they render as nothing.
func Decode(r io.Reader) ([]Feature, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read features: %w", err)
	}
	return Parse(data)
}

// Parse decodes a FeatureCollection from raw bytes.
func Parse(data []byte) ([]Feature, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse features: %w", err)
	}
	if len(fc.Features) == 0 {
		return nil, ErrNoFeatures
	}

	features := make([]Feature, 0, len(fc.Features))
	for _, f := range fc.Features {
		name, _ := f.Properties[NameProperty].(string)
		features = append(features, Feature{
			Name:       name,
			Geometry:   f.Geometry,
			Properties: f.Properties,
		})
	}
	return features, nil
}

// DecodeFile reads a FeatureCollection from path.
func DecodeFile(path string) ([]Feature, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// Find returns the first feature named name.
func Find(features []Feature, name string) (Feature, bool) {
	for _, f := range features {
		if f.Name == name {
			return f, true
		}
	}
	return Feature{}, false
}

// Centroid returns the area-weighted centroid of the feature in lon/lat.
// Longitudes are unwrapped around the first vertex before averaging, so a
// country crossing the antimeridian centers near ±180 rather than on the
// far side of the map. Features with no geometry report false.
func Centroid(f Feature) (orb.Point, bool) {
	if f.Geometry == nil {
		return orb.Point{}, false
	}
	c, area := planar.CentroidArea(unwrap(f.Geometry))
	if area == 0 {
		switch f.Geometry.(type) {
		case orb.Point, orb.MultiPoint, orb.LineString, orb.MultiLineString:
			return c, true
		}
		return orb.Point{}, false
	}
	return orb.Point{wrapLon(c.Lon()), c.Lat()}, true
}

// unwrap returns a copy of a polygon or multipolygon whose longitudes
// never jump more than 180° between consecutive vertices, and whose rings
// each start within 180° of the geometry's first vertex. Other geometry
// is returned as is.
func unwrap(g orb.Geometry) orb.Geometry {
	var polys orb.MultiPolygon
	switch g := g.(type) {
	case orb.Polygon:
		polys = orb.MultiPolygon{g}
	case orb.MultiPolygon:
		polys = g
	default:
		return g
	}

	ref, found := 0.0, false
	out := make(orb.MultiPolygon, len(polys))
	for i, poly := range polys {
		out[i] = make(orb.Polygon, len(poly))
		for j, ring := range poly {
			if len(ring) == 0 {
				continue
			}
			if !found {
				ref, found = ring[0].Lon(), true
			}
			out[i][j] = unwrapRing(ring, ref)
		}
	}

	if _, ok := g.(orb.Polygon); ok {
		return out[0]
	}
	return out
}

func unwrapRing(ring orb.Ring, ref float64) orb.Ring {
	out := make(orb.Ring, len(ring))
	prev := ref
	for i, pt := range ring {
		lon := pt.Lon()
		for lon-prev > 180 {
			lon -= 360
		}
		for prev-lon > 180 {
			lon += 360
		}
		out[i] = orb.Point{lon, pt.Lat()}
		prev = lon
	}
	return out
}
