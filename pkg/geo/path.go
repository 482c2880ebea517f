package geo

import (
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// graticuleStep is the spacing of graticule lines in degrees.
const graticuleStep = 10

// sampleStep is the interpolation step for curved outlines in degrees.
const sampleStep = 2.5

// Path returns SVG path data for a polygon or multipolygon geometry. Other
// geometry types and empty geometry yield "".
func (p Projection) Path(g orb.Geometry) string {
	var b strings.Builder
	switch g := g.(type) {
	case orb.Polygon:
		p.writePolygon(&b, g)
	case orb.MultiPolygon:
		for _, poly := range g {
			p.writePolygon(&b, poly)
		}
	case orb.Collection:
		for _, sub := range g {
			b.WriteString(p.Path(sub))
		}
	}
	return b.String()
}

func (p Projection) writePolygon(b *strings.Builder, poly orb.Polygon) {
	for _, ring := range poly {
		for _, piece := range p.splitRing(ring) {
			p.writeRing(b, piece, true)
		}
	}
}

// splitRing rotates a ring, unwraps its longitudes so consecutive points
// never jump more than 180°, then clips each 360° copy overlapping the
// visible range to [-180, 180].
func (p Projection) splitRing(ring orb.Ring) [][]orb.Point {
	if len(ring) < 3 {
		return nil
	}

	pts := make([]orb.Point, len(ring))
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, pt := range ring {
		lon := p.rotate(pt.Lon())
		if i > 0 {
			prev := pts[i-1][0]
			for lon-prev > 180 {
				lon -= 360
			}
			for prev-lon > 180 {
				lon += 360
			}
		}
		pts[i] = orb.Point{lon, pt.Lat()}
		lo, hi = min(lo, lon), max(hi, lon)
	}

	if lo >= -180 && hi <= 180 {
		return [][]orb.Point{pts}
	}

	var pieces [][]orb.Point
	for _, shift := range []float64{-360, 0, 360} {
		if hi+shift <= -180 || lo+shift >= 180 {
			continue
		}
		shifted := make([]orb.Point, len(pts))
		for i, pt := range pts {
			shifted[i] = orb.Point{pt[0] + shift, pt[1]}
		}
		clipped := clipLon(clipLon(shifted, 180, true), -180, false)
		if len(clipped) >= 3 {
			pieces = append(pieces, clipped)
		}
	}
	return pieces
}

// clipLon clips a closed ring against the half plane lon <= bound (upper)
// or lon >= bound (!upper).
func clipLon(pts []orb.Point, bound float64, upper bool) []orb.Point {
	inside := func(pt orb.Point) bool {
		if upper {
			return pt[0] <= bound
		}
		return pt[0] >= bound
	}
	intersect := func(a, b orb.Point) orb.Point {
		t := (bound - a[0]) / (b[0] - a[0])
		return orb.Point{bound, a[1] + t*(b[1]-a[1])}
	}

	if len(pts) == 0 {
		return nil
	}
	out := make([]orb.Point, 0, len(pts)+4)
	prev := pts[len(pts)-1]
	for _, cur := range pts {
		switch {
		case inside(cur) && inside(prev):
			out = append(out, cur)
		case inside(cur):
			out = append(out, intersect(prev, cur), cur)
		case inside(prev):
			out = append(out, intersect(prev, cur))
		}
		prev = cur
	}
	return out
}

// writeRing appends projected points as one subpath. Longitudes must
// already be rotated.
func (p Projection) writeRing(b *strings.Builder, pts []orb.Point, closed bool) {
	for i, pt := range pts {
		if i == 0 {
			b.WriteByte('M')
		} else {
			b.WriteByte('L')
		}
		x, y := p.projectRotated(pt[0], pt[1])
		b.WriteString(formatCoord(x))
		b.WriteByte(',')
		b.WriteString(formatCoord(y))
	}
	if closed && len(pts) > 0 {
		b.WriteByte('Z')
	}
}

// Sphere returns path data for the outline of the projected globe.
func (p Projection) Sphere() string {
	var pts []orb.Point
	for lat := -90.0; lat <= 90; lat += sampleStep {
		pts = append(pts, orb.Point{180, lat})
	}
	for lat := 90.0; lat >= -90; lat -= sampleStep {
		pts = append(pts, orb.Point{-180, lat})
	}
	var b strings.Builder
	p.writeRing(&b, pts, true)
	return b.String()
}

// Graticule returns path data for meridians and parallels every 10°.
// Meridians stop at ±80° except every 90th, which reach the poles.
func (p Projection) Graticule() string {
	var b strings.Builder
	for lon := -180.0; lon < 180; lon += graticuleStep {
		extent := 80.0
		if math.Mod(lon, 90) == 0 {
			extent = 90
		}
		var line []orb.Point
		for lat := -extent; lat <= extent; lat += sampleStep {
			line = append(line, orb.Point{p.rotate(lon), lat})
		}
		p.writeRing(&b, line, false)
	}
	for lat := -80.0; lat <= 80; lat += graticuleStep {
		var line []orb.Point
		for lon := -180.0; lon <= 180; lon += sampleStep {
			line = append(line, orb.Point{lon, lat})
		}
		p.writeRing(&b, line, false)
	}
	return b.String()
}

func formatCoord(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	}
	if s == "-0" {
		s = "0"
	}
	return s
}
