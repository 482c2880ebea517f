package geo

import (
	"math"

	"github.com/paulmach/orb"
)

// Canvas and projection defaults.
const (
	DefaultWidth  = 800
	DefaultHeight = 450
	DefaultScale  = 147
	DefaultRotate = -10
)

// Equal Earth polynomial coefficients.
const (
	eeA1 = 1.340264
	eeA2 = -0.081106
	eeA3 = 0.000893
	eeA4 = 0.003796
)

var eeM = math.Sqrt(3) / 2

const radians = math.Pi / 180

// Projection is an Equal Earth projection centered on the canvas.
type Projection struct {
	Width, Height float64
	Scale         float64
	// Rotate is added to every longitude before projecting, in degrees.
	Rotate float64
}

// NewProjection returns the default 800x450 projection.
func NewProjection() Projection {
	return Projection{
		Width:  DefaultWidth,
		Height: DefaultHeight,
		Scale:  DefaultScale,
		Rotate: DefaultRotate,
	}
}

// rotate shifts a longitude and wraps it into [-180, 180].
func (p Projection) rotate(lon float64) float64 {
	return wrapLon(lon + p.Rotate)
}

func wrapLon(lon float64) float64 {
	if lon > 180 || lon < -180 {
		lon = math.Mod(lon+180, 360)
		if lon < 0 {
			lon += 360
		}
		lon -= 180
	}
	return lon
}

// Project maps a lon/lat point to canvas pixels.
func (p Projection) Project(pt orb.Point) (x, y float64) {
	return p.projectRotated(p.rotate(pt.Lon()), pt.Lat())
}

// projectRotated projects a longitude that has already been rotated.
// Longitudes are not wrapped so clipped rings can sit on ±180 exactly.
func (p Projection) projectRotated(lon, lat float64) (x, y float64) {
	ex, ey := equalEarth(lon*radians, lat*radians)
	return p.Width/2 + p.Scale*ex, p.Height/2 - p.Scale*ey
}

// Invert maps canvas pixels back to lon/lat. Points outside the projected
// sphere return longitudes beyond ±180 before unrotation and are wrapped.
func (p Projection) Invert(x, y float64) orb.Point {
	ex := (x - p.Width/2) / p.Scale
	ey := (p.Height/2 - y) / p.Scale
	lambda, phi := equalEarthInvert(ex, ey)
	return orb.Point{wrapLon(lambda/radians - p.Rotate), phi / radians}
}

func equalEarth(lambda, phi float64) (x, y float64) {
	l := math.Asin(eeM * math.Sin(phi))
	l2 := l * l
	l6 := l2 * l2 * l2
	x = lambda * math.Cos(l) / (eeM * (eeA1 + 3*eeA2*l2 + l6*(7*eeA3+9*eeA4*l2)))
	y = l * (eeA1 + eeA2*l2 + l6*(eeA3+eeA4*l2))
	return x, y
}

func equalEarthInvert(x, y float64) (lambda, phi float64) {
	l := y
	l2 := l * l
	l6 := l2 * l2 * l2
	for i := 0; i < 12; i++ {
		fy := l*(eeA1+eeA2*l2+l6*(eeA3+eeA4*l2)) - y
		fpy := eeA1 + 3*eeA2*l2 + l6*(7*eeA3+9*eeA4*l2)
		delta := fy / fpy
		l -= delta
		l2 = l * l
		l6 = l2 * l2 * l2
		if math.Abs(delta) < 1e-12 {
			break
		}
	}
	lambda = eeM * x * (eeA1 + 3*eeA2*l2 + l6*(7*eeA3+9*eeA4*l2)) / math.Cos(l)
	phi = math.Asin(min(max(math.Sin(l)/eeM, -1), 1))
	return lambda, phi
}
