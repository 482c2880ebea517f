package geo

import (
	"fmt"

	"github.com/paulmach/orb"
)

// SelectZoom is the zoom applied when a search result is selected.
const SelectZoom = 3

// View is a pan/zoom position: the lon/lat point at the canvas center and
// a zoom factor.
type View struct {
	Center orb.Point `json:"coordinates"`
	Zoom   float64   `json:"zoom"`
}

// InitialView is the view on load and after a reset.
func InitialView() View {
	return View{Center: orb.Point{0, 0}, Zoom: 1}
}

// IsInitial reports whether v equals the initial view.
func (v View) IsInitial() bool {
	return v == InitialView()
}

// ZoomTransform returns the SVG transform placing v.Center at the canvas
// center, scaled by v.Zoom.
func (p Projection) ZoomTransform(v View) string {
	px, py := p.Project(v.Center)
	return fmt.Sprintf("translate(%s %s) scale(%s) translate(%s %s)",
		formatCoord(p.Width/2), formatCoord(p.Height/2),
		formatCoord(v.Zoom),
		formatCoord(-px), formatCoord(-py))
}

// Pan returns v with its center moved by (dx, dy) canvas pixels at the
// current zoom. A drag to the right moves the center west.
func (p Projection) Pan(v View, dx, dy float64) View {
	if v.Zoom == 0 {
		return v
	}
	px, py := p.Project(v.Center)
	return View{
		Center: p.Invert(px-dx/v.Zoom, py-dy/v.Zoom),
		Zoom:   v.Zoom,
	}
}

// Screen returns the canvas position of pt under view v.
func (p Projection) Screen(v View, pt orb.Point) (x, y float64) {
	px, py := p.Project(pt)
	cx, cy := p.Project(v.Center)
	return p.Width/2 + v.Zoom*(px-cx), p.Height/2 + v.Zoom*(py-cy)
}
