package widget

import (
	"github.com/paulmach/orb"

	"github.com/matzehuels/countrymap/pkg/geo"
)

// Event is an input to [Apply].
type Event interface {
	apply(State) State
}

// Cursor is a pointer position in surface pixels.
type Cursor struct {
	X float64 `json:"x" bson:"x"`
	Y float64 `json:"y" bson:"y"`
}

// LoadStarted marks the metrics fetch as in flight.
type LoadStarted struct{}

// LoadSucceeded installs a loaded dataset.
type LoadSucceeded struct{ Data *Dataset }

// LoadFailed records a fetch or decode failure.
type LoadFailed struct{ Err error }

// PointerEnter starts hovering Country at Cursor.
type PointerEnter struct {
	Country string
	Cursor  Cursor
}

// PointerMove is a move inside the hovered country.
type PointerMove struct{ Cursor Cursor }

// PointerLeave ends hovering.
type PointerLeave struct{}

// SetQuery replaces the search query.
type SetQuery struct{ Query string }

// SelectResult recenters on a search result and clears the query.
type SelectResult struct {
	Country  string
	Centroid orb.Point
}

// MoveEnd replaces the view after a pan or zoom gesture.
type MoveEnd struct{ View geo.View }

// ResetView restores the initial view.
type ResetView struct{}

func (LoadStarted) apply(s State) State {
	s.Load = LoadState{Phase: Loading}
	return s
}

func (e LoadSucceeded) apply(s State) State {
	if e.Data == nil {
		s.Load = LoadState{Phase: Failed, Err: ErrNoData}
		return s
	}
	s.Load = LoadState{Phase: Loaded, Data: e.Data}
	return s
}

func (e LoadFailed) apply(s State) State {
	err := e.Err
	if err == nil {
		err = ErrNoData
	}
	s.Load = LoadState{Phase: Failed, Err: err}
	return s
}

func (e PointerEnter) apply(s State) State {
	h := Hover{Active: true, Country: e.Country, Cursor: e.Cursor}
	if m, ok := s.Data().Lookup(e.Country); ok {
		requests := m.Requests
		h.Requests = &requests
	}
	s.Hover = h
	return s
}

func (PointerMove) apply(s State) State { return s }

func (PointerLeave) apply(s State) State {
	s.Hover = Hover{}
	return s
}

func (e SetQuery) apply(s State) State {
	s.Query = e.Query
	return s
}

func (e SelectResult) apply(s State) State {
	s.View = geo.View{Center: e.Centroid, Zoom: geo.SelectZoom}
	s.Query = ""
	return s
}

func (e MoveEnd) apply(s State) State {
	s.View = e.View
	return s
}

func (ResetView) apply(s State) State {
	s.View = geo.InitialView()
	return s
}

// Select builds the SelectResult event for the named feature. It reports
// false if the feature is missing or has no centroid.
func Select(features []geo.Feature, name string) (SelectResult, bool) {
	f, ok := geo.Find(features, name)
	if !ok {
		return SelectResult{}, false
	}
	c, ok := geo.Centroid(f)
	if !ok {
		return SelectResult{}, false
	}
	return SelectResult{Country: name, Centroid: c}, true
}
