package widget

import (
	"github.com/matzehuels/countrymap/pkg/geo"
)

// Snapshot is the serializable part of a [State]. The dataset is shared
// and not stored; [Restore] reattaches it.
type Snapshot struct {
	Query    string     `json:"query" bson:"query"`
	Hovering bool       `json:"hovering" bson:"hovering"`
	Country  string     `json:"country,omitempty" bson:"country,omitempty"`
	Requests *string    `json:"requests,omitempty" bson:"requests,omitempty"`
	Cursor   Cursor     `json:"cursor" bson:"cursor"`
	Center   [2]float64 `json:"coordinates" bson:"coordinates"`
	Zoom     float64    `json:"zoom" bson:"zoom"`
}

// Snap captures the serializable part of s.
func Snap(s State) Snapshot {
	return Snapshot{
		Query:    s.Query,
		Hovering: s.Hover.Active,
		Country:  s.Hover.Country,
		Requests: s.Hover.Requests,
		Cursor:   s.Hover.Cursor,
		Center:   [2]float64(s.View.Center),
		Zoom:     s.View.Zoom,
	}
}

// InitialSnapshot is the snapshot of [New].
func InitialSnapshot() Snapshot {
	return Snap(New())
}

// Restore rebuilds a state from snap with the given load state.
func Restore(snap Snapshot, load LoadState) State {
	s := State{
		Load:  load,
		Query: snap.Query,
		View:  geo.View{Center: snap.Center, Zoom: snap.Zoom},
	}
	if snap.Hovering {
		s.Hover = Hover{
			Active:   true,
			Country:  snap.Country,
			Requests: snap.Requests,
			Cursor:   snap.Cursor,
		}
	}
	return s
}
