package widget

import (
	"errors"

	"github.com/matzehuels/countrymap/pkg/geo"
)

// ErrNoData is the load error recorded when a load completes without data.
var ErrNoData = errors.New("no data loaded")

// Hover is the hover machine. The zero value is idle.
type Hover struct {
	Active  bool
	Country string
	// Requests is nil when the country has no metric record.
	Requests *string
	Cursor   Cursor
}

// State is the whole widget state.
type State struct {
	Load  LoadState
	Hover Hover
	Query string
	View  geo.View
}

// New returns the initial state: not loaded, idle, empty query, initial
// view.
func New() State {
	return State{View: geo.InitialView()}
}

// Apply returns the state after e. A nil event leaves s unchanged.
func Apply(s State, e Event) State {
	if e == nil {
		return s
	}
	return e.apply(s)
}

// ApplyAll folds events over s in order.
func ApplyAll(s State, events ...Event) State {
	for _, e := range events {
		s = Apply(s, e)
	}
	return s
}

// Data returns the loaded dataset, or nil.
func (s State) Data() *Dataset {
	if s.Load.Phase != Loaded {
		return nil
	}
	return s.Load.Data
}
