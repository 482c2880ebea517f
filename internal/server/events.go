package server

import (
	"github.com/matzehuels/countrymap/pkg/errors"
	"github.com/matzehuels/countrymap/pkg/geo"
	"github.com/matzehuels/countrymap/pkg/pipeline"
	"github.com/matzehuels/countrymap/pkg/widget"
)

// Event types accepted by POST /api/sessions/{id}/events.
const (
	EventEnter   = "enter"
	EventMove    = "move"
	EventLeave   = "leave"
	EventSearch  = "search"
	EventSelect  = "select"
	EventMoveEnd = "moveend"
	EventPan     = "pan"
	EventReset   = "reset"
)

// eventRequest is one browser event. Which fields are read depends on Type.
type eventRequest struct {
	Type    string  `json:"type"`
	Country string  `json:"country,omitempty"`
	X       float64 `json:"x,omitempty"`
	Y       float64 `json:"y,omitempty"`
	Query   string  `json:"query,omitempty"`
	Lon     float64 `json:"lon,omitempty"`
	Lat     float64 `json:"lat,omitempty"`
	Zoom    float64 `json:"zoom,omitempty"`
	DX      float64 `json:"dx,omitempty"`
	DY      float64 `json:"dy,omitempty"`
}

// toEvent converts req to a widget event against the current state.
func toEvent(req eventRequest, s widget.State, features []geo.Feature, opts pipeline.Options) (widget.Event, error) {
	switch req.Type {
	case EventEnter:
		if req.Country == "" {
			return nil, errors.New(errors.ErrCodeInvalidEvent, "enter requires a country")
		}
		return widget.PointerEnter{Country: req.Country, Cursor: widget.Cursor{X: req.X, Y: req.Y}}, nil

	case EventMove:
		return widget.PointerMove{Cursor: widget.Cursor{X: req.X, Y: req.Y}}, nil

	case EventLeave:
		return widget.PointerLeave{}, nil

	case EventSearch:
		if err := errors.ValidateQuery(req.Query); err != nil {
			return nil, err
		}
		return widget.SetQuery{Query: req.Query}, nil

	case EventSelect:
		sel, ok := widget.Select(features, req.Country)
		if !ok {
			return nil, errors.New(errors.ErrCodeCountryNotFound, "country %q not found", req.Country)
		}
		return sel, nil

	case EventMoveEnd:
		if err := errors.ValidateView(req.Lon, req.Lat, req.Zoom); err != nil {
			return nil, err
		}
		return widget.MoveEnd{View: geo.View{Center: [2]float64{req.Lon, req.Lat}, Zoom: req.Zoom}}, nil

	case EventPan:
		return widget.MoveEnd{View: opts.Projection().Pan(s.View, req.DX, req.DY)}, nil

	case EventReset:
		return widget.ResetView{}, nil
	}
	return nil, errors.New(errors.ErrCodeInvalidEvent, "unknown event type %q", req.Type)
}
