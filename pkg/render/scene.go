package render

import (
	"github.com/matzehuels/countrymap/pkg/colorscale"
	"github.com/matzehuels/countrymap/pkg/geo"
	"github.com/matzehuels/countrymap/pkg/widget"
)

// Scene is everything needed to draw one frame of the map.
type Scene struct {
	Features   []geo.Feature
	State      widget.State
	Projection geo.Projection
	// Fallback is the fill used before the metrics are loaded.
	Fallback string
}

// NewScene returns a scene with the default projection and fallback.
func NewScene(features []geo.Feature, state widget.State) Scene {
	return Scene{
		Features:   features,
		State:      state,
		Projection: geo.NewProjection(),
		Fallback:   colorscale.MustNew(0).Fallback(),
	}
}

func (s Scene) fallback() string {
	if s.Fallback == "" {
		return colorscale.MustNew(0).Fallback()
	}
	return s.Fallback
}

func (s Scene) projection() geo.Projection {
	if s.Projection.Scale == 0 {
		return geo.NewProjection()
	}
	return s.Projection
}
