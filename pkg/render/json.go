package render

import (
	"encoding/json"

	"github.com/matzehuels/countrymap/pkg/colorscale"
	"github.com/matzehuels/countrymap/pkg/geo"
	"github.com/matzehuels/countrymap/pkg/widget"
)

// Export is the JSON form of a rendered scene.
type Export struct {
	Width     float64             `json:"width"`
	Height    float64             `json:"height"`
	Load      string              `json:"load"`
	View      geo.View            `json:"view"`
	Transform string              `json:"transform"`
	Query     string              `json:"query"`
	Domain    *Domain             `json:"domain,omitempty"`
	Tooltip   *widget.TooltipView `json:"tooltip,omitempty"`
	Results   []string            `json:"results"`
	Countries []Country           `json:"countries"`
}

// Domain describes the color scale of a loaded dataset.
type Domain struct {
	Max      int64             `json:"max"`
	Low      string            `json:"low"`
	High     string            `json:"high"`
	Fallback string            `json:"fallback"`
	Stops    []colorscale.Stop `json:"stops"`
}

// Country is one feature's paint and data.
type Country struct {
	Name     string       `json:"name"`
	Requests *string      `json:"requests,omitempty"`
	Centroid *[2]float64  `json:"centroid,omitempty"`
	Style    widget.Style `json:"style"`
}

// Build assembles the export for scene.
func Build(scene Scene) Export {
	p := scene.projection()
	s := scene.State

	e := Export{
		Width:     p.Width,
		Height:    p.Height,
		Load:      s.Load.Phase.String(),
		View:      s.View,
		Transform: p.ZoomTransform(s.View),
		Query:     s.Query,
		Results:   []string{},
		Countries: make([]Country, 0, len(scene.Features)),
	}

	if data := s.Data(); data != nil {
		e.Domain = &Domain{
			Max:      data.Max,
			Low:      data.Scale.Low(),
			High:     data.Scale.High(),
			Fallback: data.Scale.Fallback(),
			Stops:    data.Scale.Stops(5),
		}
	}
	if tip, ok := widget.Tooltip(s); ok {
		e.Tooltip = &tip
	}
	for _, m := range widget.Results(s) {
		e.Results = append(e.Results, m.CountryName)
	}

	for _, f := range scene.Features {
		c := Country{
			Name:  f.Name,
			Style: widget.FeatureStyle(s, f.Name, scene.fallback()),
		}
		if m, ok := s.Data().Lookup(f.Name); ok {
			requests := m.Requests
			c.Requests = &requests
		}
		if pt, ok := geo.Centroid(f); ok {
			centroid := [2]float64(pt)
			c.Centroid = &centroid
		}
		e.Countries = append(e.Countries, c)
	}
	return e
}

// RenderJSON encodes the export for scene as indented JSON.
func RenderJSON(scene Scene) ([]byte, error) {
	return json.MarshalIndent(Build(scene), "", "  ")
}
