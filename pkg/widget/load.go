package widget

import (
	"fmt"

	"github.com/matzehuels/countrymap/pkg/colorscale"
	"github.com/matzehuels/countrymap/pkg/countries"
)

// LoadPhase is the tag of a [LoadState].
type LoadPhase int

const (
	NotLoaded LoadPhase = iota
	Loading
	Loaded
	Failed
)

func (p LoadPhase) String() string {
	switch p {
	case NotLoaded:
		return "not_loaded"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("LoadPhase(%d)", int(p))
}

// LoadState is the data-loading variant. Data is set only when Loaded and
// Err only when Failed.
type LoadState struct {
	Phase LoadPhase
	Data  *Dataset
	Err   error
}

// Dataset is a loaded metrics document with everything derived from it at
// load time.
type Dataset struct {
	Metrics []countries.Metric
	Index   *countries.Index
	Max     int64
	Scale   *colorscale.Scale
}

// NewDataset builds the index and color scale for metrics. It fails if any
// record has requests that are not a non-negative integer, since the scale
// domain cannot be computed.
func NewDataset(metrics []countries.Metric, opts ...colorscale.Option) (*Dataset, error) {
	max, err := countries.Max(metrics)
	if err != nil {
		return nil, err
	}
	scale, err := colorscale.New(float64(max), opts...)
	if err != nil {
		return nil, err
	}
	return &Dataset{
		Metrics: metrics,
		Index:   countries.NewIndex(metrics),
		Max:     max,
		Scale:   scale,
	}, nil
}

// Lookup returns the metric for a country name. It is safe on a nil
// dataset.
func (d *Dataset) Lookup(name string) (countries.Metric, bool) {
	if d == nil {
		return countries.Metric{}, false
	}
	return d.Index.Lookup(name)
}
