package geo

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/paulmach/orb"
)

const sampleFeatures = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"name": "Squareland", "iso": "SQ"},
     "geometry": {"type": "Polygon", "coordinates": [[[0,0],[10,0],[10,10],[0,10],[0,0]]]}},
    {"type": "Feature", "properties": {"name": "Twin Isles"},
     "geometry": {"type": "MultiPolygon", "coordinates": [
       [[[20,0],[22,0],[22,2],[20,2],[20,0]]],
       [[[30,0],[32,0],[32,2],[30,2],[30,0]]]
     ]}},
    {"type": "Feature", "properties": {"name": "Nowhere"}, "geometry": null}
  ]
}`

func TestParse(t *testing.T) {
	features, err := Parse([]byte(sampleFeatures))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(features) != 3 {
		t.Fatalf("Parse() got %d features, want 3", len(features))
	}

	names := []string{"Squareland", "Twin Isles", "Nowhere"}
	for i, want := range names {
		if features[i].Name != want {
			t.Errorf("features[%d].Name = %q, want %q", i, features[i].Name, want)
		}
	}
	if got := features[0].Properties["iso"]; got != "SQ" {
		t.Errorf("extra properties not preserved: iso = %v", got)
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := Parse([]byte(`{"type":"FeatureCollection","features":[]}`)); !errors.Is(err, ErrNoFeatures) {
		t.Errorf("Parse(empty) error = %v, want ErrNoFeatures", err)
	}
	if _, err := Parse([]byte(`not json`)); err == nil {
		t.Error("Parse(garbage) should fail")
	}
}

func TestDecode(t *testing.T) {
	features, err := Decode(strings.NewReader(sampleFeatures))
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if _, ok := Find(features, "Twin Isles"); !ok {
		t.Error("Find(Twin Isles) should succeed")
	}
	if _, ok := Find(features, "twin isles"); ok {
		t.Error("Find should be case-sensitive")
	}
}

func TestCentroid(t *testing.T) {
	features, _ := Parse([]byte(sampleFeatures))

	tests := []struct {
		name   string
		want   orb.Point
		wantOK bool
	}{
		{"Squareland", orb.Point{5, 5}, true},
		{"Twin Isles", orb.Point{26, 1}, true},
		{"Nowhere", orb.Point{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, _ := Find(features, tt.name)
			got, ok := Centroid(f)
			if ok != tt.wantOK {
				t.Fatalf("Centroid() ok = %v, want %v", ok, tt.wantOK)
			}
			if math.Abs(got.Lon()-tt.want.Lon()) > 1e-9 || math.Abs(got.Lat()-tt.want.Lat()) > 1e-9 {
				t.Errorf("Centroid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCentroidAntimeridian(t *testing.T) {
	square := func(lon0, lon1, lat0, lat1 float64) orb.Polygon {
		return orb.Polygon{{{lon0, lat0}, {lon1, lat0}, {lon1, lat1}, {lon0, lat1}, {lon0, lat0}}}
	}

	tests := []struct {
		name string
		geom orb.Geometry
		want orb.Point
	}{
		{
			// Fiji: most land east of 177°E, a sliver west of 179°W.
			name: "islands split at 180",
			geom: orb.MultiPolygon{square(177, 180, -18, -16), square(-180, -179, -18, -16)},
			want: orb.Point{179, -17},
		},
		{
			name: "ring crossing 180",
			geom: square(170, -170, -10, 10),
			want: orb.Point{180, 0},
		},
		{
			// Russia: a large western body plus Chukotka on both sides of 180.
			name: "far east piece",
			geom: orb.MultiPolygon{square(170, 180, 60, 70), square(-180, -170, 60, 70)},
			want: orb.Point{180, 65},
		},
		{
			name: "no crossing unchanged",
			geom: square(20, 30, 60, 70),
			want: orb.Point{25, 65},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Centroid(Feature{Name: tt.name, Geometry: tt.geom})
			if !ok {
				t.Fatal("Centroid() reported no centroid")
			}
			if d := math.Abs(wrapLon(got.Lon() - tt.want.Lon())); d > 1e-9 && math.Abs(d-360) > 1e-9 {
				t.Errorf("Centroid() lon = %v, want %v", got.Lon(), tt.want.Lon())
			}
			if math.Abs(got.Lat()-tt.want.Lat()) > 1e-9 {
				t.Errorf("Centroid() lat = %v, want %v", got.Lat(), tt.want.Lat())
			}
			if got.Lon() < -180 || got.Lon() > 180 {
				t.Errorf("Centroid() lon %v outside [-180, 180]", got.Lon())
			}
		})
	}
}

func TestProjectCenter(t *testing.T) {
	p := NewProjection()
	// The rotation puts 10°E on the central meridian.
	x, y := p.Project(orb.Point{10, 0})
	if math.Abs(x-400) > 1e-9 || math.Abs(y-225) > 1e-9 {
		t.Errorf("Project(10,0) = (%v,%v), want (400,225)", x, y)
	}

	x, _ = p.Project(orb.Point{0, 0})
	if x >= 400 {
		t.Errorf("Project(0,0).x = %v, want west of center", x)
	}

	_, north := p.Project(orb.Point{10, 60})
	if north >= 225 {
		t.Errorf("northern latitudes should have smaller y, got %v", north)
	}
}

func TestProjectEdge(t *testing.T) {
	p := NewProjection()
	x, _ := p.Project(orb.Point{-170, 0})
	// -170 rotates onto the antimeridian; ±180 map to the canvas edges.
	if !(x < 10 || x > 790) {
		t.Errorf("antimeridian x = %v, want near an edge", x)
	}
}

func TestInvertRoundTrip(t *testing.T) {
	p := NewProjection()
	points := []orb.Point{{0, 0}, {24.9, 60.2}, {-74, 40.7}, {151.2, -33.9}, {10, 85}}
	for _, pt := range points {
		x, y := p.Project(pt)
		got := p.Invert(x, y)
		if math.Abs(got.Lon()-pt.Lon()) > 1e-6 || math.Abs(got.Lat()-pt.Lat()) > 1e-6 {
			t.Errorf("Invert(Project(%v)) = %v", pt, got)
		}
	}
}

func TestPath(t *testing.T) {
	p := NewProjection()
	features, _ := Parse([]byte(sampleFeatures))

	square := p.Path(features[0].Geometry)
	if !strings.HasPrefix(square, "M") || !strings.HasSuffix(square, "Z") {
		t.Errorf("Path(polygon) = %q, want closed subpath", square)
	}
	if got := strings.Count(p.Path(features[1].Geometry), "M"); got != 2 {
		t.Errorf("Path(multipolygon) has %d subpaths, want 2", got)
	}
	if got := p.Path(features[2].Geometry); got != "" {
		t.Errorf("Path(nil) = %q, want empty", got)
	}
	if got := p.Path(orb.Point{1, 2}); got != "" {
		t.Errorf("Path(point) = %q, want empty", got)
	}
}

func TestPathSplitsAntimeridian(t *testing.T) {
	p := NewProjection()
	// Spans -175..-165, which straddles the rotated antimeridian at -170.
	ring := orb.Ring{{-175, -5}, {-165, -5}, {-165, 5}, {-175, 5}, {-175, -5}}
	d := p.Path(orb.Polygon{ring})
	if got := strings.Count(d, "M"); got != 2 {
		t.Fatalf("ring across antimeridian produced %d subpaths, want 2: %s", got, d)
	}

	// Neither piece may cross the canvas interior.
	for _, piece := range p.splitRing(ring) {
		for _, pt := range piece {
			if pt[0] < -180 || pt[0] > 180 {
				t.Errorf("clipped point %v outside [-180,180]", pt)
			}
		}
	}
}

func TestSphereAndGraticule(t *testing.T) {
	p := NewProjection()
	if s := p.Sphere(); !strings.HasSuffix(s, "Z") || strings.Count(s, "M") != 1 {
		t.Errorf("Sphere() should be one closed subpath")
	}
	// 36 meridians plus 17 parallels.
	if got := strings.Count(p.Graticule(), "M"); got != 53 {
		t.Errorf("Graticule() has %d lines, want 53", got)
	}
}

func TestZoomTransform(t *testing.T) {
	p := NewProjection()
	got := p.ZoomTransform(View{Center: orb.Point{10, 0}, Zoom: 3})
	want := "translate(400 225) scale(3) translate(-400 -225)"
	if got != want {
		t.Errorf("ZoomTransform() = %q, want %q", got, want)
	}
}

func TestInitialView(t *testing.T) {
	v := InitialView()
	if v.Center != (orb.Point{0, 0}) || v.Zoom != 1 {
		t.Errorf("InitialView() = %+v", v)
	}
	if !v.IsInitial() {
		t.Error("InitialView().IsInitial() = false")
	}
	if (View{Center: orb.Point{1, 0}, Zoom: 1}).IsInitial() {
		t.Error("moved view reported as initial")
	}
}

func TestPan(t *testing.T) {
	p := NewProjection()
	start := View{Center: orb.Point{10, 0}, Zoom: 2}
	moved := p.Pan(start, 100, 0)
	if moved.Center.Lon() >= 10 {
		t.Errorf("dragging right should move center west, got %v", moved.Center)
	}
	if moved.Zoom != 2 {
		t.Errorf("Pan changed zoom to %v", moved.Zoom)
	}
	back := p.Pan(moved, -100, 0)
	if math.Abs(back.Center.Lon()-10) > 1e-6 {
		t.Errorf("Pan round trip = %v", back.Center)
	}
}

func TestScreen(t *testing.T) {
	p := NewProjection()
	v := View{Center: orb.Point{25, 64}, Zoom: 3}

	x, y := p.Screen(v, v.Center)
	if math.Abs(x-400) > 1e-9 || math.Abs(y-225) > 1e-9 {
		t.Errorf("Screen(center) = (%v, %v), want canvas center", x, y)
	}

	// Longitude 10 sits at the canvas center under the -10 rotation, so an
	// unzoomed view centered there leaves projected points unchanged.
	pt := orb.Point{30, 45}
	px, py := p.Project(pt)
	x, y = p.Screen(View{Center: orb.Point{10, 0}, Zoom: 1}, pt)
	if math.Abs(x-px) > 1e-9 || math.Abs(y-py) > 1e-9 {
		t.Errorf("Screen() = (%v, %v), want (%v, %v)", x, y, px, py)
	}
}

func TestFormatCoord(t *testing.T) {
	tests := map[float64]string{
		0:        "0",
		-0.001:   "0",
		1.5:      "1.5",
		400:      "400",
		-12.3456: "-12.35",
	}
	for in, want := range tests {
		if got := formatCoord(in); got != want {
			t.Errorf("formatCoord(%v) = %q, want %q", in, got, want)
		}
	}
}
