package loader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matzehuels/countrymap/pkg/cache"
	"github.com/matzehuels/countrymap/pkg/errors"
	"github.com/matzehuels/countrymap/pkg/widget"
)

const metricsDoc = `{"countries":{"country":[
  {"countryCode":"FI","countryName":"Finland","requests":"42"},
  {"countryCode":"SE","countryName":"Sweden","requests":"1200"}
]}}`

const featuresDoc = `{"type":"FeatureCollection","features":[
  {"type":"Feature","properties":{"name":"Finland"},
   "geometry":{"type":"Polygon","coordinates":[[[20,60],[30,60],[30,70],[20,70],[20,60]]]}}
]}`

func serve(t *testing.T, status int, body string) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestFetchFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "country_requests_data.json")
	if err := os.WriteFile(path, []byte(metricsDoc), 0o644); err != nil {
		t.Fatal(err)
	}

	l := New(nil, nil, 0, nil)
	doc, err := l.Fetch(context.Background(), cache.KindMetrics, path, false)
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if string(doc.Data) != metricsDoc {
		t.Error("Fetch() returned different bytes than the file")
	}

	_, err = l.Fetch(context.Background(), cache.KindMetrics, filepath.Join(t.TempDir(), "missing.json"), false)
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("Fetch(missing) code = %v, want %v", errors.GetCode(err), errors.ErrCodeFileNotFound)
	}
}

func TestFetchStatus(t *testing.T) {
	tests := []struct {
		status   int
		wantCode errors.Code
	}{
		{http.StatusOK, ""},
		{http.StatusNotFound, errors.ErrCodeNotFound},
		{http.StatusInternalServerError, errors.ErrCodeNetwork},
		{http.StatusForbidden, errors.ErrCodeNetwork},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv, hits := serve(t, tt.status, metricsDoc)
			l := New(nil, nil, 0, nil)

			_, err := l.Fetch(context.Background(), cache.KindMetrics, srv.URL+"/country_requests_data.json", false)
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("Fetch() error: %v", err)
				}
			} else if !errors.Is(err, tt.wantCode) {
				t.Errorf("Fetch() code = %v, want %v", errors.GetCode(err), tt.wantCode)
			}
			if n := atomic.LoadInt32(hits); n != 1 {
				t.Errorf("server saw %d requests, want exactly 1", n)
			}
		})
	}
}

func TestFetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := New(nil, nil, 0, nil).Fetch(ctx, cache.KindMetrics, srv.URL, false)
	if !errors.Is(err, errors.ErrCodeTimeout) {
		t.Errorf("Fetch() code = %v, want %v", errors.GetCode(err), errors.ErrCodeTimeout)
	}
}

func TestFetchHeaders(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(metricsDoc))
	}))
	defer srv.Close()

	l := New(nil, nil, 0, nil).WithHeaders(map[string]string{"User-Agent": "countrymap-test"})
	if _, err := l.Fetch(context.Background(), cache.KindMetrics, srv.URL, false); err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if got != "countrymap-test" {
		t.Errorf("User-Agent = %q, want countrymap-test", got)
	}
}

func TestMetricsCachesRemote(t *testing.T) {
	srv, hits := serve(t, http.StatusOK, metricsDoc)
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	l := New(fc, nil, time.Hour, nil)
	ctx := context.Background()

	first, doc, err := l.Metrics(ctx, srv.URL, false)
	if err != nil {
		t.Fatalf("Metrics() error: %v", err)
	}
	if doc.Cached {
		t.Error("first Metrics() reported a cache hit")
	}

	second, doc, err := l.Metrics(ctx, srv.URL, false)
	if err != nil {
		t.Fatalf("Metrics() error: %v", err)
	}
	if !doc.Cached {
		t.Error("second Metrics() should come from the cache")
	}
	if len(first) != 2 || len(second) != 2 {
		t.Errorf("record counts = %d, %d, want 2, 2", len(first), len(second))
	}
	if n := atomic.LoadInt32(hits); n != 1 {
		t.Errorf("server saw %d requests, want 1", n)
	}

	if _, _, err := l.Metrics(ctx, srv.URL, true); err != nil {
		t.Fatalf("Metrics(refresh) error: %v", err)
	}
	if n := atomic.LoadInt32(hits); n != 2 {
		t.Errorf("refresh should refetch, server saw %d requests", n)
	}
}

func TestMetricsInvalidNotCached(t *testing.T) {
	srv, hits := serve(t, http.StatusOK, `{"not":"metrics"}`)
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	l := New(fc, nil, time.Hour, nil)

	for i := 0; i < 2; i++ {
		_, _, err := l.Metrics(context.Background(), srv.URL, false)
		if !errors.Is(err, errors.ErrCodeInvalidDocument) {
			t.Fatalf("Metrics() code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidDocument)
		}
	}
	if n := atomic.LoadInt32(hits); n != 2 {
		t.Errorf("invalid document was cached: server saw %d requests", n)
	}
}

func TestFeatures(t *testing.T) {
	srv, _ := serve(t, http.StatusOK, featuresDoc)

	features, doc, err := New(nil, nil, 0, nil).Features(context.Background(), srv.URL+"/features.json", false)
	if err != nil {
		t.Fatalf("Features() error: %v", err)
	}
	if len(features) != 1 || features[0].Name != "Finland" {
		t.Errorf("Features() = %+v", features)
	}
	if doc.Hash() != cache.Hash([]byte(featuresDoc)) {
		t.Error("Document.Hash() does not match the content hash")
	}
}

func TestDatasetEvents(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantPhase widget.LoadPhase
		wantCode  errors.Code
	}{
		{"loaded", http.StatusOK, metricsDoc, widget.Loaded, ""},
		{"server error", http.StatusBadGateway, "", widget.Failed, errors.ErrCodeNetwork},
		{"malformed", http.StatusOK, `[]`, widget.Failed, errors.ErrCodeInvalidDocument},
		{"non-numeric requests", http.StatusOK,
			`{"countries":{"country":[{"countryCode":"FI","countryName":"Finland","requests":"n/a"}]}}`,
			widget.Failed, errors.ErrCodeInvalidDocument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := serve(t, tt.status, tt.body)

			var events []widget.Event
			data, _, err := New(nil, nil, 0, nil).Dataset(context.Background(), srv.URL, false, func(e widget.Event) {
				events = append(events, e)
			})

			if len(events) != 2 {
				t.Fatalf("emitted %d events, want 2", len(events))
			}
			if _, ok := events[0].(widget.LoadStarted); !ok {
				t.Errorf("first event = %T, want LoadStarted", events[0])
			}

			s := widget.ApplyAll(widget.New(), events...)
			if s.Load.Phase != tt.wantPhase {
				t.Errorf("phase = %v, want %v", s.Load.Phase, tt.wantPhase)
			}

			if tt.wantCode == "" {
				if err != nil || data == nil {
					t.Fatalf("Dataset() = %v, %v", data, err)
				}
				if data.Max != 1200 {
					t.Errorf("Max = %d, want 1200", data.Max)
				}
				return
			}
			if !errors.Is(err, tt.wantCode) {
				t.Errorf("Dataset() code = %v, want %v", errors.GetCode(err), tt.wantCode)
			}
			if s.Load.Err == nil {
				t.Error("Failed state should carry the error")
			}
		})
	}
}

func TestDatasetNilEmit(t *testing.T) {
	srv, _ := serve(t, http.StatusOK, metricsDoc)
	if _, _, err := New(nil, nil, 0, nil).Dataset(context.Background(), srv.URL, false, nil); err != nil {
		t.Fatalf("Dataset() error: %v", err)
	}
}
