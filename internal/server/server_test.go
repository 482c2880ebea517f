package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/matzehuels/countrymap/pkg/errors"
	"github.com/matzehuels/countrymap/pkg/loader"
	"github.com/matzehuels/countrymap/pkg/pipeline"
	"github.com/matzehuels/countrymap/pkg/session"
)

const testMetrics = `{"countries":{"country":[
  {"countryCode":"FI","countryName":"Finland","requests":"42"},
  {"countryCode":"SE","countryName":"Sweden","requests":"100"}
]}}`

const testFeatures = `{"type":"FeatureCollection","features":[
  {"type":"Feature","properties":{"name":"Finland"},
   "geometry":{"type":"Polygon","coordinates":[[[20,60],[30,60],[30,70],[20,70],[20,60]]]}},
  {"type":"Feature","properties":{"name":"Sweden"},
   "geometry":{"type":"Polygon","coordinates":[[[11,55],[20,55],[20,68],[11,68],[11,55]]]}},
  {"type":"Feature","properties":{"name":"Norway"},
   "geometry":{"type":"Polygon","coordinates":[[[5,58],[11,58],[11,70],[5,70],[5,58]]]}}
]}`

// newTestServer starts a server over temp documents. An empty metrics
// string leaves the metrics document missing.
func newTestServer(t *testing.T, metrics string, store session.Store, reg *prometheus.Registry) (*Server, *httptest.Server) {
	t.Helper()
	dir := t.TempDir()
	metricsPath := filepath.Join(dir, "country_requests_data.json")
	featuresPath := filepath.Join(dir, "features.json")
	if metrics != "" {
		if err := os.WriteFile(metricsPath, []byte(metrics), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(featuresPath, []byte(testFeatures), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := New(Options{
		Loader:   loader.New(nil, nil, 0, nil),
		Store:    store,
		Pipeline: pipeline.Options{MetricsSource: metricsPath, FeaturesSource: featuresPath, Legend: true},
		Registry: reg,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_ = s.Load(context.Background())

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		_ = s.Close()
	})
	return s, ts
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func postJSON(t *testing.T, url, body string, out any) int {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func createSession(t *testing.T, ts *httptest.Server) sessionResponse {
	t.Helper()
	var s sessionResponse
	if code := postJSON(t, ts.URL+"/api/sessions", "", &s); code != http.StatusCreated {
		t.Fatalf("create session status = %d", code)
	}
	return s
}

func TestNewRequiresLoader(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Error("expected error without a loader")
	}
}

func TestIndex(t *testing.T) {
	_, ts := newTestServer(t, testMetrics, nil, nil)

	resp, body := get(t, ts.URL+"/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	for _, want := range []string{
		`placeholder="Hae maa..."`,
		`Reset Zoom`,
		`<svg xmlns="http://www.w3.org/2000/svg" class="countrymap"`,
		`data-name="Finland"`,
		`class="legend"`,
		`<script src="/map.js">`,
		`data-phase="loaded"`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("index missing %q", want)
		}
	}

	resp, body = get(t, ts.URL+"/map.js")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "/api/sessions") {
		t.Errorf("map.js status = %d", resp.StatusCode)
	}
}

func TestDocuments(t *testing.T) {
	_, ts := newTestServer(t, testMetrics, nil, nil)

	tests := []struct {
		path string
		want string
	}{
		{"/features.json", `"FeatureCollection"`},
		{"/country_requests_data.json", `"countryCode":"FI"`},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, body := get(t, ts.URL+tt.path)
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d", resp.StatusCode)
			}
			if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
				t.Errorf("content type = %q", ct)
			}
			if !strings.Contains(body, tt.want) {
				t.Errorf("body missing %q", tt.want)
			}
		})
	}
}

func TestMetricsFailure(t *testing.T) {
	_, ts := newTestServer(t, "", nil, nil)

	resp, body := get(t, ts.URL+"/country_requests_data.json")
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", resp.StatusCode)
	}
	var e errorBody
	if err := json.Unmarshal([]byte(body), &e); err != nil {
		t.Fatal(err)
	}
	if e.Code != errors.ErrCodeFileNotFound {
		t.Errorf("code = %q", e.Code)
	}

	// The map still renders with neutral fills.
	resp, body = get(t, ts.URL+"/map.svg")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("map status = %d", resp.StatusCode)
	}
	if !strings.Contains(body, `fill="#eeeeee"`) {
		t.Error("countries should use the fallback fill")
	}

	_, body = get(t, ts.URL+"/healthz")
	if !strings.Contains(body, `"load":"failed"`) {
		t.Errorf("healthz = %s", body)
	}
}

func TestCountries(t *testing.T) {
	_, ts := newTestServer(t, testMetrics, nil, nil)

	tests := []struct {
		name   string
		query  string
		status int
		want   []string
	}{
		{"empty", "", http.StatusOK, nil},
		{"case insensitive", "FIN", http.StatusOK, []string{"Finland"}},
		{"substring", "e", http.StatusOK, []string{"Sweden"}},
		{"no match", "xyz", http.StatusOK, nil},
		{"too long", strings.Repeat("a", errors.MaxQueryLength+1), http.StatusBadRequest, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := get(t, ts.URL+"/api/countries?q="+tt.query)
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if tt.status != http.StatusOK {
				return
			}
			var got countriesResponse
			if err := json.Unmarshal([]byte(body), &got); err != nil {
				t.Fatal(err)
			}
			if len(got.Results) != len(tt.want) {
				t.Fatalf("results = %v, want %v", got.Results, tt.want)
			}
			for i, name := range tt.want {
				if got.Results[i].CountryName != name {
					t.Errorf("result %d = %q, want %q", i, got.Results[i].CountryName, name)
				}
			}
		})
	}
}

func TestSessionEvents(t *testing.T) {
	_, ts := newTestServer(t, testMetrics, nil, nil)
	s := createSession(t, ts)
	events := ts.URL + "/api/sessions/" + s.ID + "/events"

	if s.State.Zoom != 1 || s.Load != "loaded" {
		t.Fatalf("new session = %+v", s)
	}

	var got sessionResponse
	if code := postJSON(t, events, `{"type":"enter","country":"Finland","x":100,"y":50}`, &got); code != http.StatusOK {
		t.Fatalf("enter status = %d", code)
	}
	if got.Tooltip == nil || got.Tooltip.X != 110 || got.Tooltip.Y != 50 {
		t.Fatalf("tooltip = %+v", got.Tooltip)
	}
	if strings.Join(got.Tooltip.Lines, "|") != "Finland|Requests: 42" {
		t.Errorf("tooltip lines = %v", got.Tooltip.Lines)
	}

	postJSON(t, events, `{"type":"leave"}`, &got)
	if got.Tooltip != nil {
		t.Error("tooltip should hide on leave")
	}

	postJSON(t, events, `{"type":"search","query":"swe"}`, &got)
	if got.State.Query != "swe" || len(got.Results) != 1 || got.Results[0].CountryName != "Sweden" {
		t.Errorf("search = %+v", got)
	}

	_, svg := get(t, ts.URL+"/map.svg?session="+s.ID)
	if !strings.Contains(svg, `class="country highlight" data-name="Sweden"`) {
		t.Error("Sweden should be highlighted in the session map")
	}

	postJSON(t, events, `{"type":"select","country":"Finland"}`, &got)
	if got.State.Zoom != 3 || got.State.Center != [2]float64{25, 65} || got.State.Query != "" {
		t.Errorf("select state = %+v", got.State)
	}

	postJSON(t, events, `{"type":"reset"}`, &got)
	if got.State.Zoom != 1 || got.State.Center != [2]float64{0, 0} {
		t.Errorf("reset state = %+v", got.State)
	}

	postJSON(t, events, `{"type":"moveend","lon":10,"lat":20,"zoom":2}`, &got)
	if got.State.Zoom != 2 || got.State.Center != [2]float64{10, 20} {
		t.Errorf("moveend state = %+v", got.State)
	}

	var fetched sessionResponse
	_, body := get(t, ts.URL+"/api/sessions/"+s.ID)
	if err := json.Unmarshal([]byte(body), &fetched); err != nil {
		t.Fatal(err)
	}
	if fetched.State != got.State {
		t.Errorf("stored state = %+v, want %+v", fetched.State, got.State)
	}
}

func TestEventErrors(t *testing.T) {
	_, ts := newTestServer(t, testMetrics, nil, nil)
	s := createSession(t, ts)
	events := ts.URL + "/api/sessions/" + s.ID + "/events"

	tests := []struct {
		name   string
		body   string
		status int
		code   errors.Code
	}{
		{"malformed", `{`, http.StatusBadRequest, errors.ErrCodeInvalidEvent},
		{"unknown field", `{"type":"reset","foo":1}`, http.StatusBadRequest, errors.ErrCodeInvalidEvent},
		{"unknown type", `{"type":"click"}`, http.StatusBadRequest, errors.ErrCodeInvalidEvent},
		{"enter without country", `{"type":"enter"}`, http.StatusBadRequest, errors.ErrCodeInvalidEvent},
		{"select unknown", `{"type":"select","country":"Atlantis"}`, http.StatusNotFound, errors.ErrCodeCountryNotFound},
		{"bad view", `{"type":"moveend","lon":200,"lat":0,"zoom":1}`, http.StatusBadRequest, errors.ErrCodeInvalidView},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e errorBody
			if code := postJSON(t, events, tt.body, &e); code != tt.status {
				t.Errorf("status = %d, want %d", code, tt.status)
			}
			if e.Code != tt.code {
				t.Errorf("code = %q, want %q", e.Code, tt.code)
			}
		})
	}
}

// slowStore widens the window between reading and writing a session.
type slowStore struct {
	*session.MemoryStore
	delay time.Duration
}

func (s slowStore) Get(ctx context.Context, id string) (*session.Session, error) {
	sess, err := s.MemoryStore.Get(ctx, id)
	time.Sleep(s.delay)
	return sess, err
}

func TestConcurrentEventsKeepOrder(t *testing.T) {
	store := slowStore{MemoryStore: session.NewMemoryStore(), delay: 30 * time.Millisecond}
	srv, ts := newTestServer(t, testMetrics, store, nil)
	sess := createSession(t, ts)
	events := ts.URL + "/api/sessions/" + sess.ID + "/events"

	bodies := []string{
		`{"type":"search","query":"fin"}`,
		`{"type":"enter","country":"Sweden","x":10,"y":20}`,
	}
	statuses := make(chan int, len(bodies))
	var wg sync.WaitGroup
	for _, body := range bodies {
		body := body
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := http.Post(events, "application/json", strings.NewReader(body))
			if err != nil {
				statuses <- 0
				return
			}
			resp.Body.Close()
			statuses <- resp.StatusCode
		}()
	}
	wg.Wait()
	close(statuses)
	for code := range statuses {
		if code != http.StatusOK {
			t.Errorf("event status = %d, want 200", code)
		}
	}

	var got sessionResponse
	resp, body := get(t, ts.URL+"/api/sessions/"+sess.ID)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET session status = %d", resp.StatusCode)
	}
	if err := json.Unmarshal([]byte(body), &got); err != nil {
		t.Fatal(err)
	}
	if got.State.Query != "fin" {
		t.Errorf("query = %q, want %q (search event lost)", got.State.Query, "fin")
	}
	if !got.State.Hovering || got.State.Country != "Sweden" {
		t.Errorf("hover = %v %q, want Sweden (enter event lost)", got.State.Hovering, got.State.Country)
	}
	if n := srv.sessions.held(); n != 0 {
		t.Errorf("%d session locks left behind", n)
	}
}

func TestKeyedMutex(t *testing.T) {
	var k keyedMutex

	count := 0
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.lock("a")
			defer unlock()
			n := count
			time.Sleep(time.Millisecond)
			count = n + 1
		}()
	}
	wg.Wait()
	if count != 20 {
		t.Errorf("count = %d, want 20", count)
	}

	unlockA := k.lock("a")
	done := make(chan struct{})
	go func() {
		k.lock("b")()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on another key blocked")
	}
	unlockA()

	if n := k.held(); n != 0 {
		t.Errorf("held() = %d after all unlocks", n)
	}
}

func TestSessionLookupErrors(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()
	expired, _ := session.New(time.Minute)
	expired.ExpiresAt = time.Now().Add(-time.Minute)
	gone, _ := session.New(time.Minute)
	gone.ExpiresAt = time.Now().Add(-2 * session.ExpiredRetention)
	for _, sess := range []*session.Session{expired, gone} {
		if err := store.Set(ctx, sess); err != nil {
			t.Fatal(err)
		}
	}
	_, ts := newTestServer(t, testMetrics, store, nil)

	tests := []struct {
		name   string
		id     string
		status int
	}{
		{"malformed id", "not-a-uuid", http.StatusBadRequest},
		{"unknown", "1b4e28ba-2fa1-11d2-883f-0016d3cca427", http.StatusNotFound},
		{"expired", expired.ID, http.StatusGone},
		{"past retention", gone.ID, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := get(t, ts.URL+"/api/sessions/"+tt.id)
			if resp.StatusCode != tt.status {
				t.Errorf("GET status = %d, want %d", resp.StatusCode, tt.status)
			}
			resp, _ = get(t, ts.URL+"/map.svg?session="+tt.id)
			if resp.StatusCode != tt.status {
				t.Errorf("map status = %d, want %d", resp.StatusCode, tt.status)
			}
			code := postJSON(t, ts.URL+"/api/sessions/"+tt.id+"/events", `{"type":"leave"}`, nil)
			if code != tt.status {
				t.Errorf("event status = %d, want %d", code, tt.status)
			}
		})
	}
}

func TestPrometheusMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, ts := newTestServer(t, testMetrics, nil, reg)

	s := createSession(t, ts)
	postJSON(t, ts.URL+"/api/sessions/"+s.ID+"/events", `{"type":"search","query":"fin"}`, nil)

	resp, body := get(t, ts.URL+"/metrics")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	for _, want := range []string{
		`countrymap_metrics_loaded 1`,
		`countrymap_sessions_created_total 1`,
		`countrymap_widget_events_total{type="search"} 1`,
		`countrymap_http_requests_total{code="201",route="/api/sessions"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestNoMetricsRouteWithoutRegistry(t *testing.T) {
	_, ts := newTestServer(t, testMetrics, nil, nil)
	resp, _ := get(t, ts.URL+"/metrics")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestListenAndServeShutdown(t *testing.T) {
	s, _ := newTestServer(t, testMetrics, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0", time.Second, time.Second, time.Second) }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not shut down")
	}
}
