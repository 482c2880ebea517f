package server

import (
	"context"
	_ "embed"
	"encoding/json"
	stderrors "errors"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/countrymap/pkg/countries"
	"github.com/matzehuels/countrymap/pkg/errors"
	"github.com/matzehuels/countrymap/pkg/observability"
	"github.com/matzehuels/countrymap/pkg/render"
	"github.com/matzehuels/countrymap/pkg/session"
	"github.com/matzehuels/countrymap/pkg/widget"
)

// SearchPlaceholder is the search input's placeholder text.
const SearchPlaceholder = "Hae maa..."

// maxEventBody bounds an event request body.
const maxEventBody = 4 << 10

var (
	//go:embed assets/index.html
	indexHTML string

	//go:embed assets/map.js
	mapJS []byte

	indexTmpl = template.Must(template.New("index").Parse(indexHTML))
)

type indexData struct {
	Placeholder string
	Map         template.HTML
	Phase       string
	Error       string
}

type countriesResponse struct {
	Query   string             `json:"query"`
	Load    string             `json:"load"`
	Results []countries.Metric `json:"results"`
}

type sessionResponse struct {
	ID        string              `json:"id"`
	Load      string              `json:"load"`
	State     widget.Snapshot     `json:"state"`
	Tooltip   *widget.TooltipView `json:"tooltip,omitempty"`
	Results   []countries.Metric  `json:"results"`
	Transform string              `json:"transform"`
	ExpiresAt time.Time           `json:"expiresAt"`
}

func (s *Server) scene(state widget.State, docs documents) render.Scene {
	return render.Scene{
		Features:   docs.features,
		State:      state,
		Projection: s.opts.Projection(),
		Fallback:   s.fallback(docs),
	}
}

func (s *Server) fallback(docs documents) string {
	if d := docs.load.Data; d != nil {
		return d.Scale.Fallback()
	}
	return s.opts.FallbackColor()
}

func (s *Server) svgOptions(r *http.Request) []render.SVGOption {
	opts := []render.SVGOption{render.WithTooltip()}
	if s.opts.Legend {
		opts = append(opts, render.WithLegend())
	}
	if r.URL.Query().Get("results") != "" {
		opts = append(opts, render.WithResults(10))
	}
	return opts
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	docs := s.snapshot()
	state := widget.New()
	state.Load = docs.load

	data := indexData{
		Placeholder: SearchPlaceholder,
		Map:         template.HTML(render.RenderSVG(s.scene(state, docs), s.svgOptions(r)...)),
		Phase:       docs.load.Phase.String(),
	}
	if docs.load.Err != nil {
		data.Error = errors.UserMessage(docs.load.Err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTmpl.Execute(w, data); err != nil {
		s.logger.Error("render index", "error", err)
	}
}

func (s *Server) handleScript(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	_, _ = w.Write(mapJS)
}

func (s *Server) handleFeatures(w http.ResponseWriter, r *http.Request) {
	docs := s.snapshot()
	s.writeDocument(w, r, docs.featuresRaw, docs.featuresErr)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	docs := s.snapshot()
	s.writeDocument(w, r, docs.metricsRaw, docs.metricsErr)
}

// writeDocument serves a raw document. A failed fetch is always a 502:
// the document is upstream of this server whatever the cause was.
func (s *Server) writeDocument(w http.ResponseWriter, r *http.Request, data []byte, err error) {
	if err == nil && data == nil {
		err = errors.New(errors.ErrCodeNotLoaded, "document not loaded yet")
	}
	if err != nil {
		code := errors.GetCode(err)
		if code == "" {
			code = errors.ErrCodeNetwork
		}
		writeJSON(w, http.StatusBadGateway, errorBody{Code: code, Message: errors.UserMessage(err)})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	docs := s.snapshot()
	state := widget.New()
	state.Load = docs.load

	if id := r.URL.Query().Get("session"); id != "" {
		sess, err := s.session(r.Context(), id)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		state = widget.Restore(sess.State, docs.load)
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(render.RenderSVG(s.scene(state, docs), s.svgOptions(r)...))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	docs := s.snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"load":     docs.load.Phase.String(),
		"features": len(docs.features),
	})
}

func (s *Server) handleCountries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if err := errors.ValidateQuery(q); err != nil {
		s.writeError(w, r, err)
		return
	}

	docs := s.snapshot()
	var metrics []countries.Metric
	if docs.load.Data != nil {
		metrics = docs.load.Data.Metrics
	}
	results := countries.Filter(q, metrics)
	if results == nil {
		results = []countries.Metric{}
	}
	writeJSON(w, http.StatusOK, countriesResponse{
		Query:   q,
		Load:    docs.load.Phase.String(),
		Results: results,
	})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := session.New(s.ttl)
	if err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInternal, err, "create session"))
		return
	}
	if err := s.store.Set(r.Context(), sess); err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInternal, err, "store session"))
		return
	}
	observability.Widget().OnSessionCreated(r.Context())
	s.logger.Debug("session created", "id", sess.ID)

	writeJSON(w, http.StatusCreated, s.sessionResponse(sess, s.snapshot()))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.sessionResponse(sess, s.snapshot()))
}

// handleEvent applies one event. Events for the same session run one at a
// time, so each read-apply-write sees the previous event's result.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	var req eventRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEventBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInvalidEvent, err, "malformed event"))
		return
	}
	if err := errors.ValidateSessionID(id); err != nil {
		s.writeError(w, r, err)
		return
	}

	unlock := s.sessions.lock(id)
	defer unlock()

	sess, err := s.session(ctx, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	docs := s.snapshot()
	state := widget.Restore(sess.State, docs.load)
	event, err := toEvent(req, state, docs.features, s.opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	state = widget.Apply(state, event)
	sess.Touch(widget.Snap(state), s.ttl)
	if err := s.store.Set(ctx, sess); err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInternal, err, "store session"))
		return
	}
	observability.Widget().OnEvent(ctx, req.Type)

	writeJSON(w, http.StatusOK, s.sessionResponse(sess, docs))
}

// session loads and validates a session by ID.
func (s *Server) session(ctx context.Context, id string) (*session.Session, error) {
	if err := errors.ValidateSessionID(id); err != nil {
		return nil, err
	}
	sess, err := s.store.Get(ctx, id)
	switch {
	case stderrors.Is(err, session.ErrExpired):
		return nil, errors.Wrap(errors.ErrCodeSessionExpired, err, "session %s expired", id)
	case stderrors.Is(err, session.ErrNotFound):
		return nil, errors.Wrap(errors.ErrCodeSessionNotFound, err, "session %s not found", id)
	case err != nil:
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "load session")
	case sess == nil:
		return nil, errors.New(errors.ErrCodeSessionNotFound, "session %s not found", id)
	case sess.IsExpired():
		return nil, errors.New(errors.ErrCodeSessionExpired, "session %s expired", id)
	}
	return sess, nil
}

func (s *Server) sessionResponse(sess *session.Session, docs documents) sessionResponse {
	state := widget.Restore(sess.State, docs.load)
	resp := sessionResponse{
		ID:        sess.ID,
		Load:      docs.load.Phase.String(),
		State:     sess.State,
		Results:   widget.Results(state),
		Transform: s.opts.Projection().ZoomTransform(state.View),
		ExpiresAt: sess.ExpiresAt,
	}
	if resp.Results == nil {
		resp.Results = []countries.Metric{}
	}
	if tip, ok := widget.Tooltip(state); ok {
		resp.Tooltip = &tip
	}
	return resp
}
