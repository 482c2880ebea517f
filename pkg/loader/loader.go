package loader

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/countrymap/pkg/cache"
	"github.com/matzehuels/countrymap/pkg/colorscale"
	"github.com/matzehuels/countrymap/pkg/countries"
	"github.com/matzehuels/countrymap/pkg/errors"
	"github.com/matzehuels/countrymap/pkg/geo"
	"github.com/matzehuels/countrymap/pkg/observability"
	"github.com/matzehuels/countrymap/pkg/widget"
)

const httpTimeout = 10 * time.Second

// maxDocumentSize bounds a fetched document.
const maxDocumentSize = 64 << 20

// Document is one fetched source.
type Document struct {
	Kind   string
	Source string
	Data   []byte
	// Cached is true when Data came from the cache.
	Cached bool
}

// Hash returns the content hash of the document.
func (d Document) Hash() string {
	return cache.Hash(d.Data)
}

// Loader fetches documents with optional caching.
type Loader struct {
	http    *http.Client
	cache   cache.Cache
	keyer   cache.Keyer
	ttl     time.Duration
	headers map[string]string
	logger  *log.Logger
}

// New creates a Loader. A nil cache disables caching, a nil keyer uses the
// default keys and a nil logger discards output.
func New(c cache.Cache, keyer cache.Keyer, ttl time.Duration, logger *log.Logger) *Loader {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Loader{
		http:   &http.Client{Timeout: httpTimeout},
		cache:  c,
		keyer:  keyer,
		ttl:    ttl,
		logger: logger,
	}
}

// WithHTTPClient replaces the HTTP client.
func (l *Loader) WithHTTPClient(c *http.Client) *Loader {
	l.http = c
	return l
}

// WithHeaders sets headers sent with every remote fetch.
func (l *Loader) WithHeaders(h map[string]string) *Loader {
	l.headers = h
	return l
}

// Fetch reads source once. Remote sources are served from the cache unless
// refresh is set; they are not written back here, see [Loader.remember].
func (l *Loader) Fetch(ctx context.Context, kind, source string, refresh bool) (Document, error) {
	if err := errors.ValidateSource(source); err != nil {
		return Document{}, err
	}
	doc := Document{Kind: kind, Source: source}

	if !errors.IsURL(source) {
		data, err := os.ReadFile(source)
		if stderrors.Is(err, fs.ErrNotExist) {
			return doc, errors.Wrap(errors.ErrCodeFileNotFound, err, "%s document %s not found", kind, source)
		}
		if err != nil {
			return doc, errors.Wrap(errors.ErrCodeInternal, err, "read %s document", kind)
		}
		doc.Data = data
		return doc, nil
	}

	key := l.keyer.DocumentKey(kind, source)
	if !refresh {
		if data, hit, err := l.cache.Get(ctx, key); err == nil && hit {
			observability.Cache().OnCacheHit(ctx, "document")
			l.logger.Debug("document cache hit", "kind", kind, "source", source)
			doc.Data, doc.Cached = data, true
			return doc, nil
		}
		observability.Cache().OnCacheMiss(ctx, "document")
	}

	data, err := l.get(ctx, source)
	if err != nil {
		return doc, err
	}
	doc.Data = data
	return doc, nil
}

// remember stores a remote document that decoded successfully.
func (l *Loader) remember(ctx context.Context, doc Document) {
	if doc.Cached || !errors.IsURL(doc.Source) {
		return
	}
	key := l.keyer.DocumentKey(doc.Kind, doc.Source)
	if err := l.cache.Set(ctx, key, doc.Data, l.ttl); err != nil {
		l.logger.Warn("cache write failed", "kind", doc.Kind, "error", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, "document", len(doc.Data))
}

func (l *Loader) get(ctx context.Context, source string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "bad source URL")
	}
	for k, v := range l.headers {
		req.Header.Set(k, v)
	}

	u := req.URL
	hooks := observability.HTTP()
	hooks.OnRequest(ctx, http.MethodGet, u.Host, u.Path)
	start := time.Now()

	resp, err := l.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, http.MethodGet, u.Host, u.Path, err)
		if stderrors.Is(err, context.DeadlineExceeded) {
			return nil, errors.Wrap(errors.ErrCodeTimeout, err, "fetch %s timed out", source)
		}
		return nil, errors.Wrap(errors.ErrCodeNetwork, fmt.Errorf("%w: %v", cache.ErrNetwork, err), "fetch %s", source)
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, http.MethodGet, u.Host, u.Path, resp.StatusCode, time.Since(start))

	if err := checkStatus(resp.StatusCode); err != nil {
		return nil, errors.Wrap(errors.GetCode(err), err, "fetch %s", source)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "read %s", source)
	}
	return data, nil
}

func checkStatus(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return errors.Wrap(errors.ErrCodeNotFound, cache.ErrNotFound, "status %d", code)
	default:
		return errors.Wrap(errors.ErrCodeNetwork, cache.ErrNetwork, "status %d", code)
	}
}

// Metrics fetches and decodes the metrics document.
func (l *Loader) Metrics(ctx context.Context, source string, refresh bool) ([]countries.Metric, Document, error) {
	start := time.Now()
	observability.Pipeline().OnLoadStart(ctx, cache.KindMetrics, source)

	metrics, doc, err := l.metrics(ctx, source, refresh)
	observability.Pipeline().OnLoadComplete(ctx, cache.KindMetrics, source, len(metrics), time.Since(start), err)
	return metrics, doc, err
}

func (l *Loader) metrics(ctx context.Context, source string, refresh bool) ([]countries.Metric, Document, error) {
	doc, err := l.Fetch(ctx, cache.KindMetrics, source, refresh)
	if err != nil {
		return nil, doc, err
	}
	metrics, err := countries.Decode(bytes.NewReader(doc.Data))
	if err != nil {
		return nil, doc, errors.Wrap(errors.ErrCodeInvalidDocument, err, "metrics document %s", source)
	}
	l.remember(ctx, doc)
	l.logger.Debug("loaded metrics", "source", source, "records", len(metrics), "cached", doc.Cached)
	return metrics, doc, nil
}

// Features fetches and decodes the geometry document.
func (l *Loader) Features(ctx context.Context, source string, refresh bool) ([]geo.Feature, Document, error) {
	start := time.Now()
	observability.Pipeline().OnLoadStart(ctx, cache.KindFeatures, source)

	features, doc, err := l.features(ctx, source, refresh)
	observability.Pipeline().OnLoadComplete(ctx, cache.KindFeatures, source, len(features), time.Since(start), err)
	return features, doc, err
}

func (l *Loader) features(ctx context.Context, source string, refresh bool) ([]geo.Feature, Document, error) {
	doc, err := l.Fetch(ctx, cache.KindFeatures, source, refresh)
	if err != nil {
		return nil, doc, err
	}
	features, err := geo.Parse(doc.Data)
	if err != nil {
		return nil, doc, errors.Wrap(errors.ErrCodeInvalidDocument, err, "features document %s", source)
	}
	l.remember(ctx, doc)
	l.logger.Debug("loaded features", "source", source, "features", len(features), "cached", doc.Cached)
	return features, doc, nil
}

// Dataset loads the metrics document into a widget dataset, reporting
// LoadStarted and then LoadSucceeded or LoadFailed through emit. emit may
// be nil.
func (l *Loader) Dataset(ctx context.Context, source string, refresh bool, emit func(widget.Event), opts ...colorscale.Option) (*widget.Dataset, Document, error) {
	if emit == nil {
		emit = func(widget.Event) {}
	}
	emit(widget.LoadStarted{})

	metrics, doc, err := l.Metrics(ctx, source, refresh)
	if err != nil {
		l.logger.Error("metrics load failed", "source", source, "error", err)
		emit(widget.LoadFailed{Err: err})
		return nil, doc, err
	}

	data, err := widget.NewDataset(metrics, opts...)
	if err != nil {
		code := errors.ErrCodeInvalidColor
		if stderrors.Is(err, countries.ErrInvalidRequests) {
			code = errors.ErrCodeInvalidDocument
		}
		err = errors.Wrap(code, err, "metrics document %s", source)
		l.logger.Error("metrics rejected", "source", source, "error", err)
		emit(widget.LoadFailed{Err: err})
		return nil, doc, err
	}

	for _, name := range data.Index.Duplicates() {
		l.logger.Warn("duplicate country name, last record wins", "country", name)
	}
	emit(widget.LoadSucceeded{Data: data})
	return data, doc, nil
}
