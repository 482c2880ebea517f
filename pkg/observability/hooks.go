// Package observability lets the binary attach instrumentation to the
// library packages without those packages importing a metrics backend.
//
// Libraries report through the package-level accessors:
//
//	observability.Pipeline().OnLoadStart(ctx, cache.KindMetrics, source)
//	observability.Cache().OnCacheMiss(ctx, "document")
//
// Until something is registered every accessor returns a no-op. The serve
// command registers the Prometheus collectors from internal/server once at
// startup; tests call [Reset] to go back to the no-ops.
package observability

import (
	"context"
	"sync"
	"time"
)

// PipelineHooks observes document loads and renders. kind is
// cache.KindMetrics or cache.KindFeatures.
type PipelineHooks interface {
	OnLoadStart(ctx context.Context, kind, source string)
	OnLoadComplete(ctx context.Context, kind, source string, records int, duration time.Duration, err error)
	OnRenderStart(ctx context.Context, formats []string)
	OnRenderComplete(ctx context.Context, formats []string, duration time.Duration, err error)
}

// CacheHooks observes cache lookups. keyType is "document" or "artifact".
type CacheHooks interface {
	OnCacheHit(ctx context.Context, keyType string)
	OnCacheMiss(ctx context.Context, keyType string)
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// HTTPHooks observes outgoing document fetches.
type HTTPHooks interface {
	OnRequest(ctx context.Context, method, host, path string)
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)
	// OnError reports a fetch that produced no response at all.
	OnError(ctx context.Context, method, host, path string, err error)
}

// WidgetHooks observes browser sessions on the server.
type WidgetHooks interface {
	// OnEvent reports one applied event by its wire name, e.g. "enter".
	OnEvent(ctx context.Context, event string)
	OnSessionCreated(ctx context.Context)
}

type (
	NoopPipelineHooks struct{}
	NoopCacheHooks    struct{}
	NoopHTTPHooks     struct{}
	NoopWidgetHooks   struct{}
)

func (NoopPipelineHooks) OnLoadStart(context.Context, string, string) {}

func (NoopPipelineHooks) OnLoadComplete(context.Context, string, string, int, time.Duration, error) {
}

func (NoopPipelineHooks) OnRenderStart(context.Context, []string) {}

func (NoopPipelineHooks) OnRenderComplete(context.Context, []string, time.Duration, error) {}

func (NoopCacheHooks) OnCacheHit(context.Context, string) {}

func (NoopCacheHooks) OnCacheMiss(context.Context, string) {}

func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string) {}

func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}

func (NoopHTTPHooks) OnError(context.Context, string, string, string, error) {}

func (NoopWidgetHooks) OnEvent(context.Context, string) {}

func (NoopWidgetHooks) OnSessionCreated(context.Context) {}

// slot holds one registered hook set and falls back to noop.
type slot[T any] struct {
	mu   sync.RWMutex
	cur  T
	set  bool
	noop T
}

func (s *slot[T]) get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.set {
		return s.noop
	}
	return s.cur
}

// store ignores nil so a caller cannot unregister by accident.
func (s *slot[T]) store(h T) {
	if any(h) == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur, s.set = h, true
}

func (s *slot[T]) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero T
	s.cur, s.set = zero, false
}

var (
	pipelineSlot = slot[PipelineHooks]{noop: NoopPipelineHooks{}}
	cacheSlot    = slot[CacheHooks]{noop: NoopCacheHooks{}}
	httpSlot     = slot[HTTPHooks]{noop: NoopHTTPHooks{}}
	widgetSlot   = slot[WidgetHooks]{noop: NoopWidgetHooks{}}
)

// SetPipelineHooks registers h. Call it once at startup; nil is ignored.
func SetPipelineHooks(h PipelineHooks) { pipelineSlot.store(h) }

// SetCacheHooks registers h. Call it once at startup; nil is ignored.
func SetCacheHooks(h CacheHooks) { cacheSlot.store(h) }

// SetHTTPHooks registers h. Call it once at startup; nil is ignored.
func SetHTTPHooks(h HTTPHooks) { httpSlot.store(h) }

// SetWidgetHooks registers h. Call it once at startup; nil is ignored.
func SetWidgetHooks(h WidgetHooks) { widgetSlot.store(h) }

func Pipeline() PipelineHooks { return pipelineSlot.get() }

func Cache() CacheHooks { return cacheSlot.get() }

func HTTP() HTTPHooks { return httpSlot.get() }

func Widget() WidgetHooks { return widgetSlot.get() }

// Reset unregisters every hook set.
func Reset() {
	pipelineSlot.reset()
	cacheSlot.reset()
	httpSlot.reset()
	widgetSlot.reset()
}
