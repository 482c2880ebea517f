package observability

import (
	"context"
	"sync"
	"testing"
	"time"
)

type recordingWidget struct {
	NoopWidgetHooks
	mu     sync.Mutex
	events []string
}

func (r *recordingWidget) OnEvent(_ context.Context, event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

type countingPipeline struct {
	NoopPipelineHooks
	loads int
}

func (c *countingPipeline) OnLoadComplete(context.Context, string, string, int, time.Duration, error) {
	c.loads++
}

func TestDefaultsAreNoop(t *testing.T) {
	Reset()
	ctx := context.Background()

	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Errorf("Pipeline() = %T, want NoopPipelineHooks", Pipeline())
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Errorf("Cache() = %T, want NoopCacheHooks", Cache())
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Errorf("HTTP() = %T, want NoopHTTPHooks", HTTP())
	}
	if _, ok := Widget().(NoopWidgetHooks); !ok {
		t.Errorf("Widget() = %T, want NoopWidgetHooks", Widget())
	}

	Pipeline().OnLoadComplete(ctx, "metrics", "country_requests_data.json", 42, time.Second, nil)
	Cache().OnCacheSet(ctx, "artifact", 1024)
	HTTP().OnError(ctx, "GET", "example.com", "/features.json", nil)
	Widget().OnSessionCreated(ctx)
}

func TestRegisterAndReset(t *testing.T) {
	Reset()
	t.Cleanup(Reset)
	ctx := context.Background()

	w := &recordingWidget{}
	SetWidgetHooks(w)
	p := &countingPipeline{}
	SetPipelineHooks(p)

	Widget().OnEvent(ctx, "enter")
	Widget().OnEvent(ctx, "select")
	Pipeline().OnLoadComplete(ctx, "features", "features.json", 3, time.Millisecond, nil)

	if len(w.events) != 2 || w.events[0] != "enter" || w.events[1] != "select" {
		t.Errorf("recorded events = %v", w.events)
	}
	if p.loads != 1 {
		t.Errorf("loads = %d, want 1", p.loads)
	}

	Reset()
	Widget().OnEvent(ctx, "leave")
	if len(w.events) != 2 {
		t.Error("hooks still called after Reset")
	}
}

func TestSetNilIsIgnored(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	w := &recordingWidget{}
	SetWidgetHooks(w)
	SetWidgetHooks(nil)
	SetCacheHooks(nil)

	if Widget() != WidgetHooks(w) {
		t.Error("SetWidgetHooks(nil) replaced the registered hooks")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("SetCacheHooks(nil) should leave the no-op in place")
	}
}

func TestConcurrentUse(t *testing.T) {
	Reset()
	t.Cleanup(Reset)
	ctx := context.Background()

	w := &recordingWidget{}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			SetWidgetHooks(w)
			Widget().OnEvent(ctx, "moveend")
		}()
	}
	wg.Wait()

	if len(w.events) != 8 {
		t.Errorf("events = %d, want 8", len(w.events))
	}
}
