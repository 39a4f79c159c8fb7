package observability

import (
	"context"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	// Pipeline hooks
	p := NoopPipelineHooks{}
	p.OnResolveStart(ctx, "demo@0.1.0")
	p.OnResolveComplete(ctx, "demo@0.1.0", 12, time.Second, nil)
	p.OnPhaseStart(ctx, "metadata", "serde@1.0.0")
	p.OnPhaseComplete(ctx, "metadata", "serde@1.0.0", 1, time.Second, nil)
	p.OnWriteComplete(ctx, "metadata", 12, time.Second, nil)

	// Cache hooks
	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "crates")
	c.OnCacheMiss(ctx, "crates")
	c.OnCacheSet(ctx, "crates", 1024)

	// HTTP hooks
	h := NoopHTTPHooks{}
	h.OnRequest(ctx, "GET", "crates.io", "/api/v1/crates/serde")
	h.OnResponse(ctx, "GET", "crates.io", "/api/v1/crates/serde", 200, time.Second)
	h.OnError(ctx, "GET", "crates.io", "/api/v1/crates/serde", nil)
}

func TestGlobalHooksRegistry(t *testing.T) {
	// Reset to known state
	Reset()

	// Verify defaults are noop
	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Pipeline() should return NoopPipelineHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should return NoopHTTPHooks by default")
	}

	// Set custom hooks
	customPipeline := &testPipelineHooks{}
	SetPipelineHooks(customPipeline)
	if Pipeline() != customPipeline {
		t.Error("SetPipelineHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	customHTTP := &testHTTPHooks{}
	SetHTTPHooks(customHTTP)
	if HTTP() != customHTTP {
		t.Error("SetHTTPHooks should set custom hooks")
	}

	// Reset and verify
	Reset()
	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Reset() should restore NoopPipelineHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testPipelineHooks{}
	SetPipelineHooks(custom)

	// Setting nil should be ignored
	SetPipelineHooks(nil)

	if Pipeline() != custom {
		t.Error("SetPipelineHooks(nil) should be ignored")
	}

	Reset()
}

func TestTeePipeline(t *testing.T) {
	ctx := context.Background()
	a, b := &countingPipelineHooks{}, &countingPipelineHooks{}

	tee := TeePipeline(a, nil, b)
	tee.OnResolveStart(ctx, "demo@0.1.0")
	tee.OnPhaseComplete(ctx, "metadata", "demo@0.1.0", 1, time.Millisecond, nil)
	tee.OnPhaseComplete(ctx, "metadata", "serde@1.0.0", 1, time.Millisecond, nil)
	tee.OnWriteComplete(ctx, "metadata", 2, time.Millisecond, nil)

	for name, h := range map[string]*countingPipelineHooks{"first": a, "second": b} {
		if h.events != 4 {
			t.Errorf("%s hooks saw %d events, want 4", name, h.events)
		}
	}
}

func TestTeePipelineCollapses(t *testing.T) {
	only := &countingPipelineHooks{}
	if got := TeePipeline(nil, only); got != PipelineHooks(only) {
		t.Errorf("TeePipeline with one hook = %T, want the hook itself", got)
	}
	if _, ok := TeePipeline().(NoopPipelineHooks); !ok {
		t.Error("TeePipeline() should be a no-op")
	}
}

// Test implementations
type countingPipelineHooks struct {
	NoopPipelineHooks
	events int
}

func (h *countingPipelineHooks) OnResolveStart(context.Context, string) { h.events++ }
func (h *countingPipelineHooks) OnPhaseComplete(context.Context, string, string, int, time.Duration, error) {
	h.events++
}
func (h *countingPipelineHooks) OnWriteComplete(context.Context, string, int64, time.Duration, error) {
	h.events++
}

type testPipelineHooks struct{ NoopPipelineHooks }
type testCacheHooks struct{ NoopCacheHooks }
type testHTTPHooks struct{ NoopHTTPHooks }
