// Package observability provides hooks for progress reporting, metrics and
// tracing of extraction runs.
//
// Three event families are defined: [PipelineHooks] (resolution, per-target
// extraction, table writes), [CacheHooks] (registry response cache) and
// [HTTPHooks] (crates.io requests). Each has a no-op implementation, and a
// process-wide registry holds the active set. Libraries never import a
// metrics backend; the binary registers whatever it needs at startup.
//
// # Usage
//
// Register hooks at application startup:
//
//	observability.SetHTTPHooks(&requestCounter{})
//
// A run can also be given its own pipeline hooks. [TeePipeline] combines
// them with the registered set, which is how the CLI drives its progress
// bar without displacing globally registered metrics:
//
//	opts.Hooks = observability.TeePipeline(bar, observability.Pipeline())
//
// Emitters call the hooks directly:
//
//	hooks.OnPhaseStart(ctx, "metadata", "serde@1.0.0")
//	// ... extract ...
//	hooks.OnPhaseComplete(ctx, "metadata", "serde@1.0.0", rows, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Pipeline Hooks
// =============================================================================

// PipelineHooks receives events from an extraction run.
// Implementations must be safe for concurrent use; phase events for
// different targets arrive from different goroutines.
type PipelineHooks interface {
	// Resolve events
	OnResolveStart(ctx context.Context, root string)
	OnResolveComplete(ctx context.Context, root string, targets int, duration time.Duration, err error)

	// Extraction events, one pair per (phase, target)
	OnPhaseStart(ctx context.Context, phase, target string)
	OnPhaseComplete(ctx context.Context, phase, target string, rows int, duration time.Duration, err error)

	// Write events, one per finalized table
	OnWriteComplete(ctx context.Context, phase string, rows int64, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from HTTP client operations.
type HTTPHooks interface {
	// OnRequest records an outgoing HTTP request.
	OnRequest(ctx context.Context, method, host, path string)

	// OnResponse records an HTTP response.
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)

	// OnError records an HTTP error (network failure, timeout).
	OnError(ctx context.Context, method, host, path string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnResolveStart(context.Context, string)                            {}
func (NoopPipelineHooks) OnResolveComplete(context.Context, string, int, time.Duration, error) {}
func (NoopPipelineHooks) OnPhaseStart(context.Context, string, string)                     {}
func (NoopPipelineHooks) OnPhaseComplete(context.Context, string, string, int, time.Duration, error) {
}
func (NoopPipelineHooks) OnWriteComplete(context.Context, string, int64, time.Duration, error) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	pipelineHooks PipelineHooks = NoopPipelineHooks{}
	cacheHooks    CacheHooks    = NoopCacheHooks{}
	httpHooks     HTTPHooks     = NoopHTTPHooks{}
	hooksMu       sync.RWMutex
)

// SetPipelineHooks registers custom pipeline hooks.
// This should be called once at application startup before any extraction run.
func SetPipelineHooks(h PipelineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		pipelineHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks.
// This should be called once at application startup before any HTTP operations.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return pipelineHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	pipelineHooks = NoopPipelineHooks{}
	cacheHooks = NoopCacheHooks{}
	httpHooks = NoopHTTPHooks{}
}
