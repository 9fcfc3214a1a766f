// Package observability provides hooks for metrics and tracing.
//
// The pipeline emits events about its stages without depending on any
// observability backend. Consumers register hook implementations at
// startup; libraries call the registered hooks to emit events.
//
//	func main() {
//	    observability.SetPipelineHooks(&myPipelineHooks{})
//	    // ... run application
//	}
//
// Registration by main avoids import cycles and keeps the core library
// free of framework dependencies.
package observability

import (
	"context"
	"sync"
	"time"
)

// PipelineHooks receives events from the comparison pipeline.
type PipelineHooks interface {
	// Parse events
	OnParseStart(ctx context.Context, title string)
	OnParseComplete(ctx context.Context, title string, leafCount int, duration time.Duration, err error)

	// Layout events
	OnLayoutStart(ctx context.Context, title string, nodeCount int)
	OnLayoutComplete(ctx context.Context, title string, duration time.Duration, err error)

	// Match events
	OnMatchStart(ctx context.Context, source, target string, minLeaves int)
	OnMatchComplete(ctx context.Context, source, target string, matchCount int, duration time.Duration, err error)
}

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnParseStart(context.Context, string)                                  {}
func (NoopPipelineHooks) OnParseComplete(context.Context, string, int, time.Duration, error)    {}
func (NoopPipelineHooks) OnLayoutStart(context.Context, string, int)                            {}
func (NoopPipelineHooks) OnLayoutComplete(context.Context, string, time.Duration, error)        {}
func (NoopPipelineHooks) OnMatchStart(context.Context, string, string, int)                     {}
func (NoopPipelineHooks) OnMatchComplete(context.Context, string, string, int, time.Duration, error) {
}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

var (
	mu            sync.RWMutex
	pipelineHooks PipelineHooks = NoopPipelineHooks{}
	cacheHooks    CacheHooks    = NoopCacheHooks{}
)

// SetPipelineHooks registers the pipeline hook implementation.
// Call once at startup, before the pipeline runs.
func SetPipelineHooks(h PipelineHooks) {
	mu.Lock()
	defer mu.Unlock()
	if h == nil {
		h = NoopPipelineHooks{}
	}
	pipelineHooks = h
}

// SetCacheHooks registers the cache hook implementation.
func SetCacheHooks(h CacheHooks) {
	mu.Lock()
	defer mu.Unlock()
	if h == nil {
		h = NoopCacheHooks{}
	}
	cacheHooks = h
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks {
	mu.RLock()
	defer mu.RUnlock()
	return pipelineHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	mu.RLock()
	defer mu.RUnlock()
	return cacheHooks
}
