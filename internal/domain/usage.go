package domain

import (
	"context"
	"sync/atomic"
)

type usageKey struct{}

// Usage collects token usage for a single pipeline run.
// Enrichment writes from pool workers, so counters are atomic.
type Usage struct {
	embeddingTokens  atomic.Int64
	generationTokens atomic.Int64
	generationCalls  atomic.Int64
	cacheHits        atomic.Int64
}

// UsageSnapshot is an immutable copy of Usage.
type UsageSnapshot struct {
	EmbeddingTokens  int64 `json:"embedding_tokens"`
	GenerationTokens int64 `json:"generation_tokens"`
	GenerationCalls  int64 `json:"generation_calls"`
	CacheHits        int64 `json:"cache_hits"`
}

// NewContextWithUsage returns a context with an embedded usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *Usage) {
	u := &Usage{}
	return context.WithValue(ctx, usageKey{}, u), u
}

// UsageFromContext extracts the usage collector from context. Returns nil if not set.
func UsageFromContext(ctx context.Context) *Usage {
	u, _ := ctx.Value(usageKey{}).(*Usage)
	return u
}

// AddEmbeddingTokens records tokens consumed by query embedding.
func (u *Usage) AddEmbeddingTokens(n int) {
	if u != nil {
		u.embeddingTokens.Add(int64(n))
	}
}

// AddGeneration records one generation call and its tokens.
func (u *Usage) AddGeneration(tokens int) {
	if u != nil {
		u.generationCalls.Add(1)
		u.generationTokens.Add(int64(tokens))
	}
}

// AddCacheHit records an artifact served from cache.
func (u *Usage) AddCacheHit() {
	if u != nil {
		u.cacheHits.Add(1)
	}
}

// Snapshot copies the current counters. Safe on a nil receiver.
func (u *Usage) Snapshot() UsageSnapshot {
	if u == nil {
		return UsageSnapshot{}
	}
	return UsageSnapshot{
		EmbeddingTokens:  u.embeddingTokens.Load(),
		GenerationTokens: u.generationTokens.Load(),
		GenerationCalls:  u.generationCalls.Load(),
		CacheHits:        u.cacheHits.Load(),
	}
}
