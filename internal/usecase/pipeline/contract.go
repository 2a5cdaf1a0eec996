package pipeline

import (
	"context"

	"github.com/kailas-cloud/searchlens/internal/domain"
	"github.com/kailas-cloud/searchlens/internal/domain/search/hit"
	"github.com/kailas-cloud/searchlens/internal/domain/search/query"
	"github.com/kailas-cloud/searchlens/internal/domain/search/result"
)

// Embedder vectorizes the query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Searcher runs a hybrid keyword+vector search.
type Searcher interface {
	HybridSearch(ctx context.Context, q query.Query, vector []float32) ([]hit.Raw, error)
}

// Normalizer maps raw hits onto canonical records for a knowledge base.
type Normalizer interface {
	Normalize(knowledgeBase string, hits []hit.Raw) []result.Normalized
}

// Enricher attaches generated artifacts. It never fails.
type Enricher interface {
	EnrichAll(ctx context.Context, ns []result.Normalized) []result.Enriched
}
