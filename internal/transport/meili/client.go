// Package meili runs hybrid keyword+vector queries against Meilisearch.
package meili

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/meilisearch/meilisearch-go"
	"go.uber.org/zap"

	"github.com/kailas-cloud/searchlens/internal/domain"
	"github.com/kailas-cloud/searchlens/internal/domain/search/hit"
	"github.com/kailas-cloud/searchlens/internal/domain/search/query"
	"github.com/kailas-cloud/searchlens/internal/metrics"
)

// DefaultEmbedder is the embedder name configured on the indexes.
const DefaultEmbedder = "bge_m3"

// Config holds the search engine connection settings.
type Config struct {
	Host       string
	APIKey     string
	Embedder   string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client issues hybrid searches. It never retries.
type Client struct {
	sm       meilisearch.ServiceManager
	embedder string
	logger   *zap.Logger
}

// New creates a Meilisearch client.
func New(cfg *Config) *Client {
	opts := []meilisearch.Option{meilisearch.DisableRetries()}
	if cfg.APIKey != "" {
		opts = append(opts, meilisearch.WithAPIKey(cfg.APIKey))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, meilisearch.WithCustomClient(cfg.HTTPClient))
	}

	embedder := cfg.Embedder
	if embedder == "" {
		embedder = DefaultEmbedder
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		sm:       meilisearch.New(cfg.Host, opts...),
		embedder: embedder,
		logger:   logger,
	}
}

// buildRequest maps a query onto a search request.
//
// The engine's semanticRatio is the query's ratio as-is: higher means more semantic.
// A zero ratio is sent as a plain keyword query, because the client drops a zero
// semanticRatio from the payload and the engine would then apply its 0.5 default.
func (c *Client) buildRequest(q query.Query, vector []float32) *meilisearch.SearchRequest {
	req := &meilisearch.SearchRequest{Limit: int64(q.TopK())}
	if q.SemanticRatio() > 0 {
		req.Vector = vector
		req.Hybrid = &meilisearch.SearchRequestHybrid{
			SemanticRatio: q.SemanticRatio(),
			Embedder:      c.embedder,
		}
	}
	return req
}

type searchBody struct {
	Hits []hit.Raw `json:"hits"`
}

// HybridSearch returns up to q.TopK() hits in engine order.
func (c *Client) HybridSearch(ctx context.Context, q query.Query, vector []float32) ([]hit.Raw, error) {
	kb := q.KnowledgeBase()
	start := time.Now()

	raw, err := c.sm.Index(kb).SearchRawWithContext(ctx, q.Text(), c.buildRequest(q, vector))
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues(kb, "error").Inc()
		return nil, fmt.Errorf("%w: index %q: %w", domain.ErrSearch, kb, err)
	}
	if raw == nil {
		metrics.SearchRequestsTotal.WithLabelValues(kb, "error").Inc()
		return nil, fmt.Errorf("%w: index %q: empty response", domain.ErrSearch, kb)
	}

	dec := json.NewDecoder(bytes.NewReader(*raw))
	dec.UseNumber()
	var body searchBody
	if err := dec.Decode(&body); err != nil {
		metrics.SearchRequestsTotal.WithLabelValues(kb, "error").Inc()
		return nil, fmt.Errorf("%w: index %q: decode hits: %w", domain.ErrSearch, kb, err)
	}

	hits := body.Hits
	if len(hits) > q.TopK() {
		hits = hits[:q.TopK()]
	}

	metrics.SearchRequestsTotal.WithLabelValues(kb, "success").Inc()
	metrics.SearchRequestDuration.WithLabelValues(kb).Observe(time.Since(start).Seconds())

	c.logger.Debug("Hybrid search completed",
		zap.String("knowledge_base", kb),
		zap.Float64("semantic_ratio", q.SemanticRatio()),
		zap.Int("top_k", q.TopK()),
		zap.Int("hits", len(hits)),
		zap.Duration("duration", time.Since(start)),
	)

	if hits == nil {
		hits = []hit.Raw{}
	}
	return hits, nil
}

// HealthCheck verifies the engine reports itself available.
func (c *Client) HealthCheck(ctx context.Context) error {
	h, err := c.sm.HealthWithContext(ctx)
	if err != nil {
		return fmt.Errorf("meilisearch health: %w", err)
	}
	if h.Status != "available" {
		return fmt.Errorf("meilisearch health: status %q", h.Status)
	}
	return nil
}
