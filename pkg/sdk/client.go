package searchlens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/searchlens/internal/domain"
	"github.com/kailas-cloud/searchlens/internal/domain/search/outcome"
	"github.com/kailas-cloud/searchlens/internal/domain/search/query"
	"github.com/kailas-cloud/searchlens/internal/domain/search/result"
	"github.com/kailas-cloud/searchlens/internal/transport/meili"
	embeddinguc "github.com/kailas-cloud/searchlens/internal/usecase/embedding"
	"github.com/kailas-cloud/searchlens/internal/usecase/enrich"
	healthuc "github.com/kailas-cloud/searchlens/internal/usecase/health"
	"github.com/kailas-cloud/searchlens/internal/usecase/normalize"
	pipelineuc "github.com/kailas-cloud/searchlens/internal/usecase/pipeline"
)

const defaultReadinessTimeout = 10 * time.Second

// pipelineRunner is the internal interface for one search run.
type pipelineRunner interface {
	Run(ctx context.Context, q query.Query) outcome.Outcome
}

// Client is the searchlens SDK entry point. Safe for concurrent use.
type Client struct {
	pipeline  pipelineRunner
	healthSvc healthUseCase
	defaults  query.Defaults
	release   func()
	obs       *observer
}

// New creates a Client and checks that the search engine is available.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		semanticRatio:    query.DefaultSemanticRatio,
		readinessTimeout: defaultReadinessTimeout,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.host == "" {
		return nil, errors.New("searchlens: search engine address required (use WithMeilisearch)")
	}
	if cfg.embedder == nil {
		return nil, errors.New("searchlens: embedder required (use WithEmbedder)")
	}
	if cfg.generator == nil {
		return nil, errors.New("searchlens: generator required (use WithGenerator)")
	}
	if len(cfg.knowledgeBases) == 0 {
		return nil, errors.New("searchlens: at least one knowledge base required (use WithKnowledgeBase)")
	}

	registry, err := buildRegistry(cfg.knowledgeBases)
	if err != nil {
		return nil, err
	}

	searcher := meili.New(&meili.Config{
		Host:       cfg.host,
		APIKey:     cfg.apiKey,
		Embedder:   cfg.engineEmbedder,
		HTTPClient: cfg.httpClient,
	})

	readyCtx, cancel := context.WithTimeout(ctx, cfg.readinessTimeout)
	defer cancel()
	if err := searcher.HealthCheck(readyCtx); err != nil {
		return nil, fmt.Errorf("searchlens: search engine not ready: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	enricher, err := enrich.New(&generatorAdapter{inner: cfg.generator}, enrich.Config{
		Workers: cfg.workers,
		Timeout: cfg.generateTimeout,
	}, zap.NewNop())
	if err != nil {
		return nil, fmt.Errorf("searchlens: %w", err)
	}

	embedder := embeddinguc.NewInstrumentedEmbedder(
		&embedderAdapter{inner: cfg.embedder}, "sdk", "", cfg.dims, zap.NewNop(),
	)

	names := make([]string, 0, len(cfg.knowledgeBases))
	for _, kb := range cfg.knowledgeBases {
		names = append(names, kb.name)
	}

	return &Client{
		pipeline:  pipelineuc.New(embedder, searcher, registry, enricher, pipelineuc.Config{}),
		healthSvc: healthuc.New(searcher),
		defaults:  query.Defaults{
			KnowledgeBase:  names[0],
			KnowledgeBases: names,
			SemanticRatio:  cfg.semanticRatio,
			TopK:           cfg.topK,
		},
		release:   enricher.Release,
		obs:       obs,
	}, nil
}

func buildRegistry(kbs []knowledgeBase) (*normalize.Registry, error) {
	registry := normalize.NewRegistry()
	for _, kb := range kbs {
		if len(kb.fields) == 0 {
			continue
		}
		extra := make(map[normalize.Field][]string, len(kb.fields))
		for name, keys := range kb.fields {
			f, err := normalize.ParseField(name)
			if err != nil {
				return nil, fmt.Errorf("searchlens: knowledge base %q: %w", kb.name, err)
			}
			extra[f] = keys
		}
		registry.WithKnowledgeBase(kb.name, extra)
	}
	return registry, nil
}

// Close stops the generation worker pool.
func (c *Client) Close() {
	if c.release != nil {
		c.release()
	}
}

// Search runs one enriched search. An empty query returns no results and no error.
// Embedding and search engine failures return an error wrapping ErrEmbedding or ErrSearch;
// generation failures never do, they are written into Summary or Keywords instead.
func (c *Client) Search(ctx context.Context, text string, opts ...SearchOption) (resp *Response, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search", start, err) }()

	so := &searchOptions{}
	for _, o := range opts {
		o(so)
	}

	q, err := c.defaults.Resolve(text, so.knowledgeBase, so.topK, so.semanticRatio)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	ctx, usage := domain.NewContextWithUsage(ctx)
	out := c.pipeline.Run(ctx, q)
	if !out.Succeeded {
		if cause := out.Err(); cause != nil {
			return nil, fmt.Errorf("search: %w", cause)
		}
		return nil, fmt.Errorf("search: %s", out.ErrorMessage)
	}

	u := usage.Snapshot()
	return &Response{
		Query:         q.Text(),
		KnowledgeBase: q.KnowledgeBase(),
		Results:       toResults(out.Results),
		Elapsed:       time.Duration(out.ElapsedMillis * float64(time.Millisecond)),
		Timings: Timings{
			Embed:     out.Timings.Embed,
			Search:    out.Timings.Search,
			Normalize: out.Timings.Normalize,
			Enrich:    out.Timings.Enrich,
		},
		Usage: Usage{
			EmbeddingTokens:  u.EmbeddingTokens,
			GenerationCalls:  u.GenerationCalls,
			GenerationTokens: u.GenerationTokens,
			CacheHits:        u.CacheHits,
		},
	}, nil
}

func toResults(es []result.Enriched) []Result {
	out := make([]Result, len(es))
	for i := range es {
		e := &es[i]
		out[i] = Result{
			Rank:         e.Rank,
			Title:        e.Title,
			Identifier:   e.Identifier,
			Author:       e.Author,
			Organization: e.Organization,
			Industry:     e.Industry,
			Tags:         e.Tags,
			PublishTime:  e.PublishTime,
			SourceURL:    e.SourceURL,
			Poster:       e.Poster,
			Description:  e.Description,
			Content:      e.Content,
			PDFLink:      e.PDFLink,
			FileURL:      e.FileURL,
			Summary:      e.Summary,
			Keywords:     e.Keywords,
		}
	}
	return out
}

// embedderAdapter wraps public Embedder to satisfy internal domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("%w: %w", domain.ErrEmbedding, err)
	}
	if len(r.Embedding) == 0 {
		return domain.EmbeddingResult{}, fmt.Errorf("%w: empty vector", domain.ErrEmbedding)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// generatorAdapter wraps public Generator to satisfy internal domain.Generator.
type generatorAdapter struct {
	inner Generator
}

func (a *generatorAdapter) Generate(ctx context.Context, req domain.GenerationRequest) (domain.GenerationResult, error) {
	r, err := a.inner.Generate(ctx, GenerationRequest{
		System:      req.System,
		Prompt:      req.Prompt,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return domain.GenerationResult{}, err //nolint:wrapcheck // rendered inline by the enricher
	}
	return domain.GenerationResult{
		Text:             r.Text,
		PromptTokens:     r.PromptTokens,
		CompletionTokens: r.CompletionTokens,
	}, nil
}
