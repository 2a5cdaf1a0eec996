// Package pipeline runs a query through embedding, hybrid search, normalization and enrichment.
package pipeline

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/kailas-cloud/searchlens/internal/domain"
	"github.com/kailas-cloud/searchlens/internal/domain/search/hit"
	"github.com/kailas-cloud/searchlens/internal/domain/search/outcome"
	"github.com/kailas-cloud/searchlens/internal/domain/search/query"
	"github.com/kailas-cloud/searchlens/internal/logger"
	"github.com/kailas-cloud/searchlens/internal/metrics"
)

const tracerName = "github.com/kailas-cloud/searchlens/internal/usecase/pipeline"

// Default per-call timeouts.
const (
	DefaultEmbedTimeout  = 10 * time.Second
	DefaultSearchTimeout = 10 * time.Second
)

// Config holds per-stage timeouts.
type Config struct {
	EmbedTimeout  time.Duration
	SearchTimeout time.Duration
}

// Service orchestrates one search per Run call. It is safe for concurrent use.
type Service struct {
	embed     Embedder
	search    Searcher
	normalize Normalizer
	enrich    Enricher
	cfg       Config
	tracer    trace.Tracer
}

// New creates a pipeline service.
func New(embed Embedder, search Searcher, normalize Normalizer, enrich Enricher, cfg Config) *Service {
	if cfg.EmbedTimeout <= 0 {
		cfg.EmbedTimeout = DefaultEmbedTimeout
	}
	if cfg.SearchTimeout <= 0 {
		cfg.SearchTimeout = DefaultSearchTimeout
	}
	return &Service{
		embed:     embed,
		search:    search,
		normalize: normalize,
		enrich:    enrich,
		cfg:       cfg,
		tracer:    otel.Tracer(tracerName),
	}
}

// Run executes the pipeline. Embedding and search failures end the run with
// Succeeded=false; enrichment failures are rendered inline and never fail it.
// ElapsedMillis covers embedding, search and normalization only.
func (s *Service) Run(ctx context.Context, q query.Query) outcome.Outcome {
	if q.IsEmpty() {
		metrics.PipelineRunsTotal.WithLabelValues("empty").Inc()
		return outcome.Empty()
	}

	usage := domain.UsageFromContext(ctx)
	if usage == nil {
		ctx, usage = domain.NewContextWithUsage(ctx)
	}

	ctx, span := s.tracer.Start(ctx, "pipeline.Run", trace.WithAttributes(
		attribute.String("knowledge_base", q.KnowledgeBase()),
		attribute.Int("top_k", q.TopK()),
		attribute.Float64("semantic_ratio", q.SemanticRatio()),
	))
	defer span.End()

	log := logger.FromContext(ctx).With(
		zap.String("knowledge_base", q.KnowledgeBase()),
		zap.Int("top_k", q.TopK()),
		zap.Float64("semantic_ratio", q.SemanticRatio()),
	)

	var timings outcome.Timings
	start := time.Now()

	fail := func(stage outcome.Stage, status string, err error) outcome.Outcome {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(stage))
		metrics.PipelineRunsTotal.WithLabelValues(status).Inc()
		log.Warn("Search pipeline failed", zap.String("stage", string(stage)), zap.Error(err))
		out := outcome.Failed(stage, err, time.Since(start), timings)
		out.Usage = usage.Snapshot()
		return out
	}

	emb, d, err := s.embedQuery(ctx, q.Text())
	timings.Embed = d
	if err != nil {
		return fail(outcome.StageEmbed, "embed_error", err)
	}

	hits, d, err := s.searchHits(ctx, q, emb.Embedding)
	timings.Search = d
	if err != nil {
		return fail(outcome.StageSearch, "search_error", err)
	}

	stageStart := time.Now()
	normalized := s.normalize.Normalize(q.KnowledgeBase(), hits)
	timings.Normalize = s.observe(outcome.StageNormalize, stageStart)

	elapsed := time.Since(start)

	stageStart = time.Now()
	enrichCtx, enrichSpan := s.tracer.Start(ctx, "pipeline.enrich",
		trace.WithAttributes(attribute.Int("results", len(normalized))))
	enriched := s.enrich.EnrichAll(enrichCtx, normalized)
	enrichSpan.End()
	timings.Enrich = s.observe(outcome.StageEnrich, stageStart)

	metrics.PipelineRunsTotal.WithLabelValues("ok").Inc()
	span.SetAttributes(attribute.Int("results", len(enriched)))

	log.Info("Search pipeline completed",
		zap.Int("results", len(enriched)),
		zap.Duration("elapsed", elapsed),
		zap.Duration("enrich", timings.Enrich),
	)

	out := outcome.Succeeded(enriched, elapsed, timings)
	out.Usage = usage.Snapshot()
	return out
}

func (s *Service) embedQuery(ctx context.Context, text string) (domain.EmbeddingResult, time.Duration, error) {
	ctx, span := s.tracer.Start(ctx, "pipeline.embed")
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, s.cfg.EmbedTimeout)
	defer cancel()

	start := time.Now()
	emb, err := s.embed.Embed(ctx, text)
	d := s.observe(outcome.StageEmbed, start)
	if err != nil {
		span.RecordError(err)
		return domain.EmbeddingResult{}, d, err //nolint:wrapcheck // message is surfaced verbatim
	}
	span.SetAttributes(attribute.Int("dimensions", len(emb.Embedding)))
	return emb, d, nil
}

func (s *Service) searchHits(ctx context.Context, q query.Query, vector []float32) ([]hit.Raw, time.Duration, error) {
	ctx, span := s.tracer.Start(ctx, "pipeline.search")
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, s.cfg.SearchTimeout)
	defer cancel()

	start := time.Now()
	hits, err := s.search.HybridSearch(ctx, q, vector)
	d := s.observe(outcome.StageSearch, start)
	if err != nil {
		span.RecordError(err)
		return nil, d, err //nolint:wrapcheck // message is surfaced verbatim
	}
	if len(hits) > q.TopK() {
		hits = hits[:q.TopK()]
	}
	span.SetAttributes(attribute.Int("hits", len(hits)))
	return hits, d, nil
}

func (s *Service) observe(stage outcome.Stage, start time.Time) time.Duration {
	d := time.Since(start)
	metrics.PipelineStageDuration.WithLabelValues(string(stage)).Observe(d.Seconds())
	return d
}
