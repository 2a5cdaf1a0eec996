// Package enrich attaches generated summaries and keyword lines to search results.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/searchlens/internal/domain"
	"github.com/kailas-cloud/searchlens/internal/domain/search/result"
	"github.com/kailas-cloud/searchlens/internal/logger"
	"github.com/kailas-cloud/searchlens/internal/metrics"
)

// Defaults for generation calls.
const (
	DefaultWorkers     = 4
	DefaultTimeout     = 15 * time.Second
	DefaultTemperature = float32(0.3)
	DefaultMaxTokens   = 128
)

var errEmptyResponse = errors.New("empty response")

// Config tunes the enrichment fan-out and generation parameters.
type Config struct {
	Workers     int
	Timeout     time.Duration
	Temperature float32
	MaxTokens   int
	Prompts     Prompts
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Temperature <= 0 {
		c.Temperature = DefaultTemperature
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	c.Prompts = c.Prompts.withDefaults()
	return c
}

// Service generates artifacts over a bounded worker pool shared by all runs.
// Each artifact is failure-isolated: a failed call becomes an inline message.
type Service struct {
	gen     domain.Generator
	pool    *ants.Pool
	limiter *rate.Limiter
	cfg     Config
	logger  *zap.Logger
}

// New creates an enrichment service with its own worker pool. Call Release on shutdown.
func New(gen domain.Generator, cfg Config, logger *zap.Logger) (*Service, error) {
	cfg = cfg.withDefaults()
	pool, err := ants.NewPool(cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("create enrichment pool: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{gen: gen, pool: pool, cfg: cfg, logger: logger}, nil
}

// WithLimiter throttles generation calls. nil disables throttling.
func (s *Service) WithLimiter(l *rate.Limiter) *Service {
	s.limiter = l
	return s
}

// Release stops the worker pool.
func (s *Service) Release() {
	s.pool.Release()
}

// Enrich generates both artifacts for one result.
func (s *Service) Enrich(ctx context.Context, n result.Normalized) result.Enriched {
	return s.EnrichAll(ctx, []result.Normalized{n})[0]
}

// EnrichAll enriches every result. Output order matches input order.
// Results without content get placeholders and cost no generation call.
func (s *Service) EnrichAll(ctx context.Context, ns []result.Normalized) []result.Enriched {
	out := make([]result.Enriched, len(ns))
	var wg sync.WaitGroup

	for i := range ns {
		out[i].Normalized = ns[i]
		if !ns[i].HasContent() {
			out[i].Summary = domain.NoContent
			out[i].Keywords = domain.NoKeywords
			metrics.EnrichmentArtifactsTotal.WithLabelValues(summary.String(), "skipped").Inc()
			metrics.EnrichmentArtifactsTotal.WithLabelValues(keywords.String(), "skipped").Inc()
			continue
		}

		content := ns[i].Content
		s.submit(&wg, func() { out[i].Summary = s.generate(ctx, summary, content) })
		s.submit(&wg, func() { out[i].Keywords = s.generate(ctx, keywords, content) })
	}

	wg.Wait()
	return out
}

// submit runs task on the pool, or inline when the pool rejects it.
func (s *Service) submit(wg *sync.WaitGroup, task func()) {
	wg.Add(1)
	run := func() {
		defer wg.Done()
		task()
	}
	if err := s.pool.Submit(run); err != nil {
		s.logger.Warn("Enrichment pool rejected task, running inline", zap.Error(err))
		run()
	}
}

// generate returns the artifact text or its failure message. It never fails.
func (s *Service) generate(ctx context.Context, a artifact, content string) string {
	text, err := s.call(ctx, a, content)
	if err != nil {
		metrics.EnrichmentArtifactsTotal.WithLabelValues(a.String(), "failed").Inc()
		logger.FromContext(ctx).Warn("Artifact generation failed",
			zap.String("artifact", a.String()),
			zap.Error(err),
		)
		return a.failurePrefix() + err.Error()
	}
	metrics.EnrichmentArtifactsTotal.WithLabelValues(a.String(), "ok").Inc()
	return text
}

func (s *Service) call(ctx context.Context, a artifact, content string) (string, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limit: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	system, instruction := s.cfg.Prompts.forArtifact(a)
	res, err := s.gen.Generate(ctx, domain.GenerationRequest{
		System:      system,
		Prompt:      instruction + "\n" + content,
		Temperature: s.cfg.Temperature,
		MaxTokens:   s.cfg.MaxTokens,
	})
	if err != nil {
		return "", err //nolint:wrapcheck // cause is rendered verbatim after the failure prefix
	}

	domain.UsageFromContext(ctx).AddGeneration(res.PromptTokens + res.CompletionTokens)

	text := strings.TrimSpace(res.Text)
	if text == "" {
		return "", errEmptyResponse
	}
	return text, nil
}
