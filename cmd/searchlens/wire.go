package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/searchlens/internal/config"
	dbRedis "github.com/kailas-cloud/searchlens/internal/db/redis"
	"github.com/kailas-cloud/searchlens/internal/domain"
	logpkg "github.com/kailas-cloud/searchlens/internal/logger"
	"github.com/kailas-cloud/searchlens/internal/metrics"
	"github.com/kailas-cloud/searchlens/internal/repository/embcache"
	"github.com/kailas-cloud/searchlens/internal/repository/gencache"
	embeddingTransport "github.com/kailas-cloud/searchlens/internal/transport/embedding"
	"github.com/kailas-cloud/searchlens/internal/transport/httpclient"
	"github.com/kailas-cloud/searchlens/internal/transport/meili"
	openaiTransport "github.com/kailas-cloud/searchlens/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/searchlens/internal/usecase/embedding"
	"github.com/kailas-cloud/searchlens/internal/usecase/enrich"
	healthuc "github.com/kailas-cloud/searchlens/internal/usecase/health"
	pipelineuc "github.com/kailas-cloud/searchlens/internal/usecase/pipeline"
)

// app is the assembled dependency graph shared by serve and search.
type app struct {
	cfg      config.Config
	env      string
	logger   *zap.Logger
	pipeline *pipelineuc.Service
	health   *healthuc.Service
	enricher *enrich.Service
	store    *dbRedis.Store
}

func loadConfig(flags *rootFlags) (config.Config, string, error) {
	env := flags.env
	if env == "" {
		env = config.GetEnv()
	}
	var (
		cfg config.Config
		err error
	)
	if flags.configPath != "" {
		cfg, err = config.LoadFile(flags.configPath)
	} else {
		cfg, err = config.Load(env)
	}
	if err != nil {
		return config.Config{}, "", fmt.Errorf("load config: %w", err)
	}
	return cfg, env, nil
}

// buildApp is the composition root.
func buildApp(ctx context.Context, flags *rootFlags) (*app, error) {
	cfg, env, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	// Register metrics explicitly (no init())
	metrics.RegisterMetrics()

	a := &app{cfg: cfg, env: env, logger: logger}

	if cfg.Embedding.Cache.Enabled || cfg.Generation.Cache.Enabled {
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			return nil, fmt.Errorf("create cache store: %w", err)
		}
		if err := store.WaitForReady(ctx, config.Seconds(cfg.Cache.ReadinessTimeout)); err != nil {
			store.Close()
			return nil, fmt.Errorf("cache store not ready: %w", err)
		}
		logger.Info("Connected to cache store", zap.Strings("addrs", cfg.Cache.Addrs))
		a.store = store
	}

	embedder := buildEmbedder(cfg, a.store, logger)
	generator := buildGenerator(cfg, a.store, logger)

	enricher, err := enrich.New(generator, enrich.Config{
		Workers:     cfg.Generation.Workers,
		Timeout:     config.Seconds(cfg.Generation.TimeoutSec),
		Temperature: cfg.Generation.Temperature,
		MaxTokens:   cfg.Generation.MaxTokens,
		Prompts:     cfg.Generation.Prompts,
	}, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create enricher: %w", err)
	}
	if cfg.Generation.RatePerSec > 0 {
		enricher.WithLimiter(rate.NewLimiter(rate.Limit(cfg.Generation.RatePerSec), cfg.Generation.Burst))
	}
	a.enricher = enricher

	searcher := meili.New(&meili.Config{
		Host:       cfg.Search.Host,
		APIKey:     cfg.Search.APIKey,
		Embedder:   cfg.Search.Embedder,
		HTTPClient: httpclient.New("meilisearch", config.Seconds(cfg.Search.TimeoutSec)+time.Second),
		Logger:     logger,
	})

	a.pipeline = pipelineuc.New(embedder, searcher, cfg.Normalizers(), enricher, pipelineuc.Config{
		EmbedTimeout:  config.Seconds(cfg.Embedding.TimeoutSec),
		SearchTimeout: config.Seconds(cfg.Search.TimeoutSec),
	})

	a.health = healthuc.New(searcher).WithComponent("generation", generator)
	if cfg.Embedding.Provider == config.ProviderOpenAI {
		a.health.WithComponent("embedding", embedder)
	}
	if a.store != nil {
		a.health.WithComponent("cache", healthuc.CheckFunc(a.store.Ping))
	}

	logger.Info("Pipeline assembled",
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.String("embedding_model", cfg.Embedding.Model),
		zap.String("generation_model", cfg.Generation.Model),
		zap.Int("enrich_workers", cfg.Generation.Workers),
		zap.String("default_knowledge_base", cfg.Search.DefaultKnowledgeBase),
	)
	return a, nil
}

// Close releases the worker pool and the cache connection.
func (a *app) Close() {
	if a.enricher != nil {
		a.enricher.Release()
	}
	if a.store != nil {
		a.store.Close()
	}
	_ = a.logger.Sync()
}

// embeddingChain is an embedder that can also report its health.
type embeddingChain interface {
	domain.Embedder
	domain.HealthChecker
}

// buildEmbedder assembles the decorator chain: provider -> Cached -> Instrumented -> Instruction
func buildEmbedder(cfg config.Config, store *dbRedis.Store, logger *zap.Logger) embeddingChain {
	ec := cfg.Embedding
	hc := httpclient.New("embedding", config.Seconds(ec.TimeoutSec)+time.Second)

	var embedder domain.Embedder
	switch ec.Provider {
	case config.ProviderOpenAI:
		embedder = openaiTransport.NewEmbedder(&openaiTransport.Config{
			APIKey:     ec.APIKey,
			BaseURL:    ec.URL,
			Model:      ec.Model,
			Dimensions: ec.Dimensions,
			Provider:   ec.Provider,
			HTTPClient: hc,
			Logger:     logger,
		})
	default:
		embedder = embeddingTransport.New(&embeddingTransport.Config{
			URL:        ec.URL,
			APIKey:     ec.APIKey,
			Model:      ec.Model,
			Provider:   ec.Provider,
			HTTPClient: hc,
			Logger:     logger,
		})
	}

	if store != nil && ec.Cache.Enabled {
		embedder = embcache.New(embedder, store, ec.Model, ec.Cache.TTL(), metrics.EmbeddingCacheTotal, logger)
	}

	var chain embeddingChain = embeddinguc.NewInstrumentedEmbedder(
		embedder, ec.Provider, ec.Model, ec.Dimensions, logger,
	)

	// Instruction prefix (outermost, so the cache key includes it)
	if ec.QueryInstruction != "" {
		chain = domain.NewInstructionEmbedder(chain, ec.QueryInstruction)
	}
	return chain
}

// generationChain is a generator that can also report its health.
type generationChain interface {
	domain.Generator
	domain.HealthChecker
}

func buildGenerator(cfg config.Config, store *dbRedis.Store, logger *zap.Logger) generationChain {
	gc := cfg.Generation
	var gen generationChain = openaiTransport.NewGenerator(&openaiTransport.Config{
		APIKey:     gc.APIKey,
		BaseURL:    gc.BaseURL,
		Model:      gc.Model,
		Provider:   "openai",
		HTTPClient: httpclient.New("generation", config.Seconds(gc.TimeoutSec)+time.Second),
		Logger:     logger,
	})

	if store != nil && gc.Cache.Enabled {
		gen = gencache.New(gen, store, gc.Model, gc.Cache.TTL(), metrics.GenerationCacheTotal, logger)
	}
	return gen
}
