// Package gencache caches generated enrichment artifacts in a key-value store.
package gencache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/searchlens/internal/db"
	"github.com/kailas-cloud/searchlens/internal/domain"
)

var cacheKeyPrefix = domain.KeyPrefix + "gen_cache:"

type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedGenerator serves identical generation requests from the cache.
// Only successful, non-empty outputs are stored.
type CachedGenerator struct {
	inner      domain.Generator
	store      store
	model      string
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New wraps a generator with a cache. cacheTotal has label "result" ("hit"/"miss").
func New(
	inner domain.Generator,
	s store,
	model string,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedGenerator {
	return &CachedGenerator{
		inner:      inner,
		store:      s,
		model:      model,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Generate returns the cached text for req or delegates to the inner generator.
// Cache hits report zero tokens.
func (c *CachedGenerator) Generate(ctx context.Context, req domain.GenerationRequest) (domain.GenerationResult, error) {
	key := c.cacheKey(req)

	data, err := c.store.Get(ctx, key)
	switch {
	case err == nil && len(data) > 0:
		c.incCache("hit")
		domain.UsageFromContext(ctx).AddCacheHit()
		return domain.GenerationResult{Text: string(data)}, nil
	case err != nil && !errors.Is(err, db.ErrKeyNotFound):
		c.logger.Warn("Failed to get cached artifact", zap.String("key", key), zap.Error(err))
	}

	c.incCache("miss")

	res, err := c.inner.Generate(ctx, req)
	if err != nil {
		return domain.GenerationResult{}, fmt.Errorf("generate: %w", err)
	}

	if res.Text != "" {
		if err := c.store.SetWithTTL(ctx, key, []byte(res.Text), c.ttl); err != nil {
			c.logger.Warn("Failed to cache artifact", zap.String("key", key), zap.Error(err))
		}
	}
	return res, nil
}

// HealthCheck forwards to the inner generator when it supports health checks.
func (c *CachedGenerator) HealthCheck(ctx context.Context) error {
	if hc, ok := c.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent decorator
	}
	return nil
}

func (c *CachedGenerator) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *CachedGenerator) cacheKey(req domain.GenerationRequest) string {
	h := sha256.New()
	for _, part := range []string{
		c.model,
		req.System,
		req.Prompt,
		strconv.FormatFloat(float64(req.Temperature), 'f', -1, 32),
		strconv.Itoa(req.MaxTokens),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return cacheKeyPrefix + hex.EncodeToString(h.Sum(nil))
}
