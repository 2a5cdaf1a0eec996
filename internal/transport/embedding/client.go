// Package embedding is a client for embedding services speaking the
// {"texts": [...], "model": ...} wire format.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/searchlens/internal/domain"
	"github.com/kailas-cloud/searchlens/internal/metrics"
)

// maxErrorBody caps how much of an error response is quoted back.
const maxErrorBody = 1024

// Config holds the embedding service settings.
type Config struct {
	URL        string
	APIKey     string
	Model      string
	Provider   string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client embeds single texts. It never retries.
type Client struct {
	url      string
	apiKey   string
	model    string
	provider string
	http     *http.Client
	logger   *zap.Logger
}

// New creates an embedding client.
func New(cfg *Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		url:      cfg.URL,
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		provider: cfg.Provider,
		http:     hc,
		logger:   logger,
	}
}

type embedRequest struct {
	Texts []string `json:"texts"`
	Model string   `json:"model"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Usage *struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage,omitempty"`
}

// Embed sends a one-element batch and returns the first vector.
func (c *Client) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	start := time.Now()

	res, errType, err := c.embed(ctx, text)

	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(c.provider, c.model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(c.provider, c.model, errType).Inc()
		return domain.EmbeddingResult{}, err
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(c.provider, c.model, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(c.provider, c.model).Observe(time.Since(start).Seconds())
	return res, nil
}

func (c *Client) embed(ctx context.Context, text string) (domain.EmbeddingResult, string, error) {
	body, err := json.Marshal(embedRequest{Texts: []string{text}, Model: c.model})
	if err != nil {
		return domain.EmbeddingResult{}, "encode", fmt.Errorf("%w: encode request: %w", domain.ErrEmbedding, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return domain.EmbeddingResult{}, "encode", fmt.Errorf("%w: build request: %w", domain.ErrEmbedding, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.EmbeddingResult{}, "transport", fmt.Errorf("%w: %w", domain.ErrEmbedding, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return domain.EmbeddingResult{}, "api_error", fmt.Errorf("%w: embedding API error %d: %s",
			domain.ErrEmbedding, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return domain.EmbeddingResult{}, "decode", fmt.Errorf("%w: decode response: %w", domain.ErrEmbedding, err)
	}
	if len(parsed.Data) == 0 || len(parsed.Data[0].Embedding) == 0 {
		return domain.EmbeddingResult{}, "empty_response", fmt.Errorf("%w: response has no embedding", domain.ErrEmbedding)
	}

	res := domain.EmbeddingResult{Embedding: parsed.Data[0].Embedding}
	if parsed.Usage != nil {
		res.PromptTokens = parsed.Usage.PromptTokens
		res.TotalTokens = parsed.Usage.TotalTokens
	}
	return res, "", nil
}
