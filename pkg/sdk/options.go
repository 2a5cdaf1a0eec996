package searchlens

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type knowledgeBase struct {
	name   string
	fields map[string][]string
}

type clientConfig struct {
	host           string
	apiKey         string
	engineEmbedder string
	httpClient     *http.Client

	embedder  Embedder
	generator Generator
	dims      int

	knowledgeBases []knowledgeBase
	topK           int
	semanticRatio  float64

	workers          int
	generateTimeout  time.Duration
	readinessTimeout time.Duration

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithMeilisearch sets the search engine address and API key.
func WithMeilisearch(host, apiKey string) Option {
	return optionFunc(func(c *clientConfig) {
		c.host = host
		c.apiKey = apiKey
	})
}

// WithEngineEmbedder names the embedder configured on the indexes.
// Defaults to "bge_m3".
func WithEngineEmbedder(name string) Option {
	return optionFunc(func(c *clientConfig) {
		c.engineEmbedder = name
	})
}

// WithHTTPClient sets the HTTP client used for search engine calls.
func WithHTTPClient(hc *http.Client) Option {
	return optionFunc(func(c *clientConfig) {
		c.httpClient = hc
	})
}

// WithEmbedder sets the query embedding provider. Required.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithVectorDimensions rejects query vectors of any other length. 0 disables the check.
func WithVectorDimensions(dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.dims = dim
	})
}

// WithGenerator sets the summary and keyword generator. Required.
func WithGenerator(g Generator) Option {
	return optionFunc(func(c *clientConfig) {
		c.generator = g
	})
}

// WithKnowledgeBase allows searching an index. The first one added is the default.
// fields maps result fields (title, author, content, ...) to extra hit keys
// tried before the built-in ones; nil keeps the defaults.
func WithKnowledgeBase(name string, fields map[string][]string) Option {
	return optionFunc(func(c *clientConfig) {
		c.knowledgeBases = append(c.knowledgeBases, knowledgeBase{name: name, fields: fields})
	})
}

// WithDefaults sets the result count and semantic weight used when a search omits them.
// Defaults: 10 results, ratio 0.5.
func WithDefaults(topK int, semanticRatio float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.topK = topK
		c.semanticRatio = semanticRatio
	})
}

// WithWorkers bounds concurrent generation calls. Default: 4.
func WithWorkers(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.workers = n
	})
}

// WithGenerateTimeout bounds each generation call. Default: 15s.
func WithGenerateTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.generateTimeout = d
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
