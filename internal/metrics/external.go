package metrics

import "github.com/prometheus/client_golang/prometheus"

// Outbound call metrics: embedding, search engine, generation.
var (
	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "searchlens",
			Name:      "embedding_requests_total",
			Help:      "Total number of embedding requests",
		},
		[]string{"provider", "model", "status"},
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "searchlens",
			Name:      "embedding_request_duration_seconds",
			Help:      "Embedding request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"provider", "model"},
	)

	EmbeddingErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "searchlens",
			Name:      "embedding_errors_total",
			Help:      "Total embedding errors",
		},
		[]string{"provider", "model", "error_type"},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "searchlens",
			Name:      "embedding_cache_total",
			Help:      "Embedding cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "searchlens",
			Name:      "search_requests_total",
			Help:      "Total number of hybrid search requests",
		},
		[]string{"knowledge_base", "status"},
	)

	SearchRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "searchlens",
			Name:      "search_request_duration_seconds",
			Help:      "Hybrid search request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"knowledge_base"},
	)

	GenerationRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "searchlens",
			Name:      "generation_requests_total",
			Help:      "Total number of text generation requests",
		},
		[]string{"provider", "model", "status"},
	)

	GenerationRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "searchlens",
			Name:      "generation_request_duration_seconds",
			Help:      "Text generation request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15, 30},
		},
		[]string{"provider", "model"},
	)

	GenerationTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "searchlens",
			Name:      "generation_tokens_total",
			Help:      "Total generation tokens consumed",
		},
		[]string{"provider", "model", "type"},
	)

	GenerationCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "searchlens",
			Name:      "generation_cache_total",
			Help:      "Generated artifact cache hits and misses",
		},
		[]string{"result"},
	)
)

// Pipeline metrics.
var (
	PipelineRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "searchlens",
			Name:      "pipeline_runs_total",
			Help:      "Pipeline runs by final status",
		},
		[]string{"status"}, // "ok" / "empty" / "embed_error" / "search_error"
	)

	PipelineStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "searchlens",
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"stage"},
	)

	EnrichmentArtifactsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "searchlens",
			Name:      "enrichment_artifacts_total",
			Help:      "Generated artifacts by kind and outcome",
		},
		[]string{"artifact", "status"}, // status: "ok" / "failed" / "skipped"
	)
)

var metricsRegistered bool

// RegisterMetrics registers the outbound and pipeline metrics. Must be called once from main.
func RegisterMetrics() {
	if metricsRegistered {
		return
	}
	prometheus.MustRegister(
		EmbeddingRequestsTotal,
		EmbeddingRequestDuration,
		EmbeddingErrorsTotal,
		EmbeddingCacheTotal,
		SearchRequestsTotal,
		SearchRequestDuration,
		GenerationRequestsTotal,
		GenerationRequestDuration,
		GenerationTokensTotal,
		GenerationCacheTotal,
		PipelineRunsTotal,
		PipelineStageDuration,
		EnrichmentArtifactsTotal,
	)
	metricsRegistered = true
}
