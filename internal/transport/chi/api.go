package chi

import (
	"github.com/kailas-cloud/searchlens/internal/domain"
	"github.com/kailas-cloud/searchlens/internal/domain/search/result"
)

// ErrorCode identifies an API error class.
type ErrorCode string

// API error codes.
const (
	ErrorCodeBadRequest           ErrorCode = "bad_request"
	ErrorCodeValidationFailed     ErrorCode = "validation_failed"
	ErrorCodeUnknownKnowledgeBase ErrorCode = "unknown_knowledge_base"
	ErrorCodeEmbeddingFailed      ErrorCode = "embedding_failed"
	ErrorCodeSearchFailed         ErrorCode = "search_failed"
	ErrorCodeInternalError        ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code     ErrorCode `json:"code"`
	Message  string    `json:"message"`
	FailedAt string    `json:"failed_at,omitempty"`
}

// SearchRequest is the body of POST /search. Omitted fields take configured defaults.
type SearchRequest struct {
	Query         string   `json:"query"`
	KnowledgeBase string   `json:"knowledge_base,omitempty"`
	TopK          *int     `json:"top_k,omitempty"`
	SemanticRatio *float64 `json:"semantic_ratio,omitempty"`
}

// SearchParams are the query parameters of GET /search.
type SearchParams struct {
	Q             *string  `json:"q,omitempty"`
	KB            *string  `json:"kb,omitempty"`
	TopK          *int     `json:"top_k,omitempty"`
	SemanticRatio *float64 `json:"semantic_ratio,omitempty"`
}

// TimingsMillis reports per-stage durations in milliseconds.
type TimingsMillis struct {
	Embed     float64 `json:"embed"`
	Search    float64 `json:"search"`
	Normalize float64 `json:"normalize"`
	Enrich    float64 `json:"enrich"`
}

// SearchResponse is the body of a successful search.
type SearchResponse struct {
	Query         string               `json:"query"`
	KnowledgeBase string               `json:"knowledge_base"`
	TopK          int                  `json:"top_k"`
	SemanticRatio float64              `json:"semantic_ratio"`
	Count         int                  `json:"count"`
	ElapsedMillis float64              `json:"elapsed_ms"`
	Results       []result.Enriched    `json:"results"`
	Timings       TimingsMillis        `json:"timings_ms"`
	Usage         domain.UsageSnapshot `json:"usage"`
}

// KnowledgeBasesResponse lists the searchable knowledge bases.
type KnowledgeBasesResponse struct {
	Default string   `json:"default"`
	Items   []string `json:"items"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
