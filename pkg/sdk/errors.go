package searchlens

import "github.com/kailas-cloud/searchlens/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidQuery         = domain.ErrInvalidQuery
	ErrUnknownKnowledgeBase = domain.ErrUnknownKnowledgeBase
	ErrEmbedding            = domain.ErrEmbedding
	ErrSearch               = domain.ErrSearch
	ErrVectorDimMismatch    = domain.ErrVectorDimMismatch
)
