package domain

import "errors"

var (
	// ErrInvalidQuery signals a query that failed validation.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrUnknownKnowledgeBase signals a knowledge base outside the configured set.
	ErrUnknownKnowledgeBase = errors.New("unknown knowledge base")

	// ErrEmbedding signals an embedding service failure. Fatal to the search.
	ErrEmbedding = errors.New("embedding failed")
	// ErrSearch signals a search engine failure. Fatal to the search.
	ErrSearch = errors.New("search failed")
	// ErrEnrichment signals a generation service failure for one artifact of one result.
	// Never fatal: the pipeline renders it inline.
	ErrEnrichment = errors.New("enrichment failed")
	// ErrVectorDimMismatch signals an embedding with an unexpected dimensionality.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
)
