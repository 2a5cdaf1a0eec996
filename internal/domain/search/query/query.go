package query

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/kailas-cloud/searchlens/internal/domain"
)

// Query parameter limits.
const (
	// MaxTextLength is the maximum allowed query text length in bytes.
	MaxTextLength        = 4096
	DefaultTopK          = 10
	MaxTopK              = 100
	DefaultSemanticRatio = 0.5
)

// Query is a validated, immutable search request.
type Query struct {
	text          string
	knowledgeBase string
	topK          int
	semanticRatio float64
}

// New validates search parameters. Surrounding whitespace is trimmed from text;
// an empty text is valid and means "no search".
func New(text, knowledgeBase string, topK int, semanticRatio float64) (Query, error) {
	text = strings.TrimSpace(text)
	if len(text) > MaxTextLength {
		return Query{}, fmt.Errorf("%w: text too long (max %d bytes)", domain.ErrInvalidQuery, MaxTextLength)
	}
	if knowledgeBase == "" {
		return Query{}, fmt.Errorf("%w: knowledge base is required", domain.ErrInvalidQuery)
	}
	if topK < 1 {
		return Query{}, fmt.Errorf("%w: top_k must be >= 1, got %d", domain.ErrInvalidQuery, topK)
	}
	if math.IsNaN(semanticRatio) || semanticRatio < 0 || semanticRatio > 1 {
		return Query{}, fmt.Errorf("%w: semantic_ratio must be between 0 and 1", domain.ErrInvalidQuery)
	}

	return Query{
		text:          text,
		knowledgeBase: knowledgeBase,
		topK:          topK,
		semanticRatio: semanticRatio,
	}, nil
}

// Text returns the query text.
func (q Query) Text() string { return q.text }

// IsEmpty reports whether there is nothing to search for.
func (q Query) IsEmpty() bool { return q.text == "" }

// KnowledgeBase returns the index identifier to search.
func (q Query) KnowledgeBase() string { return q.knowledgeBase }

// TopK returns the maximum number of hits.
func (q Query) TopK() int { return q.topK }

// SemanticRatio returns the semantic weight, 0 = pure keyword, 1 = pure semantic.
func (q Query) SemanticRatio() float64 { return q.semanticRatio }

// Defaults fills in unset query parameters and enforces configured limits.
type Defaults struct {
	KnowledgeBase  string
	KnowledgeBases []string // allow-list; empty allows any
	SemanticRatio  float64
	TopK           int
	MaxTopK        int
}

// Resolve builds a Query, substituting defaults for a blank knowledge base,
// a non-positive topK, and a nil semantic ratio.
func (d Defaults) Resolve(text, knowledgeBase string, topK int, semanticRatio *float64) (Query, error) {
	if knowledgeBase == "" {
		knowledgeBase = d.KnowledgeBase
	}
	if len(d.KnowledgeBases) > 0 && !slices.Contains(d.KnowledgeBases, knowledgeBase) {
		return Query{}, fmt.Errorf("%w: %q", domain.ErrUnknownKnowledgeBase, knowledgeBase)
	}

	if topK <= 0 {
		topK = d.TopK
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	maxTopK := d.MaxTopK
	if maxTopK <= 0 {
		maxTopK = MaxTopK
	}
	if topK > maxTopK {
		return Query{}, fmt.Errorf("%w: top_k must be <= %d, got %d", domain.ErrInvalidQuery, maxTopK, topK)
	}

	ratio := d.SemanticRatio
	if semanticRatio != nil {
		ratio = *semanticRatio
	}

	return New(text, knowledgeBase, topK, ratio)
}
