package normalize

import (
	"github.com/kailas-cloud/searchlens/internal/domain/search/hit"
	"github.com/kailas-cloud/searchlens/internal/domain/search/result"
)

// Registry picks a Normalizer per knowledge base, falling back to a default.
type Registry struct {
	fallback *Normalizer
	byKB     map[string]*Normalizer
}

// NewRegistry creates a registry whose fallback uses DefaultSchema.
func NewRegistry() *Registry {
	return &Registry{fallback: New(nil), byKB: make(map[string]*Normalizer)}
}

// WithKnowledgeBase registers extra candidate keys for one knowledge base.
// The keys are prepended to DefaultSchema.
func (r *Registry) WithKnowledgeBase(name string, extra map[Field][]string) *Registry {
	r.byKB[name] = New(DefaultSchema().Extend(extra))
	return r
}

// For returns the normalizer for a knowledge base.
func (r *Registry) For(knowledgeBase string) *Normalizer {
	if n, ok := r.byKB[knowledgeBase]; ok {
		return n
	}
	return r.fallback
}

// Normalize converts hits using the knowledge base's schema.
func (r *Registry) Normalize(knowledgeBase string, hits []hit.Raw) []result.Normalized {
	return r.For(knowledgeBase).Normalize(hits)
}
