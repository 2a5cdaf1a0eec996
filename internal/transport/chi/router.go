package chi

import (
	"github.com/go-chi/chi/v5"
)

// Routes registers the API on r.
func Routes(s *Server, r chi.Router) {
	r.Post("/search", s.SearchPost)
	r.Get("/search", s.SearchGet)
	r.Get("/knowledge-bases", s.ListKnowledgeBases)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}
