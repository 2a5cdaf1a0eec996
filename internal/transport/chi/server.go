package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/searchlens/internal/domain"
	"github.com/kailas-cloud/searchlens/internal/domain/search/outcome"
	"github.com/kailas-cloud/searchlens/internal/domain/search/query"
	"github.com/kailas-cloud/searchlens/internal/logger"
	healthuc "github.com/kailas-cloud/searchlens/internal/usecase/health"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Pipeline runs one search.
type Pipeline interface {
	Run(ctx context.Context, q query.Query) outcome.Outcome
}

// HealthReporter aggregates dependency checks.
type HealthReporter interface {
	Check(ctx context.Context) healthuc.Report
}

// Server serves the search API.
type Server struct {
	pipeline      Pipeline
	defaults      query.Defaults
	health        HealthReporter
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(pipeline Pipeline, defaults query.Defaults, health HealthReporter, logger *zap.Logger) *Server {
	s := &Server{
		pipeline: pipeline,
		defaults: defaults,
		health:   health,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrUnknownKnowledgeBase, http.StatusBadRequest, ErrorCodeUnknownKnowledgeBase),
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrEmbedding, http.StatusBadGateway, ErrorCodeEmbeddingFailed),
		sentinelHandler(domain.ErrSearch, http.StatusBadGateway, ErrorCodeSearchFailed),
	}
	return s
}

// SearchPost handles POST /search.
func (s *Server) SearchPost(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	s.search(w, r, req)
}

// SearchGet handles GET /search?q=&kb=&top_k=&semantic_ratio=.
func (s *Server) SearchGet(w http.ResponseWriter, r *http.Request) {
	params, err := bindSearchParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, err.Error())
		return
	}
	s.search(w, r, SearchRequest{
		Query:         deref(params.Q),
		KnowledgeBase: deref(params.KB),
		TopK:          params.TopK,
		SemanticRatio: params.SemanticRatio,
	})
}

func bindSearchParams(r *http.Request) (SearchParams, error) {
	var params SearchParams
	values := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "q", values, &params.Q); err != nil {
		return params, err //nolint:wrapcheck // message names the parameter
	}
	if err := runtime.BindQueryParameter("form", true, false, "kb", values, &params.KB); err != nil {
		return params, err //nolint:wrapcheck // message names the parameter
	}
	if err := runtime.BindQueryParameter("form", true, false, "top_k", values, &params.TopK); err != nil {
		return params, err //nolint:wrapcheck // message names the parameter
	}
	if err := runtime.BindQueryParameter("form", true, false, "semantic_ratio", values, &params.SemanticRatio); err != nil {
		return params, err //nolint:wrapcheck // message names the parameter
	}
	return params, nil
}

func (s *Server) search(w http.ResponseWriter, r *http.Request, req SearchRequest) {
	topK := 0
	if req.TopK != nil {
		topK = *req.TopK
		if topK < 1 {
			writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "top_k must be >= 1")
			return
		}
	}

	q, err := s.defaults.Resolve(req.Query, req.KnowledgeBase, topK, req.SemanticRatio)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	ctx, _ := domain.NewContextWithUsage(r.Context())
	out := s.pipeline.Run(ctx, q)
	if !out.Succeeded {
		s.writeFailedOutcome(w, r, out)
		return
	}

	timings := out.Timings
	writeJSON(w, http.StatusOK, SearchResponse{
		Query:         q.Text(),
		KnowledgeBase: q.KnowledgeBase(),
		TopK:          q.TopK(),
		SemanticRatio: q.SemanticRatio(),
		Count:         len(out.Results),
		ElapsedMillis: out.ElapsedMillis,
		Results:       out.Results,
		Timings: TimingsMillis{
			Embed:     outcome.Millis(timings.Embed),
			Search:    outcome.Millis(timings.Search),
			Normalize: outcome.Millis(timings.Normalize),
			Enrich:    outcome.Millis(timings.Enrich),
		},
		Usage: out.Usage,
	})
}

// writeFailedOutcome maps an aborted run to 502 with the failure surfaced verbatim.
func (s *Server) writeFailedOutcome(w http.ResponseWriter, r *http.Request, out outcome.Outcome) {
	code := ErrorCodeInternalError
	status := http.StatusInternalServerError
	switch err := out.Err(); {
	case errors.Is(err, domain.ErrEmbedding):
		code, status = ErrorCodeEmbeddingFailed, http.StatusBadGateway
	case errors.Is(err, domain.ErrSearch):
		code, status = ErrorCodeSearchFailed, http.StatusBadGateway
	case out.FailedAt == outcome.StageEmbed || out.FailedAt == outcome.StageSearch:
		status = http.StatusBadGateway
	}
	logger.FromContext(r.Context()).Warn("Search failed",
		zap.String("failed_at", string(out.FailedAt)),
		zap.String("error", out.ErrorMessage),
	)
	writeJSON(w, status, ErrorResponse{Code: code, Message: out.ErrorMessage, FailedAt: string(out.FailedAt)})
}

// ListKnowledgeBases handles GET /knowledge-bases.
func (s *Server) ListKnowledgeBases(w http.ResponseWriter, _ *http.Request) {
	items := s.defaults.KnowledgeBases
	if items == nil {
		items = []string{}
	}
	writeJSON(w, http.StatusOK, KnowledgeBasesResponse{Default: s.defaults.KnowledgeBase, Items: items})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	logger.FromContext(r.Context()).Warn("domain error", zap.Error(err))
	for _, h := range s.errorHandlers {
		if h(w, err, err.Error()) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
