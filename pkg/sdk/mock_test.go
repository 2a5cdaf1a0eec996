package searchlens

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/kailas-cloud/searchlens/internal/domain/search/outcome"
	"github.com/kailas-cloud/searchlens/internal/domain/search/query"
	healthuc "github.com/kailas-cloud/searchlens/internal/usecase/health"
)

// --- pipelineRunner mock ---

type mockPipeline struct {
	runFn func(ctx context.Context, q query.Query) outcome.Outcome
}

func (m *mockPipeline) Run(ctx context.Context, q query.Query) outcome.Outcome {
	return m.runFn(ctx, q)
}

// --- healthUseCase mock ---

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(_ context.Context) healthuc.Report { return m.report }

// --- public provider stubs ---

type stubEmbedder struct {
	vec   []float32
	err   error
	calls atomic.Int32
}

func (s *stubEmbedder) Embed(_ context.Context, _ string) (EmbeddingResult, error) {
	s.calls.Add(1)
	if s.err != nil {
		return EmbeddingResult{}, s.err
	}
	return EmbeddingResult{Embedding: s.vec, TotalTokens: 3}, nil
}

type stubGenerator struct {
	text  string
	err   error
	calls atomic.Int32
}

func (s *stubGenerator) Generate(_ context.Context, _ GenerationRequest) (GenerationResult, error) {
	s.calls.Add(1)
	if s.err != nil {
		return GenerationResult{}, s.err
	}
	return GenerationResult{Text: s.text, CompletionTokens: 2}, nil
}

// --- helpers ---

func testClient(p pipelineRunner, h healthUseCase) *Client {
	return &Client{
		pipeline:  p,
		healthSvc: h,
		defaults: query.Defaults{
			KnowledgeBase:  "broker_reports",
			KnowledgeBases: []string{"broker_reports", "movies"},
			SemanticRatio:  query.DefaultSemanticRatio,
		},
	}
}

// fakeEngine serves the Meilisearch health and search endpoints.
func fakeEngine(t *testing.T, hits []map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/health":
			_, _ = w.Write([]byte(`{"status":"available"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/indexes/broker_reports/search":
			_ = json.NewEncoder(w).Encode(map[string]any{"hits": hits})
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Index not found","code":"index_not_found"}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}
