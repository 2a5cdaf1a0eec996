package meili

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/searchlens/internal/domain"
	"github.com/kailas-cloud/searchlens/internal/domain/search/query"
	"github.com/kailas-cloud/searchlens/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterMetrics()
	os.Exit(m.Run())
}

type capturedSearch struct {
	path string
	auth string
	body map[string]any
}

func newEngine(t *testing.T, hits string, captured *capturedSearch) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.path = r.URL.Path
		captured.auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&captured.body); err != nil {
			t.Errorf("decode search body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"hits":` + hits + `,"query":"AI","processingTimeMs":1,"limit":10,"offset":0,"estimatedTotalHits":3}`))
	}))
}

func newTestClient(url string) *Client {
	return New(&Config{Host: url, APIKey: "master", Embedder: "bge_m3", Logger: zap.NewNop()})
}

func mustQuery(t *testing.T, text string, topK int, ratio float64) query.Query {
	t.Helper()
	q, err := query.New(text, "broker_reports", topK, ratio)
	if err != nil {
		t.Fatalf("query.New: %v", err)
	}
	return q
}

func TestHybridSearch_RequestShape(t *testing.T) {
	var got capturedSearch
	engine := newEngine(t, `[{"title":"a","content":"x"},{"title":"b"},{"title":"c"}]`, &got)
	defer engine.Close()

	vec := []float32{0.25, 0.5, 0.75}
	hits, err := newTestClient(engine.URL).HybridSearch(context.Background(), mustQuery(t, "AI", 10, 0.8), vec)
	if err != nil {
		t.Fatalf("HybridSearch failed: %v", err)
	}

	if got.path != "/indexes/broker_reports/search" {
		t.Errorf("path = %q", got.path)
	}
	if got.auth != "Bearer master" {
		t.Errorf("auth = %q", got.auth)
	}
	if got.body["q"] != "AI" {
		t.Errorf("q = %v", got.body["q"])
	}
	if got.body["limit"] != float64(10) {
		t.Errorf("limit = %v", got.body["limit"])
	}
	hybrid, ok := got.body["hybrid"].(map[string]any)
	if !ok {
		t.Fatalf("hybrid missing: %v", got.body)
	}
	if hybrid["semanticRatio"] != 0.8 {
		t.Errorf("semanticRatio = %v, want the query ratio unchanged", hybrid["semanticRatio"])
	}
	if hybrid["embedder"] != "bge_m3" {
		t.Errorf("embedder = %v", hybrid["embedder"])
	}
	if v, ok := got.body["vector"].([]any); !ok || len(v) != 3 {
		t.Errorf("vector = %v", got.body["vector"])
	}

	if len(hits) != 3 {
		t.Fatalf("expected 3 hits, got %d", len(hits))
	}
	if hits[0]["title"] != "a" || hits[2]["title"] != "c" {
		t.Errorf("engine order not preserved: %v", hits)
	}
}

func TestHybridSearch_ZeroRatioIsKeywordOnly(t *testing.T) {
	var got capturedSearch
	engine := newEngine(t, `[]`, &got)
	defer engine.Close()

	_, err := newTestClient(engine.URL).HybridSearch(context.Background(), mustQuery(t, "AI", 5, 0), []float32{1})
	if err != nil {
		t.Fatalf("HybridSearch failed: %v", err)
	}
	if _, ok := got.body["hybrid"]; ok {
		t.Errorf("hybrid should be omitted for ratio 0: %v", got.body)
	}
	if _, ok := got.body["vector"]; ok {
		t.Errorf("vector should be omitted for ratio 0: %v", got.body)
	}
}

func TestHybridSearch_TruncatesToTopK(t *testing.T) {
	var got capturedSearch
	engine := newEngine(t, `[{"id":1},{"id":2},{"id":3}]`, &got)
	defer engine.Close()

	hits, err := newTestClient(engine.URL).HybridSearch(context.Background(), mustQuery(t, "AI", 2, 0.5), []float32{1})
	if err != nil {
		t.Fatalf("HybridSearch failed: %v", err)
	}
	if len(hits) != 2 {
		t.Errorf("expected 2 hits, got %d", len(hits))
	}
	if n, ok := hits[0]["id"].(json.Number); !ok || n.String() != "1" {
		t.Errorf("expected json.Number id, got %#v", hits[0]["id"])
	}
}

func TestHybridSearch_NoHits(t *testing.T) {
	var got capturedSearch
	engine := newEngine(t, `[]`, &got)
	defer engine.Close()

	hits, err := newTestClient(engine.URL).HybridSearch(context.Background(), mustQuery(t, "AI", 5, 0.5), []float32{1})
	if err != nil {
		t.Fatalf("HybridSearch failed: %v", err)
	}
	if hits == nil || len(hits) != 0 {
		t.Errorf("expected empty non-nil hits, got %v", hits)
	}
}

func TestHybridSearch_EngineError(t *testing.T) {
	engine := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Index ` + "`missing`" + ` not found.","code":"index_not_found","type":"invalid_request","link":""}`))
	}))
	defer engine.Close()

	_, err := newTestClient(engine.URL).HybridSearch(context.Background(), mustQuery(t, "AI", 5, 0.5), []float32{1})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, domain.ErrSearch) {
		t.Errorf("expected ErrSearch, got %v", err)
	}
}

func TestHybridSearch_Unreachable(t *testing.T) {
	engine := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := engine.URL
	engine.Close()

	_, err := newTestClient(url).HybridSearch(context.Background(), mustQuery(t, "AI", 5, 0.5), []float32{1})
	if !errors.Is(err, domain.ErrSearch) {
		t.Errorf("expected ErrSearch, got %v", err)
	}
}

func TestHealthCheck(t *testing.T) {
	engine := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"available"}`))
	}))
	defer engine.Close()

	if err := newTestClient(engine.URL).HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck failed: %v", err)
	}
}
