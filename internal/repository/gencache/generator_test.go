package gencache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/searchlens/internal/db"
	"github.com/kailas-cloud/searchlens/internal/domain"
)

type mockGenerator struct {
	text  string
	err   error
	calls int
}

func (m *mockGenerator) Generate(_ context.Context, _ domain.GenerationRequest) (domain.GenerationResult, error) {
	m.calls++
	if m.err != nil {
		return domain.GenerationResult{}, m.err
	}
	return domain.GenerationResult{Text: m.text, PromptTokens: 40, CompletionTokens: 8}, nil
}

// memStore is an in-memory KV store.
type memStore struct {
	data   map[string][]byte
	getErr error
	ttls   []time.Duration
}

func newMemStore() *memStore { return &memStore{data: map[string][]byte{}} }

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *memStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.data[key] = value
	m.ttls = append(m.ttls, ttl)
	return nil
}

var summaryReq = domain.GenerationRequest{
	System:      "system",
	Prompt:      "summarize this",
	Temperature: 0.3,
	MaxTokens:   128,
}

func TestGenerate_MissThenHit(t *testing.T) {
	inner := &mockGenerator{text: "一句话摘要"}
	s := newMemStore()
	total := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "gen_cache_test_total"}, []string{"result"})
	g := New(inner, s, "qwen", 24*time.Hour, total, zap.NewNop())

	first, err := g.Generate(context.Background(), summaryReq)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Text != "一句话摘要" || first.CompletionTokens != 8 {
		t.Fatalf("unexpected first result: %+v", first)
	}

	ctx, usage := domain.NewContextWithUsage(context.Background())
	second, err := g.Generate(ctx, summaryReq)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.Text != "一句话摘要" {
		t.Fatalf("expected cached text, got %q", second.Text)
	}
	if second.CompletionTokens != 0 {
		t.Errorf("cache hit must report zero tokens, got %d", second.CompletionTokens)
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 inner call, got %d", inner.calls)
	}
	if usage.Snapshot().CacheHits != 1 {
		t.Errorf("expected usage cache hit, got %+v", usage.Snapshot())
	}
	if len(s.ttls) != 1 || s.ttls[0] != 24*time.Hour {
		t.Errorf("unexpected ttls: %v", s.ttls)
	}
	if got := testutil.ToFloat64(total.WithLabelValues("hit")); got != 1 {
		t.Errorf("hit = %v", got)
	}
	if got := testutil.ToFloat64(total.WithLabelValues("miss")); got != 1 {
		t.Errorf("miss = %v", got)
	}
}

func TestGenerate_ErrorNotCached(t *testing.T) {
	inner := &mockGenerator{err: domain.ErrEnrichment}
	s := newMemStore()
	g := New(inner, s, "qwen", 0, nil, zap.NewNop())

	_, err := g.Generate(context.Background(), summaryReq)
	if !errors.Is(err, domain.ErrEnrichment) {
		t.Fatalf("expected ErrEnrichment, got %v", err)
	}
	if len(s.data) != 0 {
		t.Fatal("errors must not be cached")
	}
}

func TestGenerate_EmptyTextNotCached(t *testing.T) {
	inner := &mockGenerator{text: ""}
	s := newMemStore()
	g := New(inner, s, "qwen", 0, nil, zap.NewNop())

	if _, err := g.Generate(context.Background(), summaryReq); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.data) != 0 {
		t.Fatal("empty output must not be cached")
	}
}

func TestGenerate_StoreErrorFallsThrough(t *testing.T) {
	inner := &mockGenerator{text: "ok"}
	s := newMemStore()
	s.getErr = errors.New("connection reset")
	g := New(inner, s, "qwen", 0, nil, zap.NewNop())

	res, err := g.Generate(context.Background(), summaryReq)
	if err != nil {
		t.Fatalf("store errors must not fail generation: %v", err)
	}
	if res.Text != "ok" || inner.calls != 1 {
		t.Fatalf("expected inner result, got %+v (calls=%d)", res, inner.calls)
	}
}

func TestCacheKey(t *testing.T) {
	g := New(&mockGenerator{}, newMemStore(), "qwen", 0, nil, zap.NewNop())

	base := g.cacheKey(summaryReq)
	if !strings.HasPrefix(base, "searchlens:gen_cache:") {
		t.Fatalf("unexpected prefix: %q", base)
	}

	other := summaryReq
	other.Prompt = "extract keywords"
	if g.cacheKey(other) == base {
		t.Error("different prompts must produce different keys")
	}

	other = summaryReq
	other.Temperature = 0.7
	if g.cacheKey(other) == base {
		t.Error("different temperatures must produce different keys")
	}

	g2 := New(&mockGenerator{}, newMemStore(), "other-model", 0, nil, zap.NewNop())
	if g2.cacheKey(summaryReq) == base {
		t.Error("different models must produce different keys")
	}
}
