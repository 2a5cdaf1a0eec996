package searchlens

import "time"

// Result is one enriched search hit. Absent optional fields read "无".
type Result struct {
	Rank         int
	Title        string
	Identifier   string
	Author       string
	Organization string
	Industry     string
	Tags         []string
	PublishTime  string
	SourceURL    string
	Poster       string
	Description  string
	Content      string
	PDFLink      string
	FileURL      string

	// Summary and Keywords hold the generated text, a placeholder for
	// results without content, or an inline failure message.
	Summary  string
	Keywords string
}

// Timings breaks a search down by stage.
type Timings struct {
	Embed     time.Duration
	Search    time.Duration
	Normalize time.Duration
	Enrich    time.Duration
}

// Usage counts the model calls one search made.
type Usage struct {
	EmbeddingTokens  int64
	GenerationCalls  int64
	GenerationTokens int64
	CacheHits        int64
}

// Response is the result of one search.
type Response struct {
	Query         string
	KnowledgeBase string
	Results       []Result
	// Elapsed covers embedding, search, and normalization.
	Elapsed time.Duration
	Timings Timings
	Usage   Usage
}

// SearchOption adjusts a single search.
type SearchOption func(*searchOptions)

type searchOptions struct {
	knowledgeBase string
	topK          int
	semanticRatio *float64
}

// InKnowledgeBase searches the named index instead of the default one.
func InKnowledgeBase(name string) SearchOption {
	return func(o *searchOptions) { o.knowledgeBase = name }
}

// TopK limits the number of results.
func TopK(n int) SearchOption {
	return func(o *searchOptions) { o.topK = n }
}

// SemanticRatio sets the semantic weight: 0 is keyword only, 1 is vector only.
func SemanticRatio(r float64) SearchOption {
	return func(o *searchOptions) { o.semanticRatio = &r }
}
