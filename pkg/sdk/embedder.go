package searchlens

import "context"

// Embedder converts the query text to a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// EmbeddingResult carries the embedding vector and token counts.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// Generator answers a system+user prompt. Used for summaries and keywords.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (GenerationResult, error)
}

// GenerationRequest is one chat completion request.
type GenerationRequest struct {
	System      string
	Prompt      string
	Temperature float32
	MaxTokens   int
}

// GenerationResult carries the generated text and token counts.
type GenerationResult struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}
