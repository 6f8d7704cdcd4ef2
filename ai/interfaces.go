package ai

import "context"

// Embedder turns text into vectors for semantic similarity search.
// Implementations must be safe for concurrent use; the ingestion pipeline
// calls EmbedTexts from several workers at once.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates embeddings for a batch of texts.
	// The returned slice holds one vector per input text, in input order.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// AIProvider owns the embedding service and its lifecycle.
type AIProvider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// Close releases resources held by the provider and its services.
	Close() error
}
