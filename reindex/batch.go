package reindex

import (
	"context"
	"fmt"
	"time"

	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/lexical"
)

// BatchProcessor embeds the sentences of a batch of documents.
type BatchProcessor struct {
	embedder       ai.Embedder
	maxRetries     int
	retryBaseDelay time.Duration
	normalize      bool
}

// NewBatchProcessor creates a processor. With normalize set, every vector
// is scaled to unit length before it becomes a point.
func NewBatchProcessor(embedder ai.Embedder, maxRetries int, retryBaseDelay time.Duration, normalize bool) *BatchProcessor {
	return &BatchProcessor{
		embedder:       embedder,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
		normalize:      normalize,
	}
}

// Process returns one point per sentence of docs, in document and sentence
// order. Embedding failures are retried; the final failure is wrapped in
// core.ErrProviderFailure.
func (bp *BatchProcessor) Process(ctx context.Context, docs []*core.Document) ([]core.EmbeddingPoint, error) {
	var texts []string
	var owners []core.DocumentID
	for _, doc := range docs {
		for _, sentence := range lexical.SplitSentences(doc.Text) {
			texts = append(texts, sentence)
			owners = append(owners, doc.ID)
		}
	}
	if len(texts) == 0 {
		return nil, nil
	}

	var embeddings [][]float32
	err := RetryWithBackoff(ctx, bp.maxRetries, bp.retryBaseDelay, func(ctx context.Context) error {
		var err error
		embeddings, err = bp.embedder.EmbedTexts(ctx, texts)
		return err
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: after %d attempts: %w", core.ErrProviderFailure, bp.maxRetries, err)
	}
	if len(embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: embedding count mismatch: expected %d, got %d", core.ErrProviderFailure, len(texts), len(embeddings))
	}

	points := make([]core.EmbeddingPoint, len(texts))
	for i, vector := range embeddings {
		if bp.normalize {
			vector = NormalizeVector(vector)
		}
		points[i] = core.EmbeddingPoint{Vector: vector, Owner: owners[i]}
	}
	return points, nil
}
