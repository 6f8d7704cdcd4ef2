package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/core"
)

// DefaultBatchSize is the number of sentences sent to the embedder per call.
const DefaultBatchSize = 25

// batchEmbedder embeds sentences in fixed-size batches on a worker pool and
// reassembles the vectors in sentence order.
type batchEmbedder struct {
	embedder  ai.Embedder
	pool      *ants.Pool
	batchSize int
	logger    *slog.Logger
}

func newBatchEmbedder(embedder ai.Embedder, pool *ants.Pool, batchSize int, logger *slog.Logger) (*batchEmbedder, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder required")
	}
	if pool == nil {
		return nil, fmt.Errorf("worker pool required")
	}
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &batchEmbedder{
		embedder:  embedder,
		pool:      pool,
		batchSize: batchSize,
		logger:    logger.With("processor", "embeddings"),
	}, nil
}

// embed returns one vector per sentence. Any failure is reported as
// core.ErrProviderFailure, with every batch error joined in.
func (be *batchEmbedder) embed(ctx context.Context, sentences []string) ([][]float32, error) {
	var batches [][]string
	for start := 0; start < len(sentences); start += be.batchSize {
		end := min(start+be.batchSize, len(sentences))
		batches = append(batches, sentences[start:end])
	}

	be.logger.Debug("embedding sentences", "sentences", len(sentences), "batches", len(batches))

	results := make([][][]float32, len(batches))
	errs := make([]error, len(batches))
	var wg sync.WaitGroup

	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			errs[i] = err
			break
		}
		wg.Add(1)
		err := be.pool.Submit(func() {
			defer wg.Done()
			vectors, err := be.embedder.EmbedTexts(ctx, batch)
			if err != nil {
				errs[i] = fmt.Errorf("batch %d: %w", i, err)
				return
			}
			if len(vectors) != len(batch) {
				errs[i] = fmt.Errorf("batch %d: expected %d vectors, received %d", i, len(batch), len(vectors))
				return
			}
			results[i] = vectors
		})
		if err != nil {
			wg.Done()
			errs[i] = fmt.Errorf("batch %d: submit: %w", i, err)
		}
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		be.logger.Error("error generating embeddings", "err", err)
		return nil, fmt.Errorf("%w: %w", core.ErrProviderFailure, err)
	}

	vectors := make([][]float32, 0, len(sentences))
	for _, batch := range results {
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}
