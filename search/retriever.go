package search

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/lexical"
	"github.com/poiesic/recall/vectorindex"
)

// Retriever answers queries with fused lexical and vector search.
type Retriever struct {
	index    vectorindex.Index
	scorer   *lexical.Scorer
	embedder ai.Embedder
	logger   *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// NewRetriever creates a new retriever.
func NewRetriever(index vectorindex.Index, scorer *lexical.Scorer, provider ai.AIProvider, opts ...Option) (*Retriever, error) {
	if index == nil {
		return nil, ErrIndexRequired
	}
	if scorer == nil {
		return nil, ErrScorerRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	r := &Retriever{
		index:    index,
		scorer:   scorer,
		embedder: provider.Embedder(),
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	r.logger = r.logger.With("component", "retriever")

	return r, nil
}

// Retrieve returns up to topK documents for query, ascending by fused
// distance, with trailing entries above threshold removed.
//
// An empty result with a nil error means no document matched the query
// lexically. Embedding failures are reported as core.ErrProviderFailure.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int, threshold float32) ([]core.Candidate, error) {
	return r.RetrieveWithMonitor(ctx, query, topK, threshold, nil)
}

// RetrieveWithMonitor is Retrieve with callbacks at each stage.
func (r *Retriever) RetrieveWithMonitor(ctx context.Context, query string, topK int, threshold float32, monitor SearchMonitor) ([]core.Candidate, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	monitor.Start(query, topK, threshold)

	scored := r.scorer.Score(query)
	monitor.AfterLexicalScoring(scored)
	if len(scored) == 0 {
		r.logger.Debug("no lexical matches", "query", query)
		monitor.Finish(nil)
		return nil, nil
	}

	embedding, err := r.embedder.EmbedText(ctx, query)
	if err != nil {
		r.logger.Error("error generating embedding for query", "err", err)
		return nil, fmt.Errorf("%w: %w", core.ErrProviderFailure, err)
	}

	vector, err := r.index.Search(embedding, topK)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrProviderFailure, err)
	}
	monitor.AfterVectorSearch(vector)

	results := Fuse(vector, scored, topK, threshold)
	monitor.Finish(results)
	return results, nil
}

// UseIndex replaces the index queried for vector candidates.
func (r *Retriever) UseIndex(index vectorindex.Index) {
	r.index = index
}
