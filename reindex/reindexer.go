// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package reindex

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/vectorindex"
)

// Config holds configuration for a reindex run.
type Config struct {
	// BatchSize is the number of documents embedded per provider call
	BatchSize int

	// ReportInterval is how often to report progress (number of documents)
	ReportInterval int

	// MaxRetries is the maximum number of attempts per batch
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration

	// Normalize scales every vector to unit length
	Normalize bool

	// Kind and Params describe the index to build
	Kind   vectorindex.Kind
	Params vectorindex.Params
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      DefaultBatchSize,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
		Kind:           vectorindex.KindRebuild,
		Params:         vectorindex.DefaultParams(),
	}
}

// Reindexer re-embeds every document of a store into a new index.
type Reindexer struct {
	config    *Config
	progress  io.Writer
	logger    *slog.Logger
	processor *BatchProcessor
	iterator  *DocumentIterator
}

// NewReindexer creates a reindexer. progress receives human-readable
// progress lines and may be nil.
func NewReindexer(source DocumentSource, embedder ai.Embedder, config *Config, progress io.Writer) (*Reindexer, error) {
	if source == nil {
		return nil, ErrStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if progress == nil {
		progress = io.Discard
	}

	return &Reindexer{
		config:    config,
		progress:  progress,
		logger:    slog.Default().With("component", "reindex"),
		processor: NewBatchProcessor(embedder, config.MaxRetries, config.RetryDelay, config.Normalize),
		iterator:  NewDocumentIterator(source, config.BatchSize),
	}, nil
}

// Run embeds all documents and returns the new index. Nothing is returned
// unless every batch succeeded.
func (r *Reindexer) Run(ctx context.Context) (vectorindex.Index, error) {
	total := r.iterator.Len()
	if total == 0 {
		fmt.Fprintf(r.progress, "No documents to reindex\n")
		return vectorindex.New(r.config.Kind, r.config.Params)
	}

	fmt.Fprintf(r.progress, "Reindexing %d documents (batch size: %d)\n", total, r.config.BatchSize)
	tracker := NewProgressTracker(r.progress, total, r.config.ReportInterval)
	tracker.Start()

	var points []core.EmbeddingPoint
	err := r.iterator.ForEach(ctx, func(docs []*core.Document) error {
		batch, err := r.processor.Process(ctx, docs)
		if err != nil {
			return fmt.Errorf("documents %d-%d: %w", docs[0].ID, docs[len(docs)-1].ID, err)
		}
		points = append(points, batch...)
		tracker.Add(len(docs), len(batch))
		return nil
	})
	if err != nil {
		return nil, err
	}

	index, err := vectorindex.Build(r.config.Kind, r.config.Params, points)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrProviderFailure, err)
	}
	tracker.Finish()

	elapsed := tracker.Elapsed()
	r.logger.Info("reindex complete", "documents", total, "points", len(points), "elapsed", elapsed)
	fmt.Fprintf(r.progress, "Reindex complete. %d documents, %d sentences in %v\n",
		total, len(points), elapsed.Round(time.Millisecond))
	return index, nil
}
