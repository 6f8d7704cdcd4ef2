package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/corpus"
	"github.com/poiesic/recall/lexical"
	"github.com/poiesic/recall/vectorindex"
)

// Pipeline ingests documents into a store and a vector index.
// It is not safe for concurrent use; callers serialize ingestion.
type Pipeline struct {
	store        *corpus.Store
	index        vectorindex.Index
	embedder     ai.Embedder
	pool         *ants.Pool
	batches      *batchEmbedder
	batchSize    int
	chunkSize    int
	chunkOverlap int
	logger       *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent embedding batches.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		if p.pool != nil {
			p.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithBatchSize sets the number of sentences per embedding call.
// Default is DefaultBatchSize.
func WithBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			return fmt.Errorf("batch size must be positive, got %d", size)
		}
		p.batchSize = size
		return nil
	}
}

// WithChunking sets the window size and overlap, in characters, used by Ingest.
func WithChunking(size, overlap int) Option {
	return func(p *Pipeline) error {
		if size < 1 || overlap < 0 || overlap >= size {
			return fmt.Errorf("invalid chunking: size %d, overlap %d", size, overlap)
		}
		p.chunkSize = size
		p.chunkOverlap = overlap
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(store *corpus.Store, index vectorindex.Index, provider ai.AIProvider, opts ...Option) (*Pipeline, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if index == nil {
		return nil, ErrIndexRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		store:        store,
		index:        index,
		embedder:     provider.Embedder(),
		pool:         pool,
		batchSize:    DefaultBatchSize,
		chunkSize:    DefaultChunkSize,
		chunkOverlap: DefaultChunkOverlap,
		logger:       slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}
	p.logger = p.logger.With("component", "ingestion")

	batches, err := newBatchEmbedder(p.embedder, p.pool, p.batchSize, p.logger)
	if err != nil {
		p.Release()
		return nil, err
	}
	p.batches = batches

	return p, nil
}

// Report summarizes the outcome of ingesting one input.
type Report struct {
	Windows    int               // Windows the input was cut into
	Documents  []core.DocumentID // Newly committed documents
	Duplicates int               // Windows already stored
	Empty      int               // Windows without sentences
}

// Skipped returns the number of windows that were not committed.
func (r *Report) Skipped() int {
	return r.Duplicates + r.Empty
}

// Ingest cuts text into windows and ingests each one as a document.
// Duplicate and empty windows are counted and skipped; any other error
// stops ingestion and is returned together with the partial report.
func (p *Pipeline) Ingest(ctx context.Context, text string) (*Report, error) {
	windows := Chunk(text, p.chunkSize, p.chunkOverlap)
	if len(windows) == 0 {
		// empty input is a single empty window
		windows = []string{text}
	}
	report := &Report{Windows: len(windows)}

	for i, window := range windows {
		id, err := p.IngestDocument(ctx, window)
		switch {
		case err == nil:
			report.Documents = append(report.Documents, id)
		case errors.Is(err, core.ErrDuplicate):
			p.logger.Info("document already present", "window", i)
			report.Duplicates++
		case errors.Is(err, core.ErrEmpty):
			p.logger.Info("document has no sentences", "window", i)
			report.Empty++
		default:
			return report, err
		}
	}

	p.logger.Info("ingested text", "windows", report.Windows, "documents", len(report.Documents), "skipped", report.Skipped())
	return report, nil
}

// IngestDocument ingests text as a single document.
//
// It returns core.ErrDuplicate if identical text is already stored,
// core.ErrEmpty if the text has no sentences, and an error wrapping
// core.ErrProviderFailure if embedding fails. In every error case nothing
// is committed.
func (p *Pipeline) IngestDocument(ctx context.Context, text string) (core.DocumentID, error) {
	if _, ok := p.store.Lookup(core.ContentHash(text)); ok {
		return 0, core.ErrDuplicate
	}

	sentences := lexical.SplitSentences(text)
	if len(sentences) == 0 {
		return 0, core.ErrEmpty
	}

	vectors, err := p.batches.embed(ctx, sentences)
	if err != nil {
		return 0, err
	}
	if err := p.checkVectors(vectors); err != nil {
		return 0, fmt.Errorf("%w: %w", core.ErrProviderFailure, err)
	}

	counts, total := lexical.CountTerms(sentences)
	pending, err := p.store.Prepare(text, counts, total)
	if err != nil {
		return 0, err
	}

	points := make([]core.EmbeddingPoint, len(vectors))
	for i, vector := range vectors {
		points[i] = core.EmbeddingPoint{Vector: vector, Owner: pending.ID()}
	}
	if err := p.index.InsertBatch(points); err != nil {
		p.logger.Error("index rejected document points", "document", pending.ID(), "err", err)
		return 0, fmt.Errorf("index document %d: %w", pending.ID(), err)
	}

	doc, err := p.store.Commit(pending)
	if err != nil {
		// only reachable if the store was written outside this pipeline
		p.logger.Error("commit failed after indexing", "document", pending.ID(), "err", err)
		return 0, err
	}

	p.logger.Debug("committed document", "document", doc.ID, "sentences", len(sentences), "terms", total)
	return doc.ID, nil
}

// checkVectors verifies every vector is non-empty and matches the index dimension.
func (p *Pipeline) checkVectors(vectors [][]float32) error {
	dim := 0
	if points := p.index.Points(); len(points) > 0 {
		dim = len(points[0].Vector)
	}
	for i, vector := range vectors {
		if err := core.ValidatePoint(core.EmbeddingPoint{Vector: vector}, dim); err != nil {
			return fmt.Errorf("sentence %d: %w", i, err)
		}
		if dim == 0 {
			dim = len(vector)
		}
	}
	return nil
}

// IngestFile reads a plain-text or markdown file and ingests its contents.
// Other formats return core.ErrUnsupported.
func (p *Pipeline) IngestFile(ctx context.Context, path string) (*Report, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown", ".txt":
	default:
		return nil, fmt.Errorf("%w: %s", core.ErrUnsupported, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	p.logger.Info("ingesting file", "path", path, "bytes", len(data))
	return p.Ingest(ctx, string(data))
}

// UseIndex replaces the index new points are committed to.
func (p *Pipeline) UseIndex(index vectorindex.Index) {
	p.index = index
}

// Release releases resources including the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
