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


package recall

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/ai/openai"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/corpus"
	"github.com/poiesic/recall/ingestion"
	"github.com/poiesic/recall/lexical"
	"github.com/poiesic/recall/reindex"
	"github.com/poiesic/recall/search"
	"github.com/poiesic/recall/session"
	"github.com/poiesic/recall/storage"
	"github.com/poiesic/recall/vectorindex"
)

// Engine owns the document store, the vector index and the lexical
// scorer, and serializes access to them. Ingestion and reindexing take
// the write lock; retrieval and saving take the read lock, so a snapshot
// always sees a consistent state.
type Engine struct {
	mu        sync.RWMutex
	store     *corpus.Store
	index     vectorindex.Index
	pipeline  *ingestion.Pipeline
	retriever *search.Retriever
	closed    bool

	kind         vectorindex.Kind
	params       vectorindex.Params
	provider     ai.AIProvider
	ownsProvider bool
	snapshots    storage.SnapshotStore
	monitor      search.SearchMonitor
	logger       *slog.Logger
}

// Option configures an Engine.
type Option func(*engineOptions) error

type engineOptions struct {
	aiConfig      *ai.Config
	provider      ai.AIProvider
	snapshots     storage.SnapshotStore
	kind          vectorindex.Kind
	params        vectorindex.Params
	lexicalParams lexical.Params
	ingestionOpts []ingestion.Option
	monitor       search.SearchMonitor
	logger        *slog.Logger
}

// WithAIConfig configures the OpenAI-compatible embedding provider the
// engine creates. Ignored when WithProvider is given.
func WithAIConfig(config *ai.Config) Option {
	return func(o *engineOptions) error {
		if config == nil {
			return errors.New("ai config must not be nil")
		}
		o.aiConfig = config
		return nil
	}
}

// WithProvider uses an existing embedding provider. The caller keeps
// ownership and closes it after the engine.
func WithProvider(provider ai.AIProvider) Option {
	return func(o *engineOptions) error {
		o.provider = provider
		return nil
	}
}

// WithSnapshotStore loads state from store on Open and enables Save. The
// engine takes ownership and closes the store on Close.
func WithSnapshotStore(store storage.SnapshotStore) Option {
	return func(o *engineOptions) error {
		o.snapshots = store
		return nil
	}
}

// WithIndexKind selects the vector index implementation.
// Default is vectorindex.KindRebuild.
func WithIndexKind(kind vectorindex.Kind) Option {
	return func(o *engineOptions) error {
		if _, err := vectorindex.ParseKind(string(kind)); err != nil {
			return err
		}
		o.kind = kind
		return nil
	}
}

// WithIndexParams sets the graph parameters used for new indexes.
func WithIndexParams(params vectorindex.Params) Option {
	return func(o *engineOptions) error {
		o.params = params
		return nil
	}
}

// WithLexicalParams overrides the BM25+ constants.
func WithLexicalParams(params lexical.Params) Option {
	return func(o *engineOptions) error {
		o.lexicalParams = params
		return nil
	}
}

// WithIngestionOptions passes options to the ingestion pipeline.
func WithIngestionOptions(opts ...ingestion.Option) Option {
	return func(o *engineOptions) error {
		o.ingestionOpts = append(o.ingestionOpts, opts...)
		return nil
	}
}

// WithSearchMonitor observes every retrieval made through the engine.
func WithSearchMonitor(monitor search.SearchMonitor) Option {
	return func(o *engineOptions) error {
		o.monitor = monitor
		return nil
	}
}

// WithLogger sets the logger shared by all components.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *engineOptions) error {
		if logger != nil {
			o.logger = logger
		}
		return nil
	}
}

// Open creates an engine. When a snapshot store is configured its
// snapshot is loaded; a missing or unusable snapshot is logged and the
// engine starts empty.
func Open(ctx context.Context, opts ...Option) (*Engine, error) {
	options := &engineOptions{
		aiConfig:      ai.DefaultConfig(),
		kind:          vectorindex.KindRebuild,
		params:        vectorindex.DefaultParams(),
		lexicalParams: lexical.DefaultParams(),
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}

	e := &Engine{
		kind:      options.kind,
		params:    options.params,
		provider:  options.provider,
		snapshots: options.snapshots,
		monitor:   options.monitor,
		logger:    options.logger.With("component", "engine"),
	}
	if e.provider == nil {
		provider, err := openai.NewProvider(options.aiConfig)
		if err != nil {
			return nil, err
		}
		e.provider = provider
		e.ownsProvider = true
	}

	store, index, err := e.load(ctx)
	if err != nil {
		e.closeResources()
		return nil, err
	}
	e.store = store
	e.index = index

	pipelineOpts := append([]ingestion.Option{ingestion.WithLogger(options.logger)}, options.ingestionOpts...)
	e.pipeline, err = ingestion.NewPipeline(store, index, e.provider, pipelineOpts...)
	if err != nil {
		e.closeResources()
		return nil, err
	}
	scorer := lexical.NewScorerWithParams(store, options.lexicalParams)
	e.retriever, err = search.NewRetriever(index, scorer, e.provider, search.WithLogger(options.logger))
	if err != nil {
		e.pipeline.Release()
		e.closeResources()
		return nil, err
	}

	e.logger.Info("engine ready", "documents", store.Len(), "points", index.Len(), "index", e.kind)
	return e, nil
}

// load restores state from the snapshot store, falling back to an empty
// state when there is nothing usable to restore.
func (e *Engine) load(ctx context.Context) (*corpus.Store, vectorindex.Index, error) {
	empty := func() (*corpus.Store, vectorindex.Index, error) {
		index, err := vectorindex.New(e.kind, e.params)
		return corpus.NewStore(), index, err
	}
	if e.snapshots == nil {
		return empty()
	}

	snapshot, err := e.snapshots.Load(ctx)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		e.logger.Info("no snapshot found, starting empty")
		return empty()
	case errors.Is(err, storage.ErrCorruptSnapshot):
		e.logger.Warn("snapshot is corrupt, starting empty", "err", err)
		return empty()
	case err != nil:
		return nil, nil, fmt.Errorf("load snapshot: %w", err)
	}

	store, index, err := e.restore(snapshot)
	if err != nil {
		e.logger.Warn("snapshot is inconsistent, starting empty", "err", err)
		return empty()
	}
	e.logger.Info("snapshot loaded", "documents", store.Len(), "points", index.Len())
	return store, index, nil
}

func (e *Engine) restore(snapshot *storage.Snapshot) (*corpus.Store, vectorindex.Index, error) {
	store, err := corpus.Restore(snapshot.Documents, snapshot.Hashes, snapshot.Stats)
	if err != nil {
		return nil, nil, err
	}

	var index vectorindex.Index
	if snapshot.Graph == nil {
		index, err = vectorindex.New(e.kind, e.params)
	} else {
		index, err = vectorindex.Restore(e.kind, snapshot.Graph)
	}
	if err != nil {
		return nil, nil, err
	}

	for i, p := range index.Points() {
		if _, ok := store.Get(p.Owner); !ok {
			return nil, nil, fmt.Errorf("point %d belongs to unknown document %d", i, p.Owner)
		}
	}
	return store, index, nil
}

// Ingest chunks text into windows and ingests each as a document.
func (e *Engine) Ingest(ctx context.Context, text string) (*ingestion.Report, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrEngineClosed
	}
	return e.pipeline.Ingest(ctx, text)
}

// IngestFile ingests a plain-text or markdown file.
func (e *Engine) IngestFile(ctx context.Context, path string) (*ingestion.Report, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrEngineClosed
	}
	return e.pipeline.IngestFile(ctx, path)
}

// Retrieve returns up to topK documents for query, best first.
func (e *Engine) Retrieve(ctx context.Context, query string, topK int, threshold float32) ([]core.Candidate, error) {
	return e.RetrieveWithMonitor(ctx, query, topK, threshold, e.monitor)
}

// RetrieveWithMonitor is Retrieve with an explicit monitor.
func (e *Engine) RetrieveWithMonitor(ctx context.Context, query string, topK int, threshold float32, monitor search.SearchMonitor) ([]core.Candidate, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return nil, ErrEngineClosed
	}
	return e.retriever.RetrieveWithMonitor(ctx, query, topK, threshold, monitor)
}

// Texts returns the text of the listed documents, skipping unknown IDs.
func (e *Engine) Texts(ids []core.DocumentID) []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store.Texts(ids)
}

// Document returns a stored document.
func (e *Engine) Document(id core.DocumentID) (*core.Document, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store.Get(id)
}

// NewSession starts a conversation memory that retrieves through the engine.
func (e *Engine) NewSession(opts ...session.Option) (*session.Memory, error) {
	opts = append([]session.Option{session.WithLogger(e.logger)}, opts...)
	return session.NewMemory(e, e, opts...)
}

// Save writes the current state to the snapshot store.
func (e *Engine) Save(ctx context.Context) error {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return ErrEngineClosed
	}
	if e.snapshots == nil {
		e.mu.RUnlock()
		return ErrNoSnapshotStore
	}
	snapshot := &storage.Snapshot{
		Graph:     e.index.State(),
		Documents: slices.Clone(e.store.Documents()),
		Stats:     e.store.Stats(),
		Hashes:    e.store.Hashes(),
	}
	e.mu.RUnlock()

	if err := e.snapshots.Save(ctx, snapshot); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	e.logger.Info("snapshot saved", "documents", len(snapshot.Documents), "points", len(snapshot.Graph.Points))
	return nil
}

// Stats describes the engine contents.
type Stats struct {
	Documents     int
	Points        int
	Terms         int
	AverageLength float32
	IndexKind     vectorindex.Kind
}

// Stats returns counts describing the current state.
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	corpusStats := e.store.Stats()
	return Stats{
		Documents:     e.store.Len(),
		Points:        e.index.Len(),
		Terms:         len(corpusStats.TermTotals),
		AverageLength: corpusStats.AverageLength,
		IndexKind:     e.kind,
	}
}

// Reindex re-embeds every document with the engine's provider and swaps
// in the resulting index. On failure the current index is kept. A nil
// config uses reindex defaults with the engine's index kind and params.
func (e *Engine) Reindex(ctx context.Context, config *reindex.Config, progress io.Writer) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrEngineClosed
	}

	if config == nil {
		config = reindex.DefaultConfig()
		config.Kind = e.kind
		config.Params = e.params
	}
	r, err := reindex.NewReindexer(e.store, e.provider.Embedder(), config, progress)
	if err != nil {
		return err
	}
	index, err := r.Run(ctx)
	if err != nil {
		return fmt.Errorf("reindex: %w", err)
	}

	e.index = index
	e.kind = config.Kind
	e.params = config.Params
	e.pipeline.UseIndex(index)
	e.retriever.UseIndex(index)
	e.logger.Info("index replaced", "points", index.Len(), "index", e.kind)
	return nil
}

// Close releases the pipeline, the snapshot store and, when the engine
// created it, the embedding provider. Close does not save.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	if e.pipeline != nil {
		e.pipeline.Release()
	}
	return e.closeResources()
}

func (e *Engine) closeResources() error {
	var errs []error
	if e.ownsProvider {
		if err := e.provider.Close(); err != nil {
			e.logger.Error("error closing AI provider", "err", err)
			errs = append(errs, err)
		}
	}
	if e.snapshots != nil {
		if err := e.snapshots.Close(); err != nil {
			e.logger.Error("error closing snapshot store", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
