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


// Package config loads the recall configuration file.
//
// The file is YAML. Missing files and missing fields fall back to
// defaults, and RECALL_* environment variables override file values so a
// deployment can keep secrets out of the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/vectorindex"
)

// Snapshot backends.
const (
	BackendFile   = "file"
	BackendBadger = "badger"
)

// EmbeddingConfig configures the OpenAI-compatible embedding endpoint.
type EmbeddingConfig struct {
	Host          string `yaml:"host"`
	Model         string `yaml:"model"`
	APIKey        string `yaml:"api_key,omitempty"`
	StripNewLines *bool  `yaml:"strip_newlines,omitempty"`
}

// SnapshotConfig selects where the engine state is persisted.
type SnapshotConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// IndexConfig selects and tunes the vector index.
type IndexConfig struct {
	Kind           string `yaml:"kind"`
	M              int    `yaml:"m"`
	EfConstruction int    `yaml:"ef_construction"`
	EfSearch       int    `yaml:"ef_search"`
	Seed           int64  `yaml:"seed"`
}

// IngestionConfig configures chunking and embedding fan-out.
type IngestionConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
	BatchSize    int `yaml:"batch_size"`
	PoolSize     int `yaml:"pool_size"`
}

// RetrievalConfig holds defaults for one-shot queries.
type RetrievalConfig struct {
	TopK      int     `yaml:"top_k"`
	Threshold float32 `yaml:"threshold"`
}

// ReindexConfig configures the offline re-embedding run.
type ReindexConfig struct {
	BatchSize  int           `yaml:"batch_size"`
	MaxRetries int           `yaml:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
	Normalize  bool          `yaml:"normalize"`
}

// Config is the root configuration.
type Config struct {
	Embedding EmbeddingConfig `yaml:"embedding"`
	Snapshot  SnapshotConfig  `yaml:"snapshot"`
	Index     IndexConfig     `yaml:"index"`
	Ingestion IngestionConfig `yaml:"ingestion"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Reindex   ReindexConfig   `yaml:"reindex"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	aiCfg := ai.DefaultConfig()
	params := vectorindex.DefaultParams()
	strip := aiCfg.StripNewLines
	return &Config{
		Embedding: EmbeddingConfig{
			Host:          aiCfg.EmbeddingHost,
			Model:         aiCfg.EmbeddingModel,
			StripNewLines: &strip,
		},
		Snapshot: SnapshotConfig{
			Backend: BackendFile,
			Path:    "recall.snap",
		},
		Index: IndexConfig{
			Kind:           string(vectorindex.KindRebuild),
			M:              params.M,
			EfConstruction: params.EfConstruction,
			EfSearch:       params.EfSearch,
			Seed:           params.Seed,
		},
		Ingestion: IngestionConfig{
			ChunkSize:    20000,
			ChunkOverlap: 10000,
			BatchSize:    25,
		},
		Retrieval: RetrievalConfig{
			TopK:      5,
			Threshold: 0.3,
		},
		Reindex: ReindexConfig{
			BatchSize:  100,
			MaxRetries: 3,
			RetryDelay: time.Second,
		},
	}
}

// Load reads a config from path. An empty path or a missing file yields
// the defaults; fields absent from the file keep their default values.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path, creating directories as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ApplyEnv overrides fields from RECALL_* variables found by lookup,
// usually os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	overrides := map[string]*string{
		"RECALL_EMBEDDING_HOST":   &c.Embedding.Host,
		"RECALL_EMBEDDING_MODEL":  &c.Embedding.Model,
		"RECALL_API_KEY":          &c.Embedding.APIKey,
		"RECALL_SNAPSHOT_BACKEND": &c.Snapshot.Backend,
		"RECALL_SNAPSHOT_PATH":    &c.Snapshot.Path,
		"RECALL_INDEX_KIND":       &c.Index.Kind,
	}
	for name, field := range overrides {
		if v, ok := lookup(name); ok && v != "" {
			*field = v
		}
	}

	if v, ok := lookup("RECALL_TOP_K"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RECALL_TOP_K: %w", err)
		}
		c.Retrieval.TopK = n
	}
	if v, ok := lookup("RECALL_THRESHOLD"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return fmt.Errorf("RECALL_THRESHOLD: %w", err)
		}
		c.Retrieval.Threshold = float32(f)
	}
	return nil
}

// Validate checks the configuration for values the engine cannot use.
func (c *Config) Validate() error {
	var errs []error
	if _, err := vectorindex.ParseKind(c.Index.Kind); err != nil {
		errs = append(errs, fmt.Errorf("index.kind: %w", err))
	}
	switch c.Snapshot.Backend {
	case BackendFile, BackendBadger:
	default:
		errs = append(errs, fmt.Errorf("snapshot.backend: unknown backend %q", c.Snapshot.Backend))
	}
	if c.Snapshot.Path == "" {
		errs = append(errs, errors.New("snapshot.path is required"))
	}
	if c.Ingestion.ChunkSize < 1 || c.Ingestion.ChunkOverlap < 0 || c.Ingestion.ChunkOverlap >= c.Ingestion.ChunkSize {
		errs = append(errs, fmt.Errorf("ingestion: invalid chunking %d/%d", c.Ingestion.ChunkSize, c.Ingestion.ChunkOverlap))
	}
	if c.Ingestion.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("ingestion.batch_size must be positive, got %d", c.Ingestion.BatchSize))
	}
	if c.Retrieval.TopK < 1 {
		errs = append(errs, fmt.Errorf("retrieval.top_k must be positive, got %d", c.Retrieval.TopK))
	}
	if err := c.AI().Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// AI returns the embedding provider configuration.
func (c *Config) AI() *ai.Config {
	opts := []ai.ConfigOption{
		ai.WithEmbeddingHost(c.Embedding.Host),
		ai.WithEmbeddingModel(c.Embedding.Model),
		ai.WithAPIKey(c.Embedding.APIKey),
	}
	if c.Embedding.StripNewLines != nil {
		opts = append(opts, ai.WithStripNewLines(*c.Embedding.StripNewLines))
	}
	return ai.NewConfig(opts...)
}

// IndexKind returns the configured index kind, defaulting to rebuild.
func (c *Config) IndexKind() vectorindex.Kind {
	kind, err := vectorindex.ParseKind(c.Index.Kind)
	if err != nil {
		return vectorindex.KindRebuild
	}
	return kind
}

// IndexParams returns the configured graph parameters.
func (c *Config) IndexParams() vectorindex.Params {
	return vectorindex.Params{
		M:              c.Index.M,
		EfConstruction: c.Index.EfConstruction,
		EfSearch:       c.Index.EfSearch,
		Seed:           c.Index.Seed,
	}
}
