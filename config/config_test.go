package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/recall/vectorindex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, vectorindex.KindRebuild, cfg.IndexKind())
	assert.Equal(t, vectorindex.DefaultParams(), cfg.IndexParams())
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.InDelta(t, 0.3, cfg.Retrieval.Threshold, 1e-6)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recall.yaml")
	content := `
embedding:
  model: nomic-embed-text
  strip_newlines: false
snapshot:
  backend: badger
  path: /tmp/recall-db
index:
  kind: incremental
reindex:
  retry_delay: 250ms
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "nomic-embed-text", cfg.Embedding.Model)
	assert.Equal(t, Default().Embedding.Host, cfg.Embedding.Host)
	assert.False(t, cfg.AI().StripNewLines)
	assert.Equal(t, BackendBadger, cfg.Snapshot.Backend)
	assert.Equal(t, vectorindex.KindIncremental, cfg.IndexKind())
	assert.Equal(t, 16, cfg.Index.M)
	assert.Equal(t, 250*time.Millisecond, cfg.Reindex.RetryDelay)
	assert.Equal(t, 20000, cfg.Ingestion.ChunkSize)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recall.yaml")
	require.NoError(t, os.WriteFile(path, []byte("index: [unclosed"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "recall.yaml")
	cfg := Default()
	cfg.Retrieval.TopK = 9
	cfg.Index.Seed = 7

	require.NoError(t, Save(path, cfg))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"RECALL_EMBEDDING_HOST": "http://embed:8080",
		"RECALL_API_KEY":        "secret",
		"RECALL_SNAPSHOT_PATH":  "/data/recall.snap",
		"RECALL_TOP_K":          "3",
		"RECALL_THRESHOLD":      "0.5",
		"RECALL_INDEX_KIND":     "",
	}
	lookup := func(name string) (string, bool) {
		v, ok := env[name]
		return v, ok
	}

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(lookup))

	assert.Equal(t, "http://embed:8080", cfg.Embedding.Host)
	assert.Equal(t, "secret", cfg.AI().APIKey)
	assert.Equal(t, "secret", cfg.Embedding.APIKey)
	assert.Equal(t, "/data/recall.snap", cfg.Snapshot.Path)
	assert.Equal(t, 3, cfg.Retrieval.TopK)
	assert.InDelta(t, 0.5, cfg.Retrieval.Threshold, 1e-6)
	assert.Equal(t, string(vectorindex.KindRebuild), cfg.Index.Kind, "empty values do not override")
}

func TestApplyEnv_HNSWKind(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(func(name string) (string, bool) {
		return "hnsw", name == "RECALL_INDEX_KIND"
	}))
	require.NoError(t, cfg.Validate())
	assert.Equal(t, vectorindex.KindHNSW, cfg.IndexKind())
}

func TestApplyEnv_BadNumbers(t *testing.T) {
	for _, name := range []string{"RECALL_TOP_K", "RECALL_THRESHOLD"} {
		t.Run(name, func(t *testing.T) {
			lookup := func(n string) (string, bool) {
				if n == name {
					return "many", true
				}
				return "", false
			}
			assert.Error(t, Default().ApplyEnv(lookup))
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "unknown kind", mutate: func(c *Config) { c.Index.Kind = "flat" }},
		{name: "unknown backend", mutate: func(c *Config) { c.Snapshot.Backend = "s3" }},
		{name: "empty path", mutate: func(c *Config) { c.Snapshot.Path = "" }},
		{name: "overlap too large", mutate: func(c *Config) { c.Ingestion.ChunkOverlap = c.Ingestion.ChunkSize }},
		{name: "zero batch", mutate: func(c *Config) { c.Ingestion.BatchSize = 0 }},
		{name: "zero top k", mutate: func(c *Config) { c.Retrieval.TopK = 0 }},
		{name: "no model", mutate: func(c *Config) { c.Embedding.Model = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
