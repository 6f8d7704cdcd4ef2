package badger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/recall/corpus"
	"github.com/poiesic/recall/lexical"
	"github.com/poiesic/recall/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshotOf(t *testing.T, texts ...string) *storage.Snapshot {
	t.Helper()
	store := corpus.NewStore()
	for _, text := range texts {
		counts, total := lexical.CountTerms(lexical.SplitSentences(text))
		_, err := store.Add(text, counts, total)
		require.NoError(t, err)
	}
	return &storage.Snapshot{
		Documents: store.Documents(),
		Stats:     store.Stats(),
		Hashes:    store.Hashes(),
	}
}

func TestNewSnapshotRepository_RequiresBackend(t *testing.T) {
	_, err := NewSnapshotRepository(nil)
	assert.ErrorIs(t, err, ErrBackendRequired)
}

func TestSnapshotRepository_LoadMissing(t *testing.T) {
	repo, backend, err := NewMemorySnapshotRepository()
	require.NoError(t, err)
	defer backend.Close()
	defer repo.Close()

	_, err = repo.Load(context.Background())
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = repo.Generation(context.Background())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSnapshotRepository_SaveLoad(t *testing.T) {
	ctx := context.Background()
	repo, backend, err := NewMemorySnapshotRepository()
	require.NoError(t, err)
	defer backend.Close()
	defer repo.Close()

	require.NoError(t, repo.Save(ctx, snapshotOf(t, "alpha beta.")))
	first, err := repo.Generation(ctx)
	require.NoError(t, err)

	require.NoError(t, repo.Save(ctx, snapshotOf(t, "alpha beta.", "gamma delta.")))
	second, err := repo.Generation(ctx)
	require.NoError(t, err)
	assert.Greater(t, second, first)

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded.Documents, 2)
	assert.Equal(t, "gamma delta.", loaded.Documents[1].Text)
}

func TestSnapshotRepository_NamesAreIsolated(t *testing.T) {
	ctx := context.Background()
	backend, err := OpenBackend("", true, nil)
	require.NoError(t, err)
	defer backend.Close()

	a, err := NewSnapshotRepository(backend, WithName("a"))
	require.NoError(t, err)
	defer a.Close()
	b, err := NewSnapshotRepository(backend, WithName("b"))
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, a.Save(ctx, snapshotOf(t, "only in a.")))

	_, err = b.Load(ctx)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	loaded, err := a.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded.Documents, 1)
}

func TestSnapshotRepository_EmptyName(t *testing.T) {
	backend, err := OpenBackend("", true, nil)
	require.NoError(t, err)
	defer backend.Close()

	_, err = NewSnapshotRepository(backend, WithName(""))
	assert.Error(t, err)
}

func TestSnapshotRepository_Corrupt(t *testing.T) {
	repo, backend, err := NewMemorySnapshotRepository()
	require.NoError(t, err)
	defer backend.Close()
	defer repo.Close()

	err = backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeSnapshotKey(DefaultSnapshotName), []byte("garbage")); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	require.NoError(t, err)

	_, err = repo.Load(context.Background())
	assert.ErrorIs(t, err, storage.ErrCorruptSnapshot)
}

func TestOpen_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "db")

	store, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, snapshotOf(t, "durable text.")))
	require.NoError(t, store.Close())

	store, err = Open(dir)
	require.NoError(t, err)
	defer store.Close()

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded.Documents, 1)
	assert.Equal(t, "durable text.", loaded.Documents[0].Text)
}

func TestSnapshotRepository_Closed(t *testing.T) {
	repo, backend, err := NewMemorySnapshotRepository()
	require.NoError(t, err)
	defer backend.Close()

	require.NoError(t, repo.Close())
	require.NoError(t, repo.Close())

	assert.ErrorIs(t, repo.Save(context.Background(), snapshotOf(t)), storage.ErrStorageClosed)
	_, err = repo.Load(context.Background())
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}
