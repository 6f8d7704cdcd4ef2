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


package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/recall/storage"
)

// DefaultSnapshotName is the key name used when none is configured.
const DefaultSnapshotName = "current"

// ErrBackendRequired indicates a nil backend.
var ErrBackendRequired = errors.New("backend is required")

// SnapshotRepository implements storage.SnapshotStore for BadgerDB. The
// encoded snapshot lives under a single key and is replaced in one write
// transaction together with its generation number.
type SnapshotRepository struct {
	backend     *Backend
	ownsBackend bool
	name        string
	genSeq      *badger.Sequence
	logger      *slog.Logger

	mu     sync.Mutex
	closed bool
}

var _ storage.SnapshotStore = (*SnapshotRepository)(nil)

// Option configures a SnapshotRepository.
type Option func(*SnapshotRepository) error

// WithName stores the snapshot under a different key name, so several
// corpora can share one database.
func WithName(name string) Option {
	return func(r *SnapshotRepository) error {
		if name == "" {
			return errors.New("snapshot name must not be empty")
		}
		r.name = name
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *SnapshotRepository) error {
		r.logger = logger
		return nil
	}
}

// NewSnapshotRepository creates a repository on an open backend. The
// caller keeps ownership of the backend.
func NewSnapshotRepository(backend *Backend, opts ...Option) (*SnapshotRepository, error) {
	if backend == nil {
		return nil, ErrBackendRequired
	}
	r := &SnapshotRepository{
		backend: backend,
		name:    DefaultSnapshotName,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	r.logger = r.logger.With("component", "snapshot-badger", "name", r.name)

	genSeq, err := backend.GetSequence(snapshotGenerationSeq + ":" + r.name)
	if err != nil {
		return nil, err
	}
	r.genSeq = genSeq
	return r, nil
}

// Open opens (or creates) a BadgerDB database in dirPath and returns a
// snapshot store that closes the database when it is closed.
func Open(dirPath string, opts ...Option) (storage.SnapshotStore, error) {
	settings := &SnapshotRepository{logger: slog.Default()}
	for _, opt := range opts {
		if err := opt(settings); err != nil {
			return nil, err
		}
	}
	backend, err := OpenBackend(dirPath, false, settings.logger)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	repo, err := NewSnapshotRepository(backend, opts...)
	if err != nil {
		backend.Close()
		return nil, err
	}
	repo.ownsBackend = true
	return repo, nil
}

// Save implements storage.SnapshotStore.
func (r *SnapshotRepository) Save(ctx context.Context, snapshot *storage.Snapshot) error {
	data, err := storage.MarshalSnapshot(snapshot)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return storage.ErrStorageClosed
	}

	gen, err := r.genSeq.Next()
	if err != nil {
		return err
	}
	// BadgerDB sequences can return 0 on first call, so we skip it
	if gen == 0 {
		if gen, err = r.genSeq.Next(); err != nil {
			return err
		}
	}

	err = r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeSnapshotKey(r.name), data); err != nil {
			return err
		}
		if err := tx.Set(makeGenerationKey(r.name), marshalGeneration(gen)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	r.logger.Debug("snapshot saved", "generation", gen, "bytes", len(data), "documents", len(snapshot.Documents))
	return nil
}

// Load implements storage.SnapshotStore.
func (r *SnapshotRepository) Load(ctx context.Context) (*storage.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.isClosed() {
		return nil, storage.ErrStorageClosed
	}

	var data []byte
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeSnapshotKey(r.name))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	return storage.UnmarshalSnapshot(data)
}

// Generation returns the generation number of the stored snapshot. It
// increases with every Save.
func (r *SnapshotRepository) Generation(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if r.isClosed() {
		return 0, storage.ErrStorageClosed
	}

	var gen uint64
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeGenerationKey(r.name))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var err error
			gen, _, err = varint.Uint64.Unmarshal(val)
			if err != nil {
				return fmt.Errorf("%w: generation: %w", storage.ErrCorruptSnapshot, err)
			}
			return nil
		})
	}, false)
	return gen, err
}

// Close releases the generation sequence, and the backend when the
// repository was created by Open.
func (r *SnapshotRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	err := r.genSeq.Release()
	if r.ownsBackend {
		err = errors.Join(err, r.backend.Close())
	}
	return err
}

func (r *SnapshotRepository) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func marshalGeneration(gen uint64) []byte {
	buf := make([]byte, varint.Uint64.Size(gen))
	varint.Uint64.Marshal(gen, buf)
	return buf
}
