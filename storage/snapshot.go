package storage

import (
	"context"

	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/vectorindex"
)

// Snapshot is the unit of persistence: everything needed to rebuild an
// engine without re-embedding.
type Snapshot struct {
	Graph     *vectorindex.GraphState
	Documents []*core.Document
	Stats     *core.CorpusStats
	Hashes    map[string]core.DocumentID
}

// Empty reports whether the snapshot holds no documents.
func (s *Snapshot) Empty() bool {
	return s == nil || len(s.Documents) == 0
}

// SnapshotStore saves and loads a single snapshot.
// Implementations must be safe for concurrent use.
type SnapshotStore interface {
	// Save replaces the stored snapshot. A failed Save leaves the previous
	// snapshot intact.
	Save(ctx context.Context, snapshot *Snapshot) error

	// Load returns the stored snapshot, ErrNotFound when there is none, or
	// an error wrapping ErrCorruptSnapshot when it cannot be decoded.
	Load(ctx context.Context) (*Snapshot, error)

	// Close releases the store's resources.
	Close() error
}
