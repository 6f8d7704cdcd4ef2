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


// Package corpus holds the committed documents, the content-hash table that
// keeps them unique, and the corpus-wide term statistics.
package corpus

import (
	"errors"
	"fmt"
	"maps"

	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/lexical"
)

// ErrInvalidRestore indicates persisted store contents that contradict each other.
var ErrInvalidRestore = errors.New("inconsistent document store")

// ErrStalePending indicates a prepared document whose ID was taken by another commit.
var ErrStalePending = errors.New("prepared document is stale")

// Store is an append-only arena of documents. IDs are slot positions and
// are never reused. Store is not safe for concurrent mutation.
type Store struct {
	documents []*core.Document
	hashes    map[string]core.DocumentID
	stats     *core.CorpusStats
}

var _ lexical.Corpus = (*Store)(nil)

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		hashes: make(map[string]core.DocumentID),
		stats:  core.NewCorpusStats(),
	}
}

// Restore rebuilds a store from persisted contents. Document IDs must match
// their positions and every document must have exactly one hash entry.
func Restore(documents []*core.Document, hashes map[string]core.DocumentID, stats *core.CorpusStats) (*Store, error) {
	if len(hashes) != len(documents) {
		return nil, fmt.Errorf("%w: %d documents but %d hashes", ErrInvalidRestore, len(documents), len(hashes))
	}
	for i, doc := range documents {
		if err := core.ValidateDocument(doc); err != nil {
			return nil, fmt.Errorf("%w: document %d: %w", ErrInvalidRestore, i, err)
		}
		if doc.ID != core.DocumentID(i) {
			return nil, fmt.Errorf("%w: document at slot %d has id %d", ErrInvalidRestore, i, doc.ID)
		}
	}
	seen := make(map[core.DocumentID]bool, len(hashes))
	for hash, id := range hashes {
		if int(id) >= len(documents) || seen[id] {
			return nil, fmt.Errorf("%w: hash %s maps to id %d", ErrInvalidRestore, hash, id)
		}
		seen[id] = true
	}
	if stats == nil {
		stats = core.NewCorpusStats()
	}

	return &Store{
		documents: documents,
		hashes:    maps.Clone(hashes),
		stats:     stats.Clone(),
	}, nil
}

// Lookup returns the ID stored for a content hash.
func (s *Store) Lookup(hash string) (core.DocumentID, bool) {
	id, ok := s.hashes[hash]
	return id, ok
}

// Pending is a validated document that is not yet visible in the store.
type Pending struct {
	doc    *core.Document
	hash   string
	counts map[string]uint64
}

// ID returns the ID the document receives once committed.
func (p *Pending) ID() core.DocumentID {
	return p.doc.ID
}

// Prepare validates a document built from text and its term counts without
// changing the store. It returns core.ErrDuplicate when the text is already
// stored.
func (s *Store) Prepare(text string, counts map[string]uint64, total uint64) (*Pending, error) {
	hash := core.ContentHash(text)
	if _, ok := s.hashes[hash]; ok {
		return nil, core.ErrDuplicate
	}

	terms, err := core.BuildTermCounts(counts)
	if err != nil {
		return nil, fmt.Errorf("build term counts: %w", err)
	}
	doc := &core.Document{
		ID:        s.NextID(),
		Text:      text,
		Terms:     terms,
		TermTotal: total,
	}
	if err := core.ValidateDocument(doc); err != nil {
		return nil, err
	}
	return &Pending{doc: doc, hash: hash, counts: counts}, nil
}

// Commit makes a prepared document visible and folds its counts into the
// corpus statistics. It fails with ErrStalePending if another document was
// committed since Prepare.
func (s *Store) Commit(p *Pending) (*core.Document, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil pending document", core.ErrInvalidDocument)
	}
	if next := s.NextID(); p.doc.ID != next {
		return nil, fmt.Errorf("%w: prepared as %d, next is %d", ErrStalePending, p.doc.ID, next)
	}
	if _, ok := s.hashes[p.hash]; ok {
		return nil, core.ErrDuplicate
	}

	s.stats.Observe(p.counts, p.doc.TermTotal, len(s.documents))
	s.documents = append(s.documents, p.doc)
	s.hashes[p.hash] = p.doc.ID
	return p.doc, nil
}

// Add prepares and commits a document in one step.
func (s *Store) Add(text string, counts map[string]uint64, total uint64) (*core.Document, error) {
	p, err := s.Prepare(text, counts, total)
	if err != nil {
		return nil, err
	}
	return s.Commit(p)
}

// NextID returns the ID the next added document will receive.
func (s *Store) NextID() core.DocumentID {
	return core.DocumentID(len(s.documents))
}

// Get returns a document by ID.
func (s *Store) Get(id core.DocumentID) (*core.Document, bool) {
	if int(id) >= len(s.documents) {
		return nil, false
	}
	return s.documents[id], true
}

// Len returns the number of documents.
func (s *Store) Len() int {
	return len(s.documents)
}

// Documents returns all documents in ID order. Callers must not modify the slice.
func (s *Store) Documents() []*core.Document {
	return s.documents
}

// AverageLength returns the running average document length in terms.
func (s *Store) AverageLength() float32 {
	return s.stats.AverageLength
}

// Stats returns a copy of the corpus statistics.
func (s *Store) Stats() *core.CorpusStats {
	return s.stats.Clone()
}

// Hashes returns a copy of the content-hash table.
func (s *Store) Hashes() map[string]core.DocumentID {
	return maps.Clone(s.hashes)
}

// Texts returns the text of each listed document, skipping unknown IDs.
func (s *Store) Texts(ids []core.DocumentID) []string {
	texts := make([]string, 0, len(ids))
	for _, id := range ids {
		if doc, ok := s.Get(id); ok {
			texts = append(texts, doc.Text)
		}
	}
	return texts
}
