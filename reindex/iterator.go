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
	"slices"

	"github.com/poiesic/recall/core"
)

const (
	// DefaultBatchSize is the default number of documents per batch
	DefaultBatchSize = 100
)

// DocumentSource lists committed documents in ID order.
type DocumentSource interface {
	Documents() []*core.Document
}

// DocumentIterator iterates over all documents of a source in batches.
type DocumentIterator struct {
	source    DocumentSource
	batchSize int
}

// NewDocumentIterator creates a new document iterator.
// batchSize: number of documents per batch; values <= 0 use DefaultBatchSize
func NewDocumentIterator(source DocumentSource, batchSize int) *DocumentIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &DocumentIterator{
		source:    source,
		batchSize: batchSize,
	}
}

// Len returns the number of documents the iterator will visit.
func (it *DocumentIterator) Len() int {
	return len(it.source.Documents())
}

// ForEach calls fn for each batch of documents in ID order. Iteration stops
// on the first error from fn or when ctx is done.
func (it *DocumentIterator) ForEach(ctx context.Context, fn func([]*core.Document) error) error {
	for batch := range slices.Chunk(it.source.Documents(), it.batchSize) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(batch); err != nil {
			return err
		}
	}
	return ctx.Err()
}
