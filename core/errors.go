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


package core

import "errors"

// Ingestion outcomes that skip a document without failing the caller.
var (
	// ErrDuplicate indicates the document's content hash is already stored.
	ErrDuplicate = errors.New("document already present")

	// ErrEmpty indicates no sentences could be extracted from the text.
	ErrEmpty = errors.New("document has no sentences")

	// ErrUnsupported indicates a document format the engine cannot read.
	ErrUnsupported = errors.New("document format not supported")
)

// ErrProviderFailure indicates the embedding provider failed. It is fatal
// to the ingestion or query that triggered it.
var ErrProviderFailure = errors.New("embedding provider failure")

// Domain validation errors
var (
	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrInvalidPoint indicates an EmbeddingPoint failed validation.
	ErrInvalidPoint = errors.New("invalid embedding point")

	// ErrEmptyText indicates the Text field is empty.
	ErrEmptyText = errors.New("text cannot be empty")

	// ErrEmptyVector indicates an embedding vector has no components.
	ErrEmptyVector = errors.New("vector cannot be empty")

	// ErrDimensionMismatch indicates vectors of different lengths were mixed.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrCorruptTermCounts indicates serialized term counts that do not
	// describe a readable transducer.
	ErrCorruptTermCounts = errors.New("corrupt term counts")
)

// IsSkip reports whether err means a document was skipped rather than
// failed: duplicates, empty documents and unsupported formats.
func IsSkip(err error) bool {
	return errors.Is(err, ErrDuplicate) ||
		errors.Is(err, ErrEmpty) ||
		errors.Is(err, ErrUnsupported)
}
