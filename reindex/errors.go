package reindex

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrStoreRequired is returned when the document store is nil
	ErrStoreRequired = errors.New("document store is required")

	// ErrEmbedderRequired is returned when the embedder is nil
	ErrEmbedderRequired = errors.New("embedder is required")
)
