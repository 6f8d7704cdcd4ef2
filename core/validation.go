package core

import "fmt"

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - Text must not be empty
//   - Terms must be present
//   - TermTotal must equal the sum of the term counts
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if doc.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyText)
	}

	if doc.Terms == nil {
		return fmt.Errorf("%w: term counts missing", ErrInvalidDocument)
	}

	var total uint64
	err := doc.Terms.Each(func(_ string, count uint64) bool {
		total += count
		return true
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	if total != doc.TermTotal {
		return fmt.Errorf("%w: term total %d does not match counts %d", ErrInvalidDocument, doc.TermTotal, total)
	}

	return nil
}

// ValidatePoint validates an EmbeddingPoint.
// dim is the expected vector length; 0 accepts any non-empty vector.
func ValidatePoint(point EmbeddingPoint, dim int) error {
	if len(point.Vector) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidPoint, ErrEmptyVector)
	}
	if dim > 0 && len(point.Vector) != dim {
		return fmt.Errorf("%w: %w: expected %d, got %d", ErrInvalidPoint, ErrDimensionMismatch, dim, len(point.Vector))
	}
	return nil
}
