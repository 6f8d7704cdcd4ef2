package core

import (
	"encoding/hex"

	"github.com/go-crypt/x/blake2b"
)

// DocumentID is the stable slot handle of a document in the document store.
// IDs are assigned sequentially and never reused.
type DocumentID uint64

// ContentHash returns the hex-encoded BLAKE2b-256 digest of text.
// Identical text always produces the identical hash, which is what the
// document store deduplicates on.
func ContentHash(text string) string {
	sum := blake2b.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Document is a unit of ingested text together with its term statistics.
// Documents are immutable once committed to the store.
type Document struct {
	ID        DocumentID
	Text      string
	Terms     *TermCounts // Per-term occurrence counts, keyed by raw term bytes
	TermTotal uint64      // Total number of terms in the document
}

// EmbeddingPoint is one embedded sentence, tagged with the document it came from.
type EmbeddingPoint struct {
	Vector []float32
	Owner  DocumentID
}

// CorpusStats holds corpus-wide term statistics used by lexical scoring.
type CorpusStats struct {
	TermTotals    map[string]uint64 // Occurrences of each term across all documents
	AverageLength float32           // Running average of Document.TermTotal
}

// NewCorpusStats returns empty statistics.
func NewCorpusStats() *CorpusStats {
	return &CorpusStats{
		TermTotals: make(map[string]uint64),
	}
}

// Observe folds a new document's term counts into the statistics.
// documents is the number of documents already accounted for, so the
// average is updated incrementally instead of being recomputed.
func (s *CorpusStats) Observe(counts map[string]uint64, length uint64, documents int) {
	if s.TermTotals == nil {
		s.TermTotals = make(map[string]uint64, len(counts))
	}
	for term, count := range counts {
		s.TermTotals[term] += count
	}
	n := float32(documents)
	s.AverageLength = (s.AverageLength*n + float32(length)) / (n + 1)
}

// Clone returns a deep copy of the statistics.
func (s *CorpusStats) Clone() *CorpusStats {
	totals := make(map[string]uint64, len(s.TermTotals))
	for term, count := range s.TermTotals {
		totals[term] = count
	}
	return &CorpusStats{
		TermTotals:    totals,
		AverageLength: s.AverageLength,
	}
}
