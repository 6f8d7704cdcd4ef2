package core

import (
	"cmp"
	"slices"
)

// Candidate is a (document, distance) pair produced by retrieval.
// Lower distance means more relevant.
type Candidate struct {
	Document DocumentID
	Distance float32
}

// CompareCandidates orders candidates from most to least relevant, i.e.
// ascending by distance. It is suitable for slices.SortFunc.
func CompareCandidates(a, b Candidate) int {
	return cmp.Compare(a.Distance, b.Distance)
}

// MoreRelevant reports whether a ranks strictly before b.
func MoreRelevant(a, b Candidate) bool {
	return CompareCandidates(a, b) < 0
}

// Equal reports whether two candidates carry the same distance.
// Document identity is deliberately not part of candidate equality.
func (c Candidate) Equal(other Candidate) bool {
	return c.Distance == other.Distance
}

// SortCandidates sorts candidates in place, most relevant first.
func SortCandidates(candidates []Candidate) {
	slices.SortStableFunc(candidates, CompareCandidates)
}

// IsSorted reports whether candidates are ordered most relevant first.
func IsSorted(candidates []Candidate) bool {
	return slices.IsSortedFunc(candidates, CompareCandidates)
}
