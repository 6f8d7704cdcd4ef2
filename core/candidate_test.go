package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompareCandidates(t *testing.T) {
	near := Candidate{Document: 1, Distance: 0.1}
	far := Candidate{Document: 2, Distance: 0.9}

	assert.Negative(t, CompareCandidates(near, far))
	assert.Positive(t, CompareCandidates(far, near))
	assert.Zero(t, CompareCandidates(near, Candidate{Document: 7, Distance: 0.1}))

	assert.True(t, MoreRelevant(near, far))
	assert.False(t, MoreRelevant(far, near))
	assert.False(t, MoreRelevant(near, near))
}

func TestCandidate_Equal(t *testing.T) {
	a := Candidate{Document: 1, Distance: 0.5}

	assert.True(t, a.Equal(Candidate{Document: 2, Distance: 0.5}), "equality ignores document identity")
	assert.False(t, a.Equal(Candidate{Document: 1, Distance: 0.4}))
}

func TestSortCandidates(t *testing.T) {
	candidates := []Candidate{
		{Document: 3, Distance: 0.7},
		{Document: 1, Distance: 0.2},
		{Document: 2, Distance: 0.2},
		{Document: 4, Distance: 0.0},
	}

	SortCandidates(candidates)

	assert.True(t, IsSorted(candidates))
	assert.Equal(t, []Candidate{
		{Document: 4, Distance: 0.0},
		{Document: 1, Distance: 0.2},
		{Document: 2, Distance: 0.2},
		{Document: 3, Distance: 0.7},
	}, candidates)
}
