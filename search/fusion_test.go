package search

import (
	"testing"

	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/lexical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuse_EmptyLexical(t *testing.T) {
	vector := []core.Candidate{{Document: 1, Distance: 0.01}}

	assert.Nil(t, Fuse(vector, nil, 5, 1))
	assert.Nil(t, Fuse(vector, []lexical.Scored{}, 5, 1))
}

func TestFuse_ZeroTopK(t *testing.T) {
	assert.Nil(t, Fuse(nil, []lexical.Scored{{Document: 0, Score: 1}}, 0, 1))
}

func TestFuse_NormalizesAndInverts(t *testing.T) {
	scored := []lexical.Scored{
		{Document: 2, Score: 8},
		{Document: 0, Score: 4},
		{Document: 1, Score: 2},
	}

	results := Fuse(nil, scored, 10, 1)

	assert.Equal(t, []core.Candidate{
		{Document: 2, Distance: 0},
		{Document: 0, Distance: 0.5},
		{Document: 1, Distance: 0.75},
	}, results)
}

func TestFuse_Polarity(t *testing.T) {
	scored := []lexical.Scored{
		{Document: 0, Score: 10},
		{Document: 1, Score: 6},
		{Document: 2, Score: 3},
	}
	vector := []core.Candidate{
		{Document: 1, Distance: 0.1},
		{Document: 2, Distance: 0.9},
		{Document: 7, Distance: 0.0}, // not lexical, ignored
	}

	results := Fuse(vector, scored, 10, 2)
	require.Len(t, results, 3)

	byDoc := make(map[core.DocumentID]float32)
	for _, r := range results {
		byDoc[r.Document] = r.Distance
	}
	assert.NotContains(t, byDoc, core.DocumentID(7))

	for _, v := range vector[:2] {
		var lexicalDistance float32
		for _, s := range scored {
			if s.Document == v.Document {
				lexicalDistance = 1 - s.Score/scored[0].Score
			}
		}
		fused := byDoc[v.Document]
		lo, hi := min(lexicalDistance, v.Distance), max(lexicalDistance, v.Distance)
		assert.GreaterOrEqual(t, fused, lo, "document %d", v.Document)
		assert.LessOrEqual(t, fused, hi, "document %d", v.Document)
		assert.InDelta(t, (lexicalDistance+v.Distance)/2, fused, 1e-6)
	}

	assert.True(t, core.IsSorted(results))
}

func TestFuse_TruncatesToTopK(t *testing.T) {
	scored := []lexical.Scored{
		{Document: 0, Score: 5},
		{Document: 1, Score: 4},
		{Document: 2, Score: 3},
		{Document: 3, Score: 2},
	}

	results := Fuse(nil, scored, 2, 1)
	require.Len(t, results, 2)
	assert.Equal(t, core.DocumentID(0), results[0].Document)
	assert.Equal(t, core.DocumentID(1), results[1].Document)
}

func TestFuse_TrimsTailAboveThreshold(t *testing.T) {
	scored := []lexical.Scored{
		{Document: 0, Score: 10},
		{Document: 1, Score: 8},
		{Document: 2, Score: 5},
		{Document: 3, Score: 1},
	}

	results := Fuse(nil, scored, 10, 0.3)
	assert.Equal(t, []core.Candidate{
		{Document: 0, Distance: 0},
		{Document: 1, Distance: 0.2},
	}, roundDistances(results))
}

func TestFuse_ThresholdMonotonic(t *testing.T) {
	scored := []lexical.Scored{
		{Document: 0, Score: 9},
		{Document: 1, Score: 7},
		{Document: 2, Score: 5},
		{Document: 3, Score: 3},
		{Document: 4, Score: 1},
	}
	vector := []core.Candidate{
		{Document: 3, Distance: 0.05},
		{Document: 0, Distance: 0.6},
	}

	previous := Fuse(vector, scored, 4, 0)
	for threshold := float32(0); threshold <= 1.2; threshold += 0.05 {
		current := Fuse(vector, scored, 4, threshold)
		require.GreaterOrEqual(t, len(current), len(previous), "threshold %v", threshold)
		assert.Equal(t, previous, current[:len(previous)], "threshold %v removed a candidate", threshold)
		previous = current
	}
	assert.Len(t, previous, 4)
}

func TestFuse_DuplicateVectorOwnersUseFirst(t *testing.T) {
	scored := []lexical.Scored{{Document: 0, Score: 1}}
	vector := []core.Candidate{
		{Document: 0, Distance: 0.2},
		{Document: 0, Distance: 0.8},
	}

	results := Fuse(vector, scored, 1, 1)
	require.Len(t, results, 1)
	assert.InDelta(t, 0.1, results[0].Distance, 1e-6)
}

// roundDistances keeps float32 noise out of exact comparisons.
func roundDistances(cs []core.Candidate) []core.Candidate {
	out := make([]core.Candidate, len(cs))
	for i, c := range cs {
		out[i] = core.Candidate{Document: c.Document, Distance: float32(int(c.Distance*1e6+0.5)) / 1e6}
	}
	return out
}
