package vectorindex

import (
	"math/rand"
	"testing"

	"github.com/poiesic/recall/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRestore_RoundTrip(t *testing.T) {
	for _, kind := range kinds() {
		t.Run(string(kind), func(t *testing.T) {
			rng := rand.New(rand.NewSource(11))
			idx := newIndex(t, kind)
			fill(t, idx, rng, 40, 8)

			restored, err := Restore(kind, idx.State())
			require.NoError(t, err)
			assert.Equal(t, idx.State(), restored.State())

			for q := 0; q < 5; q++ {
				query := randomUnitVector(rng, 8)
				want, err := idx.Search(query, 4)
				require.NoError(t, err)
				got, err := restored.Search(query, 4)
				require.NoError(t, err)
				assert.Equal(t, want, got)
			}

			require.NoError(t, restored.Insert(core.EmbeddingPoint{Vector: randomUnitVector(rng, 8), Owner: 99}))
			assert.Equal(t, 41, restored.Len())
		})
	}
}

func TestRestore_AcrossKinds(t *testing.T) {
	rng := rand.New(rand.NewSource(19))
	source := NewIncrementalIndex(DefaultParams())
	fill(t, source, rng, 25, 8)

	restored, err := Restore(KindHNSW, source.State())
	require.NoError(t, err)
	assert.Equal(t, source.Points(), restored.Points())

	back, err := Restore(KindRebuild, restored.State())
	require.NoError(t, err)
	assert.Equal(t, source.Len(), back.Len())
}

func TestRestore_StateIsCopied(t *testing.T) {
	idx := NewIncrementalIndex(DefaultParams())
	require.NoError(t, idx.Insert(core.EmbeddingPoint{Vector: []float32{1, 0}, Owner: 1}))

	state := idx.State()
	state.Points[0].Vector[0] = 42

	assert.Equal(t, float32(1), idx.Points()[0].Vector[0])
}

func TestRestore_Empty(t *testing.T) {
	restored, err := Restore(KindRebuild, NewRebuildIndex(DefaultParams()).State())
	require.NoError(t, err)
	assert.Equal(t, 0, restored.Len())
}

func TestRestore_InvalidState(t *testing.T) {
	valid := func() *GraphState {
		return &GraphState{
			Params: DefaultParams(),
			Points: []core.EmbeddingPoint{
				{Vector: []float32{1, 0}, Owner: 0},
				{Vector: []float32{0, 1}, Owner: 1},
			},
			Levels: []int{1, 0},
			Links:  [][][]uint32{{{1}, {}}, {{0}}},
			Entry:  0,
		}
	}

	_, err := Restore(KindIncremental, valid())
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(s *GraphState)
	}{
		{name: "level count mismatch", mutate: func(s *GraphState) { s.Levels = s.Levels[:1] }},
		{name: "entry out of range", mutate: func(s *GraphState) { s.Entry = 5 }},
		{name: "empty graph with entry", mutate: func(s *GraphState) { *s = GraphState{Entry: 0} }},
		{name: "link out of range", mutate: func(s *GraphState) { s.Links[1][0] = []uint32{7} }},
		{name: "layers disagree with level", mutate: func(s *GraphState) { s.Links[1] = [][]uint32{{0}, {0}} }},
		{name: "link above target level", mutate: func(s *GraphState) { s.Links[0][1] = []uint32{1} }},
		{name: "entry not on top layer", mutate: func(s *GraphState) { s.Entry = 1 }},
		{name: "dimension mismatch", mutate: func(s *GraphState) { s.Points[1].Vector = []float32{1} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid()
			tt.mutate(s)
			_, err := Restore(KindIncremental, s)
			assert.ErrorIs(t, err, ErrInvalidState)
		})
	}

	_, err = Restore(KindRebuild, nil)
	assert.ErrorIs(t, err, ErrInvalidState)
}
