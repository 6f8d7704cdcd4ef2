package storage

import (
	"testing"

	"github.com/go-crypt/x/blake2b"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/corpus"
	"github.com/poiesic/recall/lexical"
	"github.com/poiesic/recall/vectorindex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sampleTexts = []string{
	"The cat sat on the mat. It was warm.",
	"Dogs bark at night! The neighbours complain.",
	"Rain again today. Bring an umbrella, please.",
}

func sampleSnapshot(t *testing.T) *Snapshot {
	t.Helper()
	store := corpus.NewStore()
	idx := vectorindex.NewRebuildIndex(vectorindex.DefaultParams())
	for i, text := range sampleTexts {
		counts, total := lexical.CountTerms(lexical.SplitSentences(text))
		doc, err := store.Add(text, counts, total)
		require.NoError(t, err)
		for s := range 2 {
			v := make([]float32, 4)
			v[(i+s)%4] = 1
			require.NoError(t, idx.Insert(core.EmbeddingPoint{Vector: v, Owner: doc.ID}))
		}
	}
	return &Snapshot{
		Graph:     idx.State(),
		Documents: store.Documents(),
		Stats:     store.Stats(),
		Hashes:    store.Hashes(),
	}
}

func TestSnapshot_RoundTrip(t *testing.T) {
	original := sampleSnapshot(t)

	data, err := MarshalSnapshot(original)
	require.NoError(t, err)

	decoded, err := UnmarshalSnapshot(data)
	require.NoError(t, err)

	require.Len(t, decoded.Documents, len(original.Documents))
	for i, doc := range decoded.Documents {
		want := original.Documents[i]
		assert.Equal(t, want.ID, doc.ID)
		assert.Equal(t, want.Text, doc.Text)
		assert.Equal(t, want.TermTotal, doc.TermTotal)

		wantTerms, err := want.Terms.Map()
		require.NoError(t, err)
		gotTerms, err := doc.Terms.Map()
		require.NoError(t, err)
		assert.Equal(t, wantTerms, gotTerms)
	}
	assert.Equal(t, original.Stats, decoded.Stats)
	assert.Equal(t, original.Hashes, decoded.Hashes)

	require.NotNil(t, decoded.Graph)
	assert.Equal(t, original.Graph.Params, decoded.Graph.Params)
	assert.Equal(t, original.Graph.Points, decoded.Graph.Points)
	assert.Equal(t, original.Graph.Levels, decoded.Graph.Levels)
	assert.Equal(t, original.Graph.Entry, decoded.Graph.Entry)

	reencoded, err := MarshalSnapshot(decoded)
	require.NoError(t, err)
	assert.Equal(t, data, reencoded)
}

func TestSnapshot_RestoredComponentsAnswerTheSame(t *testing.T) {
	original := sampleSnapshot(t)
	data, err := MarshalSnapshot(original)
	require.NoError(t, err)
	decoded, err := UnmarshalSnapshot(data)
	require.NoError(t, err)

	before, err := vectorindex.Restore(vectorindex.KindRebuild, original.Graph)
	require.NoError(t, err)
	after, err := vectorindex.Restore(vectorindex.KindRebuild, decoded.Graph)
	require.NoError(t, err)

	query := []float32{0.9, 0.1, 0, 0}
	want, err := before.Search(query, 3)
	require.NoError(t, err)
	got, err := after.Search(query, 3)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	store, err := corpus.Restore(decoded.Documents, decoded.Hashes, decoded.Stats)
	require.NoError(t, err)
	_, err = store.Add(sampleTexts[1], map[string]uint64{"x": 1}, 1)
	assert.ErrorIs(t, err, core.ErrDuplicate)
}

func TestSnapshot_Deterministic(t *testing.T) {
	s := sampleSnapshot(t)
	first, err := MarshalSnapshot(s)
	require.NoError(t, err)
	second, err := MarshalSnapshot(s)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSnapshot_Empty(t *testing.T) {
	data, err := MarshalSnapshot(&Snapshot{})
	require.NoError(t, err)

	decoded, err := UnmarshalSnapshot(data)
	require.NoError(t, err)
	assert.Nil(t, decoded.Graph)
	assert.Empty(t, decoded.Documents)
	assert.Empty(t, decoded.Hashes)
	assert.True(t, decoded.Empty())
	require.NotNil(t, decoded.Stats)
	assert.Zero(t, decoded.Stats.AverageLength)
}

func TestMarshalSnapshot_Invalid(t *testing.T) {
	_, err := MarshalSnapshot(nil)
	assert.ErrorIs(t, err, ErrSnapshotRequired)

	_, err = MarshalSnapshot(&Snapshot{Documents: []*core.Document{{Text: "no terms"}}})
	assert.ErrorIs(t, err, core.ErrInvalidDocument)
}

// seal appends the digest MarshalSnapshot would write for body.
func seal(body ...byte) []byte {
	sum := blake2b.Sum256(body)
	return append(body, sum[:]...)
}

func TestUnmarshalSnapshot_Corrupt(t *testing.T) {
	valid, err := MarshalSnapshot(sampleSnapshot(t))
	require.NoError(t, err)
	body := valid[:len(valid)-digestSize]

	flipped := append([]byte{}, valid...)
	flipped[len(flipped)-1] ^= 0x01

	tests := []struct {
		name      string
		data      []byte
		truncated bool
		message   string
	}{
		{name: "nil", data: nil, truncated: true},
		{name: "short magic", data: []byte("RC"), truncated: true},
		{name: "wrong magic", data: []byte("JUNKJUNKJUNK"), message: "bad magic"},
		{name: "magic only", data: []byte("RCLS"), truncated: true},
		{name: "no digest", data: append([]byte("RCLS"), SnapshotVersion, 0), truncated: true},
		{name: "digest mismatch", data: flipped, message: "checksum mismatch"},
		{name: "unsealed trailing bytes", data: append(append([]byte{}, valid...), 0), message: "checksum mismatch"},
		{name: "future version", data: seal('R', 'C', 'L', 'S', 9, 0), message: "unsupported version"},
		{name: "sealed trailing bytes", data: seal(append(append([]byte{}, body...), 0)...), message: "trailing bytes"},
		{name: "huge count", data: seal('R', 'C', 'L', 'S', SnapshotVersion, 0, 0xff, 0xff, 0xff, 0x0f), message: "exceeds remaining"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalSnapshot(tt.data)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrCorruptSnapshot)
			if tt.truncated {
				assert.ErrorIs(t, err, ErrTruncatedData)
			}
			if tt.message != "" {
				assert.Contains(t, err.Error(), tt.message)
			}
		})
	}
}

func TestUnmarshalSnapshot_EveryByteFlipFails(t *testing.T) {
	valid, err := MarshalSnapshot(sampleSnapshot(t))
	require.NoError(t, err)

	for i := range valid {
		damaged := append([]byte{}, valid...)
		damaged[i] ^= 0x10
		require.NotPanics(t, func() {
			_, err = UnmarshalSnapshot(damaged)
		}, "byte %d", i)
		require.ErrorIs(t, err, ErrCorruptSnapshot, "byte %d", i)
	}
}

func TestUnmarshalSnapshot_EveryTruncationFails(t *testing.T) {
	valid, err := MarshalSnapshot(sampleSnapshot(t))
	require.NoError(t, err)

	for n := range len(valid) {
		_, err := UnmarshalSnapshot(valid[:n])
		require.ErrorIs(t, err, ErrCorruptSnapshot, "prefix of %d bytes", n)
	}
}
