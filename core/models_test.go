package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentHash(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "plain text", content: "test content"},
		{name: "empty string", content: ""},
		{name: "multi-byte text", content: "Größe und Ärger, 東京"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h1 := ContentHash(tt.content)
			h2 := ContentHash(tt.content)
			assert.Equal(t, h1, h2)
			assert.Len(t, h1, 64)
		})
	}

	t.Run("different content produces different hashes", func(t *testing.T) {
		assert.NotEqual(t, ContentHash("content A"), ContentHash("content B"))
	})
}

func TestCorpusStats_Observe(t *testing.T) {
	stats := NewCorpusStats()

	stats.Observe(map[string]uint64{"cat": 2, "dog": 1}, 10, 0)
	assert.Equal(t, float32(10), stats.AverageLength)

	stats.Observe(map[string]uint64{"cat": 1}, 20, 1)
	assert.Equal(t, float32(15), stats.AverageLength)

	stats.Observe(map[string]uint64{"fish": 3}, 30, 2)
	assert.InDelta(t, 20.0, stats.AverageLength, 1e-5)

	assert.Equal(t, uint64(3), stats.TermTotals["cat"])
	assert.Equal(t, uint64(1), stats.TermTotals["dog"])
	assert.Equal(t, uint64(3), stats.TermTotals["fish"])
}

func TestCorpusStats_ObserveZeroLength(t *testing.T) {
	stats := NewCorpusStats()
	stats.Observe(nil, 0, 0)
	stats.Observe(map[string]uint64{"a": 4}, 4, 1)
	assert.Equal(t, float32(2), stats.AverageLength)
}

func TestCorpusStats_Clone(t *testing.T) {
	stats := NewCorpusStats()
	stats.Observe(map[string]uint64{"cat": 2}, 2, 0)

	clone := stats.Clone()
	clone.TermTotals["cat"] = 99

	require.Equal(t, uint64(2), stats.TermTotals["cat"])
	assert.Equal(t, stats.AverageLength, clone.AverageLength)
}
