package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDocument(t *testing.T) {
	terms, err := BuildTermCounts(map[string]uint64{"hello": 1, "world": 2})
	require.NoError(t, err)

	tests := []struct {
		name    string
		doc     *Document
		wantErr error
	}{
		{
			name:    "valid document",
			doc:     &Document{ID: 0, Text: "Hello world world", Terms: terms, TermTotal: 3},
			wantErr: nil,
		},
		{
			name:    "nil document",
			doc:     nil,
			wantErr: ErrInvalidDocument,
		},
		{
			name:    "empty text",
			doc:     &Document{Text: "", Terms: terms, TermTotal: 3},
			wantErr: ErrEmptyText,
		},
		{
			name:    "missing terms",
			doc:     &Document{Text: "Hello"},
			wantErr: ErrInvalidDocument,
		},
		{
			name:    "term total mismatch",
			doc:     &Document{Text: "Hello world world", Terms: terms, TermTotal: 7},
			wantErr: ErrInvalidDocument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocument(tt.doc)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "expected %v, got %v", tt.wantErr, err)
		})
	}
}

func TestValidatePoint(t *testing.T) {
	assert.NoError(t, ValidatePoint(EmbeddingPoint{Vector: []float32{1, 0}}, 0))
	assert.NoError(t, ValidatePoint(EmbeddingPoint{Vector: []float32{1, 0}}, 2))
	assert.ErrorIs(t, ValidatePoint(EmbeddingPoint{}, 0), ErrEmptyVector)
	assert.ErrorIs(t, ValidatePoint(EmbeddingPoint{Vector: []float32{1}}, 2), ErrDimensionMismatch)
}

func TestIsSkip(t *testing.T) {
	assert.True(t, IsSkip(ErrDuplicate))
	assert.True(t, IsSkip(ErrEmpty))
	assert.True(t, IsSkip(errors.Join(errors.New("context"), ErrUnsupported)))
	assert.False(t, IsSkip(ErrProviderFailure))
	assert.False(t, IsSkip(nil))
}
