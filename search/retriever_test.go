package search

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/poiesic/recall/ai/mock"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/corpus"
	"github.com/poiesic/recall/lexical"
	"github.com/poiesic/recall/vectorindex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// topicVector embeds text on three axes: animals, food and space.
func topicVector(text string) []float32 {
	text = strings.ToLower(text)
	v := []float32{0.05, 0.05, 0.05}
	for i, words := range [][]string{
		{"cat", "dog", "pet"},
		{"bread", "cheese", "soup"},
		{"rocket", "moon", "orbit"},
	} {
		for _, w := range words {
			if strings.Contains(text, w) {
				v[i]++
			}
		}
	}
	return mock.Normalize(v)
}

type fixture struct {
	retriever *Retriever
	store     *corpus.Store
	embedder  *mock.MockEmbedder
}

func setupRetriever(t *testing.T, texts ...string) *fixture {
	t.Helper()
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(_ context.Context, text string) ([]float32, error) {
		return topicVector(text), nil
	}

	store := corpus.NewStore()
	index := vectorindex.NewIncrementalIndex(vectorindex.DefaultParams())
	for _, text := range texts {
		sentences := lexical.SplitSentences(text)
		counts, total := lexical.CountTerms(sentences)
		doc, err := store.Add(text, counts, total)
		require.NoError(t, err)
		for _, sentence := range sentences {
			require.NoError(t, index.Insert(core.EmbeddingPoint{Vector: topicVector(sentence), Owner: doc.ID}))
		}
	}

	r, err := NewRetriever(index, lexical.NewScorer(store), mock.NewMockProviderWithEmbedder(embedder))
	require.NoError(t, err)
	return &fixture{retriever: r, store: store, embedder: embedder}
}

func TestNewRetriever_Validation(t *testing.T) {
	index := vectorindex.NewRebuildIndex(vectorindex.DefaultParams())
	scorer := lexical.NewScorer(corpus.NewStore())
	provider := mock.NewMockProvider()

	_, err := NewRetriever(nil, scorer, provider)
	assert.ErrorIs(t, err, ErrIndexRequired)

	_, err = NewRetriever(index, nil, provider)
	assert.ErrorIs(t, err, ErrScorerRequired)

	_, err = NewRetriever(index, scorer, nil)
	assert.ErrorIs(t, err, ErrAIProviderRequired)

	r, err := NewRetriever(index, scorer, provider, WithLogger(nil))
	require.NoError(t, err)
	assert.NotNil(t, r.logger)
}

func TestRetrieve_RanksRelevantFirst(t *testing.T) {
	f := setupRetriever(t,
		"The cat chased the dog. A pet needs care.",
		"Bread and cheese make a meal. Soup is warm.",
		"The rocket reached orbit. The moon was close.",
	)

	results, err := f.retriever.Retrieve(context.Background(), "which rocket went to the moon", 3, 1)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	assert.Equal(t, core.DocumentID(2), results[0].Document)
	assert.True(t, core.IsSorted(results))
	assert.LessOrEqual(t, len(results), 3)
}

func TestRetrieve_NoLexicalMatch(t *testing.T) {
	f := setupRetriever(t, "The cat sat.", "Soup is warm.")

	results, err := f.retriever.Retrieve(context.Background(), "quantum chromodynamics", 5, 1)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, 0, f.embedder.CallCount(), "query is not embedded without lexical matches")
}

func TestRetrieve_EmptyCorpus(t *testing.T) {
	f := setupRetriever(t)

	results, err := f.retriever.Retrieve(context.Background(), "anything at all", 5, 1)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRetrieve_ProviderFailure(t *testing.T) {
	f := setupRetriever(t, "The cat sat.")
	boom := errors.New("offline")
	f.embedder.EmbedTextFunc = func(context.Context, string) ([]float32, error) {
		return nil, boom
	}

	_, err := f.retriever.Retrieve(context.Background(), "the cat", 5, 1)
	assert.ErrorIs(t, err, core.ErrProviderFailure)
	assert.ErrorIs(t, err, boom)
}

func TestRetrieve_Threshold(t *testing.T) {
	f := setupRetriever(t,
		"The cat chased the dog.",
		"The cat slept.",
		"Bread and cheese.",
	)
	ctx := context.Background()

	loose, err := f.retriever.Retrieve(ctx, "the cat and the dog", 5, 2)
	require.NoError(t, err)
	strict, err := f.retriever.Retrieve(ctx, "the cat and the dog", 5, 0)
	require.NoError(t, err)

	require.LessOrEqual(t, len(strict), len(loose))
	assert.Equal(t, loose[:len(strict)], strict)
	for _, c := range strict {
		assert.LessOrEqual(t, c.Distance, float32(0))
	}
}

type recordingMonitor struct {
	stages []string
}

func (m *recordingMonitor) Start(string, int, float32)          { m.stages = append(m.stages, "start") }
func (m *recordingMonitor) AfterLexicalScoring([]lexical.Scored) { m.stages = append(m.stages, "lexical") }
func (m *recordingMonitor) AfterVectorSearch([]core.Candidate)   { m.stages = append(m.stages, "vector") }
func (m *recordingMonitor) Finish([]core.Candidate)              { m.stages = append(m.stages, "finish") }

func TestRetrieveWithMonitor(t *testing.T) {
	f := setupRetriever(t, "The cat sat.")
	ctx := context.Background()

	m := &recordingMonitor{}
	_, err := f.retriever.RetrieveWithMonitor(ctx, "the cat", 5, 1, m)
	require.NoError(t, err)
	assert.Equal(t, []string{"start", "lexical", "vector", "finish"}, m.stages)

	m = &recordingMonitor{}
	_, err = f.retriever.RetrieveWithMonitor(ctx, "zebra", 5, 1, m)
	require.NoError(t, err)
	assert.Equal(t, []string{"start", "lexical", "finish"}, m.stages)

	_, err = f.retriever.RetrieveWithMonitor(ctx, "the cat", 5, 1, NewLogMonitor(nil))
	assert.NoError(t, err)
}

func TestUseIndex(t *testing.T) {
	f := setupRetriever(t, "The cat sat.")
	f.retriever.UseIndex(vectorindex.NewIncrementalIndex(vectorindex.DefaultParams()))

	results, err := f.retriever.Retrieve(context.Background(), "the cat", 5, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, float32(0), results[0].Distance, "lexical only once the vector index is empty")
}
