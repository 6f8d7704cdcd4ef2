// Package mock provides test double implementations of the ai interfaces.
//
// # Usage in Tests
//
//	mockProvider := mock.NewMockProvider()
//	vector, err := mockProvider.Embedder().EmbedText(ctx, "test")
//
//	mockEmbedder := mock.NewMockEmbedder()
//	mockEmbedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
//	    return nil, errors.New("provider down")
//	}
//
// # Default Behavior
//
// MockEmbedder returns unit-length vectors derived from an FNV hash of the
// text, so identical text always embeds identically.
package mock
