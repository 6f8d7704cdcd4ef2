// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package ai provides the embedding abstraction used by recall.
//
// Retrieval quality depends on a semantic embedding for every sentence that
// is ingested and for every query. The engine never talks to a model
// directly; it depends on the Embedder interface defined here and receives
// a concrete implementation at construction time.
//
//   - Embedder: generates vector embeddings from text
//   - AIProvider: owns an Embedder and its lifecycle
//
// # Implementation Packages
//
//   - ai/openai: OpenAI-compatible embedding endpoints (Ollama, LocalAI,
//     vLLM, OpenAI) through langchaingo
//   - ai/mock: deterministic test doubles
//
// Public constructors in ai/openai return interface types. The mock
// constructors return concrete types so tests can inject behavior and
// inspect call counts:
//
//	mockEmbed := mock.NewMockEmbedder()
//	mockEmbed.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
//	    return nil, errors.New("offline")
//	}
//	count := mockEmbed.CallCount()
//
// # Usage Example
//
//	config := ai.NewConfig(ai.WithEmbeddingModel("nomic-embed-text"))
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vector, err := provider.Embedder().EmbedText(ctx, "Hello world")
package ai
