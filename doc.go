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


// Package recall is a hybrid retrieval engine for conversational memory.
//
// An Engine owns a document store, a vector index over sentence
// embeddings, and the lexical statistics used for BM25+ scoring. Text is
// ingested once, deduplicated by content hash, and retrieved by fusing
// vector distance with normalized lexical scores. Conversations keep a
// small decaying context through session.Memory.
//
//	engine, err := recall.Open(ctx,
//	    recall.WithAIConfig(ai.NewConfig(ai.WithEmbeddingModel("embeddinggemma"))),
//	    recall.WithSnapshotStore(store),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer engine.Close()
//
//	if _, err := engine.Ingest(ctx, text); err != nil {
//	    log.Fatal(err)
//	}
//	mem, _ := engine.NewSession()
//	context, err := mem.Update(ctx, "what did we say about the garden")
package recall
