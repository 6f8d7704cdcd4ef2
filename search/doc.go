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


// Package search provides hybrid lexical and semantic retrieval.
//
// The Retriever runs two independent searches for every query:
//   - BM25+ lexical scoring over every stored document
//   - nearest-neighbor search over sentence embeddings
//
// Fuse merges them into one distance-ascending list. Lexical scores are
// divided by the best lexical score and inverted so that lower is better,
// then averaged with the vector distance for documents both searches found.
// The list is cut to top-k and any trailing entries above the threshold are
// dropped. When nothing matches lexically the result is empty.
package search
