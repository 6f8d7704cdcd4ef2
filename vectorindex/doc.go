// Package vectorindex provides approximate nearest neighbor search over
// sentence embeddings, tagged with the document that owns them.
//
// Every implementation uses a Hierarchical Navigable Small World graph
// with distance 1 - dot(a, b), which is the cosine distance for the
// unit-length vectors embedding models produce.
//
//   - RebuildIndex reconstructs the whole graph on every insert from a fixed
//     seed. The graph is therefore a pure function of the inserted points.
//   - IncrementalIndex links each new point into the existing graph.
//   - HNSWIndex keeps its graph in github.com/fogfish/hnsw, rebuilt from all
//     points on every insert, and persists the native graph of those points.
//
// Search returns at most one candidate per owning document, keeping the
// closest point for each.
package vectorindex
