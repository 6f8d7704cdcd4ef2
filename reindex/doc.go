// Package reindex rebuilds the vector index of a stored corpus by
// re-embedding every document, typically after switching embedding models.
//
// Documents are read in batches, their sentences embedded with retry and
// exponential backoff, and the resulting points inserted into a fresh
// index. The store itself is never modified: lexical statistics do not
// depend on the embedding model. On any failure the new index is
// discarded and the caller keeps the old one.
package reindex
