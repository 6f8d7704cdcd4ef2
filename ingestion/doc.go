// Package ingestion turns raw text into committed documents.
//
// For each document the Pipeline:
//   - rejects text whose content hash is already stored
//   - splits the text into sentences
//   - embeds the sentences in batches, fanned out on a worker pool
//   - counts terms for lexical scoring
//   - commits the embedding points and the document
//
// Nothing is committed until every batch has been embedded, so a provider
// failure leaves the store and index untouched. Long inputs are first cut
// into overlapping windows by Chunk and each window is ingested as its own
// document.
package ingestion
