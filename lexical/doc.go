// Package lexical holds the tokenizer shared by ingestion and querying and
// the BM25+ relevance scorer.
//
// Documents are tokenized once at ingestion time into per-document term
// counts (core.TermCounts). Queries go through the same tokenizer, with
// sentence terminators acting as extra separators, and are then scored
// against every stored document:
//
//	score(d) = Σ idf(t) * (tf*(k1+1) / (tf + k1*(1 - b + b*|d|/avg)) + delta)
//
// with idf(t) = ln((N - n(t) + 0.5) / (n(t) + 0.5) + 1). The delta floor
// keeps documents that lack a term from being fully discounted.
package lexical
