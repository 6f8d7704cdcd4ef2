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


package lexical

import (
	"cmp"
	"math"
	"slices"

	"github.com/poiesic/recall/core"
)

// Default BM25+ parameters.
const (
	DefaultK1    = 1.2
	DefaultB     = 0.75
	DefaultDelta = 1.0
)

// Corpus is the read-only view of stored documents the scorer needs.
type Corpus interface {
	// Documents returns every stored document in ID order.
	Documents() []*core.Document

	// AverageLength returns the running average of Document.TermTotal.
	AverageLength() float32
}

// Scored is a document paired with its lexical relevance. Higher is better.
type Scored struct {
	Document core.DocumentID
	Score    float32
}

// Params are the BM25+ tuning constants.
type Params struct {
	K1    float32
	B     float32
	Delta float32
}

// DefaultParams returns k1=1.2, b=0.75, delta=1.0.
func DefaultParams() Params {
	return Params{K1: DefaultK1, B: DefaultB, Delta: DefaultDelta}
}

// Scorer ranks stored documents against a query with BM25+.
type Scorer struct {
	corpus Corpus
	params Params
}

// NewScorer creates a scorer with default parameters over corpus.
func NewScorer(corpus Corpus) *Scorer {
	return &Scorer{corpus: corpus, params: DefaultParams()}
}

// NewScorerWithParams creates a scorer with custom parameters.
func NewScorerWithParams(corpus Corpus, params Params) *Scorer {
	return &Scorer{corpus: corpus, params: params}
}

// Params returns the scorer's parameters.
func (s *Scorer) Params() Params {
	return s.params
}

// Score returns every document ranked by descending relevance to query.
// Ties keep ID order.
//
// Score returns nil when the query has no terms, the corpus is empty, or no
// document contains any of the query terms. In the last case every document
// would carry only the delta floor, which says nothing about relevance.
func (s *Scorer) Score(query string) []Scored {
	terms := QueryTerms(query)
	docs := s.corpus.Documents()
	if len(terms) == 0 || len(docs) == 0 {
		return nil
	}

	n := float32(len(docs))
	idfs := make([]float32, len(terms))
	matched := false
	for i, term := range terms {
		var containing float32
		for _, doc := range docs {
			if doc.Terms.Contains(term) {
				containing++
			}
		}
		if containing > 0 {
			matched = true
		}
		idfs[i] = IDF(n, containing)
	}
	if !matched {
		return nil
	}

	avg := s.corpus.AverageLength()
	scores := make([]Scored, len(docs))
	for i, doc := range docs {
		var total float32
		for j, term := range terms {
			tf := float32(doc.Terms.Get(term))
			total += s.termScore(idfs[j], tf, float32(doc.TermTotal), avg)
		}
		scores[i] = Scored{Document: doc.ID, Score: total}
	}

	slices.SortStableFunc(scores, func(a, b Scored) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return scores
}

func (s *Scorer) termScore(idf, tf, length, avg float32) float32 {
	p := s.params
	ratio := float32(1)
	if avg > 0 {
		ratio = length / avg
	}
	return idf * (tf*(p.K1+1)/(tf+p.K1*(1-p.B+p.B*ratio)) + p.Delta)
}

// IDF is the BM25 inverse document frequency of a term found in containing
// out of n documents. It is always positive.
func IDF(n, containing float32) float32 {
	return float32(math.Log(float64((n-containing+0.5)/(containing+0.5) + 1)))
}
