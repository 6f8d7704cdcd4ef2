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


// Package session tracks the documents relevant to an ongoing conversation.
//
// A Memory holds at most five candidates. Every substantive turn ages the
// tracked candidates, evicts the stale ones, retrieves fresh candidates for
// the new query and merges them in. The texts of the tracked documents,
// best first, form the context handed to the conversational agent.
package session

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"

	"github.com/poiesic/recall/core"
)

// Memory tuning constants.
const (
	Capacity           = 5
	MinQueryTokens     = 3
	DecayFactor        = 1.5
	EvictionDistance   = 0.7
	RetrievalThreshold = 0.3
	ReinforceFactor    = 0.5
	ReinforceFloor     = 1.0
	ContextSeparator   = "\n\n"
)

var (
	// ErrRetrieverRequired is returned when a retriever is not provided.
	ErrRetrieverRequired = errors.New("retriever required")

	// ErrTextSourceRequired is returned when a text source is not provided.
	ErrTextSourceRequired = errors.New("text source required")
)

// Retriever finds candidates for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int, threshold float32) ([]core.Candidate, error)
}

// TextSource resolves document IDs to their text.
type TextSource interface {
	Texts(ids []core.DocumentID) []string
}

// Memory is the decaying context of one conversation. It is not persisted
// and not safe for concurrent use.
type Memory struct {
	retriever  Retriever
	texts      TextSource
	candidates []core.Candidate
	logger     *slog.Logger
}

// Option configures a Memory.
type Option func(*Memory)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Memory) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewMemory creates an empty conversation memory.
func NewMemory(retriever Retriever, texts TextSource, opts ...Option) (*Memory, error) {
	if retriever == nil {
		return nil, ErrRetrieverRequired
	}
	if texts == nil {
		return nil, ErrTextSourceRequired
	}
	m := &Memory{
		retriever: retriever,
		texts:     texts,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("component", "session")
	return m, nil
}

// Update advances the memory by one conversational turn and returns the
// resulting context.
//
// Queries with fewer than MinQueryTokens whitespace-separated tokens are
// treated as acknowledgements: the memory is left untouched and the current
// context is returned. On a retrieval error the memory is also left
// untouched.
func (m *Memory) Update(ctx context.Context, query string) (string, error) {
	if !substantive(query) {
		return m.Context(), nil
	}

	retrieved, err := m.retriever.Retrieve(ctx, query, Capacity, RetrievalThreshold)
	if err != nil {
		return "", err
	}

	tracked := slices.Clone(m.candidates)
	for i := range tracked {
		tracked[i].Distance *= DecayFactor
	}
	if stale := slices.IndexFunc(tracked, func(c core.Candidate) bool {
		return c.Distance > EvictionDistance
	}); stale >= 0 {
		tracked = tracked[:stale]
	}

	for _, fresh := range retrieved {
		i := slices.IndexFunc(tracked, func(c core.Candidate) bool {
			return c.Document == fresh.Document
		})
		switch {
		case i < 0:
			tracked = append(tracked, fresh)
		case fresh.Distance < tracked[i].Distance:
			tracked[i].Distance = fresh.Distance
		default:
			tracked[i].Distance = max(tracked[i].Distance*ReinforceFactor, ReinforceFloor)
		}
	}

	core.SortCandidates(tracked)
	if len(tracked) > Capacity {
		tracked = tracked[:Capacity]
	}
	m.candidates = tracked

	m.logger.Debug("context updated", "retrieved", len(retrieved), "tracked", len(tracked))
	return m.Context(), nil
}

// Context returns the tracked documents' texts, best first, separated by
// blank lines.
func (m *Memory) Context() string {
	ids := make([]core.DocumentID, len(m.candidates))
	for i, c := range m.candidates {
		ids[i] = c.Document
	}
	return strings.Join(m.texts.Texts(ids), ContextSeparator)
}

// Candidates returns a copy of the tracked candidates, ascending by distance.
func (m *Memory) Candidates() []core.Candidate {
	return slices.Clone(m.candidates)
}

// Reset forgets every tracked candidate.
func (m *Memory) Reset() {
	m.candidates = nil
}

func substantive(query string) bool {
	tokens := 0
	for range strings.FieldsSeq(query) {
		tokens++
		if tokens >= MinQueryTokens {
			return true
		}
	}
	return false
}
