package vectorindex

import (
	"errors"
	"fmt"

	"github.com/poiesic/recall/core"
)

var (
	// ErrUnknownKind indicates an index kind other than rebuild, incremental or hnsw.
	ErrUnknownKind = errors.New("unknown index kind")

	// ErrInvalidState indicates a GraphState that cannot describe a valid graph.
	ErrInvalidState = errors.New("invalid graph state")
)

// Index stores embedding points and answers nearest-owner queries.
// Implementations are not safe for concurrent mutation; concurrent Search
// calls are fine when no Insert runs.
type Index interface {
	// Insert adds a point. All points must share one dimension.
	Insert(point core.EmbeddingPoint) error

	// InsertBatch adds points in order. Every point is validated before any
	// is stored, so on error the index is unchanged.
	InsertBatch(points []core.EmbeddingPoint) error

	// Search returns up to topK candidates, one per owning document,
	// ascending by distance. topK is capped at the number of distinct owners.
	Search(query []float32, topK int) ([]core.Candidate, error)

	// Len returns the number of points.
	Len() int

	// Points returns the points in insertion order. Callers must not modify them.
	Points() []core.EmbeddingPoint

	// State returns a copy of the graph for persistence.
	State() *GraphState
}

// Kind selects an Index implementation.
type Kind string

const (
	KindRebuild     Kind = "rebuild"
	KindIncremental Kind = "incremental"
	KindHNSW        Kind = "hnsw"
)

// ParseKind converts a configuration string into a Kind.
// The empty string selects KindRebuild.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case "", KindRebuild:
		return KindRebuild, nil
	case KindIncremental:
		return KindIncremental, nil
	case KindHNSW:
		return KindHNSW, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// New creates an empty index of the given kind.
func New(kind Kind, params Params) (Index, error) {
	switch kind {
	case KindRebuild:
		return NewRebuildIndex(params), nil
	case KindIncremental:
		return NewIncrementalIndex(params), nil
	case KindHNSW:
		return NewHNSWIndex(params), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

// Build creates an index of the given kind holding points, linked in
// order. The result answers queries exactly like an index that received
// the same points one Insert at a time, without rebuilding per point.
func Build(kind Kind, params Params, points []core.EmbeddingPoint) (Index, error) {
	idx, err := New(kind, params)
	if err != nil {
		return nil, err
	}
	if err := idx.InsertBatch(points); err != nil {
		return nil, err
	}
	return idx, nil
}

// Restore recreates an index of the given kind from a persisted state.
func Restore(kind Kind, state *GraphState) (Index, error) {
	g, err := graphFromState(state)
	if err != nil {
		return nil, err
	}
	switch kind {
	case KindRebuild:
		return &RebuildIndex{graph: g}, nil
	case KindIncremental:
		return &IncrementalIndex{graph: g}, nil
	case KindHNSW:
		x := NewHNSWIndex(g.params)
		x.load(g.points)
		return x, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

// validateBatch checks points in order against dim, where 0 means the
// first point fixes the dimension.
func validateBatch(dim int, points []core.EmbeddingPoint) error {
	for i, p := range points {
		if err := core.ValidatePoint(p, dim); err != nil {
			return fmt.Errorf("point %d: %w", i, err)
		}
		if dim == 0 {
			dim = len(p.Vector)
		}
	}
	return nil
}

// Params tune graph construction and search.
type Params struct {
	M              int   // Links per node above layer 0; layer 0 allows 2*M
	EfConstruction int   // Candidate list size while inserting
	EfSearch       int   // Candidate list size while searching
	Seed           int64 // Seed for level assignment
}

// DefaultParams returns the parameters used when none are configured.
func DefaultParams() Params {
	return Params{
		M:              16,
		EfConstruction: 100,
		EfSearch:       100,
		Seed:           2181,
	}
}

// normalized replaces unusable values with defaults.
func (p Params) normalized() Params {
	d := DefaultParams()
	if p.M < 2 {
		p.M = d.M
	}
	if p.EfConstruction < 1 {
		p.EfConstruction = d.EfConstruction
	}
	if p.EfSearch < 1 {
		p.EfSearch = d.EfSearch
	}
	return p
}

// searchOwners runs a k-NN search on g and keeps the closest point of each
// owner. The candidate list is widened until topK owners are found or the
// whole graph has been considered.
func searchOwners(g *graph, query []float32, topK int) ([]core.Candidate, error) {
	if topK > len(g.owners) {
		topK = len(g.owners)
	}
	if topK <= 0 {
		return nil, nil
	}
	if err := g.checkDimension(query); err != nil {
		return nil, err
	}

	ef := max(g.params.EfSearch, topK)
	for {
		hits := g.search(query, ef)
		candidates := make([]core.Candidate, 0, topK)
		seen := make(map[core.DocumentID]struct{}, topK)
		for _, hit := range hits {
			owner := g.points[hit.node].Owner
			if _, ok := seen[owner]; ok {
				continue
			}
			seen[owner] = struct{}{}
			candidates = append(candidates, core.Candidate{Document: owner, Distance: hit.dist})
			if len(candidates) == topK {
				break
			}
		}
		if len(candidates) == topK || ef >= len(g.points) {
			return candidates, nil
		}
		ef = min(ef*2, len(g.points))
	}
}
