package vectorindex

import "github.com/poiesic/recall/core"

// RebuildIndex rebuilds its graph from scratch on every insert. The graph
// depends only on the points and the parameters, so two indexes fed the same
// points answer every query identically.
type RebuildIndex struct {
	graph *graph
}

var _ Index = (*RebuildIndex)(nil)

// NewRebuildIndex creates an empty RebuildIndex.
func NewRebuildIndex(params Params) *RebuildIndex {
	params = params.normalized()
	return &RebuildIndex{graph: newGraph(params, params.Seed)}
}

// Insert rebuilds the graph with point appended.
func (r *RebuildIndex) Insert(point core.EmbeddingPoint) error {
	return r.InsertBatch([]core.EmbeddingPoint{point})
}

// InsertBatch rebuilds the graph once with points appended.
func (r *RebuildIndex) InsertBatch(points []core.EmbeddingPoint) error {
	if err := validateBatch(r.graph.dim, points); err != nil {
		return err
	}
	if len(points) == 0 {
		return nil
	}

	params := r.graph.params
	fresh := newGraph(params, params.Seed)
	for _, p := range r.graph.points {
		fresh.insert(p)
	}
	for _, p := range points {
		fresh.insert(p)
	}
	r.graph = fresh
	return nil
}

// Search implements Index.
func (r *RebuildIndex) Search(query []float32, topK int) ([]core.Candidate, error) {
	return searchOwners(r.graph, query, topK)
}

// Len implements Index.
func (r *RebuildIndex) Len() int {
	return len(r.graph.points)
}

// Points implements Index.
func (r *RebuildIndex) Points() []core.EmbeddingPoint {
	return r.graph.points
}

// State implements Index.
func (r *RebuildIndex) State() *GraphState {
	return r.graph.state()
}
