package vectorindex

import "github.com/poiesic/recall/core"

// IncrementalIndex links each new point into the existing graph.
type IncrementalIndex struct {
	graph *graph
}

var _ Index = (*IncrementalIndex)(nil)

// NewIncrementalIndex creates an empty IncrementalIndex.
func NewIncrementalIndex(params Params) *IncrementalIndex {
	params = params.normalized()
	return &IncrementalIndex{graph: newGraph(params, params.Seed)}
}

func (x *IncrementalIndex) Insert(point core.EmbeddingPoint) error {
	return x.InsertBatch([]core.EmbeddingPoint{point})
}

func (x *IncrementalIndex) InsertBatch(points []core.EmbeddingPoint) error {
	if err := validateBatch(x.graph.dim, points); err != nil {
		return err
	}
	for _, p := range points {
		x.graph.insert(p)
	}
	return nil
}

func (x *IncrementalIndex) Search(query []float32, topK int) ([]core.Candidate, error) {
	return searchOwners(x.graph, query, topK)
}

func (x *IncrementalIndex) Len() int {
	return len(x.graph.points)
}

func (x *IncrementalIndex) Points() []core.EmbeddingPoint {
	return x.graph.points
}

func (x *IncrementalIndex) State() *GraphState {
	return x.graph.state()
}
