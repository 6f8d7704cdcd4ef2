package vectorindex

import (
	"fmt"
	"slices"

	"github.com/fogfish/hnsw"
	"github.com/fogfish/hnsw/vector"
	surface "github.com/kshard/vector"

	"github.com/poiesic/recall/core"
)

// dotSurface measures 1 - dot(a, b), matching Distance.
type dotSurface struct{}

var _ surface.Surface[surface.F32] = dotSurface{}

func (dotSurface) Distance(a, b surface.F32) float32 { return Distance(a, b) }

func (dotSurface) Equal(a, b surface.F32) bool { return slices.Equal(a, b) }

// HNSWIndex keeps its graph in github.com/fogfish/hnsw and rebuilds it from
// every stored point on each insert. Its State is the native graph linked
// from the same points, so snapshots restore into any kind.
type HNSWIndex struct {
	params Params
	points []core.EmbeddingPoint
	dim    int
	owners map[core.DocumentID]int
	ann    *hnsw.HNSW[vector.VF32]
}

var _ Index = (*HNSWIndex)(nil)

// NewHNSWIndex creates an empty HNSWIndex.
func NewHNSWIndex(params Params) *HNSWIndex {
	return &HNSWIndex{
		params: params.normalized(),
		owners: make(map[core.DocumentID]int),
	}
}

// Insert rebuilds the graph with point appended.
func (x *HNSWIndex) Insert(point core.EmbeddingPoint) error {
	return x.InsertBatch([]core.EmbeddingPoint{point})
}

// InsertBatch rebuilds the graph once with points appended.
func (x *HNSWIndex) InsertBatch(points []core.EmbeddingPoint) error {
	if err := validateBatch(x.dim, points); err != nil {
		return err
	}
	if len(points) == 0 {
		return nil
	}
	x.load(append(slices.Clip(x.points), points...))
	return nil
}

// load replaces the stored points and rebuilds the library graph from them.
// Point i is keyed i.
func (x *HNSWIndex) load(points []core.EmbeddingPoint) {
	x.points = points
	x.owners = make(map[core.DocumentID]int)
	x.dim = 0
	x.ann = nil
	if len(points) == 0 {
		return
	}

	x.dim = len(points[0].Vector)
	ann := hnsw.New(
		vector.SurfaceVF32(dotSurface{}),
		hnsw.WithM(x.params.M),
		hnsw.WithEfConstruction(x.params.EfConstruction),
	)
	for i, p := range points {
		x.owners[p.Owner]++
		ann.Insert(vector.VF32{Key: uint32(i), Vec: p.Vector})
	}
	x.ann = ann
}

// Search asks the library for k nearest points, rescores them exactly and
// keeps the closest point per owner. k doubles until topK owners are found
// or every point has been requested.
func (x *HNSWIndex) Search(query []float32, topK int) ([]core.Candidate, error) {
	topK = min(topK, len(x.owners))
	if topK <= 0 {
		return nil, nil
	}
	if len(query) != x.dim {
		return nil, fmt.Errorf("%w: expected %d, got %d", core.ErrDimensionMismatch, x.dim, len(query))
	}

	k := min(topK, len(x.points))
	for {
		hits := x.ann.Search(vector.VF32{Vec: query}, k, max(x.params.EfSearch, k))
		found := make([]neighbor, 0, len(hits))
		for _, hit := range hits {
			if int(hit.Key) >= len(x.points) {
				continue
			}
			found = append(found, neighbor{node: hit.Key, dist: Distance(query, x.points[hit.Key].Vector)})
		}
		slices.SortFunc(found, compareNeighbors)

		candidates := make([]core.Candidate, 0, topK)
		seen := make(map[core.DocumentID]struct{}, topK)
		for _, n := range found {
			owner := x.points[n.node].Owner
			if _, ok := seen[owner]; ok {
				continue
			}
			seen[owner] = struct{}{}
			candidates = append(candidates, core.Candidate{Document: owner, Distance: n.dist})
			if len(candidates) == topK {
				break
			}
		}
		if len(candidates) == topK || k >= len(x.points) {
			return candidates, nil
		}
		k = min(k*2, len(x.points))
	}
}

// Len implements Index.
func (x *HNSWIndex) Len() int {
	return len(x.points)
}

// Points implements Index.
func (x *HNSWIndex) Points() []core.EmbeddingPoint {
	return x.points
}

// State links the stored points into a native graph and returns its state.
func (x *HNSWIndex) State() *GraphState {
	g := newGraph(x.params, x.params.Seed)
	for _, p := range x.points {
		g.insert(p)
	}
	return g.state()
}
