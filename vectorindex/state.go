package vectorindex

import (
	"fmt"
	"slices"

	"github.com/poiesic/recall/core"
)

// GraphState is the persisted form of an index graph.
type GraphState struct {
	Params Params
	Points []core.EmbeddingPoint
	Levels []int
	Links  [][][]uint32 // Links[node][layer] lists neighbor nodes
	Entry  int          // -1 when the graph is empty
}

// state returns a deep copy of g.
func (g *graph) state() *GraphState {
	s := &GraphState{
		Params: g.params,
		Points: make([]core.EmbeddingPoint, len(g.points)),
		Levels: slices.Clone(g.levels),
		Links:  make([][][]uint32, len(g.links)),
		Entry:  g.entry,
	}
	for i, p := range g.points {
		s.Points[i] = core.EmbeddingPoint{Vector: slices.Clone(p.Vector), Owner: p.Owner}
	}
	for i, layers := range g.links {
		s.Links[i] = make([][]uint32, len(layers))
		for l, links := range layers {
			s.Links[i][l] = slices.Clone(links)
		}
	}
	return s
}

// graphFromState validates s and rebuilds a graph from it. The level
// generator is reseeded from the number of points, so inserts after a
// restore remain deterministic.
func graphFromState(s *GraphState) (*graph, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil state", ErrInvalidState)
	}
	n := len(s.Points)
	if len(s.Levels) != n || len(s.Links) != n {
		return nil, fmt.Errorf("%w: %d points, %d levels, %d link lists", ErrInvalidState, n, len(s.Levels), len(s.Links))
	}
	if (n == 0 && s.Entry != -1) || (n > 0 && (s.Entry < 0 || s.Entry >= n)) {
		return nil, fmt.Errorf("%w: entry point %d out of range", ErrInvalidState, s.Entry)
	}

	params := s.Params.normalized()
	g := newGraph(params, params.Seed+int64(n))
	g.entry = s.Entry

	for i, p := range s.Points {
		if err := core.ValidatePoint(p, g.dim); err != nil {
			return nil, fmt.Errorf("%w: point %d: %w", ErrInvalidState, i, err)
		}
		if g.dim == 0 {
			g.dim = len(p.Vector)
		}
		level := s.Levels[i]
		if level < 0 || level > maxLevel || len(s.Links[i]) != level+1 {
			return nil, fmt.Errorf("%w: node %d has level %d and %d layers", ErrInvalidState, i, level, len(s.Links[i]))
		}
		for _, links := range s.Links[i] {
			for _, next := range links {
				if int(next) >= n {
					return nil, fmt.Errorf("%w: node %d links to %d", ErrInvalidState, i, next)
				}
			}
		}
	}
	for i, layers := range s.Links {
		for l, links := range layers {
			for _, next := range links {
				if s.Levels[next] < l {
					return nil, fmt.Errorf("%w: node %d links to %d above its level", ErrInvalidState, i, next)
				}
			}
		}
	}
	if n > 0 && slices.Max(s.Levels) != s.Levels[s.Entry] {
		return nil, fmt.Errorf("%w: entry point is not on the top layer", ErrInvalidState)
	}

	copied := (&graph{points: s.Points, levels: s.Levels, links: s.Links}).state()
	g.points = copied.Points
	g.levels = copied.Levels
	g.links = copied.Links
	for _, p := range g.points {
		g.owners[p.Owner]++
	}
	return g, nil
}
