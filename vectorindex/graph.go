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


package vectorindex

import (
	"container/heap"
	"fmt"
	"math"
	"math/rand"
	"slices"

	"github.com/poiesic/recall/core"
)

// maxLevel caps the layer a node can be assigned to.
const maxLevel = 16

// Distance returns 1 - dot(a, b).
func Distance(a, b []float32) float32 {
	var dot float32
	for i := range a {
		dot += a[i] * b[i]
	}
	return 1 - dot
}

// graph is a Hierarchical Navigable Small World graph. Node i holds
// points[i] and links[i][layer] for every layer up to levels[i].
type graph struct {
	params Params
	points []core.EmbeddingPoint
	levels []int
	links  [][][]uint32
	entry  int // -1 when empty
	dim    int
	owners map[core.DocumentID]int
	rng    *rand.Rand
	ml     float64
}

func newGraph(params Params, seed int64) *graph {
	params = params.normalized()
	return &graph{
		params: params,
		entry:  -1,
		owners: make(map[core.DocumentID]int),
		rng:    rand.New(rand.NewSource(seed)),
		ml:     1 / math.Log(float64(params.M)),
	}
}

func (g *graph) checkDimension(vector []float32) error {
	if g.dim != 0 && len(vector) != g.dim {
		return fmt.Errorf("%w: expected %d, got %d", core.ErrDimensionMismatch, g.dim, len(vector))
	}
	return nil
}

func (g *graph) randomLevel() int {
	level := int(math.Floor(-math.Log(1-g.rng.Float64()) * g.ml))
	return min(level, maxLevel)
}

func (g *graph) maxLinks(layer int) int {
	if layer == 0 {
		return 2 * g.params.M
	}
	return g.params.M
}

func (g *graph) distance(query []float32, node uint32) float32 {
	return Distance(query, g.points[node].Vector)
}

// insert links a validated point into the graph.
func (g *graph) insert(point core.EmbeddingPoint) {
	id := uint32(len(g.points))
	level := g.randomLevel()

	g.points = append(g.points, point)
	g.levels = append(g.levels, level)
	g.links = append(g.links, make([][]uint32, level+1))
	g.owners[point.Owner]++
	if g.dim == 0 {
		g.dim = len(point.Vector)
	}

	if g.entry < 0 {
		g.entry = int(id)
		return
	}

	ep := uint32(g.entry)
	top := g.levels[g.entry]
	for layer := top; layer > level; layer-- {
		ep = g.greedyClosest(point.Vector, ep, layer)
	}

	entries := []uint32{ep}
	for layer := min(level, top); layer >= 0; layer-- {
		found := g.searchLayer(point.Vector, entries, g.params.EfConstruction, layer)
		selected := found[:min(len(found), g.maxLinks(layer))]

		links := make([]uint32, len(selected))
		for i, n := range selected {
			links[i] = n.node
			g.connect(n.node, id, layer)
		}
		g.links[id][layer] = links

		entries = entries[:0]
		for _, n := range found {
			entries = append(entries, n.node)
		}
	}

	if level > top {
		g.entry = int(id)
	}
}

// connect adds a link from -> to and prunes from's links to the closest
// maxLinks when it overflows.
func (g *graph) connect(from, to uint32, layer int) {
	links := append(g.links[from][layer], to)
	limit := g.maxLinks(layer)
	if len(links) > limit {
		origin := g.points[from].Vector
		ranked := make([]neighbor, len(links))
		for i, n := range links {
			ranked[i] = neighbor{node: n, dist: g.distance(origin, n)}
		}
		slices.SortStableFunc(ranked, compareNeighbors)
		links = links[:0]
		for _, n := range ranked[:limit] {
			links = append(links, n.node)
		}
	}
	g.links[from][layer] = links
}

// greedyClosest walks layer from ep towards query and returns the local minimum.
func (g *graph) greedyClosest(query []float32, ep uint32, layer int) uint32 {
	current := ep
	best := g.distance(query, current)
	for changed := true; changed; {
		changed = false
		for _, n := range g.links[current][layer] {
			if d := g.distance(query, n); d < best {
				best = d
				current = n
				changed = true
			}
		}
	}
	return current
}

// searchLayer returns up to ef nodes of layer closest to query, ascending.
func (g *graph) searchLayer(query []float32, entries []uint32, ef, layer int) []neighbor {
	visited := make(map[uint32]struct{}, ef*2)
	candidates := &nearHeap{}
	results := &farHeap{}

	for _, e := range entries {
		if _, ok := visited[e]; ok {
			continue
		}
		visited[e] = struct{}{}
		n := neighbor{node: e, dist: g.distance(query, e)}
		heap.Push(candidates, n)
		heap.Push(results, n)
		if results.Len() > ef {
			heap.Pop(results)
		}
	}

	for candidates.Len() > 0 {
		current := heap.Pop(candidates).(neighbor)
		if results.Len() >= ef && current.dist > (*results)[0].dist {
			break
		}
		if layer >= len(g.links[current.node]) {
			continue
		}
		for _, next := range g.links[current.node][layer] {
			if _, ok := visited[next]; ok {
				continue
			}
			visited[next] = struct{}{}

			d := g.distance(query, next)
			if results.Len() < ef || d < (*results)[0].dist {
				n := neighbor{node: next, dist: d}
				heap.Push(candidates, n)
				heap.Push(results, n)
				if results.Len() > ef {
					heap.Pop(results)
				}
			}
		}
	}

	out := make([]neighbor, results.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(results).(neighbor)
	}
	slices.SortStableFunc(out, compareNeighbors)
	return out
}

// search returns up to ef points closest to query, ascending.
func (g *graph) search(query []float32, ef int) []neighbor {
	if g.entry < 0 {
		return nil
	}
	ep := uint32(g.entry)
	for layer := g.levels[g.entry]; layer > 0; layer-- {
		ep = g.greedyClosest(query, ep, layer)
	}
	return g.searchLayer(query, []uint32{ep}, ef, 0)
}

func compareNeighbors(a, b neighbor) int {
	if a.dist < b.dist {
		return -1
	}
	if a.dist > b.dist {
		return 1
	}
	if a.node < b.node {
		return -1
	}
	if a.node > b.node {
		return 1
	}
	return 0
}
