package search

import (
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/lexical"
)

// Fuse merges vector candidates and lexical scores into a single list,
// ascending by fused distance.
//
// Each lexical score s becomes 1 - s/top, where top is the first (highest)
// score. Documents also present in vector become the mean of that value and
// their vector distance. The sorted list is truncated to topK, then entries
// are removed from the tail while they exceed threshold.
func Fuse(vector []core.Candidate, scored []lexical.Scored, topK int, threshold float32) []core.Candidate {
	if len(scored) == 0 || topK <= 0 {
		return nil
	}

	distances := make(map[core.DocumentID]float32, len(vector))
	for _, c := range vector {
		if _, ok := distances[c.Document]; !ok {
			distances[c.Document] = c.Distance
		}
	}

	top := scored[0].Score
	fused := make([]core.Candidate, len(scored))
	for i, s := range scored {
		d := 1 - s.Score/top
		if v, ok := distances[s.Document]; ok {
			d = (d + v) / 2
		}
		fused[i] = core.Candidate{Document: s.Document, Distance: d}
	}

	core.SortCandidates(fused)
	if len(fused) > topK {
		fused = fused[:topK]
	}
	for len(fused) > 0 && fused[len(fused)-1].Distance > threshold {
		fused = fused[:len(fused)-1]
	}
	return fused
}
