package vectorindex

// neighbor is a graph node together with its distance to a query.
type neighbor struct {
	node uint32
	dist float32
}

// nearHeap pops the closest neighbor first.
type nearHeap []neighbor

func (h nearHeap) Len() int           { return len(h) }
func (h nearHeap) Less(i, j int) bool { return h[i].dist < h[j].dist }
func (h nearHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *nearHeap) Push(x any)        { *h = append(*h, x.(neighbor)) }
func (h *nearHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// farHeap pops the farthest neighbor first.
type farHeap []neighbor

func (h farHeap) Len() int           { return len(h) }
func (h farHeap) Less(i, j int) bool { return h[i].dist > h[j].dist }
func (h farHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *farHeap) Push(x any)        { *h = append(*h, x.(neighbor)) }
func (h *farHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
