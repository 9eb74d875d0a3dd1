package tsne

import (
	"container/heap"
	"math"
	"math/rand"
	"slices"

	"github.com/viterin/vek"
)

// vpNode is a vantage-point tree node. Children are arena indices, -1 = none.
type vpNode struct {
	item      int     // Original row index of the vantage point.
	threshold float64 // Median distance from the vantage point.
	left      int     // Points closer than threshold.
	right     int     // Points at or beyond threshold.
}

// vpTree is a vantage-point tree over the rows of a row-major matrix.
// It is built once and is read-only afterwards, so concurrent searches are safe.
type vpTree struct {
	data  []float64
	dims  int
	nodes []vpNode
	root  int
}

// newVPTree builds a vantage-point tree over n rows of data.
// Vantage points are chosen with rng.
func newVPTree(data []float64, n, dims int, rng *rand.Rand) *vpTree {
	t := &vpTree{
		data:  data,
		dims:  dims,
		nodes: make([]vpNode, 0, n),
		root:  -1,
	}

	items := make([]int, n)
	for i := range items {
		items[i] = i
	}
	t.root = t.build(items, rng)
	return t
}

func (t *vpTree) row(i int) []float64 {
	return t.data[i*t.dims : (i+1)*t.dims]
}

func (t *vpTree) distance(a, b []float64) float64 {
	return vek.Distance(a, b)
}

// build recursively partitions items around a random vantage point and returns
// the arena index of the subtree root.
func (t *vpTree) build(items []int, rng *rand.Rand) int {
	if len(items) == 0 {
		return -1
	}

	id := len(t.nodes)
	t.nodes = append(t.nodes, vpNode{item: items[0], left: -1, right: -1})
	if len(items) == 1 {
		return id
	}

	pick := rng.Intn(len(items))
	items[0], items[pick] = items[pick], items[0]
	vantage := t.row(items[0])

	// Order the remaining points by distance so the median splits them in half.
	rest := make([]neighbor, len(items)-1)
	for i, it := range items[1:] {
		rest[i] = neighbor{index: it, distance: t.distance(vantage, t.row(it))}
	}
	slices.SortFunc(rest, func(a, b neighbor) int {
		switch {
		case a.distance < b.distance:
			return -1
		case a.distance > b.distance:
			return 1
		default:
			return a.index - b.index
		}
	})
	for i, nb := range rest {
		items[i+1] = nb.index
	}

	median := len(items) / 2
	threshold := rest[median-1].distance

	left := t.build(items[1:median], rng)
	right := t.build(items[median:], rng)

	t.nodes[id] = vpNode{
		item:      items[0],
		threshold: threshold,
		left:      left,
		right:     right,
	}
	return id
}

// neighbor is a search result.
type neighbor struct {
	index    int
	distance float64
}

// neighborHeap is a max-heap on distance; the root is the current k-th nearest.
type neighborHeap []neighbor

func (h neighborHeap) Len() int { return len(h) }
func (h neighborHeap) Less(i, j int) bool {
	if h[i].distance == h[j].distance {
		return h[i].index > h[j].index
	}
	return h[i].distance > h[j].distance
}
func (h neighborHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *neighborHeap) Push(x any)   { *h = append(*h, x.(neighbor)) }
func (h *neighborHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// search returns the k nearest rows to target, nearest first, skipping the row
// index exclude (pass -1 to keep every row).
func (t *vpTree) search(target []float64, k, exclude int) []neighbor {
	h := make(neighborHeap, 0, k+1)
	tau := math.MaxFloat64
	t.searchNode(t.root, target, k, exclude, &h, &tau)

	out := make([]neighbor, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&h).(neighbor)
	}
	return out
}

func (t *vpTree) searchNode(id int, target []float64, k, exclude int, h *neighborHeap, tau *float64) {
	if id < 0 || k <= 0 {
		return
	}
	node := &t.nodes[id]

	dist := t.distance(t.row(node.item), target)
	if dist < *tau && node.item != exclude {
		if h.Len() == k {
			heap.Pop(h)
		}
		heap.Push(h, neighbor{index: node.item, distance: dist})
		if h.Len() == k {
			*tau = (*h)[0].distance
		}
	}

	if node.left < 0 && node.right < 0 {
		return
	}

	// Visit the side the target falls in first; the other side only if the
	// search ball crosses the threshold.
	if dist < node.threshold {
		if dist-*tau <= node.threshold {
			t.searchNode(node.left, target, k, exclude, h, tau)
		}
		if dist+*tau >= node.threshold {
			t.searchNode(node.right, target, k, exclude, h, tau)
		}
	} else {
		if dist+*tau >= node.threshold {
			t.searchNode(node.right, target, k, exclude, h, tau)
		}
		if dist-*tau <= node.threshold {
			t.searchNode(node.left, target, k, exclude, h, tau)
		}
	}
}
