package tsne

import "math"

const (
	// Beyond this depth points falling into the same cell are treated as
	// coincident mass instead of subdividing further.
	maxTreeDepth = 48
	// Padding added to the root half-width so boundary points fall inside.
	rootPadding = 1e-5
	// Lower bound on the squared distance used in the Barnes-Hut criterion.
	minSquaredDistance = 1e-12
)

// spNode is a cell of the space-partitioning tree.
// Geometry and center of mass live in the tree's flat arrays at id*dims.
type spNode struct {
	cumSize  int // Number of points in the subtree.
	first    int // Leaf: head of the member chain in spTree.next, -1 = empty.
	children int // Index of the first of 2^dims contiguous children, -1 = leaf.
}

func (n *spNode) leaf() bool { return n.children < 0 }

// spTree is a 2^dims-ary space-partitioning tree (quad-tree for dims=2,
// oct-tree for dims=3) over an embedding. Nodes are stored in an arena that is
// reset, not reallocated, by every build.
type spTree struct {
	dims      int
	fanout    int
	y         []float64
	nodes     []spNode
	centers   []float64 // Cell centers.
	halfWidth []float64 // Cell half-widths per dimension.
	com       []float64 // Centers of mass.
	next      []int     // Member chain: next point in the same leaf, -1 = end.
}

// newSPTree allocates an empty tree for embeddings of the given dimensionality.
func newSPTree(dims int) *spTree {
	return &spTree{
		dims:   dims,
		fanout: 1 << dims,
	}
}

// build rebuilds the tree over the n points of the row-major embedding y.
// The tree keeps a reference to y until the next build.
func (t *spTree) build(y []float64, n int) {
	d := t.dims
	t.y = y
	t.nodes = t.nodes[:0]
	t.centers = t.centers[:0]
	t.halfWidth = t.halfWidth[:0]
	t.com = t.com[:0]
	if cap(t.next) < n {
		t.next = make([]int, n)
	}
	t.next = t.next[:n]

	// Root cell: centered on the mean, wide enough for the farthest point.
	mean := make([]float64, d)
	lo := make([]float64, d)
	hi := make([]float64, d)
	for k := 0; k < d; k++ {
		lo[k] = math.Inf(1)
		hi[k] = math.Inf(-1)
	}
	for i := 0; i < n; i++ {
		for k := 0; k < d; k++ {
			v := y[i*d+k]
			mean[k] += v
			lo[k] = math.Min(lo[k], v)
			hi[k] = math.Max(hi[k], v)
		}
	}
	width := make([]float64, d)
	for k := 0; k < d; k++ {
		mean[k] /= float64(max(n, 1))
		width[k] = math.Max(hi[k]-mean[k], mean[k]-lo[k]) + rootPadding
	}

	t.newNode(mean, width)
	for i := 0; i < n; i++ {
		t.insert(i)
	}
}

// newNode appends an empty leaf cell and returns its index.
func (t *spTree) newNode(center, halfWidth []float64) int {
	id := len(t.nodes)
	t.nodes = append(t.nodes, spNode{first: -1, children: -1})
	t.centers = append(t.centers, center...)
	t.halfWidth = append(t.halfWidth, halfWidth...)
	t.com = append(t.com, make([]float64, t.dims)...)
	return id
}

func (t *spTree) point(i int) []float64 {
	return t.y[i*t.dims : (i+1)*t.dims]
}

func (t *spTree) center(id int) []float64 {
	return t.centers[id*t.dims : (id+1)*t.dims]
}

func (t *spTree) width(id int) []float64 {
	return t.halfWidth[id*t.dims : (id+1)*t.dims]
}

func (t *spTree) centerOfMass(id int) []float64 {
	return t.com[id*t.dims : (id+1)*t.dims]
}

// insert adds point i, descending from the root and updating the cumulative
// size and center of mass of every cell on the path.
func (t *spTree) insert(i int) {
	p := t.point(i)
	id := 0
	for depth := 0; ; depth++ {
		node := &t.nodes[id]
		com := t.centerOfMass(id)
		node.cumSize++
		frac := 1 / float64(node.cumSize)
		for k, v := range p {
			com[k] += (v - com[k]) * frac
		}

		if node.leaf() {
			if node.first < 0 {
				node.first = i
				t.next[i] = -1
				return
			}
			if samePoint(t.point(node.first), p) || depth >= maxTreeDepth {
				t.next[i] = node.first
				node.first = i
				return
			}
			t.subdivide(id)
		}

		id = t.childFor(id, p)
	}
}

// subdivide turns leaf id into an internal cell and moves its members, which
// are all coincident, into the matching child.
func (t *spTree) subdivide(id int) {
	d := t.dims
	center := make([]float64, d)
	half := make([]float64, d)

	first := len(t.nodes)
	for c := 0; c < t.fanout; c++ {
		parentCenter := t.center(id)
		parentWidth := t.width(id)
		for k := 0; k < d; k++ {
			half[k] = parentWidth[k] / 2
			if c&(1<<k) != 0 {
				center[k] = parentCenter[k] + half[k]
			} else {
				center[k] = parentCenter[k] - half[k]
			}
		}
		t.newNode(center, half)
	}

	node := &t.nodes[id]
	members := node.first
	count := node.cumSize - 1
	node.first = -1
	node.children = first

	child := t.childFor(id, t.point(members))
	t.nodes[child].first = members
	t.nodes[child].cumSize = count
	copy(t.centerOfMass(child), t.point(members))
}

// childFor returns the child of internal cell id that contains p.
func (t *spTree) childFor(id int, p []float64) int {
	center := t.center(id)
	c := 0
	for k, v := range p {
		if v > center[k] {
			c |= 1 << k
		}
	}
	return t.nodes[id].children + c
}

// contains reports whether p lies inside cell id.
func (t *spTree) contains(id int, p []float64) bool {
	center := t.center(id)
	half := t.width(id)
	for k, v := range p {
		if math.Abs(v-center[k]) > half[k] {
			return false
		}
	}
	return true
}

// maxWidth returns the largest full width of cell id.
func (t *spTree) maxWidth(id int) float64 {
	w := 0.0
	for _, h := range t.width(id) {
		w = math.Max(w, 2*h)
	}
	return w
}

// nonEdgeForces accumulates the unnormalized repulsive force on point i into
// negF and returns the contribution of i to the normalizer Z = Σ 1/(1+d²).
// Cells with width/distance < theta that do not contain i are summarized by
// their center of mass; leaves are evaluated exactly.
func (t *spTree) nonEdgeForces(i int, theta float64, negF []float64) float64 {
	if len(t.nodes) == 0 {
		return 0
	}
	return t.accumulate(0, i, theta, t.point(i), negF)
}

func (t *spTree) accumulate(id, i int, theta float64, yi, negF []float64) float64 {
	node := t.nodes[id]
	if node.cumSize == 0 {
		return 0
	}

	if node.leaf() {
		sumQ := 0.0
		for m := node.first; m >= 0; m = t.next[m] {
			if m == i {
				continue
			}
			ym := t.point(m)
			q := 1 / (1 + squaredDistance(yi, ym))
			sumQ += q
			mult := q * q
			for k := range negF {
				negF[k] += mult * (yi[k] - ym[k])
			}
		}
		return sumQ
	}

	com := t.centerOfMass(id)
	d2 := squaredDistance(yi, com)
	if !t.contains(id, yi) && t.maxWidth(id)/math.Sqrt(math.Max(d2, minSquaredDistance)) < theta {
		q := 1 / (1 + d2)
		mult := float64(node.cumSize) * q
		sumQ := mult
		mult *= q
		for k := range negF {
			negF[k] += mult * (yi[k] - com[k])
		}
		return sumQ
	}

	sumQ := 0.0
	for c := 0; c < t.fanout; c++ {
		sumQ += t.accumulate(node.children+c, i, theta, yi, negF)
	}
	return sumQ
}

// samePoint reports whether a and b are exactly equal.
func samePoint(a, b []float64) bool {
	for k := range a {
		if a[k] != b[k] {
			return false
		}
	}
	return true
}
