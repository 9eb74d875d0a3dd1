package tsne

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func treeForces(tree *spTree, n, d int, theta float64) ([]float64, float64) {
	negF := make([]float64, n*d)
	sumQ := 0.0
	for i := 0; i < n; i++ {
		sumQ += tree.nonEdgeForces(i, theta, negF[i*d:(i+1)*d])
	}
	return negF, sumQ
}

func TestSPTree_ThetaZeroMatchesBruteForce(t *testing.T) {
	for _, dims := range []int{1, 2, 3, 4} {
		n := 120
		y := randomMatrix(n, dims, int64(dims))

		tree := newSPTree(dims)
		tree.build(y, n)

		got, gotQ := treeForces(tree, n, dims, 0)
		want, wantQ := bruteForceRepulsion(y, n, dims)

		assert.InDelta(t, wantQ, gotQ, 1e-9*wantQ, "dims=%d", dims)
		for i := range want {
			assert.InDelta(t, want[i], got[i], 1e-10, "dims=%d component %d", dims, i)
		}
	}
}

func TestSPTree_ApproximationIsClose(t *testing.T) {
	n, dims := 500, 2
	y := randomMatrix(n, dims, 13)
	for i := range y {
		y[i] *= 10
	}

	tree := newSPTree(dims)
	tree.build(y, n)

	_, approxQ := treeForces(tree, n, dims, 0.5)
	_, exactQ := bruteForceRepulsion(y, n, dims)

	assert.InEpsilon(t, exactQ, approxQ, 0.05)
}

func TestSPTree_RootSummary(t *testing.T) {
	n, dims := 64, 3
	y := randomMatrix(n, dims, 5)

	tree := newSPTree(dims)
	tree.build(y, n)

	require.NotEmpty(t, tree.nodes)
	assert.Equal(t, n, tree.nodes[0].cumSize)

	mean := columnMeans(y, n, dims)
	com := tree.centerOfMass(0)
	for k := range mean {
		assert.InDelta(t, mean[k], com[k], 1e-12)
	}

	// Every point lies inside the root cell and in exactly one leaf.
	seen := make([]int, n)
	for id := range tree.nodes {
		node := tree.nodes[id]
		if !node.leaf() {
			assert.Len(t, tree.nodes[node.children:node.children+tree.fanout], 1<<dims)
			continue
		}
		for m := node.first; m >= 0; m = tree.next[m] {
			seen[m]++
			assert.True(t, tree.contains(id, tree.point(m)), "point %d outside its leaf", m)
		}
	}
	for i, c := range seen {
		assert.Equal(t, 1, c, "point %d", i)
	}
}

func TestSPTree_Duplicates(t *testing.T) {
	// Three coincident points and one distinct point.
	y := []float64{
		1, 1,
		1, 1,
		1, 1,
		-1, -1,
	}
	n, dims := 4, 2

	tree := newSPTree(dims)
	tree.build(y, n)

	got, gotQ := treeForces(tree, n, dims, 0)
	want, wantQ := bruteForceRepulsion(y, n, dims)

	assert.InDelta(t, wantQ, gotQ, 1e-12)
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-12)
	}
}

func TestSPTree_AllCoincident(t *testing.T) {
	n, dims := 5, 2
	y := make([]float64, n*dims)

	tree := newSPTree(dims)
	tree.build(y, n)

	require.Len(t, tree.nodes, 1, "coincident points must not subdivide")
	negF, sumQ := treeForces(tree, n, dims, 0.5)
	assert.InDelta(t, float64(n*(n-1)), sumQ, 1e-12)
	for _, v := range negF {
		assert.Zero(t, v)
	}
}

func TestSPTree_RebuildReusesArena(t *testing.T) {
	n, dims := 200, 2
	tree := newSPTree(dims)

	tree.build(randomMatrix(n, dims, 1), n)
	capacity := cap(tree.nodes)

	y := randomMatrix(n, dims, 2)
	tree.build(y, n)
	assert.Equal(t, n, tree.nodes[0].cumSize)
	assert.GreaterOrEqual(t, cap(tree.nodes), capacity)

	got, gotQ := treeForces(tree, n, dims, 0)
	want, wantQ := bruteForceRepulsion(y, n, dims)
	assert.InDelta(t, wantQ, gotQ, 1e-9*wantQ)
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-10)
	}
}
