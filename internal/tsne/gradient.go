package tsne

import (
	"github.com/born-ml/bhtsne/internal/parallel"
)

// edgeForces accumulates the attractive forces Σ_j P_ij·q_ij·(y_i − y_j)
// over the sparse graph into posF, where q_ij = 1/(1+‖y_i − y_j‖²).
func edgeForces(p *csr, y []float64, dims int, posF []float64, par parallel.Config) {
	parallel.For(p.n, func(i int) {
		yi := y[i*dims : (i+1)*dims]
		fi := posF[i*dims : (i+1)*dims]
		cols, vals := p.row(i)
		for idx, j := range cols {
			yj := y[j*dims : (j+1)*dims]
			mult := vals[idx] / (1 + squaredDistance(yi, yj))
			for k := range fi {
				fi[k] += mult * (yi[k] - yj[k])
			}
		}
	}, par)
}

// repulsiveForces fills negF with the unnormalized repulsive forces computed
// from tree and returns the normalizer Z. The per-point partial sums are
// reduced in index order so the result does not depend on scheduling.
func repulsiveForces(tree *spTree, n, dims int, theta float64, negF, partial []float64, par parallel.Config) float64 {
	parallel.For(n, func(i int) {
		partial[i] = tree.nonEdgeForces(i, theta, negF[i*dims:(i+1)*dims])
	}, par)

	sumQ := 0.0
	for _, q := range partial {
		sumQ += q
	}
	return sumQ
}

// gradientWorkspace holds buffers reused across iterations.
type gradientWorkspace struct {
	tree    *spTree
	posF    []float64
	negF    []float64
	partial []float64
}

func newGradientWorkspace(n, dims int) *gradientWorkspace {
	return &gradientWorkspace{
		tree:    newSPTree(dims),
		posF:    make([]float64, n*dims),
		negF:    make([]float64, n*dims),
		partial: make([]float64, n),
	}
}

// approxGradient computes the Barnes-Hut gradient into dY.
func (w *gradientWorkspace) approxGradient(p *csr, y []float64, n, dims int, theta float64, dY []float64, par parallel.Config) {
	w.tree.build(y, n)

	clear(w.posF)
	clear(w.negF)
	edgeForces(p, y, dims, w.posF, par)
	sumQ := repulsiveForces(w.tree, n, dims, theta, w.negF, w.partial, par)

	for i := range dY {
		dY[i] = w.posF[i] - w.negF[i]/sumQ
	}
}

// exactGradient computes the exact t-SNE gradient into dY from a dense P.
func exactGradient(p, y []float64, n, dims int, dY []float64) {
	q := make([]float64, n*n)
	sumQ := 0.0
	for i := 0; i < n; i++ {
		yi := y[i*dims : (i+1)*dims]
		for j := i + 1; j < n; j++ {
			v := 1 / (1 + squaredDistance(yi, y[j*dims:(j+1)*dims]))
			q[i*n+j] = v
			q[j*n+i] = v
			sumQ += 2 * v
		}
	}

	clear(dY)
	for i := 0; i < n; i++ {
		yi := y[i*dims : (i+1)*dims]
		gi := dY[i*dims : (i+1)*dims]
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			qij := q[i*n+j]
			mult := (p[i*n+j] - qij/sumQ) * qij
			yj := y[j*dims : (j+1)*dims]
			for k := range gi {
				gi[k] += (yi[k] - yj[k]) * mult
			}
		}
	}
}
