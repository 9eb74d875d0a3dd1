package tsne

import (
	"math"
)

// Smallest normal float32; guards the logarithm in the KL divergence.
const klEpsilon = 1.17549435e-38

// approxCost returns the Kullback-Leibler divergence KL(P‖Q) over the edges of
// the sparse P, with the normalizer of Q estimated from a tree over y.
func (w *gradientWorkspace) approxCost(p *csr, y []float64, n, dims int, theta float64) float64 {
	w.tree.build(y, n)
	clear(w.negF)
	sumQ := 0.0
	for i := 0; i < n; i++ {
		sumQ += w.tree.nonEdgeForces(i, theta, w.negF[i*dims:(i+1)*dims])
	}

	c := 0.0
	for i := 0; i < n; i++ {
		yi := y[i*dims : (i+1)*dims]
		cols, vals := p.row(i)
		for idx, j := range cols {
			q := (1 / (1 + squaredDistance(yi, y[j*dims:(j+1)*dims]))) / sumQ
			c += vals[idx] * math.Log((vals[idx]+klEpsilon)/(q+klEpsilon))
		}
	}
	return c
}

// exactCost returns KL(P‖Q) over all pairs for a dense P.
func exactCost(p, y []float64, n, dims int) float64 {
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

	c := 0.0
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			pij := p[i*n+j]
			c += pij * math.Log((pij+klEpsilon)/(q[i*n+j]/sumQ+klEpsilon))
		}
	}
	return c
}
