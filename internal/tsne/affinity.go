package tsne

import (
	"math"
	"math/rand"
	"slices"
	"sync/atomic"

	"gonum.org/v1/gonum/floats"

	"github.com/born-ml/bhtsne/internal/parallel"
)

const (
	// Entropy tolerance of the per-point bandwidth search.
	entropyTolerance = 1e-5
	// Maximum bisection steps per point; the last bandwidth is kept if the
	// search does not converge.
	maxBandwidthSteps = 200
	// Smallest normal float64; keeps the kernel sum strictly positive.
	minKernelSum = 2.2250738585072014e-308
)

// csr is a sparse matrix in compressed sparse row format.
// Row i occupies cols[rowPtr[i]:rowPtr[i+1]] and the matching vals.
type csr struct {
	n      int
	rowPtr []int
	cols   []int
	vals   []float64
}

// row returns the column indices and values of row i.
func (m *csr) row(i int) ([]int, []float64) {
	lo, hi := m.rowPtr[i], m.rowPtr[i+1]
	return m.cols[lo:hi], m.vals[lo:hi]
}

// scale multiplies every stored value by f.
func (m *csr) scale(f float64) {
	floats.Scale(f, m.vals)
}

// sum returns the total mass of the matrix.
func (m *csr) sum() float64 {
	return floats.Sum(m.vals)
}

// calibrateRow fills p with the conditional distribution exp(-β·d²)/Z over the
// given squared distances, with β chosen by bisection so the entropy (in nats)
// matches log(perplexity). It reports whether the search converged.
func calibrateRow(dist2, p []float64, perplexity float64) bool {
	target := math.Log(perplexity)
	beta := 1.0
	minBeta := math.Inf(-1)
	maxBeta := math.Inf(1)

	converged := false
	sum := minKernelSum
	for step := 0; step < maxBandwidthSteps; step++ {
		sum = minKernelSum
		for m, d := range dist2 {
			p[m] = math.Exp(-beta * d)
			sum += p[m]
		}

		h := 0.0
		for m, d := range dist2 {
			h += beta * d * p[m]
		}
		h = h/sum + math.Log(sum)

		diff := h - target
		if math.Abs(diff) < entropyTolerance {
			converged = true
			break
		}

		// Entropy too high means the kernel is too wide: raise precision.
		if diff > 0 {
			minBeta = beta
			if math.IsInf(maxBeta, 0) {
				beta *= 2
			} else {
				beta = (beta + maxBeta) / 2
			}
		} else {
			maxBeta = beta
			if math.IsInf(minBeta, 0) {
				beta /= 2
			} else {
				beta = (beta + minBeta) / 2
			}
		}
	}

	floats.Scale(1/sum, p)
	return converged
}

// sparseAffinities computes the symmetric joint distribution P over the k
// nearest neighbors of every row of x. The returned matrix sums to 1.
// The second return value counts rows whose bandwidth search did not converge.
func sparseAffinities(x []float64, n, d int, perplexity float64, k int, rng *rand.Rand, par parallel.Config) (*csr, int) {
	tree := newVPTree(x, n, d, rng)

	cond := &csr{
		n:      n,
		rowPtr: make([]int, n+1),
		cols:   make([]int, n*k),
		vals:   make([]float64, n*k),
	}
	for i := 0; i <= n; i++ {
		cond.rowPtr[i] = i * k
	}

	var unconverged atomic.Int64
	parallel.For(n, func(i int) {
		neighbors := tree.search(x[i*d:(i+1)*d], k, i)
		cols, vals := cond.row(i)
		dist2 := make([]float64, len(neighbors))
		for m, nb := range neighbors {
			cols[m] = nb.index
			dist2[m] = nb.distance * nb.distance
		}
		if !calibrateRow(dist2, vals, perplexity) {
			unconverged.Add(1)
		}
	}, par)

	p := symmetrize(cond)
	p.scale(1 / p.sum())
	return p, int(unconverged.Load())
}

// symmetrize returns P + Pᵀ for a square sparse matrix. Entries present in
// only one direction are kept with their single value.
func symmetrize(m *csr) *csr {
	n := m.n

	// Upper bound of entries per row: own entries plus transposed ones.
	counts := make([]int, n+1)
	for i := 0; i < n; i++ {
		cols, _ := m.row(i)
		counts[i+1] += len(cols)
		for _, j := range cols {
			counts[j+1]++
		}
	}
	for i := 0; i < n; i++ {
		counts[i+1] += counts[i]
	}

	type entry struct {
		col int
		val float64
	}
	entries := make([]entry, counts[n])
	cursor := slices.Clone(counts[:n])
	for i := 0; i < n; i++ {
		cols, vals := m.row(i)
		for idx, j := range cols {
			entries[cursor[i]] = entry{col: j, val: vals[idx]}
			cursor[i]++
			entries[cursor[j]] = entry{col: i, val: vals[idx]}
			cursor[j]++
		}
	}

	out := &csr{
		n:      n,
		rowPtr: make([]int, n+1),
		cols:   make([]int, 0, len(entries)),
		vals:   make([]float64, 0, len(entries)),
	}
	for i := 0; i < n; i++ {
		row := entries[counts[i]:counts[i+1]]
		slices.SortFunc(row, func(a, b entry) int { return a.col - b.col })
		for idx, e := range row {
			if idx > 0 && row[idx-1].col == e.col {
				out.vals[len(out.vals)-1] += e.val
				continue
			}
			out.cols = append(out.cols, e.col)
			out.vals = append(out.vals, e.val)
		}
		out.rowPtr[i+1] = len(out.cols)
	}
	return out
}

// denseAffinities computes the exact symmetric joint distribution P over all
// pairs of rows of x, as a row-major n×n matrix summing to 1.
func denseAffinities(x []float64, n, d int, perplexity float64, par parallel.Config) ([]float64, int) {
	p := make([]float64, n*n)

	var unconverged atomic.Int64
	parallel.For(n, func(i int) {
		dist2 := make([]float64, 0, n-1)
		xi := x[i*d : (i+1)*d]
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			dist2 = append(dist2, squaredDistance(xi, x[j*d:(j+1)*d]))
		}

		probs := make([]float64, n-1)
		if !calibrateRow(dist2, probs, perplexity) {
			unconverged.Add(1)
		}

		row := p[i*n : (i+1)*n]
		for j, m := 0, 0; j < n; j++ {
			if j == i {
				continue
			}
			row[j] = probs[m]
			m++
		}
	}, par)

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			s := p[i*n+j] + p[j*n+i]
			p[i*n+j] = s
			p[j*n+i] = s
		}
	}
	floats.Scale(1/floats.Sum(p), p)
	return p, int(unconverged.Load())
}

// squaredDistance returns ‖a − b‖².
func squaredDistance(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		diff := a[i] - b[i]
		s += diff * diff
	}
	return s
}

// normalizeInput centers x column-wise and scales it by its largest absolute
// value, in place.
func normalizeInput(x []float64, n, d int) {
	centerColumns(x, n, d)
	maxAbs := 0.0
	for _, v := range x {
		maxAbs = math.Max(maxAbs, math.Abs(v))
	}
	if maxAbs > 0 {
		floats.Scale(1/maxAbs, x)
	}
}

// centerColumns subtracts the column means of a row-major n×d matrix in place.
func centerColumns(y []float64, n, d int) {
	if n == 0 {
		return
	}
	mean := make([]float64, d)
	for i := 0; i < n; i++ {
		floats.Add(mean, y[i*d:(i+1)*d])
	}
	floats.Scale(1/float64(n), mean)
	for i := 0; i < n; i++ {
		floats.Sub(y[i*d:(i+1)*d], mean)
	}
}
