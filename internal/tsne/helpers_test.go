package tsne

import (
	"math/rand"
)

// randomMatrix returns an n×d row-major matrix of standard normal values.
func randomMatrix(n, d int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	x := make([]float64, n*d)
	for i := range x {
		x[i] = rng.NormFloat64()
	}
	return x
}

// columnMeans returns the column means of a row-major n×d matrix.
func columnMeans(y []float64, n, d int) []float64 {
	mean := make([]float64, d)
	for i := 0; i < n; i++ {
		for k := 0; k < d; k++ {
			mean[k] += y[i*d+k]
		}
	}
	for k := range mean {
		mean[k] /= float64(n)
	}
	return mean
}

// bruteForceRepulsion computes the unnormalized repulsive forces and Z by
// summing over all pairs.
func bruteForceRepulsion(y []float64, n, d int) ([]float64, float64) {
	negF := make([]float64, n*d)
	sumQ := 0.0
	for i := 0; i < n; i++ {
		yi := y[i*d : (i+1)*d]
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			yj := y[j*d : (j+1)*d]
			q := 1 / (1 + squaredDistance(yi, yj))
			sumQ += q
			for k := 0; k < d; k++ {
				negF[i*d+k] += q * q * (yi[k] - yj[k])
			}
		}
	}
	return negF, sumQ
}
