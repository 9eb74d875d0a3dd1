// Package tsne implements Barnes-Hut t-distributed Stochastic Neighbor Embedding.
//
// The embedding is computed in three stages:
//  1. Input affinities: a vantage-point tree finds the 3·perplexity nearest
//     neighbors of every point and a per-point binary search calibrates a
//     Gaussian kernel to the requested perplexity. The conditional
//     distributions are symmetrized into a sparse joint distribution P.
//  2. Force approximation: every iteration a space-partitioning tree
//     (quad-tree in 2D, oct-tree in 3D, 2^d-ary in general) is built over the
//     current embedding, and distant cells are summarized by their center of
//     mass when width/distance < theta.
//  3. Optimization: gradient descent with momentum, per-coordinate adaptive
//     gains and early exaggeration of P.
//
// Setting Theta to 0 switches to the exact O(N²) algorithm with dense input
// affinities.
//
// Reference: L.J.P. van der Maaten. Accelerating t-SNE using Tree-Based
// Algorithms. Journal of Machine Learning Research 15(Oct):3221-3245, 2014.
//
// Example:
//
//	cfg := tsne.DefaultConfig()
//	cfg.Dims = 2
//	cfg.RandomSeed = 42
//	y := make([]float64, n*cfg.Dims)
//	if err := tsne.Run(x, n, d, y, cfg); err != nil {
//	    log.Fatal(err)
//	}
package tsne
