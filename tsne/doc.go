// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tsne provides Barnes-Hut t-SNE embeddings of high-dimensional data.
//
// # Overview
//
// t-SNE maps N points of dimension D to N points of a small dimension (usually
// 2 or 3) so that points which are near each other in the input remain near
// each other in the embedding. This package uses the Barnes-Hut approximation,
// which runs in O(N log N) per iteration; Theta = 0 selects the exact O(N²)
// algorithm.
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/bhtsne/tsne"
//	    "gonum.org/v1/gonum/mat"
//	)
//
//	func main() {
//	    x := mat.NewDense(n, d, data)
//
//	    cfg := tsne.DefaultConfig()
//	    cfg.Dims = 2
//	    cfg.RandomSeed = 42
//
//	    y, err := tsne.Embed(x, cfg)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	}
//
// # Raw buffers
//
// [Run] works on row-major []float64 buffers and can refine a caller-supplied
// embedding when Config.SkipRandomInit is set.
//
// # Operator
//
// [NewOperatorRegistry] exposes the embedding as the "TSNE" operator over
// row-major tensors. It takes an (N, D) float64 input, an optional (N, dims)
// initial embedding that is updated in place, and the attributes dims,
// perplexity, theta, random_seed and max_iter.
package tsne
