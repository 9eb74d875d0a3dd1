package operators

import (
	"fmt"

	"github.com/born-ml/bhtsne/internal/tensor"
	"github.com/born-ml/bhtsne/internal/tsne"
)

// TSNE attribute defaults.
const (
	defaultPerplexity = 50
	defaultTheta      = 0.5
	defaultMaxIter    = 1000
)

const tsneDoc = `Barnes-Hut t-SNE embedding of an (N, D) float32 or float64 tensor into (N, dims).

Attributes:
  dims        (int, required) output dimension
  perplexity  (float, default 50)
  theta       (float, default 0.5; 0 = exact)
  random_seed (int, default 0 = time-based)
  max_iter    (int, default 1000)

Inputs:
  X  (N, D) float32 or float64 input tensor
  Y  optional (N, dims) float64 initial embedding, updated in place

Outputs:
  Y  the float64 t-SNE embedding`

// registerManifoldOps adds dimensionality-reduction operators to the registry.
func (r *Registry) registerManifoldOps() {
	r.Register("TSNE", handleTSNE, Schema{
		MinInputs:  1,
		MaxInputs:  2,
		NumOutputs: 1,
		Inplace:    map[int]int{1: 0},
		NoGradient: true,
		Doc:        tsneDoc,
	})
}

// handleTSNE validates shapes and parameters and runs the embedding.
// With a second input the embedding starts from, and is written into, that tensor.
func handleTSNE(ctx *Context, node *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if len(inputs) < 1 || len(inputs) > 2 {
		return nil, fmt.Errorf("tsne requires 1 or 2 inputs, got %d", len(inputs))
	}

	dims := int(GetAttrInt(node, "dims", 0))
	if !HasAttr(node, "dims") || dims <= 0 {
		return nil, fmt.Errorf("tsne: you should specify the number of output dimensions (dims > 0), got %d", dims)
	}

	x := inputs[0]
	if x == nil {
		return nil, fmt.Errorf("tsne: missing input X")
	}
	n, d, err := x.Shape().Matrix()
	if err != nil {
		return nil, fmt.Errorf("tsne: input X: %w", err)
	}
	xs, err := inputValues(x)
	if err != nil {
		return nil, err
	}

	skipRandomInit := len(inputs) == 2 && inputs[1] != nil
	var y *tensor.RawTensor
	if skipRandomInit {
		y = inputs[1]
		rows, cols, err := y.Shape().Matrix()
		if err != nil {
			return nil, fmt.Errorf("tsne: initial embedding: %w", err)
		}
		if rows != n || cols != dims {
			return nil, fmt.Errorf("tsne: initial embedding shape %v, want [%d %d]", []int(y.Shape()), n, dims)
		}
		if y.DType() != tensor.Float64 {
			return nil, fmt.Errorf("tsne: initial embedding must be float64, got %s", y.DType())
		}
	} else {
		y, err = tensor.NewRaw(tensor.Shape{n, dims}, tensor.Float64)
		if err != nil {
			return nil, fmt.Errorf("tsne: %w", err)
		}
	}

	cfg := tsne.DefaultConfig()
	cfg.Dims = dims
	cfg.Perplexity = float64(GetAttrFloat(node, "perplexity", defaultPerplexity))
	cfg.Theta = float64(GetAttrFloat(node, "theta", defaultTheta))
	cfg.RandomSeed = GetAttrInt(node, "random_seed", 0)
	cfg.MaxIter = int(GetAttrInt(node, "max_iter", defaultMaxIter))
	cfg.SkipRandomInit = skipRandomInit
	cfg.Logger = ctx.Logger
	cfg.Parallel = ctx.Parallel

	if err := tsne.Run(xs, n, d, y.AsFloat64(), cfg); err != nil {
		return nil, err
	}
	return []*tensor.RawTensor{y}, nil
}

// inputValues returns the elements of X as float64. Float32 input is widened
// into a new buffer; Float64 input is used directly.
func inputValues(x *tensor.RawTensor) ([]float64, error) {
	switch x.DType() {
	case tensor.Float64:
		return x.AsFloat64(), nil
	case tensor.Float32:
		src := x.AsFloat32()
		out := make([]float64, len(src))
		for i, v := range src {
			out[i] = float64(v)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("tsne: input X must be float32 or float64, got %s", x.DType())
	}
}
