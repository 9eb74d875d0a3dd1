// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tsne

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/bhtsne/internal/operators"
	"github.com/born-ml/bhtsne/internal/parallel"
	"github.com/born-ml/bhtsne/internal/tensor"
	"github.com/born-ml/bhtsne/internal/tsne"
)

// Config holds the t-SNE hyperparameters.
type Config = tsne.Config

// ParallelConfig controls optional per-point parallelism.
type ParallelConfig = parallel.Config

// Phase is the state of the optimizer schedule.
type Phase = tsne.Phase

// Optimizer phases.
const (
	PhaseInitializing      = tsne.PhaseInitializing
	PhaseEarlyExaggeration = tsne.PhaseEarlyExaggeration
	PhaseNormal            = tsne.PhaseNormal
	PhaseTerminated        = tsne.PhaseTerminated
)

// Errors returned by Run and Embed. Match them with errors.Is.
var (
	ErrInvalidConfig      = tsne.ErrInvalidConfig
	ErrPerplexityTooLarge = tsne.ErrPerplexityTooLarge
	ErrShapeMismatch      = tsne.ErrShapeMismatch
)

// DefaultConfig returns the reference hyperparameters.
// Dims must be set by the caller.
func DefaultConfig() Config {
	return tsne.DefaultConfig()
}

// DefaultParallelConfig returns a parallel configuration using all CPUs.
func DefaultParallelConfig() ParallelConfig {
	return parallel.DefaultConfig()
}

// Run embeds the n×d row-major matrix x into the n×cfg.Dims row-major buffer y.
//
// x is never modified. Unless cfg.SkipRandomInit is set, y is overwritten with
// a random starting embedding.
func Run(x []float64, n, d int, y []float64, cfg Config) error {
	return tsne.Run(x, n, d, y, cfg)
}

// Embed returns the t-SNE embedding of the rows of x as an r×cfg.Dims matrix.
// It always starts from a random embedding; cfg.SkipRandomInit is ignored.
//
// Example:
//
//	cfg := tsne.DefaultConfig()
//	cfg.Dims = 2
//	y, err := tsne.Embed(x, cfg)
func Embed(x mat.Matrix, cfg Config) (*mat.Dense, error) {
	r, c := x.Dims()
	if r == 0 || c == 0 {
		return nil, fmt.Errorf("tsne: %w: empty input matrix", ErrInvalidConfig)
	}
	data := mat.DenseCopyOf(x).RawMatrix().Data

	cfg.SkipRandomInit = false
	y := make([]float64, r*max(cfg.Dims, 0))
	if err := tsne.Run(data, r, c, y, cfg); err != nil {
		return nil, err
	}
	return mat.NewDense(r, cfg.Dims, y), nil
}

// EmbedFrom refines the starting embedding init in place and returns it.
// init must be r×cfg.Dims for an r-row x.
func EmbedFrom(x mat.Matrix, init *mat.Dense, cfg Config) (*mat.Dense, error) {
	r, c := x.Dims()
	if r == 0 || c == 0 {
		return nil, fmt.Errorf("tsne: %w: empty input matrix", ErrInvalidConfig)
	}
	if init == nil {
		return nil, fmt.Errorf("tsne: %w: initial embedding is nil", ErrShapeMismatch)
	}
	ir, ic := init.Dims()
	if ir != r || ic != cfg.Dims {
		return nil, fmt.Errorf("tsne: %w: initial embedding is %d×%d, want %d×%d",
			ErrShapeMismatch, ir, ic, r, cfg.Dims)
	}

	data := mat.DenseCopyOf(x).RawMatrix().Data
	y := make([]float64, r*ic)
	for i := 0; i < r; i++ {
		mat.Row(y[i*ic:(i+1)*ic], i, init)
	}

	cfg.SkipRandomInit = true
	if err := tsne.Run(data, r, c, y, cfg); err != nil {
		return nil, err
	}
	init.Copy(mat.NewDense(r, ic, y))
	return init, nil
}

// Operator registry

// OperatorRegistry maps operator types to handlers.
type OperatorRegistry = operators.Registry

// OperatorContext provides execution settings to operators.
type OperatorContext = operators.Context

// Node is a single operator invocation.
type Node = operators.Node

// Attribute is a typed operator attribute.
type Attribute = operators.Attribute

// Workspace executes nodes over named tensors.
type Workspace = operators.Workspace

// Tensor is a row-major tensor exchanged with operators.
type Tensor = tensor.RawTensor

// Shape is a tensor shape.
type Shape = tensor.Shape

// NewOperatorRegistry returns a registry containing the TSNE operator.
func NewOperatorRegistry() *OperatorRegistry {
	return operators.NewRegistry()
}

// NewWorkspace returns an empty workspace over registry. A nil ctx runs with defaults.
func NewWorkspace(registry *OperatorRegistry, ctx *OperatorContext) *Workspace {
	return operators.NewWorkspace(registry, ctx)
}

// FloatAttr creates a float attribute.
func FloatAttr(name string, v float32) Attribute {
	return operators.FloatAttr(name, v)
}

// IntAttr creates an int attribute.
func IntAttr(name string, v int64) Attribute {
	return operators.IntAttr(name, v)
}

// NewTensor wraps a copy of values in a float64 tensor of the given shape.
func NewTensor(shape Shape, values []float64) (*Tensor, error) {
	return tensor.FromFloat64(shape, values)
}
