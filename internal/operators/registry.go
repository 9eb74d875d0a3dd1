package operators

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/born-ml/bhtsne/internal/parallel"
	"github.com/born-ml/bhtsne/internal/tensor"
)

// Registry errors.
var (
	ErrUnsupportedOp = errors.New("unsupported operator")
	ErrArity         = errors.New("wrong number of inputs or outputs")
	ErrInplace       = errors.New("in-place constraint violated")
	ErrNoGradient    = errors.New("operator has no gradient")
)

// OpHandler processes a node and returns output tensors.
type OpHandler func(ctx *Context, node *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error)

// Context provides execution settings to operators.
type Context struct {
	Logger   *slog.Logger    // Progress and diagnostics. nil = discard.
	Parallel parallel.Config // Per-point fan-out for CPU operators.
}

// Schema describes the calling convention of an operator.
type Schema struct {
	MinInputs  int
	MaxInputs  int
	NumOutputs int
	// Inplace maps an input index to the output index that must share its name.
	Inplace map[int]int
	// NoGradient marks terminal transforms that must never be differentiated.
	NoGradient bool
	Doc        string
}

type entry struct {
	handler OpHandler
	schema  Schema
}

// Registry maps operator types to handler functions.
type Registry struct {
	ops map[string]entry
}

// NewRegistry creates a new operator registry with all supported operators.
func NewRegistry() *Registry {
	r := &Registry{
		ops: make(map[string]entry),
	}

	r.registerManifoldOps()

	return r
}

// Register adds an operator handler with its schema.
func (r *Registry) Register(opType string, handler OpHandler, schema Schema) {
	r.ops[opType] = entry{handler: handler, schema: schema}
}

// Get returns the handler for an operator type.
func (r *Registry) Get(opType string) (OpHandler, bool) {
	e, ok := r.ops[opType]
	return e.handler, ok
}

// Schema returns the schema of an operator type.
func (r *Registry) Schema(opType string) (Schema, bool) {
	e, ok := r.ops[opType]
	return e.schema, ok
}

// Gradient reports whether gradients may be requested for an operator type.
func (r *Registry) Gradient(opType string) error {
	e, ok := r.ops[opType]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedOp, opType)
	}
	if e.schema.NoGradient {
		return fmt.Errorf("%w: %s is not expected to be part of a backward pass", ErrNoGradient, opType)
	}
	return nil
}

// Validate checks a node against the schema of its operator type.
func (r *Registry) Validate(node *Node) error {
	e, ok := r.ops[node.OpType]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedOp, node.OpType)
	}
	s := e.schema
	if len(node.Inputs) < s.MinInputs || len(node.Inputs) > s.MaxInputs {
		return fmt.Errorf("%w: %s takes %d to %d inputs, got %d",
			ErrArity, node.OpType, s.MinInputs, s.MaxInputs, len(node.Inputs))
	}
	if len(node.Outputs) != s.NumOutputs {
		return fmt.Errorf("%w: %s produces %d outputs, got %d",
			ErrArity, node.OpType, s.NumOutputs, len(node.Outputs))
	}
	for in, out := range s.Inplace {
		if in < len(node.Inputs) && node.Inputs[in] != node.Outputs[out] {
			return fmt.Errorf("%w: %s input %d (%q) must be output %d (%q)",
				ErrInplace, node.OpType, in, node.Inputs[in], out, node.Outputs[out])
		}
	}
	return nil
}

// Execute runs an operator with the given inputs.
func (r *Registry) Execute(ctx *Context, node *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	e, ok := r.ops[node.OpType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedOp, node.OpType)
	}
	if len(inputs) < e.schema.MinInputs || len(inputs) > e.schema.MaxInputs {
		return nil, fmt.Errorf("%w: %s takes %d to %d inputs, got %d",
			ErrArity, node.OpType, e.schema.MinInputs, e.schema.MaxInputs, len(inputs))
	}
	if ctx == nil {
		ctx = &Context{}
	}
	return e.handler(ctx, node, inputs)
}

// SupportedOps returns a sorted list of all supported operator types.
func (r *Registry) SupportedOps() []string {
	return slices.Sorted(maps.Keys(r.ops))
}
