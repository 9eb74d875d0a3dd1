package operators

import (
	"fmt"

	"github.com/born-ml/bhtsne/internal/tensor"
)

// Workspace holds named tensors and executes nodes against a registry.
type Workspace struct {
	registry *Registry
	ctx      *Context
	tensors  map[string]*tensor.RawTensor
}

// NewWorkspace creates an empty workspace. A nil ctx runs with defaults.
func NewWorkspace(registry *Registry, ctx *Context) *Workspace {
	if ctx == nil {
		ctx = &Context{}
	}
	return &Workspace{
		registry: registry,
		ctx:      ctx,
		tensors:  make(map[string]*tensor.RawTensor),
	}
}

// Feed stores a tensor under name, replacing any previous value.
func (w *Workspace) Feed(name string, t *tensor.RawTensor) {
	w.tensors[name] = t
}

// Fetch returns the tensor stored under name.
func (w *Workspace) Fetch(name string) (*tensor.RawTensor, bool) {
	t, ok := w.tensors[name]
	return t, ok
}

// RunNode validates node against its schema, executes it and stores its outputs.
func (w *Workspace) RunNode(node *Node) error {
	if err := w.registry.Validate(node); err != nil {
		return fmt.Errorf("node %s (%s): %w", node.Name, node.OpType, err)
	}

	inputs := make([]*tensor.RawTensor, len(node.Inputs))
	for i, name := range node.Inputs {
		t, ok := w.tensors[name]
		if !ok {
			return fmt.Errorf("node %s (%s): missing input %s", node.Name, node.OpType, name)
		}
		inputs[i] = t
	}

	outputs, err := w.registry.Execute(w.ctx, node, inputs)
	if err != nil {
		return fmt.Errorf("node %s (%s): %w", node.Name, node.OpType, err)
	}

	for i, name := range node.Outputs {
		if i < len(outputs) {
			w.tensors[name] = outputs[i]
		}
	}
	return nil
}

// Run executes nodes in order, stopping at the first failure.
func (w *Workspace) Run(nodes []Node) error {
	for i := range nodes {
		if err := w.RunNode(&nodes[i]); err != nil {
			return err
		}
	}
	return nil
}
