// Package operators provides the operator registry and execution workspace
// that host tensor operators such as TSNE.
//
// An operator is a handler registered under an op type together with a
// schema describing its input/output arity, in-place constraints and whether
// it supports gradients. A Workspace holds named tensors and runs nodes
// against a registry, the way a graph executor runs one node at a time.
package operators
