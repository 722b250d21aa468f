package compute

import (
	"fmt"
	"sync/atomic"

	"github.com/born-ml/layergraph/internal/tensor"
)

var sessions atomic.Uint64

// Node is one step in a backend graph, chained to its predecessor.
type Node struct {
	id     int
	name   string
	op     Op // nil for the input node
	input  tensor.Shape
	output tensor.Shape
	prev   *Node
}

// ID returns the node's position in its graph.
func (n *Node) ID() int { return n.id }

// Name returns the node name.
func (n *Node) Name() string { return n.name }

// Op returns the node descriptor, or nil for the input node.
func (n *Node) Op() Op { return n.op }

// InputShape returns the shape flowing into the node.
func (n *Node) InputShape() tensor.Shape { return n.input }

// OutputShape returns the shape produced by the node.
func (n *Node) OutputShape() tensor.Shape { return n.output }

// Prev returns the predecessor, or nil for the input node.
func (n *Node) Prev() *Node { return n.prev }

// Builder assembles an acyclic chain of nodes for one session.
type Builder struct {
	session   uint64
	nodes     []*Node
	variables []*Variable
}

// NewBuilder creates an empty backend graph with a fresh session id.
func NewBuilder() *Builder {
	return &Builder{session: sessions.Add(1)}
}

// Session identifies the configuration session this builder belongs to.
func (b *Builder) Session() uint64 {
	return b.session
}

// Input seeds the graph with a named input node.
// Panics if the graph already has nodes.
func (b *Builder) Input(name string, shape tensor.Shape) *Node {
	if len(b.nodes) != 0 {
		panic("compute: input node must be the first node")
	}
	n := &Node{id: 0, name: name, input: shape, output: shape}
	b.nodes = append(b.nodes, n)
	return n
}

// Last returns the most recently appended node.
// Panics if the graph has no input node.
func (b *Builder) Last() *Node {
	if len(b.nodes) == 0 {
		panic("compute: graph has no input node")
	}
	return b.nodes[len(b.nodes)-1]
}

// Append chains a node after the last one. The descriptor is checked
// against the predecessor's output shape and the declared output shape.
func (b *Builder) Append(name string, op Op, output tensor.Shape) (*Node, error) {
	prev := b.Last()
	if err := op.check(prev.output, output); err != nil {
		return nil, fmt.Errorf("compute: node %q: %w", name, err)
	}
	n := &Node{
		id:     len(b.nodes),
		name:   name,
		op:     op,
		input:  prev.output,
		output: output,
		prev:   prev,
	}
	b.nodes = append(b.nodes, n)
	return n, nil
}

// Variable allocates trainable device memory initialized from t.
func (b *Builder) Variable(name string, t *tensor.Tensor) (*Variable, error) {
	v := &Variable{Buffer: *newBuffer(t.Shape()), name: name}
	if err := v.CopyIn(t.Bytes()); err != nil {
		return nil, err
	}
	v.grad = make([]float32, len(v.data))
	b.variables = append(b.variables, v)
	return v, nil
}

// Nodes returns the nodes in chain order.
func (b *Builder) Nodes() []*Node {
	return b.nodes
}
