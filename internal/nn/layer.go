// Package nn implements the layers composed into a layer graph.
//
// Every layer follows the same lifecycle within one configuration session
// (one compute.Builder):
//   - LoadWeights (optional, inference only): populate parameters from a
//     WeightsContainer entry
//   - Configure: bind the input shape, compute the output shape, materialize
//     parameters that are still unset and append one backend node
//   - StoreWeights (after training): append the trained parameters to a
//     WeightsContainer
//
// Built-in layers: Activation, Softmax, Reshape, FullyConnected, LSTM.
package nn

import (
	"errors"
	"fmt"

	"github.com/born-ml/layergraph/internal/compute"
	"github.com/born-ml/layergraph/internal/tensor"
)

// Configuration and weight errors.
var (
	ErrShapeMismatch = errors.New("nn: shape mismatch")
	ErrElementCount  = errors.New("nn: element count changed")
	ErrBatchMismatch = errors.New("nn: batch size mismatch")
	ErrWeightLayout  = errors.New("nn: weights do not match layer layout")
	ErrUnconfigured  = errors.New("nn: layer has no parameters yet")
)

// Layer is a shape-transforming computation unit of a graph.
type Layer interface {
	// Kind returns the layer variant name.
	Kind() string

	// Configure binds the layer to input, appends its backend node to b and
	// returns the output shape. It runs once per session; a second call with
	// the same builder panics.
	Configure(input tensor.Shape, b *compute.Builder) (tensor.Shape, error)

	// Binding returns the shapes and backend node recorded by the most
	// recent Configure.
	Binding() (Binding, bool)

	// StoreWeights appends exactly one entry holding the layer's parameters.
	StoreWeights(w *WeightsContainer) error

	// LoadWeights restores parameters from entry index of w. It must run
	// before Configure in the same session.
	LoadWeights(w *WeightsContainer, index int, b *compute.Builder) error

	// TrainingCompatible reports whether the layer can be trained on kind.
	TrainingCompatible(kind compute.DeviceKind) bool

	// InferenceCompatible reports whether the layer can run inference on kind.
	InferenceCompatible(kind compute.DeviceKind) bool
}

// Binding is the result of configuring a layer.
type Binding struct {
	Input   tensor.Shape
	Output  tensor.Shape
	Node    *compute.Node
	Session uint64
}

// base carries the state and default behavior shared by every layer.
type base struct {
	kind    string
	binding Option[Binding]
}

func (l *base) Kind() string {
	return l.kind
}

func (l *base) Binding() (Binding, bool) {
	return l.binding.Get()
}

// StoreWeights appends an empty entry: stateless layers have no parameters.
func (l *base) StoreWeights(w *WeightsContainer) error {
	w.Store()
	return nil
}

func (l *base) LoadWeights(*WeightsContainer, int, *compute.Builder) error {
	return nil
}

func (l *base) TrainingCompatible(compute.DeviceKind) bool {
	return true
}

func (l *base) InferenceCompatible(compute.DeviceKind) bool {
	return true
}

// configured reports whether the layer was already configured with b.
func (l *base) configured(b *compute.Builder) bool {
	bound, ok := l.binding.Get()
	return ok && bound.Session == b.Session()
}

// begin panics if the layer was already configured in b's session.
func (l *base) begin(b *compute.Builder) {
	if l.configured(b) {
		panic(fmt.Sprintf("nn: %s layer configured twice in session %d", l.kind, b.Session()))
	}
}

// append adds the layer's node to b and records the binding.
func (l *base) append(b *compute.Builder, input, output tensor.Shape, op compute.Op) (tensor.Shape, error) {
	name := fmt.Sprintf("%s_%d", l.kind, len(b.Nodes()))
	node, err := b.Append(name, op, output)
	if err != nil {
		return tensor.Shape{}, fmt.Errorf("%w: %w", ErrShapeMismatch, err)
	}
	l.binding = Some(Binding{Input: input, Output: output, Node: node, Session: b.Session()})
	return output, nil
}
