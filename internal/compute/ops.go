package compute

import (
	"errors"
	"fmt"

	"github.com/born-ml/layergraph/internal/tensor"
)

// ErrShape is returned when a node descriptor does not fit its input.
var ErrShape = errors.New("shape mismatch")

// Op is a node descriptor supplied by a layer.
// The set of descriptors is closed: Dense, Activation, Softmax, Reshape, LSTM.
type Op interface {
	// Name returns the descriptor kind.
	Name() string

	check(in, out tensor.Shape) error
	kernel(dev *Device, in, out tensor.Shape) kernel
	variables() []*Variable
}

// kernel executes one node. Kernels keep the activations of the last
// forward pass for the following backward pass.
type kernel interface {
	forward(x []float32) ([]float32, error)
	backward(dy []float32) []float32
}

func sameShape(in, out tensor.Shape) error {
	if !in.Equal(out) {
		return fmt.Errorf("%w: output %v must equal input %v", ErrShape, out, in)
	}
	return nil
}

// Dense is a fully connected node: y = x·W + b per primary-axis vector.
// Weights has shape (outputs, inputs, 1); Bias has shape (outputs, 1, 1).
type Dense struct {
	Weights *Variable
	Bias    *Variable
}

// Name implements Op.
func (Dense) Name() string { return "dense" }

func (d Dense) check(in, out tensor.Shape) error {
	w := d.Weights.Shape()
	in = in.Normalize()
	if w.Secondary != in.Primary {
		return fmt.Errorf("%w: weights %v do not accept %d inputs", ErrShape, w, in.Primary)
	}
	if b := d.Bias.Shape(); b.Primary != w.Primary {
		return fmt.Errorf("%w: bias %v does not match weights %v", ErrShape, b, w)
	}
	want := tensor.NewShape(w.Primary, in.Secondary, in.Batch)
	if !out.Equal(want) {
		return fmt.Errorf("%w: dense output %v, expected %v", ErrShape, out, want)
	}
	return nil
}

func (d Dense) kernel(dev *Device, in, out tensor.Shape) kernel {
	return &denseKernel{dev: dev, rows: in.Rows(), in: in.Normalize().Primary, out: out.Normalize().Primary, w: d.Weights, b: d.Bias}
}

func (d Dense) variables() []*Variable { return []*Variable{d.Weights, d.Bias} }

// Activation applies an element-wise nonlinearity.
type Activation struct {
	Func  ActivationFunc
	Alpha float32
	Beta  float32
}

// Name implements Op.
func (a Activation) Name() string { return a.Func.String() }

func (a Activation) check(in, out tensor.Shape) error { return sameShape(in, out) }

func (a Activation) kernel(dev *Device, _, _ tensor.Shape) kernel {
	return &activationKernel{dev: dev, act: a}
}

func (Activation) variables() []*Variable { return nil }

// Softmax normalizes every primary-axis vector; Log selects log-softmax.
type Softmax struct {
	Log bool
}

// Name implements Op.
func (s Softmax) Name() string {
	if s.Log {
		return "log_softmax"
	}
	return "softmax"
}

func (Softmax) check(in, out tensor.Shape) error { return sameShape(in, out) }

func (s Softmax) kernel(dev *Device, in, _ tensor.Shape) kernel {
	return &softmaxKernel{dev: dev, width: in.Normalize().Primary, log: s.Log}
}

func (Softmax) variables() []*Variable { return nil }

// Reshape reinterprets the buffer under a new shape.
type Reshape struct{}

// Name implements Op.
func (Reshape) Name() string { return "reshape" }

func (Reshape) check(in, out tensor.Shape) error {
	if in.NumElements() != out.NumElements() {
		return fmt.Errorf("%w: cannot reshape %v (%d elements) to %v (%d elements)",
			ErrShape, in, in.NumElements(), out, out.NumElements())
	}
	if in.Normalize().Batch != out.Normalize().Batch {
		return fmt.Errorf("%w: reshape changes batch size %d to %d", ErrShape, in.Batch, out.Batch)
	}
	return nil
}

func (Reshape) kernel(*Device, tensor.Shape, tensor.Shape) kernel { return identityKernel{} }

func (Reshape) variables() []*Variable { return nil }

// LSTM gate order within each layer's group of four.
const (
	GateInput = iota
	GateForget
	GateCell
	GateOutput
	NumGates
)

// LSTM is a stacked long short-term memory node over the secondary axis.
//
// InputWeights, HiddenWeights and Biases each hold NumGates*Layers
// variables indexed layer*NumGates+gate. Input weights of layer 0 have
// shape (Hidden, inputs, 1), deeper layers (Hidden, Hidden, 1); hidden
// weights (Hidden, Hidden, 1); biases (Hidden, 1, 1).
type LSTM struct {
	Hidden          int
	Layers          int
	ReturnSequences bool
	InputWeights    []*Variable
	HiddenWeights   []*Variable
	Biases          []*Variable
}

// Name implements Op.
func (LSTM) Name() string { return "lstm" }

func (l LSTM) check(in, out tensor.Shape) error {
	n := NumGates * l.Layers
	if l.Layers <= 0 || l.Hidden <= 0 {
		return fmt.Errorf("%w: lstm needs positive hidden size and layer count", ErrShape)
	}
	if len(l.InputWeights) != n || len(l.HiddenWeights) != n || len(l.Biases) != n {
		return fmt.Errorf("%w: lstm expects %d variables per group", ErrShape, n)
	}
	for i := 0; i < n; i++ {
		inputs := l.Hidden
		if i < NumGates {
			inputs = in.Normalize().Primary
		}
		if got, want := l.InputWeights[i].Shape(), tensor.NewShape(l.Hidden, inputs, 1); !got.Equal(want) {
			return fmt.Errorf("%w: lstm input weights %d: %v, expected %v", ErrShape, i, got, want)
		}
		if got, want := l.HiddenWeights[i].Shape(), tensor.NewShape(l.Hidden, l.Hidden, 1); !got.Equal(want) {
			return fmt.Errorf("%w: lstm hidden weights %d: %v, expected %v", ErrShape, i, got, want)
		}
		if got, want := l.Biases[i].Shape(), tensor.NewShape(l.Hidden, 1, 1); !got.Equal(want) {
			return fmt.Errorf("%w: lstm bias %d: %v, expected %v", ErrShape, i, got, want)
		}
	}
	if want := l.OutputShape(in); !out.Equal(want) {
		return fmt.Errorf("%w: lstm output %v, expected %v", ErrShape, out, want)
	}
	return nil
}

// OutputShape returns (Hidden, steps, batch) with ReturnSequences,
// otherwise (Hidden, 1, batch).
func (l LSTM) OutputShape(in tensor.Shape) tensor.Shape {
	steps := in.Normalize().Secondary
	if !l.ReturnSequences {
		steps = 1
	}
	return tensor.NewShape(l.Hidden, steps, in.Normalize().Batch)
}

func (l LSTM) kernel(_ *Device, in, _ tensor.Shape) kernel {
	n := in.Normalize()
	return &lstmKernel{
		steps:     n.Secondary,
		batch:     n.Batch,
		inputs:    n.Primary,
		hidden:    l.Hidden,
		layers:    l.Layers,
		returnSeq: l.ReturnSequences,
		wx:        l.InputWeights,
		wh:        l.HiddenWeights,
		bias:      l.Biases,
	}
}

func (l LSTM) variables() []*Variable {
	vars := make([]*Variable, 0, 3*len(l.Biases))
	vars = append(vars, l.InputWeights...)
	vars = append(vars, l.HiddenWeights...)
	return append(vars, l.Biases...)
}
