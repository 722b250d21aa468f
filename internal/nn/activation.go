package nn

import (
	"github.com/born-ml/layergraph/internal/compute"
	"github.com/born-ml/layergraph/internal/tensor"
)

// Activation applies one element-wise nonlinearity. The output shape equals
// the input shape.
type Activation struct {
	base
	op compute.Activation
}

// NewActivation creates an activation layer.
//
// params optionally override the function's Alpha and Beta, in that order.
// Defaults: LeakyReLU alpha 0.01, ELU alpha 1, Linear alpha 1 beta 0,
// HardSigmoid alpha 0.2 beta 0.5.
func NewActivation(fn compute.ActivationFunc, params ...float32) *Activation {
	op := compute.Activation{Func: fn}
	switch fn {
	case compute.LeakyReLU:
		op.Alpha = 0.01
	case compute.ELU, compute.Linear:
		op.Alpha = 1
	case compute.HardSigmoid:
		op.Alpha, op.Beta = 0.2, 0.5
	}
	if len(params) > 0 {
		op.Alpha = params[0]
	}
	if len(params) > 1 {
		op.Beta = params[1]
	}
	return &Activation{base: base{kind: "activation"}, op: op}
}

// Func returns the wrapped nonlinearity.
func (a *Activation) Func() compute.ActivationFunc {
	return a.op.Func
}

// Configure implements Layer.
func (a *Activation) Configure(input tensor.Shape, b *compute.Builder) (tensor.Shape, error) {
	a.begin(b)
	return a.append(b, input, input, a.op)
}

// Softmax normalizes every primary-axis vector, in plain or log domain.
type Softmax struct {
	base
	log bool
}

// NewSoftmax creates a softmax layer.
func NewSoftmax() *Softmax {
	return &Softmax{base: base{kind: "softmax"}}
}

// NewLogSoftmax creates a log-softmax layer.
func NewLogSoftmax() *Softmax {
	return &Softmax{base: base{kind: "log_softmax"}, log: true}
}

// Log reports whether the layer computes log-softmax.
func (s *Softmax) Log() bool {
	return s.log
}

// Configure implements Layer.
func (s *Softmax) Configure(input tensor.Shape, b *compute.Builder) (tensor.Shape, error) {
	s.begin(b)
	return s.append(b, input, input, compute.Softmax{Log: s.log})
}
