package nn

import (
	"fmt"

	"github.com/born-ml/layergraph/internal/compute"
	"github.com/born-ml/layergraph/internal/tensor"
)

// Initializer creates the initial value of a parameter.
type Initializer func(shape tensor.Shape) *tensor.Tensor

// Uniform draws every element from [lo, hi].
func Uniform(lo, hi float32) Initializer {
	return func(shape tensor.Shape) *tensor.Tensor {
		return tensor.RandomUniform(shape, lo, hi)
	}
}

// Zeros fills the parameter with zeros.
func Zeros(shape tensor.Shape) *tensor.Tensor {
	return tensor.Zeros(shape)
}

// Parameter is a lazily materialized trainable tensor.
//
// The value stays unset until the first Configure initializes it or
// LoadWeights populates it. While a session is configured the parameter
// is bound to device memory; trained values are read back from there.
type Parameter struct {
	name     string
	init     Initializer
	value    Option[*tensor.Tensor]
	variable Option[*compute.Variable]
}

func newParameter(name string, init Initializer) *Parameter {
	return &Parameter{name: name, init: init}
}

// Name returns the parameter name.
func (p *Parameter) Name() string {
	return p.name
}

// Initialized reports whether the parameter has a value.
func (p *Parameter) Initialized() bool {
	return p.value.IsSet()
}

// Value returns a copy of the current value.
func (p *Parameter) Value() (*tensor.Tensor, bool) {
	t, ok := p.value.Get()
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

func (p *Parameter) load(t *tensor.Tensor) {
	p.value = Some(t.Clone())
	p.variable = None[*compute.Variable]()
}

// bind materializes the value if it is unset and allocates its device memory.
func (p *Parameter) bind(b *compute.Builder, shape tensor.Shape) (*compute.Variable, error) {
	t, ok := p.value.Get()
	if !ok {
		t = p.init(shape)
		p.value = Some(t)
	}
	if !t.Shape().Equal(shape) {
		return nil, fmt.Errorf("%w: parameter %s has shape %v, layer needs %v", ErrShapeMismatch, p.name, t.Shape(), shape)
	}
	v, err := b.Variable(p.name, t)
	if err != nil {
		return nil, err
	}
	p.variable = Some(v)
	return v, nil
}

// harvest copies the device value back into the parameter and returns it.
func (p *Parameter) harvest() (*tensor.Tensor, error) {
	if v, ok := p.variable.Get(); ok {
		t, err := v.Tensor()
		if err != nil {
			return nil, fmt.Errorf("nn: read %s: %w", p.name, err)
		}
		p.value = Some(t)
	}
	t, ok := p.value.Get()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnconfigured, p.name)
	}
	return t.Clone(), nil
}

func harvestAll(params []*Parameter) ([]*tensor.Tensor, error) {
	out := make([]*tensor.Tensor, len(params))
	for i, p := range params {
		t, err := p.harvest()
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}
