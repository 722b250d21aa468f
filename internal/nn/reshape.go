package nn

import (
	"fmt"

	"github.com/born-ml/layergraph/internal/compute"
	"github.com/born-ml/layergraph/internal/tensor"
)

// Reshape reinterprets its input under a target shape.
type Reshape struct {
	base
	target tensor.Shape
}

// NewReshape creates a reshape to (primary, secondary, batch). Without a
// batch argument the batch size is inherited from the input at Configure.
func NewReshape(primary, secondary int, batch ...int) *Reshape {
	target := tensor.NewShape(primary, secondary, 0)
	if len(batch) > 0 {
		target.Batch = batch[0]
	}
	return &Reshape{base: base{kind: "reshape"}, target: target}
}

// Target returns the target shape as constructed.
func (r *Reshape) Target() tensor.Shape {
	return r.target
}

// Configure implements Layer. It fails when the element count or the batch
// size would change.
func (r *Reshape) Configure(input tensor.Shape, b *compute.Builder) (tensor.Shape, error) {
	r.begin(b)

	out := r.target
	if out.Batch == 0 {
		out.Batch = input.Normalize().Batch
	}
	if err := out.Validate(); err != nil {
		return tensor.Shape{}, fmt.Errorf("%w: %w", ErrShapeMismatch, err)
	}
	if out.Normalize().Batch != input.Normalize().Batch {
		return tensor.Shape{}, fmt.Errorf("%w: reshape %v to %v", ErrBatchMismatch, input, out)
	}
	if out.NumElements() != input.NumElements() {
		return tensor.Shape{}, fmt.Errorf("%w: reshape %v (%d elements) to %v (%d elements)",
			ErrElementCount, input, input.NumElements(), out, out.NumElements())
	}
	return r.append(b, input, out, compute.Reshape{})
}
