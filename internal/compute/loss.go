package compute

import (
	"fmt"

	"github.com/born-ml/layergraph/internal/tensor"
)

// Reduction selects how per-element losses are combined.
type Reduction int

// Supported reductions.
const (
	ReductionNone Reduction = iota // keep one loss per output element
	ReductionMean
	ReductionSum
)

// String returns the reduction name.
func (r Reduction) String() string {
	switch r {
	case ReductionNone:
		return "none"
	case ReductionMean:
		return "mean"
	case ReductionSum:
		return "sum"
	default:
		return fmt.Sprintf("Reduction(%d)", int(r))
	}
}

// MeanSquaredError computes (y - t)² between outputs and targets.
//
// With ReductionNone the loss has the output's shape and the gradient is
// 2(y - t). ReductionMean and ReductionSum produce a (1, 1, 1) loss; the
// mean scales the gradient by 1/n.
type MeanSquaredError struct {
	Reduction Reduction
}

// Name returns "mse".
func (MeanSquaredError) Name() string { return "mse" }

// LossShape returns the shape of the loss produced for outputs of shape out.
func (l MeanSquaredError) LossShape(out tensor.Shape) tensor.Shape {
	if l.Reduction == ReductionNone {
		return out.Normalize()
	}
	return tensor.NewShape(1, 1, 1)
}

// evaluate returns the loss values and dL/dy.
func (l MeanSquaredError) evaluate(y, target []float32) (loss, grad []float32) {
	grad = make([]float32, len(y))
	sq := make([]float32, len(y))
	for i := range y {
		d := y[i] - target[i]
		sq[i] = d * d
		grad[i] = 2 * d
	}

	switch l.Reduction {
	case ReductionNone:
		return sq, grad
	case ReductionSum, ReductionMean:
		var sum float32
		for _, v := range sq {
			sum += v
		}
		if l.Reduction == ReductionSum {
			return []float32{sum}, grad
		}
		n := float32(len(sq))
		for i := range grad {
			grad[i] /= n
		}
		return []float32{sum / n}, grad
	default:
		panic(fmt.Sprintf("compute: unknown reduction %v", l.Reduction))
	}
}
