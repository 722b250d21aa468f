// Package data holds validated training inputs for a graph.
package data

import (
	"errors"
	"fmt"

	"github.com/born-ml/layergraph/internal/tensor"
)

// Validation errors.
var (
	ErrEmpty          = errors.New("data: at least one input tensor is required")
	ErrCountMismatch  = errors.New("data: input and target counts differ")
	ErrShapeMismatch  = errors.New("data: tensor shapes are not uniform")
	ErrBatchMismatch  = errors.New("data: input and target batch sizes differ")
	ErrAlreadyBatched = errors.New("data: autobatch requires unbatched tensors")
	ErrNotDivisible   = errors.New("data: tensor count is not divisible by batch size")
)

// TrainingData pairs input tensors with target tensors.
//
// Invariants: at least one input; equal input and target counts; a uniform
// shape within each group; equal batch sizes across groups.
type TrainingData struct {
	inputs  []*tensor.Tensor
	targets []*tensor.Tensor
}

// New validates and wraps input/target tensor groups.
// The tensors are cloned; later writes by the caller are not observed.
func New(inputs, targets []*tensor.Tensor) (*TrainingData, error) {
	d := &TrainingData{
		inputs:  cloneAll(inputs),
		targets: cloneAll(targets),
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

func cloneAll(ts []*tensor.Tensor) []*tensor.Tensor {
	out := make([]*tensor.Tensor, len(ts))
	for i, t := range ts {
		out[i] = t.Clone()
	}
	return out
}

// Validate re-checks the construction invariants.
func (d *TrainingData) Validate() error {
	if len(d.inputs) == 0 {
		return ErrEmpty
	}
	if len(d.inputs) != len(d.targets) {
		return fmt.Errorf("%w: %d inputs, %d targets", ErrCountMismatch, len(d.inputs), len(d.targets))
	}
	if err := uniform(d.inputs, "input"); err != nil {
		return err
	}
	if err := uniform(d.targets, "target"); err != nil {
		return err
	}
	in, tg := d.inputs[0].Shape().Batch, d.targets[0].Shape().Batch
	if in != tg {
		return fmt.Errorf("%w: inputs %d, targets %d", ErrBatchMismatch, in, tg)
	}
	return nil
}

func uniform(ts []*tensor.Tensor, group string) error {
	first := ts[0].Shape()
	for i, t := range ts[1:] {
		if !t.Shape().Equal(first) {
			return fmt.Errorf("%w: %s %d has shape %v, %s 0 has %v", ErrShapeMismatch, group, i+1, t.Shape(), group, first)
		}
	}
	return nil
}

// Len returns the number of (input, target) pairs.
func (d *TrainingData) Len() int {
	return len(d.inputs)
}

// Inputs returns the input tensors in order.
func (d *TrainingData) Inputs() []*tensor.Tensor {
	return d.inputs
}

// Targets returns the target tensors in order.
func (d *TrainingData) Targets() []*tensor.Tensor {
	return d.targets
}

// InputShape returns the shape shared by every input tensor.
func (d *TrainingData) InputShape() tensor.Shape {
	return d.inputs[0].Shape()
}

// TargetShape returns the shape shared by every target tensor.
func (d *TrainingData) TargetShape() tensor.Shape {
	return d.targets[0].Shape()
}

// BatchSize returns the batch size of every tensor.
func (d *TrainingData) BatchSize() int {
	return d.inputs[0].Shape().Batch
}

// Pair returns the i-th (input, target) pair.
func (d *TrainingData) Pair(i int) (input, target *tensor.Tensor) {
	return d.inputs[i], d.targets[i]
}

// Autobatch regroups consecutive runs of size unbatched tensors into one
// batched tensor each, preserving order.
//
// Every tensor must currently have batch size 1 and Len() must be
// divisible by size.
func (d *TrainingData) Autobatch(size int) (*TrainingData, error) {
	if size <= 0 {
		return nil, fmt.Errorf("data: batch size must be positive, got %d", size)
	}
	if d.BatchSize() != 1 {
		return nil, fmt.Errorf("%w: batch size is %d", ErrAlreadyBatched, d.BatchSize())
	}
	if d.Len()%size != 0 {
		return nil, fmt.Errorf("%w: %d tensors, batch size %d", ErrNotDivisible, d.Len(), size)
	}

	inputs, err := regroup(d.inputs, size)
	if err != nil {
		return nil, err
	}
	targets, err := regroup(d.targets, size)
	if err != nil {
		return nil, err
	}
	return New(inputs, targets)
}

func regroup(ts []*tensor.Tensor, size int) ([]*tensor.Tensor, error) {
	out := make([]*tensor.Tensor, 0, len(ts)/size)
	for start := 0; start < len(ts); start += size {
		batch, err := tensor.Concat(ts[start : start+size]...)
		if err != nil {
			return nil, fmt.Errorf("data: autobatch: %w", err)
		}
		out = append(out, batch)
	}
	return out, nil
}
