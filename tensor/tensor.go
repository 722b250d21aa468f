// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/layergraph/internal/tensor"
)

// Shape describes a rank-3 tensor (primary, secondary, batch).
type Shape = tensor.Shape

// Tensor is a rank-3 float32 tensor with copy-on-write storage.
type Tensor = tensor.Tensor

// Errors.
var (
	ErrInvalidShape   = tensor.ErrInvalidShape
	ErrLengthMismatch = tensor.ErrLengthMismatch
)

// ByteSize is the encoded size of one element.
const ByteSize = tensor.ByteSize

// NewShape creates a shape from its three axes.
func NewShape(primary, secondary, batch int) Shape {
	return tensor.NewShape(primary, secondary, batch)
}

// Zeros creates a zero-filled tensor.
func Zeros(shape Shape) *Tensor {
	return tensor.Zeros(shape)
}

// Full creates a tensor with every element set to value.
func Full(shape Shape, value float32) *Tensor {
	return tensor.Full(shape, value)
}

// FromSlice creates a tensor from a flat buffer laid out batch-major.
//
// Example:
//
//	x, err := tensor.FromSlice([]float32{1, 2, 3}, tensor.NewShape(3, 1, 1))
func FromSlice(data []float32, shape Shape) (*Tensor, error) {
	return tensor.FromSlice(data, shape)
}

// FromBytes decodes little-endian float32 bytes into a tensor.
func FromBytes(b []byte, shape Shape) (*Tensor, error) {
	return tensor.FromBytes(b, shape)
}

// RandomUniform creates a tensor with elements drawn from [lo, hi].
func RandomUniform(shape Shape, lo, hi float32) *Tensor {
	return tensor.RandomUniform(shape, lo, hi)
}

// Concat joins tensors along the batch axis.
func Concat(tensors ...*Tensor) (*Tensor, error) {
	return tensor.Concat(tensors...)
}
