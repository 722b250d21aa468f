package compute

import (
	"fmt"

	"github.com/born-ml/layergraph/internal/tensor"
)

// Buffer is device memory holding one float32 tensor.
type Buffer struct {
	shape tensor.Shape
	data  []float32
}

func newBuffer(shape tensor.Shape) *Buffer {
	shape = shape.Normalize()
	return &Buffer{shape: shape, data: make([]float32, shape.NumElements())}
}

// Shape returns the shape of the stored tensor.
func (b *Buffer) Shape() tensor.Shape {
	return b.shape
}

// ByteLen returns the encoded size in bytes.
func (b *Buffer) ByteLen() int {
	return len(b.data) * tensor.ByteSize
}

// CopyIn overwrites device memory with little-endian float32 bytes.
func (b *Buffer) CopyIn(src []byte) error {
	if len(src) != b.ByteLen() {
		return fmt.Errorf("compute: copy-in of %d bytes into %d-byte buffer %v", len(src), b.ByteLen(), b.shape)
	}
	values, err := tensor.DecodeFloat32(src)
	if err != nil {
		return err
	}
	copy(b.data, values)
	return nil
}

// CopyOut writes device memory into dst as little-endian float32 bytes.
func (b *Buffer) CopyOut(dst []byte) error {
	if len(dst) != b.ByteLen() {
		return fmt.Errorf("compute: copy-out of %d-byte buffer %v into %d bytes", b.ByteLen(), b.shape, len(dst))
	}
	copy(dst, tensor.EncodeFloat32(b.data))
	return nil
}

// Tensor copies device memory out into a new tensor.
func (b *Buffer) Tensor() (*tensor.Tensor, error) {
	out := make([]byte, b.ByteLen())
	if err := b.CopyOut(out); err != nil {
		return nil, err
	}
	return tensor.FromBytes(out, b.shape)
}

// Variable is trainable device memory owned by a node.
// Gradients and optimizer moments live alongside the values.
type Variable struct {
	Buffer
	name string
	grad []float32
}

// Name returns the variable name given at creation.
func (v *Variable) Name() string {
	return v.name
}
