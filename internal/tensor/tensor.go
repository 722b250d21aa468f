package tensor

import (
	"errors"
	"fmt"
)

// ErrLengthMismatch is returned when a buffer does not match its shape.
var ErrLengthMismatch = errors.New("tensor: buffer length does not match shape")

// Tensor is a rank-3 float32 tensor.
//
// The flat buffer is laid out batch-major, then secondary axis, then primary
// axis: index = b*(secondary*primary) + s*primary + p. Its length always
// equals Shape().NumElements().
//
// Clone is cheap: clones share the buffer until one of them writes
// (copy-on-write), so callers always observe independent copies.
type Tensor struct {
	shape Shape
	buf   *buffer
}

// Zeros creates a zero-filled tensor.
// Panics if the shape has a negative axis.
func Zeros(shape Shape) *Tensor {
	if err := shape.Validate(); err != nil {
		panic(err)
	}
	shape = shape.Normalize()
	return &Tensor{shape: shape, buf: newBuffer(shape.NumElements())}
}

// Full creates a tensor with every element set to value.
func Full(shape Shape, value float32) *Tensor {
	t := Zeros(shape)
	for i := range t.buf.data {
		t.buf.data[i] = value
	}
	return t
}

// FromSlice creates a tensor from a flat buffer.
// The slice is copied into the tensor's memory.
func FromSlice(data []float32, shape Shape) (*Tensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("%w: shape %v requires %d elements, got %d",
			ErrLengthMismatch, shape, shape.NumElements(), len(data))
	}
	owned := make([]float32, len(data))
	copy(owned, data)
	return &Tensor{shape: shape.Normalize(), buf: wrapBuffer(owned)}, nil
}

// Shape returns the tensor's shape.
func (t *Tensor) Shape() Shape {
	return t.shape
}

// NumElements returns the buffer length.
func (t *Tensor) NumElements() int {
	return len(t.buf.data)
}

// Data returns a read-only view of the flat buffer.
//
// WARNING: writing through the returned slice bypasses copy-on-write and is
// visible to every clone. Use MutableData to write.
func (t *Tensor) Data() []float32 {
	return t.buf.data
}

// MutableData returns the flat buffer for writing, detaching it from any
// clones first.
func (t *Tensor) MutableData() []float32 {
	t.unique()
	return t.buf.data
}

// unique copies the buffer if it is shared with a clone.
func (t *Tensor) unique() {
	if t.buf.isUnique() {
		return
	}
	owned := make([]float32, len(t.buf.data))
	copy(owned, t.buf.data)
	t.buf.release()
	t.buf = wrapBuffer(owned)
}

// At returns the element at (primary, secondary, batch).
// Panics if an index is out of bounds.
func (t *Tensor) At(p, s, b int) float32 {
	return t.buf.data[t.shape.offset(p, s, b)]
}

// Set writes the element at (primary, secondary, batch).
// Panics if an index is out of bounds.
func (t *Tensor) Set(value float32, p, s, b int) {
	off := t.shape.offset(p, s, b)
	t.unique()
	t.buf.data[off] = value
}

// Clone returns a copy of the tensor that shares the buffer until either
// side writes.
func (t *Tensor) Clone() *Tensor {
	t.buf.addRef()
	return &Tensor{shape: t.shape, buf: t.buf}
}

// BatchElements splits the tensor into one tensor per batch slot.
// Each element has the tensor's shape with Batch = 1.
func (t *Tensor) BatchElements() []*Tensor {
	sample := t.shape.Sample()
	n := sample.NumElements()
	out := make([]*Tensor, t.shape.Batch)
	for b := range out {
		data := make([]float32, n)
		copy(data, t.buf.data[b*n:(b+1)*n])
		out[b] = &Tensor{shape: sample, buf: wrapBuffer(data)}
	}
	return out
}

// Replicate copies a single-example tensor into n batch slots.
func (t *Tensor) Replicate(n int) (*Tensor, error) {
	if t.shape.Batch != 1 {
		return nil, fmt.Errorf("tensor: replicate requires batch size 1, got %d", t.shape.Batch)
	}
	if n <= 0 {
		return nil, fmt.Errorf("tensor: replicate count must be positive, got %d", n)
	}
	size := len(t.buf.data)
	data := make([]float32, size*n)
	for i := 0; i < n; i++ {
		copy(data[i*size:], t.buf.data)
	}
	return &Tensor{shape: t.shape.WithBatch(n), buf: wrapBuffer(data)}, nil
}

// Concat joins tensors along the batch axis, in order.
// Every tensor must have the same primary and secondary axes.
func Concat(tensors ...*Tensor) (*Tensor, error) {
	if len(tensors) == 0 {
		return nil, errors.New("tensor: concat requires at least one tensor")
	}
	sample := tensors[0].shape.Sample()
	batch := 0
	for i, t := range tensors {
		if !t.shape.Sample().Equal(sample) {
			return nil, fmt.Errorf("tensor: concat shape mismatch at %d: %v vs %v", i, t.shape, tensors[0].shape)
		}
		batch += t.shape.Batch
	}
	data := make([]float32, 0, sample.NumElements()*batch)
	for _, t := range tensors {
		data = append(data, t.buf.data...)
	}
	return &Tensor{shape: sample.WithBatch(batch), buf: wrapBuffer(data)}, nil
}

// Reshape returns a tensor with the same buffer viewed under a new shape.
func (t *Tensor) Reshape(shape Shape) (*Tensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if shape.NumElements() != len(t.buf.data) {
		return nil, fmt.Errorf("%w: cannot view %v as %v", ErrLengthMismatch, t.shape, shape)
	}
	c := t.Clone()
	c.shape = shape.Normalize()
	return c, nil
}

// Equal reports whether both tensors have the same shape and elements.
func (t *Tensor) Equal(other *Tensor) bool {
	if !t.shape.Equal(other.shape) {
		return false
	}
	for i, v := range t.buf.data {
		if other.buf.data[i] != v {
			return false
		}
	}
	return true
}

// String returns a short description of the tensor.
func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor[float32]%v", t.shape)
}
