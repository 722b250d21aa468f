package tensor

import (
	"errors"
	"fmt"
)

// ErrInvalidShape is returned when a shape has a negative axis.
var ErrInvalidShape = errors.New("tensor: invalid shape")

// Shape describes a rank-3 tensor: a primary axis (features), a secondary
// axis (sequence or rows) and a batch axis.
//
// A zero axis is treated as 1 when counting elements, so Shape{12, 0, 0}
// describes the same 12 elements as Shape{12, 1, 1}. A zero batch size on a
// reshape target means "inherit from the input" and is back-filled during
// layer configuration.
type Shape struct {
	Primary   int
	Secondary int
	Batch     int
}

// NewShape creates a shape from its three axes.
func NewShape(primary, secondary, batch int) Shape {
	return Shape{Primary: primary, Secondary: secondary, Batch: batch}
}

func axis(n int) int {
	if n == 0 {
		return 1
	}
	return n
}

// NumElements returns primary*secondary*batch, counting zero axes as 1.
func (s Shape) NumElements() int {
	return axis(s.Primary) * axis(s.Secondary) * axis(s.Batch)
}

// Normalize returns the shape with every zero axis replaced by 1.
func (s Shape) Normalize() Shape {
	return Shape{Primary: axis(s.Primary), Secondary: axis(s.Secondary), Batch: axis(s.Batch)}
}

// Validate checks that no axis is negative.
func (s Shape) Validate() error {
	if s.Primary < 0 || s.Secondary < 0 || s.Batch < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidShape, s)
	}
	return nil
}

// Equal reports whether two shapes describe the same layout.
// Zero axes compare equal to 1.
func (s Shape) Equal(other Shape) bool {
	return s.Normalize() == other.Normalize()
}

// WithBatch returns a copy of the shape with the batch axis replaced.
func (s Shape) WithBatch(batch int) Shape {
	s.Batch = batch
	return s
}

// Sample returns the shape of a single batch element.
func (s Shape) Sample() Shape {
	return s.WithBatch(1)
}

// SampleSize returns the number of elements in one batch element.
func (s Shape) SampleSize() int {
	return axis(s.Primary) * axis(s.Secondary)
}

// Rows returns secondary*batch, the number of primary-axis vectors.
func (s Shape) Rows() int {
	return axis(s.Secondary) * axis(s.Batch)
}

// offset computes the flat index of (p, s, b).
// Panics if any index is out of bounds.
func (s Shape) offset(p, sec, b int) int {
	n := s.Normalize()
	if p < 0 || p >= n.Primary || sec < 0 || sec >= n.Secondary || b < 0 || b >= n.Batch {
		panic(fmt.Sprintf("index (%d, %d, %d) out of bounds for shape %v", p, sec, b, s))
	}
	return b*n.Secondary*n.Primary + sec*n.Primary + p
}

// String returns "(primary, secondary, batch)".
func (s Shape) String() string {
	return fmt.Sprintf("(%d, %d, %d)", s.Primary, s.Secondary, s.Batch)
}
