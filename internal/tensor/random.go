package tensor

import "math/rand"

// RandomUniform creates a tensor with values drawn uniformly from [lo, hi].
func RandomUniform(shape Shape, lo, hi float32) *Tensor {
	t := Zeros(shape)
	span := float64(hi - lo)
	for i := range t.buf.data {
		//nolint:gosec // Using math/rand for weight initialization (not security-critical)
		t.buf.data[i] = lo + float32(rand.Float64()*span)
	}
	return t
}
