package tensor

import "sync/atomic"

// buffer is a reference-counted float32 store shared between clones.
// Writers call Tensor.unique first, which copies the buffer when it is shared.
type buffer struct {
	data     []float32
	refCount atomic.Int32
}

// newBuffer creates a zero-filled buffer with refCount = 1.
func newBuffer(n int) *buffer {
	buf := &buffer{data: make([]float32, n)}
	buf.refCount.Store(1)
	return buf
}

// wrapBuffer takes ownership of data.
func wrapBuffer(data []float32) *buffer {
	buf := &buffer{data: data}
	buf.refCount.Store(1)
	return buf
}

func (b *buffer) addRef() {
	b.refCount.Add(1)
}

func (b *buffer) release() {
	b.refCount.Add(-1)
}

func (b *buffer) isUnique() bool {
	return b.refCount.Load() == 1
}
