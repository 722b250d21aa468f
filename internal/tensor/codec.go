package tensor

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ByteSize is the encoded size of one element.
const ByteSize = 4

// Bytes encodes the buffer as little-endian float32.
func (t *Tensor) Bytes() []byte {
	return EncodeFloat32(t.buf.data)
}

// FromBytes decodes a little-endian float32 buffer into a tensor.
func FromBytes(b []byte, shape Shape) (*Tensor, error) {
	if len(b) != shape.NumElements()*ByteSize {
		return nil, fmt.Errorf("%w: shape %v requires %d bytes, got %d",
			ErrLengthMismatch, shape, shape.NumElements()*ByteSize, len(b))
	}
	data, err := DecodeFloat32(b)
	if err != nil {
		return nil, err
	}
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	return &Tensor{shape: shape.Normalize(), buf: wrapBuffer(data)}, nil
}

// EncodeFloat32 encodes values as little-endian bytes.
func EncodeFloat32(values []float32) []byte {
	out := make([]byte, len(values)*ByteSize)
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[i*ByteSize:], math.Float32bits(v))
	}
	return out
}

// DecodeFloat32 decodes little-endian bytes into float32 values.
func DecodeFloat32(b []byte) ([]float32, error) {
	if len(b)%ByteSize != 0 {
		return nil, fmt.Errorf("tensor: byte length %d is not a multiple of %d", len(b), ByteSize)
	}
	out := make([]float32, len(b)/ByteSize)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*ByteSize:]))
	}
	return out, nil
}
