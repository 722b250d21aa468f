// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/layergraph/tensor"
)

func TestPublicAPI(t *testing.T) {
	x, err := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.NewShape(3, 1, 2))
	require.NoError(t, err)
	assert.Equal(t, float32(6), x.At(2, 0, 1))
	assert.Len(t, x.BatchElements(), 2)

	y, err := tensor.FromBytes(x.Bytes(), x.Shape())
	require.NoError(t, err)
	assert.True(t, x.Equal(y))

	_, err = tensor.FromSlice([]float32{1}, tensor.NewShape(2, 1, 1))
	require.ErrorIs(t, err, tensor.ErrLengthMismatch)

	z, err := tensor.Concat(tensor.Zeros(tensor.NewShape(2, 1, 1)), tensor.Full(tensor.NewShape(2, 1, 1), 1))
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 1, 1}, z.Data())
}
