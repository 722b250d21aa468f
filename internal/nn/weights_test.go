package nn_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/layergraph/internal/nn"
	"github.com/born-ml/layergraph/internal/tensor"
)

func TestWeightsContainerStore(t *testing.T) {
	one := tensor.NewShape(1, 1, 1)
	t1, t2, t3, t4 := tensor.Full(one, 1), tensor.Full(one, 2), tensor.Full(one, 3), tensor.Full(one, 4)

	w := nn.NewWeightsContainer()
	w.Store([]*tensor.Tensor{t1}, []*tensor.Tensor{t2, t3})
	w.Store([]*tensor.Tensor{t4})
	require.Equal(t, 2, w.Len())

	values := func(entry []*tensor.Tensor) []float32 {
		var out []float32
		for _, x := range entry {
			out = append(out, x.Data()...)
		}
		return out
	}
	assert.Equal(t, []float32{1, 2, 3}, values(w.At(0)))
	assert.Equal(t, []float32{4}, values(w.At(1)))

	assert.Panics(t, func() { w.At(2) })
	assert.Panics(t, func() { w.At(-1) })
}

func TestWeightsContainerIsolated(t *testing.T) {
	x := tensor.Full(tensor.NewShape(2, 1, 1), 1)
	w := nn.NewWeightsContainer()
	w.Store([]*tensor.Tensor{x})

	x.Set(9, 0, 0, 0)
	w.At(0)[0].Set(7, 1, 0, 0)
	assert.Equal(t, []float32{1, 1}, w.At(0)[0].Data())
}

func TestGroupLayout(t *testing.T) {
	one := tensor.NewShape(1, 1, 1)
	a, b, c := tensor.Full(one, 1), tensor.Full(one, 2), tensor.Full(one, 3)

	layout := nn.GroupLayout{1, 2}
	assert.Equal(t, 3, layout.Total())

	flat, err := layout.Flatten([]*tensor.Tensor{a}, []*tensor.Tensor{b, c})
	require.NoError(t, err)
	groups, err := layout.Split(flat)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, []*tensor.Tensor{a}, groups[0])
	assert.Equal(t, []*tensor.Tensor{b, c}, groups[1])

	_, err = layout.Flatten([]*tensor.Tensor{a, b}, []*tensor.Tensor{c})
	require.ErrorIs(t, err, nn.ErrWeightLayout)
	_, err = layout.Split(flat[:2])
	require.ErrorIs(t, err, nn.ErrWeightLayout)

	w := nn.NewWeightsContainer()
	require.ErrorIs(t, w.StoreLayout(layout, []*tensor.Tensor{a}), nn.ErrWeightLayout)
	assert.Zero(t, w.Len())
}
