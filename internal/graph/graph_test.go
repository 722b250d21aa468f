package graph_test

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/layergraph/internal/compute"
	"github.com/born-ml/layergraph/internal/data"
	"github.com/born-ml/layergraph/internal/graph"
	"github.com/born-ml/layergraph/internal/nn"
	"github.com/born-ml/layergraph/internal/tensor"
)

func vec(t *testing.T, values ...float32) *tensor.Tensor {
	t.Helper()
	x, err := tensor.FromSlice(values, tensor.NewShape(len(values), 1, 1))
	require.NoError(t, err)
	return x
}

// linearData samples y = a + 2b - 1 on the unit square corners.
func linearData(t *testing.T) *data.TrainingData {
	t.Helper()
	var inputs, targets []*tensor.Tensor
	for _, p := range [][2]float32{{0, 0}, {0, 1}, {1, 0}, {1, 1}} {
		inputs = append(inputs, vec(t, p[0], p[1]))
		targets = append(targets, vec(t, p[0]+2*p[1]-1))
	}
	d, err := data.New(inputs, targets)
	require.NoError(t, err)
	return d
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestTrainStoresOneEntryPerLayer(t *testing.T) {
	layers := []nn.Layer{
		nn.NewFullyConnected(4),
		nn.NewActivation(compute.Tanh),
		nn.NewFullyConnected(1),
	}
	g := graph.New(layers...)
	assert.False(t, g.Trained())

	var calls int
	err := g.Train(linearData(t), 3, compute.CPU, func(out *tensor.Tensor) {
		calls++
		assert.Equal(t, tensor.NewShape(1, 1, 1), out.Shape())
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, g.Trained())

	w, ok := g.Weights()
	require.True(t, ok)
	require.Equal(t, len(layers), w.Len())
	assert.Len(t, w.At(0), 2)
	assert.Empty(t, w.At(1))
	assert.Len(t, w.At(2), 2)
}

func TestSecondTrainFails(t *testing.T) {
	g := graph.New(nn.NewFullyConnected(1))
	require.NoError(t, g.Train(linearData(t), 1, compute.CPU, nil))
	before, _ := g.Weights()
	snapshot := before.At(0)[0]

	err := g.Train(linearData(t), 1, compute.CPU, nil)
	require.ErrorIs(t, err, graph.ErrAlreadyTrained)

	after, _ := g.Weights()
	assert.Same(t, before, after)
	assert.True(t, snapshot.Equal(after.At(0)[0]))
}

func TestTrainLearnsLinearFunction(t *testing.T) {
	g := graph.New(nn.NewFullyConnected(1))
	require.NoError(t, g.Train(linearData(t), 600, compute.CPU, nil))

	out, err := g.Infer(vec(t, 1, 1), compute.CPU, true)
	require.NoError(t, err)
	assert.InDelta(t, 2, out.At(0, 0, 0), 0.2)
}

func TestTrainPreconditions(t *testing.T) {
	t.Run("iterations", func(t *testing.T) {
		g := graph.New(nn.NewFullyConnected(1))
		require.ErrorIs(t, g.Train(linearData(t), 0, compute.CPU, nil), graph.ErrInvalidIterations)
		assert.False(t, g.Trained())
	})
	t.Run("nil data", func(t *testing.T) {
		g := graph.New(nn.NewFullyConnected(1))
		require.ErrorIs(t, g.Train(nil, 1, compute.CPU, nil), data.ErrEmpty)
	})
	t.Run("no layers", func(t *testing.T) {
		require.ErrorIs(t, graph.New().Train(linearData(t), 1, compute.CPU, nil), graph.ErrNoLayers)
	})
	t.Run("shape mismatch", func(t *testing.T) {
		g := graph.New(nn.NewFullyConnected(3))
		require.ErrorIs(t, g.Train(linearData(t), 1, compute.CPU, nil), graph.ErrShapeMismatch)
		assert.False(t, g.Trained())
	})
	t.Run("layer configuration", func(t *testing.T) {
		g := graph.New(nn.NewReshape(3, 1))
		require.ErrorIs(t, g.Train(linearData(t), 1, compute.CPU, nil), nn.ErrElementCount)
		assert.False(t, g.Trained())
	})
}

func TestLSTMIncompatibleWithGPUTraining(t *testing.T) {
	g := graph.New(nn.NewFullyConnected(2), nn.NewLSTM(nn.DefaultLSTMConfig(1)))

	err := g.Train(linearData(t), 1, compute.GPU, nil)
	require.ErrorIs(t, err, graph.ErrIncompatible)

	var incompatible *graph.IncompatibleError
	require.True(t, errors.As(err, &incompatible))
	assert.Equal(t, 1, incompatible.Index)
	assert.Equal(t, "lstm", incompatible.Layer)
	assert.Equal(t, compute.GPU, incompatible.Device)
	assert.Equal(t, graph.ModeTraining, incompatible.Mode)
	assert.False(t, g.Trained())
}

func TestInferUntrainedWarns(t *testing.T) {
	logs := captureLogs(t)
	g := graph.New(nn.NewFullyConnected(3), nn.NewSoftmax())

	out, err := g.Infer(vec(t, 1, 2), compute.CPU, true)
	require.NoError(t, err)
	assert.Equal(t, tensor.NewShape(3, 1, 1), out.Shape())
	assert.Contains(t, logs.String(), "inference on untrained graph")
	assert.False(t, g.Trained())

	var sum float32
	for _, v := range out.Data() {
		sum += v
	}
	assert.InDelta(t, 1, sum, 1e-5)
}

func TestInferTrainedDoesNotWarn(t *testing.T) {
	g := graph.New(nn.NewFullyConnected(1))
	require.NoError(t, g.Train(linearData(t), 1, compute.CPU, nil))

	logs := captureLogs(t)
	_, err := g.Infer(vec(t, 0, 0), compute.CPU, true)
	require.NoError(t, err)
	assert.Empty(t, logs.String())
}

func TestInferBatch(t *testing.T) {
	g := graph.New(nn.NewFullyConnected(2))
	x, err := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.NewShape(2, 1, 3))
	require.NoError(t, err)

	full, err := g.Infer(x, compute.CPU, false)
	require.NoError(t, err)
	assert.Equal(t, tensor.NewShape(2, 1, 3), full.Shape())

	first, err := g.Infer(x, compute.CPU, true)
	require.NoError(t, err)
	assert.Equal(t, tensor.NewShape(2, 1, 1), first.Shape())
	assert.Equal(t, full.BatchElements()[0].Data(), first.Data())
}

func TestInferRestoresTrainedWeights(t *testing.T) {
	fc := nn.NewFullyConnected(1)
	g := graph.New(fc)
	require.NoError(t, g.Train(linearData(t), 5, compute.CPU, nil))

	w, _ := g.Weights()
	stored := w.At(0)
	_, err := g.Infer(vec(t, 1, 0), compute.CPU, true)
	require.NoError(t, err)

	for i, p := range fc.Parameters() {
		got, ok := p.Value()
		require.True(t, ok)
		assert.True(t, stored[i].Equal(got), p.Name())
	}
}

func TestInferNilInput(t *testing.T) {
	_, err := graph.New(nn.NewSoftmax()).Infer(nil, compute.CPU, true)
	require.ErrorIs(t, err, graph.ErrInvalidInput)
}

func TestTrainLSTMAutobatched(t *testing.T) {
	var inputs, targets []*tensor.Tensor
	for i := 0; i < 4; i++ {
		seq := make([]float32, 5)
		for s := range seq {
			seq[s] = float32(i+s) / 10
		}
		x, err := tensor.FromSlice(seq, tensor.NewShape(1, 5, 1))
		require.NoError(t, err)
		inputs = append(inputs, x)
		targets = append(targets, vec(t, seq[4]+0.1))
	}
	d, err := data.New(inputs, targets)
	require.NoError(t, err)
	batched, err := d.Autobatch(2)
	require.NoError(t, err)

	g := graph.New(
		nn.NewLSTM(nn.LSTMConfig{HiddenSize: 4, Layers: 2}),
		nn.NewFullyConnected(1),
	)
	var last *tensor.Tensor
	require.NoError(t, g.Train(batched, 10, compute.CPU, func(out *tensor.Tensor) { last = out }))
	require.NotNil(t, last)
	assert.Equal(t, tensor.NewShape(1, 1, 2), last.Shape())

	w, ok := g.Weights()
	require.True(t, ok)
	require.Equal(t, 2, w.Len())
	assert.Len(t, w.At(0), 24)

	out, err := g.Infer(inputs[0], compute.CPU, true)
	require.NoError(t, err)
	assert.Equal(t, tensor.NewShape(1, 1, 1), out.Shape())
}

func TestInferAfterZeroPrimaryReshape(t *testing.T) {
	g := graph.New(nn.NewReshape(0, 12), nn.NewFullyConnected(2))
	out, err := g.Infer(tensor.Zeros(tensor.NewShape(12, 1, 1)), compute.CPU, true)
	require.NoError(t, err)
	assert.Equal(t, tensor.NewShape(2, 12, 1), out.Shape())
}

func TestTrainDeviceUnavailable(t *testing.T) {
	if _, err := compute.SelectDevice(compute.GPU); err == nil {
		t.Skip("gpu available")
	}

	g := graph.New(nn.NewFullyConnected(1))
	require.ErrorIs(t, g.Train(linearData(t), 1, compute.GPU, nil), compute.ErrDeviceUnavailable)
	assert.False(t, g.Trained())
	_, ok := g.Weights()
	assert.False(t, ok)

	_, err := g.Infer(vec(t, 1, 0), compute.GPU, true)
	require.ErrorIs(t, err, compute.ErrDeviceUnavailable)
}

func TestFailedInferKeepsWeights(t *testing.T) {
	g := graph.New(nn.NewFullyConnected(1))
	require.NoError(t, g.Train(linearData(t), 3, compute.CPU, nil))

	before, ok := g.Weights()
	require.True(t, ok)
	stored := before.At(0)

	_, err := g.Infer(vec(t, 1, 0, 1), compute.CPU, true)
	require.ErrorIs(t, err, nn.ErrShapeMismatch)

	after, ok := g.Weights()
	require.True(t, ok)
	assert.Same(t, before, after)
	require.Equal(t, 1, after.Len())
	for i, w := range after.At(0) {
		assert.True(t, stored[i].Equal(w))
	}

	out, err := g.Infer(vec(t, 1, 0), compute.CPU, true)
	require.NoError(t, err)
	assert.Equal(t, tensor.NewShape(1, 1, 1), out.Shape())
}
