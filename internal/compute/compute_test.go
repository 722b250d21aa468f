package compute

import (
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/layergraph/internal/tensor"
)

func cpu(t *testing.T) *Device {
	t.Helper()
	d, err := SelectDevice(CPU)
	require.NoError(t, err)
	return d
}

func variable(t *testing.T, b *Builder, name string, shape tensor.Shape, values ...float32) *Variable {
	t.Helper()
	if values == nil {
		values = tensor.RandomUniform(shape, -0.5, 0.5).Data()
	}
	x, err := tensor.FromSlice(values, shape)
	require.NoError(t, err)
	v, err := b.Variable(name, x)
	require.NoError(t, err)
	return v
}

func randomSlice(r *rand.Rand, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = r.Float32()*2 - 1
	}
	return out
}

func TestParseDeviceKind(t *testing.T) {
	tests := []struct {
		in   string
		want DeviceKind
	}{
		{"cpu", CPU},
		{"GPU", GPU},
		{" any ", Any},
		{"", Any},
	}
	for _, tt := range tests {
		got, err := ParseDeviceKind(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseDeviceKind("tpu")
	require.Error(t, err)
}

func TestSelectDevice(t *testing.T) {
	d := cpu(t)
	assert.Equal(t, CPU, d.Kind())
	assert.Positive(t, d.Threads())
	assert.NotEmpty(t, d.Name())

	auto, err := SelectDevice(Any)
	require.NoError(t, err)
	assert.NotEqual(t, Any, auto.Kind())

	if _, err := SelectDevice(GPU); err != nil {
		assert.ErrorIs(t, err, ErrDeviceUnavailable)
	}
	assert.Equal(t, CPU, Devices()[0].Kind())
}

func TestBuilderChain(t *testing.T) {
	b := NewBuilder()
	other := NewBuilder()
	assert.NotEqual(t, b.Session(), other.Session())

	assert.Panics(t, func() { b.Last() })

	in := b.Input("input", tensor.NewShape(3, 1, 2))
	assert.Panics(t, func() { b.Input("again", tensor.NewShape(1, 1, 1)) })

	w := variable(t, b, "w", tensor.NewShape(4, 3, 1))
	bias := variable(t, b, "b", tensor.NewShape(4, 1, 1))
	n, err := b.Append("dense", Dense{Weights: w, Bias: bias}, tensor.NewShape(4, 1, 2))
	require.NoError(t, err)
	assert.Same(t, in, n.Prev())
	assert.Equal(t, 1, n.ID())
	assert.Equal(t, tensor.NewShape(3, 1, 2), n.InputShape())

	_, err = b.Append("bad", Dense{Weights: w, Bias: bias}, tensor.NewShape(4, 1, 2))
	require.ErrorIs(t, err, ErrShape)
	assert.Len(t, b.Nodes(), 2)
}

func TestReshapeCheck(t *testing.T) {
	in := tensor.NewShape(12, 1, 1)
	require.NoError(t, Reshape{}.check(in, tensor.NewShape(2, 6, 1)))
	require.ErrorIs(t, Reshape{}.check(in, tensor.NewShape(5, 1, 1)), ErrShape)
	require.ErrorIs(t, Reshape{}.check(tensor.NewShape(6, 1, 2), tensor.NewShape(12, 1, 1)), ErrShape)
}

func TestDenseForward(t *testing.T) {
	b := NewBuilder()
	b.Input("input", tensor.NewShape(2, 1, 2))
	// Weights (out=3, in=2) stored [in][out].
	w := variable(t, b, "w", tensor.NewShape(3, 2, 1), 1, 2, 3, 4, 5, 6)
	bias := variable(t, b, "b", tensor.NewShape(3, 1, 1), 0.5, 0, -0.5)
	_, err := b.Append("dense", Dense{Weights: w, Bias: bias}, tensor.NewShape(3, 1, 2))
	require.NoError(t, err)

	e, err := Compile(b, cpu(t), CompileOptions{})
	require.NoError(t, err)

	x := tensor.EncodeFloat32([]float32{1, 1, 2, -1})
	require.NoError(t, e.Execute(map[string][]byte{"input": x}, 2, DefaultExecuteOptions()))

	out, err := e.Output().Tensor()
	require.NoError(t, err)
	want := []float32{5.5, 7, 8.5, -1.5, -1, -0.5}
	if diff := cmp.Diff(want, out.Data(), cmpopts.EquateApprox(0, 1e-5)); diff != "" {
		t.Errorf("dense output mismatch (-want +got):\n%s", diff)
	}
}

func TestExecuteBindingErrors(t *testing.T) {
	b := NewBuilder()
	b.Input("input", tensor.NewShape(2, 1, 1))
	_, err := b.Append("relu", Activation{Func: ReLU}, tensor.NewShape(2, 1, 1))
	require.NoError(t, err)
	e, err := Compile(b, cpu(t), CompileOptions{Debug: true})
	require.NoError(t, err)

	opts := DefaultExecuteOptions()
	require.ErrorIs(t, e.Execute(map[string][]byte{}, 1, opts), ErrBinding)
	require.ErrorIs(t, e.Execute(map[string][]byte{"input": make([]byte, 4)}, 1, opts), ErrBinding)
	require.ErrorIs(t, e.Execute(map[string][]byte{"input": make([]byte, 8)}, 2, opts), ErrBinding)
}

func TestExecuteAsynchronous(t *testing.T) {
	b := NewBuilder()
	b.Input("input", tensor.NewShape(3, 1, 1))
	_, err := b.Append("relu", Activation{Func: ReLU}, tensor.NewShape(3, 1, 1))
	require.NoError(t, err)
	e, err := Compile(b, cpu(t), CompileOptions{})
	require.NoError(t, err)

	x := tensor.EncodeFloat32([]float32{-1, 0, 2})
	require.NoError(t, e.Execute(map[string][]byte{"input": x}, 1, ExecuteOptions{Synchronous: false}))
	require.NoError(t, e.Wait())

	out, err := e.Output().Tensor()
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 2}, out.Data())
}

func TestDescribe(t *testing.T) {
	b := NewBuilder()
	b.Input("input", tensor.NewShape(4, 1, 1))
	_, err := b.Append("softmax", Softmax{}, tensor.NewShape(4, 1, 1))
	require.NoError(t, err)
	e, err := Compile(b, cpu(t), CompileOptions{})
	require.NoError(t, err)

	infos := e.Describe()
	require.Len(t, infos, 2)
	assert.Equal(t, "input", infos[0].Op)
	assert.Equal(t, "softmax", infos[1].Op)
	assert.NotEqual(t, uuid.Nil, e.ID())
}

func TestActivationValues(t *testing.T) {
	tests := []struct {
		act  Activation
		x    float32
		want float32
	}{
		{Activation{Func: ReLU}, -2, 0},
		{Activation{Func: ReLU}, 3, 3},
		{Activation{Func: LeakyReLU, Alpha: 0.1}, -2, -0.2},
		{Activation{Func: ELU, Alpha: 1}, 0, 0},
		{Activation{Func: Sigmoid}, 0, 0.5},
		{Activation{Func: Tanh}, 0, 0},
		{Activation{Func: Linear, Alpha: 2, Beta: 1}, 3, 7},
		{Activation{Func: SoftPlus}, 0, float32(math.Ln2)},
		{Activation{Func: HardSigmoid, Alpha: 0.2, Beta: 0.5}, 10, 1},
	}
	for _, tt := range tests {
		t.Run(tt.act.Func.String(), func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.act.apply(tt.x), 1e-6)
		})
	}
}

func TestSoftmaxRows(t *testing.T) {
	dev := cpu(t)
	x := []float32{1, 2, 3, -1, 0, 1000}

	k := &softmaxKernel{dev: dev, width: 3}
	y, err := k.forward(x)
	require.NoError(t, err)
	for r := 0; r < 2; r++ {
		var sum float32
		for _, v := range y[r*3 : r*3+3] {
			sum += v
		}
		assert.InDelta(t, 1, sum, 1e-5)
	}

	lk := &softmaxKernel{dev: dev, width: 3, log: true}
	ly, err := lk.forward(x)
	require.NoError(t, err)
	for i := range y {
		assert.InDelta(t, y[i], math.Exp(float64(ly[i])), 1e-5)
	}
}

func TestMeanSquaredError(t *testing.T) {
	y := []float32{1, 2, 3}
	target := []float32{0, 2, 5}

	loss, grad := MeanSquaredError{Reduction: ReductionNone}.evaluate(y, target)
	assert.Equal(t, []float32{1, 0, 4}, loss)
	assert.Equal(t, []float32{2, 0, -4}, grad)

	loss, _ = MeanSquaredError{Reduction: ReductionSum}.evaluate(y, target)
	assert.Equal(t, []float32{5}, loss)

	loss, grad = MeanSquaredError{Reduction: ReductionMean}.evaluate(y, target)
	assert.InDelta(t, 5.0/3, loss[0], 1e-6)
	assert.InDelta(t, 2.0/3, grad[0], 1e-6)

	assert.Equal(t, tensor.NewShape(1, 1, 1), MeanSquaredError{Reduction: ReductionMean}.LossShape(tensor.NewShape(3, 2, 2)))
}

func TestAdamFirstStep(t *testing.T) {
	b := NewBuilder()
	v := variable(t, b, "w", tensor.NewShape(2, 1, 1), 1, -1)
	v.grad[0], v.grad[1] = 0.3, -4

	opt := NewAdam([]*Variable{v}, AdamConfig{})
	assert.Equal(t, float32(0.01), opt.LR())
	opt.Step()
	assert.Equal(t, 1, opt.Timestep())

	// The first bias-corrected step moves every weight by lr against its gradient sign.
	assert.InDelta(t, 0.99, v.data[0], 1e-5)
	assert.InDelta(t, -0.99, v.data[1], 1e-5)

	opt.ZeroGrad()
	assert.Equal(t, []float32{0, 0}, v.grad)
}

func TestAdamRegularization(t *testing.T) {
	b := NewBuilder()
	v := variable(t, b, "w", tensor.NewShape(1, 1, 1), 2)

	opt := NewAdam([]*Variable{v}, AdamConfig{Regularization: RegularizationL2, RegularizationScale: 0.5})
	opt.Step()
	assert.Less(t, v.data[0], float32(2))
}

// numericGradCheck compares analytic gradients of L = sum(y*r) with central
// differences for the input and every variable.
func numericGradCheck(t *testing.T, k kernel, vars []*Variable, x []float32, outLen int) {
	t.Helper()
	r := rand.New(rand.NewSource(7))
	weights := randomSlice(r, outLen)

	lossAt := func() float64 {
		y, err := k.forward(x)
		require.NoError(t, err)
		var sum float64
		for i, v := range y {
			sum += float64(v * weights[i])
		}
		return sum
	}

	for _, v := range vars {
		clear(v.grad)
	}
	_, err := k.forward(x)
	require.NoError(t, err)
	dx := k.backward(weights)

	const h, tol = 1e-2, 2e-2
	check := func(name string, values []float32, analytic []float32) {
		for i := range values {
			orig := values[i]
			values[i] = orig + h
			plus := lossAt()
			values[i] = orig - h
			minus := lossAt()
			values[i] = orig
			numeric := (plus - minus) / (2 * h)
			assert.InDelta(t, numeric, analytic[i], tol, "%s[%d]", name, i)
		}
	}
	check("x", x, dx)
	for _, v := range vars {
		check(v.name, v.data, v.grad)
	}
}

func TestDenseGradients(t *testing.T) {
	b := NewBuilder()
	w := variable(t, b, "w", tensor.NewShape(3, 4, 1))
	bias := variable(t, b, "b", tensor.NewShape(3, 1, 1))
	in, out := tensor.NewShape(4, 2, 1), tensor.NewShape(3, 2, 1)

	k := Dense{Weights: w, Bias: bias}.kernel(cpu(t), in, out)
	x := randomSlice(rand.New(rand.NewSource(1)), in.NumElements())
	numericGradCheck(t, k, []*Variable{w, bias}, x, out.NumElements())
}

func TestLSTMGradients(t *testing.T) {
	for _, returnSeq := range []bool{false, true} {
		b := NewBuilder()
		const inputs, hidden, layers = 3, 2, 2
		op := LSTM{Hidden: hidden, Layers: layers, ReturnSequences: returnSeq}
		for l := 0; l < layers; l++ {
			for g := 0; g < NumGates; g++ {
				width := hidden
				if l == 0 {
					width = inputs
				}
				op.InputWeights = append(op.InputWeights, variable(t, b, "wx", tensor.NewShape(hidden, width, 1)))
				op.HiddenWeights = append(op.HiddenWeights, variable(t, b, "wh", tensor.NewShape(hidden, hidden, 1)))
				op.Biases = append(op.Biases, variable(t, b, "b", tensor.NewShape(hidden, 1, 1)))
			}
		}

		in := tensor.NewShape(inputs, 4, 2)
		out := op.OutputShape(in)
		require.NoError(t, op.check(in, out))

		k := op.kernel(cpu(t), in, out)
		x := randomSlice(rand.New(rand.NewSource(3)), in.NumElements())
		numericGradCheck(t, k, op.variables(), x, out.NumElements())
	}
}

func TestLSTMCheckRejectsBadLayout(t *testing.T) {
	op := LSTM{Hidden: 2, Layers: 1}
	require.ErrorIs(t, op.check(tensor.NewShape(3, 4, 1), tensor.NewShape(2, 1, 1)), ErrShape)
	assert.Equal(t, tensor.NewShape(2, 1, 5), op.OutputShape(tensor.NewShape(3, 4, 5)))

	op.ReturnSequences = true
	assert.Equal(t, tensor.NewShape(2, 4, 5), op.OutputShape(tensor.NewShape(3, 4, 5)))
}

func TestTrainingReducesLoss(t *testing.T) {
	b := NewBuilder()
	b.Input("input", tensor.NewShape(2, 1, 4))
	w := variable(t, b, "w", tensor.NewShape(1, 2, 1), 0.1, -0.1)
	bias := variable(t, b, "b", tensor.NewShape(1, 1, 1), 0)
	_, err := b.Append("dense", Dense{Weights: w, Bias: bias}, tensor.NewShape(1, 1, 4))
	require.NoError(t, err)

	e, err := CompileTraining(b, cpu(t), DefaultTrainingConfig(), CompileOptions{})
	require.NoError(t, err)
	assert.Equal(t, float32(0.01), e.Optimizer().LR())

	// y = 2a - b + 1
	inputs := map[string][]byte{
		"input":    tensor.EncodeFloat32([]float32{0, 0, 1, 0, 0, 1, 1, 1}),
		TargetName: tensor.EncodeFloat32([]float32{1, 3, 0, 2}),
	}

	total := func(c Completion) float32 {
		var sum float32
		for _, v := range c.Loss[0].Data() {
			sum += v
		}
		return sum
	}

	var first, last float32
	for i := 0; i < 2000; i++ {
		err := e.Execute(inputs, 4, DefaultExecuteOptions(), func(c Completion) {
			require.Equal(t, tensor.NewShape(1, 1, 4), c.Loss[0].Shape())
			if c.Step == 1 {
				first = total(c)
			}
			last = total(c)
		})
		require.NoError(t, err)
	}
	assert.Less(t, last, first/10)

	out, err := e.Output().Tensor()
	require.NoError(t, err)
	assert.InDelta(t, 1, out.Data()[0], 0.2)
}

func TestBufferCopy(t *testing.T) {
	buf := newBuffer(tensor.NewShape(2, 1, 1))
	assert.Equal(t, 8, buf.ByteLen())
	require.Error(t, buf.CopyIn(make([]byte, 3)))
	require.NoError(t, buf.CopyIn(tensor.EncodeFloat32([]float32{1.5, -2})))

	out := make([]byte, 8)
	require.NoError(t, buf.CopyOut(out))
	values, err := tensor.DecodeFloat32(out)
	require.NoError(t, err)
	assert.Equal(t, []float32{1.5, -2}, values)
	require.Error(t, buf.CopyOut(make([]byte, 4)))
}
