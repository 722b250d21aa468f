package nn

import (
	"fmt"

	"github.com/born-ml/layergraph/internal/compute"
	"github.com/born-ml/layergraph/internal/tensor"
)

// LSTMConfig configures an LSTM layer.
type LSTMConfig struct {
	HiddenSize      int  // Size of the hidden state and of the output primary axis.
	Layers          int  // Number of stacked layers.
	ReturnSequences bool // Return every step instead of only the last one.
}

// DefaultLSTMConfig returns a single-layer LSTM returning the last step.
func DefaultLSTMConfig(hiddenSize int) LSTMConfig {
	return LSTMConfig{HiddenSize: hiddenSize, Layers: 1}
}

// LSTM is a stacked long short-term memory layer running over the
// secondary axis.
//
// Parameters come in three groups of 4*Layers tensors each: input weights,
// hidden weights and biases. Within a group, tensors are ordered by layer,
// then by gate (input, forget, cell, output). The layer cannot be trained
// on a GPU.
type LSTM struct {
	base
	config        LSTMConfig
	inputWeights  []*Parameter
	hiddenWeights []*Parameter
	biases        []*Parameter
}

// NewLSTM creates an LSTM layer. Zero Layers means one layer.
func NewLSTM(config LSTMConfig) *LSTM {
	if config.Layers == 0 {
		config.Layers = 1
	}
	l := &LSTM{base: base{kind: "lstm"}, config: config}
	gates := [compute.NumGates]string{"input", "forget", "cell", "output"}
	for layer := 0; layer < max(config.Layers, 0); layer++ {
		for _, gate := range gates {
			l.inputWeights = append(l.inputWeights, newParameter(fmt.Sprintf("l%d.%s.input_weights", layer, gate), Uniform(-1, 1)))
			l.hiddenWeights = append(l.hiddenWeights, newParameter(fmt.Sprintf("l%d.%s.hidden_weights", layer, gate), Uniform(-1, 1)))
			l.biases = append(l.biases, newParameter(fmt.Sprintf("l%d.%s.bias", layer, gate), Zeros))
		}
	}
	return l
}

// Config returns the layer configuration.
func (l *LSTM) Config() LSTMConfig {
	return l.config
}

func (l *LSTM) layout() GroupLayout {
	n := compute.NumGates * l.config.Layers
	return GroupLayout{n, n, n}
}

// Parameters returns input weights, hidden weights and biases, in that order.
func (l *LSTM) Parameters() []*Parameter {
	params := make([]*Parameter, 0, 3*len(l.biases))
	params = append(params, l.inputWeights...)
	params = append(params, l.hiddenWeights...)
	return append(params, l.biases...)
}

// TrainingCompatible implements Layer. The recurrent kernel is host-only.
func (l *LSTM) TrainingCompatible(kind compute.DeviceKind) bool {
	return kind != compute.GPU
}

// Configure implements Layer.
func (l *LSTM) Configure(input tensor.Shape, b *compute.Builder) (tensor.Shape, error) {
	l.begin(b)
	if l.config.HiddenSize <= 0 || l.config.Layers <= 0 {
		return tensor.Shape{}, fmt.Errorf("%w: lstm hidden size %d, layers %d",
			ErrShapeMismatch, l.config.HiddenSize, l.config.Layers)
	}

	h := l.config.HiddenSize
	op := compute.LSTM{Hidden: h, Layers: l.config.Layers, ReturnSequences: l.config.ReturnSequences}
	for i := range l.biases {
		inputs := h
		if i < compute.NumGates {
			inputs = input.Normalize().Primary
		}
		wx, err := l.inputWeights[i].bind(b, tensor.NewShape(h, inputs, 1))
		if err != nil {
			return tensor.Shape{}, err
		}
		wh, err := l.hiddenWeights[i].bind(b, tensor.NewShape(h, h, 1))
		if err != nil {
			return tensor.Shape{}, err
		}
		bias, err := l.biases[i].bind(b, tensor.NewShape(h, 1, 1))
		if err != nil {
			return tensor.Shape{}, err
		}
		op.InputWeights = append(op.InputWeights, wx)
		op.HiddenWeights = append(op.HiddenWeights, wh)
		op.Biases = append(op.Biases, bias)
	}

	return l.append(b, input, op.OutputShape(input), op)
}

// StoreWeights implements Layer.
func (l *LSTM) StoreWeights(w *WeightsContainer) error {
	groups := make([][]*tensor.Tensor, 0, 3)
	for _, params := range [][]*Parameter{l.inputWeights, l.hiddenWeights, l.biases} {
		values, err := harvestAll(params)
		if err != nil {
			return err
		}
		groups = append(groups, values)
	}
	return w.StoreLayout(l.layout(), groups...)
}

// LoadWeights implements Layer.
func (l *LSTM) LoadWeights(w *WeightsContainer, index int, b *compute.Builder) error {
	if l.configured(b) {
		panic("nn: lstm weights loaded after configure")
	}
	groups, err := l.layout().Split(w.At(index))
	if err != nil {
		return fmt.Errorf("layer %d: %w", index, err)
	}
	for g, params := range [][]*Parameter{l.inputWeights, l.hiddenWeights, l.biases} {
		for i, p := range params {
			p.load(groups[g][i])
		}
	}
	return nil
}
