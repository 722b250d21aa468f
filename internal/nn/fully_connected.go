package nn

import (
	"fmt"

	"github.com/born-ml/layergraph/internal/compute"
	"github.com/born-ml/layergraph/internal/tensor"
)

// fullyConnectedLayout stores the weight matrix, then the bias vector.
var fullyConnectedLayout = GroupLayout{1, 1}

// FullyConnected maps every primary-axis vector through y = x·W + b.
//
// The weight matrix has shape (outputSize, inputs, 1) and the bias
// (outputSize, 1, 1). Weights are drawn from [-1, 1] and biases start at
// zero the first time the layer is configured.
type FullyConnected struct {
	base
	outputSize int
	weights    *Parameter
	bias       *Parameter
}

// NewFullyConnected creates a fully connected layer with outputSize outputs.
func NewFullyConnected(outputSize int) *FullyConnected {
	return &FullyConnected{
		base:       base{kind: "fully_connected"},
		outputSize: outputSize,
		weights:    newParameter("weights", Uniform(-1, 1)),
		bias:       newParameter("bias", Zeros),
	}
}

// OutputSize returns the size of the output primary axis.
func (f *FullyConnected) OutputSize() int {
	return f.outputSize
}

// Parameters returns the weight matrix and the bias vector.
func (f *FullyConnected) Parameters() []*Parameter {
	return []*Parameter{f.weights, f.bias}
}

// Configure implements Layer.
func (f *FullyConnected) Configure(input tensor.Shape, b *compute.Builder) (tensor.Shape, error) {
	f.begin(b)
	if f.outputSize <= 0 {
		return tensor.Shape{}, fmt.Errorf("%w: output size %d", ErrShapeMismatch, f.outputSize)
	}

	in := input.Normalize()
	w, err := f.weights.bind(b, tensor.NewShape(f.outputSize, in.Primary, 1))
	if err != nil {
		return tensor.Shape{}, err
	}
	bias, err := f.bias.bind(b, tensor.NewShape(f.outputSize, 1, 1))
	if err != nil {
		return tensor.Shape{}, err
	}

	out := tensor.NewShape(f.outputSize, input.Secondary, input.Batch)
	return f.append(b, input, out, compute.Dense{Weights: w, Bias: bias})
}

// StoreWeights implements Layer.
func (f *FullyConnected) StoreWeights(w *WeightsContainer) error {
	params, err := harvestAll(f.Parameters())
	if err != nil {
		return err
	}
	return w.StoreLayout(fullyConnectedLayout, params[:1], params[1:])
}

// LoadWeights implements Layer.
func (f *FullyConnected) LoadWeights(w *WeightsContainer, index int, b *compute.Builder) error {
	if f.configured(b) {
		panic("nn: fully_connected weights loaded after configure")
	}
	groups, err := fullyConnectedLayout.Split(w.At(index))
	if err != nil {
		return fmt.Errorf("layer %d: %w", index, err)
	}
	f.weights.load(groups[0][0])
	f.bias.load(groups[1][0])
	return nil
}
