// Package graph orchestrates training and inference over a linear chain of
// layers.
//
// A Graph configures its layers against a running shape, compiles the
// resulting backend graph for the selected device and executes it. After a
// successful Train the learned parameters are kept in a
// nn.WeightsContainer; Infer restores them into the layers before
// configuring. A Graph is not safe for concurrent use.
package graph

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/born-ml/layergraph/internal/compute"
	"github.com/born-ml/layergraph/internal/data"
	"github.com/born-ml/layergraph/internal/nn"
	"github.com/born-ml/layergraph/internal/tensor"
)

// Graph errors.
var (
	ErrIncompatible      = errors.New("graph: layer incompatible with device")
	ErrAlreadyTrained    = errors.New("graph: already trained")
	ErrInvalidIterations = errors.New("graph: iterations must be positive")
	ErrShapeMismatch     = errors.New("graph: output shape does not match targets")
	ErrNoLayers          = errors.New("graph: no layers")
	ErrInvalidInput      = errors.New("graph: invalid input")
)

// Execution modes reported by IncompatibleError.
const (
	ModeTraining  = "training"
	ModeInference = "inference"
)

// IncompatibleError reports a layer that cannot run on the requested device.
// It matches ErrIncompatible.
type IncompatibleError struct {
	Layer  string
	Index  int
	Device compute.DeviceKind
	Mode   string
}

func (e *IncompatibleError) Error() string {
	return fmt.Sprintf("graph: %s layer %d (%s) is incompatible with %s device", e.Mode, e.Index, e.Layer, e.Device)
}

// Is reports whether target is ErrIncompatible.
func (e *IncompatibleError) Is(target error) bool {
	return target == ErrIncompatible
}

// Callback receives the decoded output of the last training step.
type Callback func(output *tensor.Tensor)

// Graph owns an ordered list of layers and, once trained, their weights.
type Graph struct {
	layers  []nn.Layer
	weights nn.Option[*nn.WeightsContainer]
}

// New creates an untrained graph over layers, in order.
func New(layers ...nn.Layer) *Graph {
	return &Graph{layers: append([]nn.Layer(nil), layers...)}
}

// Layers returns the layers in graph order.
func (g *Graph) Layers() []nn.Layer {
	return append([]nn.Layer(nil), g.layers...)
}

// Weights returns the container built by the last successful Train.
func (g *Graph) Weights() (*nn.WeightsContainer, bool) {
	return g.weights.Get()
}

// Trained reports whether Train has succeeded.
func (g *Graph) Trained() bool {
	return g.weights.IsSet()
}

func (g *Graph) checkCompatible(kind compute.DeviceKind, mode string) error {
	for i, l := range g.layers {
		ok := l.InferenceCompatible(kind)
		if mode == ModeTraining {
			ok = l.TrainingCompatible(kind)
		}
		if !ok {
			return &IncompatibleError{Layer: l.Kind(), Index: i, Device: kind, Mode: mode}
		}
	}
	return nil
}

// selectDevice opens kind. When kind is Any, compatibility is checked again
// against the kind actually selected.
func (g *Graph) selectDevice(kind compute.DeviceKind, mode string) (*compute.Device, error) {
	dev, err := compute.SelectDevice(kind)
	if err != nil {
		return nil, err
	}
	if kind == compute.Any {
		if err := g.checkCompatible(dev.Kind(), mode); err != nil {
			return nil, err
		}
	}
	return dev, nil
}

// configure seeds b with an input node and configures every layer in order.
// When weights is non-nil each layer loads its entry first.
func (g *Graph) configure(b *compute.Builder, input tensor.Shape, weights *nn.WeightsContainer) (tensor.Shape, error) {
	b.Input("input", input)
	shape := input
	for i, l := range g.layers {
		if weights != nil {
			if err := l.LoadWeights(weights, i, b); err != nil {
				return tensor.Shape{}, fmt.Errorf("graph: load layer %d (%s): %w", i, l.Kind(), err)
			}
		}
		out, err := l.Configure(shape, b)
		if err != nil {
			return tensor.Shape{}, fmt.Errorf("graph: configure layer %d (%s): %w", i, l.Kind(), err)
		}
		shape = out
	}
	return shape, nil
}

// Train fits the layers to d on a device of the given kind.
//
// Every (input, target) pair is executed in order, iterations times, with
// mean-squared-error loss and the Adam optimizer. callback, if non-nil, is
// invoked once with the output of the final step. On success the trained
// parameters are stored in a new WeightsContainer, one entry per layer.
// A Graph can be trained only once.
func (g *Graph) Train(d *data.TrainingData, iterations int, kind compute.DeviceKind, callback Callback) error {
	if err := g.checkCompatible(kind, ModeTraining); err != nil {
		return err
	}
	if iterations <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidIterations, iterations)
	}
	if d == nil {
		return data.ErrEmpty
	}
	if err := d.Validate(); err != nil {
		return err
	}
	if g.Trained() {
		return ErrAlreadyTrained
	}
	if len(g.layers) == 0 {
		return ErrNoLayers
	}

	dev, err := g.selectDevice(kind, ModeTraining)
	if err != nil {
		return err
	}

	b := compute.NewBuilder()
	out, err := g.configure(b, d.InputShape(), nil)
	if err != nil {
		return err
	}
	if !out.Equal(d.TargetShape()) {
		return fmt.Errorf("%w: graph produces %v, targets are %v", ErrShapeMismatch, out, d.TargetShape())
	}

	exe, err := compute.CompileTraining(b, dev, compute.DefaultTrainingConfig(), compute.DefaultCompileOptions())
	if err != nil {
		return fmt.Errorf("graph: compile: %w", err)
	}
	slog.Debug("graph: training", "executable", exe.ID(), "device", dev, "layers", len(g.layers),
		"examples", d.Len(), "iterations", iterations)

	inputs, targets := d.Inputs(), d.Targets()
	batch := d.BatchSize()
	opts := compute.DefaultExecuteOptions()
	for it := 0; it < iterations; it++ {
		for i := range inputs {
			last := it == iterations-1 && i == len(inputs)-1
			var cbErr error
			done := func(c compute.Completion) {
				slog.Debug("graph: step", "iteration", it, "example", i, "step", c.Step, "loss", totalLoss(c.Loss))
				if !last || callback == nil {
					return
				}
				output, err := exe.Output().Tensor()
				if err != nil {
					cbErr = err
					return
				}
				callback(output)
			}

			bindings := map[string][]byte{
				exe.InputName():    inputs[i].Bytes(),
				compute.TargetName: targets[i].Bytes(),
			}
			if err := exe.Execute(bindings, batch, opts, done); err != nil {
				return fmt.Errorf("graph: iteration %d example %d: %w", it, i, err)
			}
			if cbErr != nil {
				return fmt.Errorf("graph: decode output: %w", cbErr)
			}
		}
	}

	weights := nn.NewWeightsContainer()
	for i, l := range g.layers {
		if err := l.StoreWeights(weights); err != nil {
			return fmt.Errorf("graph: store layer %d (%s): %w", i, l.Kind(), err)
		}
	}
	g.weights = nn.Some(weights)
	return nil
}

func totalLoss(losses []*tensor.Tensor) float32 {
	var sum float32
	for _, l := range losses {
		for _, v := range l.Data() {
			sum += v
		}
	}
	return sum
}

// Infer runs one forward pass over input on a device of the given kind.
//
// A trained graph restores its weights into every layer first. An untrained
// graph runs with the layers' self-initialized parameters and logs a
// warning. With ignoreBatchSize only batch element 0 of the output is
// returned.
func (g *Graph) Infer(input *tensor.Tensor, kind compute.DeviceKind, ignoreBatchSize bool) (*tensor.Tensor, error) {
	if err := g.checkCompatible(kind, ModeInference); err != nil {
		return nil, err
	}
	if input == nil {
		return nil, fmt.Errorf("%w: nil tensor", ErrInvalidInput)
	}
	if len(g.layers) == 0 {
		return nil, ErrNoLayers
	}

	dev, err := g.selectDevice(kind, ModeInference)
	if err != nil {
		return nil, err
	}

	weights, trained := g.weights.Get()
	if !trained {
		slog.Warn("graph: inference on untrained graph, using self-initialized parameters")
	}

	b := compute.NewBuilder()
	if _, err := g.configure(b, input.Shape(), weights); err != nil {
		return nil, err
	}

	exe, err := compute.Compile(b, dev, compute.DefaultCompileOptions())
	if err != nil {
		return nil, fmt.Errorf("graph: compile: %w", err)
	}
	bindings := map[string][]byte{exe.InputName(): input.Bytes()}
	if err := exe.Execute(bindings, input.Shape().Normalize().Batch, compute.DefaultExecuteOptions()); err != nil {
		return nil, fmt.Errorf("graph: execute: %w", err)
	}

	out, err := exe.Output().Tensor()
	if err != nil {
		return nil, fmt.Errorf("graph: decode output: %w", err)
	}
	if ignoreBatchSize {
		return out.BatchElements()[0], nil
	}
	return out, nil
}
