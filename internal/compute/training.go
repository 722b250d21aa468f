package compute

import (
	"fmt"
	"log/slog"

	"github.com/born-ml/layergraph/internal/tensor"
)

// TargetName is the binding name of the target buffer in training steps.
const TargetName = "target"

// TrainingConfig selects the loss and optimizer of a training graph.
type TrainingConfig struct {
	Loss      MeanSquaredError
	Optimizer AdamConfig
}

// DefaultTrainingConfig returns unreduced mean-squared error with the
// default Adam configuration.
func DefaultTrainingConfig() TrainingConfig {
	return TrainingConfig{
		Loss:      MeanSquaredError{Reduction: ReductionNone},
		Optimizer: DefaultAdamConfig(),
	}
}

// Completion is delivered after every training step.
type Completion struct {
	Step int
	Loss []*tensor.Tensor
}

// TrainingExecutable is a compiled graph with a loss and optimizer attached.
type TrainingExecutable struct {
	*Executable
	loss      MeanSquaredError
	optimizer *Adam
	step      int
}

// CompileTraining compiles b for training on dev.
func CompileTraining(b *Builder, dev *Device, cfg TrainingConfig, opts CompileOptions) (*TrainingExecutable, error) {
	e, err := Compile(b, dev, opts)
	if err != nil {
		return nil, err
	}
	vars := e.variables()
	if opts.Debug {
		slog.Debug("compute: training graph", "executable", e.id, "loss", cfg.Loss.Name(),
			"reduction", cfg.Loss.Reduction, "variables", len(vars), "lr", cfg.Optimizer.LR)
	}
	return &TrainingExecutable{
		Executable: e,
		loss:       cfg.Loss,
		optimizer:  NewAdam(vars, cfg.Optimizer),
	}, nil
}

// Optimizer returns the optimizer updating the graph's variables.
func (t *TrainingExecutable) Optimizer() *Adam { return t.optimizer }

// Execute runs one training step: forward pass, loss against the buffer
// bound to TargetName, backward pass and an optimizer update. The forward
// output is written to Output. done, if non-nil, receives the step's loss.
func (t *TrainingExecutable) Execute(inputs map[string][]byte, batchSize int, opts ExecuteOptions, done func(Completion)) error {
	x, err := t.bind(inputs, batchSize)
	if err != nil {
		return err
	}
	outShape := t.output.shape
	target, err := decodeBinding(inputs, TargetName, outShape)
	if err != nil {
		return err
	}

	return t.run(opts, func() error {
		y, err := t.forward(x)
		if err != nil {
			return err
		}
		copy(t.output.data, y)

		loss, grad := t.loss.evaluate(y, target)
		t.optimizer.ZeroGrad()
		t.backward(grad)
		t.optimizer.Step()
		t.step++

		if done != nil {
			lt, err := tensor.FromSlice(loss, t.loss.LossShape(outShape))
			if err != nil {
				return fmt.Errorf("compute: loss: %w", err)
			}
			done(Completion{Step: t.step, Loss: []*tensor.Tensor{lt}})
		}
		return nil
	})
}
