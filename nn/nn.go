// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/born-ml/layergraph/internal/compute"
	"github.com/born-ml/layergraph/internal/nn"
)

// Layer is a shape-transforming computation unit of a graph.
type Layer = nn.Layer

// Binding holds the shapes and backend node of a configured layer.
type Binding = nn.Binding

// Option holds a value that is either unset or set.
type Option[T any] = nn.Option[T]

// Parameter is a lazily materialized trainable tensor.
type Parameter = nn.Parameter

// WeightsContainer stores one entry of parameter tensors per layer.
type WeightsContainer = nn.WeightsContainer

// GroupLayout lists the parameter group sizes of a layer entry.
type GroupLayout = nn.GroupLayout

// Errors.
var (
	ErrShapeMismatch = nn.ErrShapeMismatch
	ErrElementCount  = nn.ErrElementCount
	ErrBatchMismatch = nn.ErrBatchMismatch
	ErrWeightLayout  = nn.ErrWeightLayout
	ErrUnconfigured  = nn.ErrUnconfigured
)

// NewWeightsContainer creates an empty container.
func NewWeightsContainer() *WeightsContainer {
	return nn.NewWeightsContainer()
}

// Layers

// Activation applies an element-wise nonlinearity.
type Activation = nn.Activation

// NewActivation creates an activation layer. params optionally override the
// function's alpha and beta.
//
// Example:
//
//	relu := nn.NewActivation(compute.ReLU)
//	leaky := nn.NewActivation(compute.LeakyReLU, 0.2)
func NewActivation(fn compute.ActivationFunc, params ...float32) *Activation {
	return nn.NewActivation(fn, params...)
}

// Softmax normalizes every primary-axis vector.
type Softmax = nn.Softmax

// NewSoftmax creates a softmax layer.
func NewSoftmax() *Softmax {
	return nn.NewSoftmax()
}

// NewLogSoftmax creates a log-softmax layer.
func NewLogSoftmax() *Softmax {
	return nn.NewLogSoftmax()
}

// Reshape reinterprets its input under a target shape.
type Reshape = nn.Reshape

// NewReshape creates a reshape layer. The batch size is inherited from the
// input unless given.
//
// Example:
//
//	nn.NewReshape(2, 6) // (12, 1, B) -> (2, 6, B)
func NewReshape(primary, secondary int, batch ...int) *Reshape {
	return nn.NewReshape(primary, secondary, batch...)
}

// FullyConnected is a dense layer.
type FullyConnected = nn.FullyConnected

// NewFullyConnected creates a dense layer with outputSize outputs.
func NewFullyConnected(outputSize int) *FullyConnected {
	return nn.NewFullyConnected(outputSize)
}

// LSTM is a stacked long short-term memory layer.
type LSTM = nn.LSTM

// LSTMConfig configures an LSTM layer.
type LSTMConfig = nn.LSTMConfig

// DefaultLSTMConfig returns a single-layer LSTM returning the last step.
func DefaultLSTMConfig(hiddenSize int) LSTMConfig {
	return nn.DefaultLSTMConfig(hiddenSize)
}

// NewLSTM creates an LSTM layer.
//
// Example:
//
//	lstm := nn.NewLSTM(nn.LSTMConfig{HiddenSize: 16, Layers: 2, ReturnSequences: true})
func NewLSTM(config LSTMConfig) *LSTM {
	return nn.NewLSTM(config)
}
