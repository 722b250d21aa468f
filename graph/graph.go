// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package graph trains and runs a linear chain of layers.
//
// Example:
//
//	g := graph.New(
//	    nn.NewFullyConnected(8),
//	    nn.NewActivation(compute.Tanh),
//	    nn.NewFullyConnected(1),
//	)
//	if err := g.Train(d, 500, compute.CPU, nil); err != nil {
//	    return err
//	}
//	y, err := g.Infer(x, compute.CPU, true)
//
// Train may be called once per Graph. Inference on an untrained graph uses
// the layers' self-initialized parameters and logs a warning.
package graph

import (
	"github.com/born-ml/layergraph/internal/graph"
	"github.com/born-ml/layergraph/nn"
)

// Graph owns an ordered list of layers and, once trained, their weights.
type Graph = graph.Graph

// Callback receives the decoded output of the last training step.
type Callback = graph.Callback

// IncompatibleError reports a layer that cannot run on the requested device.
type IncompatibleError = graph.IncompatibleError

// Errors.
var (
	ErrIncompatible      = graph.ErrIncompatible
	ErrAlreadyTrained    = graph.ErrAlreadyTrained
	ErrInvalidIterations = graph.ErrInvalidIterations
	ErrShapeMismatch     = graph.ErrShapeMismatch
	ErrNoLayers          = graph.ErrNoLayers
	ErrInvalidInput      = graph.ErrInvalidInput
)

// Execution modes reported by IncompatibleError.
const (
	ModeTraining  = graph.ModeTraining
	ModeInference = graph.ModeInference
)

// New creates an untrained graph over layers, in order.
func New(layers ...nn.Layer) *Graph {
	return graph.New(layers...)
}
