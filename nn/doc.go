// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the layers composed into a layer graph.
//
// # Overview
//
// This package contains:
//   - Layer: the configuration contract every layer honors
//   - Stateless layers: Activation, Softmax, Reshape
//   - Stateful layers: FullyConnected, LSTM
//   - WeightsContainer: positional store of trained parameters
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/layergraph/compute"
//	    "github.com/born-ml/layergraph/graph"
//	    "github.com/born-ml/layergraph/nn"
//	)
//
//	g := graph.New(
//	    nn.NewFullyConnected(8),
//	    nn.NewActivation(compute.Tanh),
//	    nn.NewFullyConnected(1),
//	)
//
// # Weights
//
// After training, each layer stores one entry in the graph's
// WeightsContainer. Stateful layers flatten their parameter groups in a
// fixed order described by a GroupLayout:
//
//	FullyConnected  [1, 1]              weights, bias
//	LSTM            [4L, 4L, 4L]        input weights, hidden weights, biases
//
// Stateless layers store an empty entry.
package nn
