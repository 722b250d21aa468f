// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim describes the optimizer layer graphs train with.
//
// Graph.Train always uses Adam with DefaultAdamConfig: learning rate 0.01,
// betas (0.9, 0.999), epsilon 1e-7, gradient rescale 1 and no weight
// penalty. The values are read-only from the public API:
//
//	cfg := optim.DefaultAdamConfig()
//	fmt.Println(cfg.LR, cfg.Betas, cfg.Regularization)
package optim

import (
	"github.com/born-ml/layergraph/internal/compute"
)

// AdamConfig contains configuration for the Adam optimizer.
type AdamConfig = compute.AdamConfig

// Regularization names a weight penalty.
type Regularization = compute.Regularization

// Weight penalties.
const (
	None = compute.RegularizationNone
	L1   = compute.RegularizationL1
	L2   = compute.RegularizationL2
)

// DefaultAdamConfig returns the configuration Graph.Train uses.
func DefaultAdamConfig() AdamConfig {
	return compute.DefaultAdamConfig()
}
