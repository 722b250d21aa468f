// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package data pairs input and target tensors for training.
//
// Example:
//
//	d, err := data.New(inputs, targets)
//	if err != nil {
//	    return err
//	}
//	batched, err := d.Autobatch(4) // len(inputs) must be divisible by 4
package data

import (
	"github.com/born-ml/layergraph/internal/data"
	"github.com/born-ml/layergraph/tensor"
)

// TrainingData is a validated pairing of input and target tensors.
type TrainingData = data.TrainingData

// Validation errors.
var (
	ErrEmpty          = data.ErrEmpty
	ErrCountMismatch  = data.ErrCountMismatch
	ErrShapeMismatch  = data.ErrShapeMismatch
	ErrBatchMismatch  = data.ErrBatchMismatch
	ErrAlreadyBatched = data.ErrAlreadyBatched
	ErrNotDivisible   = data.ErrNotDivisible
)

// New validates and pairs inputs with targets.
func New(inputs, targets []*tensor.Tensor) (*TrainingData, error) {
	return data.New(inputs, targets)
}
