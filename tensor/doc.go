// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the rank-3 float32 tensors exchanged with a layer
// graph.
//
// # Overview
//
// Every tensor is described by a Shape with three axes:
//   - Primary: the feature axis (the innermost, contiguous axis)
//   - Secondary: rows or sequence steps
//   - Batch: independent examples
//
// A zero axis counts as 1, so Shape{12, 0, 0} and Shape{12, 1, 1} describe
// the same buffer. The flat buffer is laid out batch-major:
//
//	index = b*(Secondary*Primary) + s*Primary + p
//
// # Basic Usage
//
//	x, err := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.NewShape(3, 1, 2))
//	if err != nil {
//	    return err
//	}
//	x.At(2, 0, 1)          // 6
//	x.BatchElements()      // two tensors of shape (3, 1, 1)
//
// Tensors are values: Clone is cheap and clones never observe each other's
// writes.
package tensor
