// Package tensor provides the rank-3 tensor value type used by layers,
// training data and the compute backend.
//
// A Tensor owns a Shape (primary, secondary, batch) and a flat float32 buffer
// laid out batch-major, then secondary axis, then primary axis.
package tensor
