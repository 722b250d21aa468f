// Package compute is the hardware backend that executes layer graphs.
//
// Its capability surface is small:
//   - SelectDevice picks a CPU or GPU device by kind
//   - Builder chains named nodes from layer-provided descriptors
//     (Dense, Activation, Softmax, Reshape, LSTM)
//   - Compile and CompileTraining turn a Builder into an executable graph
//   - Execute runs it on named input/target byte buffers, reporting losses
//     through a per-step completion callback
//   - Buffer and Variable copy raw bytes between host and device memory
//
// Training graphs use an unreduced mean-squared-error loss and an Adam
// optimizer. Gradients are computed by each node's kernel; callers never see
// backend-internal representations.
package compute
