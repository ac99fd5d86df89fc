// Package ops defines the differentiable operations recorded by the gradient tape.
//
// Each operation keeps references to its inputs and output from the forward
// pass and maps an output gradient to input gradients:
//   - AddOp, SubOp: gradient flows through, reduced over broadcast dimensions
//   - MulOp, MulScalarOp: product rule
//   - MatMulOp: d(A@B)/dA = grad@B^T, d(A@B)/dB = A^T@grad
//   - TransposeOp, ReshapeOp: inverse permutation / original shape
//   - ReLUOp: gradient masked where input <= 0
//   - SoftmaxOp: Jacobian-vector product using the cached output
//   - SparseCrossEntropyOp: -1/(N·p) at each target probability
package ops

import "github.com/born-ml/digits/internal/tensor"

// Operation is a differentiable step in the computation graph.
type Operation interface {
	// Backward returns one gradient per input, in Inputs() order.
	// A nil entry means no gradient flows to that input.
	Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor

	// Inputs returns the input tensors for this operation.
	Inputs() []*tensor.RawTensor

	// Output returns the output tensor produced by this operation.
	Output() *tensor.RawTensor
}
