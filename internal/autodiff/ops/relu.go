package ops

import "github.com/born-ml/digits/internal/tensor"

// ReLUOp represents output = max(0, x).
//
// Backward: d(ReLU(x))/dx = 1 if x > 0 or x is NaN, else 0.
type ReLUOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewReLUOp creates a new ReLUOp.
func NewReLUOp(input, output *tensor.RawTensor) *ReLUOp {
	return &ReLUOp{input: input, output: output}
}

// Backward passes the gradient where the input was positive or NaN.
func (op *ReLUOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	grad := tensor.MustRaw(op.input.Shape(), tensor.Float32, op.input.Device())
	in, g, dst := op.input.AsFloat32(), outputGrad.AsFloat32(), grad.AsFloat32()
	for i, v := range in {
		if !(v <= 0) {
			dst[i] = g[i]
		}
	}
	return []*tensor.RawTensor{grad}
}

// Inputs returns [x].
func (op *ReLUOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }

// Output returns max(0, x).
func (op *ReLUOp) Output() *tensor.RawTensor { return op.output }
