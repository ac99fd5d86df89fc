package ops

import (
	"fmt"

	"github.com/born-ml/digits/internal/tensor"
)

// SoftmaxOp represents softmax along dim.
//
// The Jacobian is ∂s_i/∂x_j = s_i(δ_ij - s_j), which gives
//
//	∂L/∂x_j = s_j * (∂L/∂s_j - Σ_i ∂L/∂s_i · s_i)
//
// computed independently for every slice along dim.
type SoftmaxOp struct {
	input  *tensor.RawTensor
	dim    int
	output *tensor.RawTensor
}

// NewSoftmaxOp creates a new SoftmaxOp.
func NewSoftmaxOp(input *tensor.RawTensor, dim int, output *tensor.RawTensor) *SoftmaxOp {
	ndim := len(input.Shape())
	if dim < 0 {
		dim += ndim
	}
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("SoftmaxOp: dimension out of range for rank %d", ndim))
	}
	return &SoftmaxOp{input: input, dim: dim, output: output}
}

// Backward computes the Jacobian-vector product using the cached output.
func (op *SoftmaxOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	shape := op.input.Shape()
	outer, size, inner := 1, shape[op.dim], 1
	for i := 0; i < op.dim; i++ {
		outer *= shape[i]
	}
	for i := op.dim + 1; i < len(shape); i++ {
		inner *= shape[i]
	}

	grad := tensor.MustRaw(shape, tensor.Float32, op.input.Device())
	s, g, dst := op.output.AsFloat32(), outputGrad.AsFloat32(), grad.AsFloat32()

	for o := 0; o < outer; o++ {
		for j := 0; j < inner; j++ {
			base := o*size*inner + j
			var dot float32
			for i := 0; i < size; i++ {
				idx := base + i*inner
				dot += g[idx] * s[idx]
			}
			for i := 0; i < size; i++ {
				idx := base + i*inner
				dst[idx] = s[idx] * (g[idx] - dot)
			}
		}
	}
	return []*tensor.RawTensor{grad}
}

// Inputs returns [x].
func (op *SoftmaxOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }

// Output returns softmax(x).
func (op *SoftmaxOp) Output() *tensor.RawTensor { return op.output }
