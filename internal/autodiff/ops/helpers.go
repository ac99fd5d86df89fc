package ops

import "github.com/born-ml/digits/internal/tensor"

// reduceBroadcast sums grad down to targetShape, undoing forward broadcasting.
//
//	Forward:  a[3,1] + b[3,4] -> c[3,4]
//	Backward: grad_c[3,4] -> grad_a[3,1] (sum along dim 1)
func reduceBroadcast(grad *tensor.RawTensor, targetShape tensor.Shape, backend tensor.Backend) *tensor.RawTensor {
	if grad.Shape().Equal(targetShape) {
		return grad
	}

	result := grad
	for len(result.Shape()) > len(targetShape) && len(result.Shape()) > 1 {
		result = backend.SumDim(result, 0, false)
	}

	shape := result.Shape()
	for i := range targetShape {
		if i < len(shape) && targetShape[i] == 1 && shape[i] > 1 {
			result = backend.SumDim(result, i, true)
			shape = result.Shape()
		}
	}

	if !result.Shape().Equal(targetShape) {
		result = backend.Reshape(result, targetShape)
	}
	return result
}
