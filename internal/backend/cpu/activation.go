package cpu

import (
	"math"

	"github.com/born-ml/digits/internal/parallel"
	"github.com/born-ml/digits/internal/tensor"
)

// ReLU computes max(0, x) element-wise. NaN inputs stay NaN.
func (cpu *CPUBackend) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	mustFloat32("relu", x)
	result := tensor.MustRaw(x.Shape(), tensor.Float32, cpu.device)
	src, dst := x.AsFloat32(), result.AsFloat32()
	for i, v := range src {
		if !(v <= 0) {
			dst[i] = v
		}
	}
	return result
}

// Softmax computes exp(x_i) / Σ exp(x_j) along dim, subtracting the
// maximum first for numerical stability.
func (cpu *CPUBackend) Softmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	mustFloat32("softmax", x)
	shape := x.Shape()
	dim = normalizeDim("softmax", dim, len(shape))
	outer, size, inner := splitAt(shape, dim)

	result := tensor.MustRaw(shape, tensor.Float32, cpu.device)
	src, dst := x.AsFloat32(), result.AsFloat32()

	parallel.For(outer*inner, func(row int) {
		o, in := row/inner, row%inner
		base := o*size*inner + in

		maxVal := float32(math.Inf(-1))
		for i := 0; i < size; i++ {
			if v := src[base+i*inner]; v > maxVal {
				maxVal = v
			}
		}

		var sum float64
		for i := 0; i < size; i++ {
			e := math.Exp(float64(src[base+i*inner] - maxVal))
			dst[base+i*inner] = float32(e)
			sum += e
		}

		inv := float32(1 / sum)
		for i := 0; i < size; i++ {
			dst[base+i*inner] *= inv
		}
	}, cpu.par)

	return result
}
