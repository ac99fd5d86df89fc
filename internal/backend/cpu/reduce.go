package cpu

import (
	"github.com/born-ml/digits/internal/tensor"
)

// SumDim sums x along dim. With keepDim the reduced dimension stays as size 1.
func (cpu *CPUBackend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	mustFloat32("sum_dim", x)
	shape := x.Shape()
	dim = normalizeDim("sum_dim", dim, len(shape))
	outer, size, inner := splitAt(shape, dim)

	result := tensor.MustRaw(reducedShape(shape, dim, keepDim), tensor.Float32, cpu.device)
	src, dst := x.AsFloat32(), result.AsFloat32()

	for o := 0; o < outer; o++ {
		for i := 0; i < size; i++ {
			row := src[(o*size+i)*inner : (o*size+i+1)*inner]
			out := dst[o*inner : (o+1)*inner]
			for j, v := range row {
				out[j] += v
			}
		}
	}
	return result
}

// Argmax returns the int32 index of the largest element along dim.
// Ties resolve to the lowest index.
func (cpu *CPUBackend) Argmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	mustFloat32("argmax", x)
	shape := x.Shape()
	dim = normalizeDim("argmax", dim, len(shape))
	outer, size, inner := splitAt(shape, dim)

	result := tensor.MustRaw(reducedShape(shape, dim, false), tensor.Int32, cpu.device)
	src, dst := x.AsFloat32(), result.AsInt32()

	for o := 0; o < outer; o++ {
		for j := 0; j < inner; j++ {
			base := o*size*inner + j
			best, bestVal := 0, src[base]
			for i := 1; i < size; i++ {
				if v := src[base+i*inner]; v > bestVal {
					best, bestVal = i, v
				}
			}
			dst[o*inner+j] = int32(best)
		}
	}
	return result
}

// reducedShape drops (or collapses to 1) dimension dim. Reducing a 1D
// tensor without keepDim yields shape [1].
func reducedShape(shape tensor.Shape, dim int, keepDim bool) tensor.Shape {
	out := make(tensor.Shape, 0, len(shape))
	for i, d := range shape {
		switch {
		case i != dim:
			out = append(out, d)
		case keepDim:
			out = append(out, 1)
		}
	}
	if len(out) == 0 {
		out = append(out, 1)
	}
	return out
}
