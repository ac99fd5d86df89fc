package cpu

import (
	"fmt"

	"github.com/born-ml/digits/internal/tensor"
)

// Transpose permutes the dimensions of t. With no axes it reverses them.
func (cpu *CPUBackend) Transpose(t *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	mustFloat32("transpose", t)
	shape := t.Shape()
	ndim := len(shape)

	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}
	if len(axes) != ndim {
		panic(fmt.Sprintf("transpose: axes length %d != ndim %d", len(axes), ndim))
	}

	seen := make([]bool, ndim)
	for _, ax := range axes {
		if ax < 0 || ax >= ndim {
			panic(fmt.Sprintf("transpose: invalid axis %d for %dD tensor", ax, ndim))
		}
		if seen[ax] {
			panic(fmt.Sprintf("transpose: duplicate axis %d", ax))
		}
		seen[ax] = true
	}

	newShape := make(tensor.Shape, ndim)
	for i, ax := range axes {
		newShape[i] = shape[ax]
	}
	result := tensor.MustRaw(newShape, tensor.Float32, cpu.device)
	src, dst := t.AsFloat32(), result.AsFloat32()

	if ndim == 2 {
		rows, cols := shape[0], shape[1]
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				dst[c*rows+r] = src[r*cols+c]
			}
		}
		return result
	}

	// Source stride for each output dimension.
	srcStrides := shape.ComputeStrides()
	perm := make([]int, ndim)
	for i, ax := range axes {
		perm[i] = srcStrides[ax]
	}
	coords := make([]int, ndim)
	for i := range dst {
		off := 0
		for d, c := range coords {
			off += c * perm[d]
		}
		dst[i] = src[off]
		incrementCoords(coords, newShape)
	}
	return result
}
