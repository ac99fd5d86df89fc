package cpu

import (
	"fmt"

	"github.com/born-ml/digits/internal/tensor"
)

// Add performs element-wise addition with NumPy-style broadcasting.
func (cpu *CPUBackend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("add", a, b, func(x, y float32) float32 { return x + y })
}

// Sub performs element-wise subtraction with broadcasting.
func (cpu *CPUBackend) Sub(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("sub", a, b, func(x, y float32) float32 { return x - y })
}

// Mul performs element-wise multiplication with broadcasting.
func (cpu *CPUBackend) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("mul", a, b, func(x, y float32) float32 { return x * y })
}

// MulScalar multiplies every element of x by s.
func (cpu *CPUBackend) MulScalar(x *tensor.RawTensor, s float32) *tensor.RawTensor {
	mustFloat32("mul_scalar", x)
	result := tensor.MustRaw(x.Shape(), tensor.Float32, cpu.device)
	src, dst := x.AsFloat32(), result.AsFloat32()
	for i, v := range src {
		dst[i] = v * s
	}
	return result
}

func (cpu *CPUBackend) binary(op string, a, b *tensor.RawTensor, f func(x, y float32) float32) *tensor.RawTensor {
	mustFloat32(op, a, b)
	outShape, needsBroadcast, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", op, err))
	}

	result := tensor.MustRaw(outShape, tensor.Float32, cpu.device)
	dst, ad, bd := result.AsFloat32(), a.AsFloat32(), b.AsFloat32()

	switch {
	case !needsBroadcast:
		for i := range dst {
			dst[i] = f(ad[i], bd[i])
		}
	case isRowBroadcast(a.Shape(), b.Shape(), outShape):
		// [M, N] op [N] or [M, N] op [1, N]: the bias case.
		n := len(bd)
		for i := range dst {
			dst[i] = f(ad[i], bd[i%n])
		}
	default:
		aIdx := broadcastStrides(a.Shape(), outShape)
		bIdx := broadcastStrides(b.Shape(), outShape)
		coords := make([]int, len(outShape))
		for i := range dst {
			ai, bi := 0, 0
			for d, c := range coords {
				ai += c * aIdx[d]
				bi += c * bIdx[d]
			}
			dst[i] = f(ad[ai], bd[bi])
			incrementCoords(coords, outShape)
		}
	}

	return result
}

// isRowBroadcast reports whether b is a single trailing row repeated over a.
func isRowBroadcast(a, b, out tensor.Shape) bool {
	if !a.Equal(out) || len(out) < 1 || len(b) < 1 {
		return false
	}
	last := out[len(out)-1]
	return b.NumElements() == last && b[len(b)-1] == last
}

// broadcastStrides returns strides of shape aligned to out, with zero stride
// on broadcast dimensions.
func broadcastStrides(shape, out tensor.Shape) []int {
	strides := make([]int, len(out))
	src := shape.ComputeStrides()
	offset := len(out) - len(shape)
	for i := range shape {
		if shape[i] != 1 {
			strides[offset+i] = src[i]
		}
	}
	return strides
}

func incrementCoords(coords []int, shape tensor.Shape) {
	for d := len(coords) - 1; d >= 0; d-- {
		coords[d]++
		if coords[d] < shape[d] {
			return
		}
		coords[d] = 0
	}
}
