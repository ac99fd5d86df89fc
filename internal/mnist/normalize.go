package mnist

import (
	"fmt"

	"github.com/born-ml/digits/internal/parallel"
	"github.com/born-ml/digits/internal/tensor"
	"gonum.org/v1/gonum/floats"
)

// Normalize divides every vector along axis by its L2 norm, like Keras'
// utils.normalize(x, axis, order=2). Vectors with a zero norm stay zero.
//
// For [N, 28, 28] images and axis 1 each image column is scaled to unit
// length. The input may be uint8 or float32 and is not modified; the result
// is float32 with the same shape, in [0, 1] for non-negative input.
func Normalize(x *tensor.RawTensor, axis int) (*tensor.RawTensor, error) {
	shape := x.Shape()
	if len(shape) == 0 {
		return nil, fmt.Errorf("normalize: scalar input")
	}
	if axis < 0 {
		axis += len(shape)
	}
	if axis < 0 || axis >= len(shape) {
		return nil, fmt.Errorf("normalize: axis %d out of range for shape %v", axis, shape)
	}

	src, err := float64s(x)
	if err != nil {
		return nil, err
	}

	outer := shape[:axis].NumElements()
	size := shape[axis]
	inner := shape[axis+1:].NumElements()

	out := tensor.MustRaw(shape, tensor.Float32, x.Device())
	dst := out.AsFloat32()

	parallel.ForRange(outer*inner, func(start, end int) {
		vec := make([]float64, size)
		for k := start; k < end; k++ {
			base := (k/inner)*size*inner + k%inner
			for i := range vec {
				vec[i] = src[base+i*inner]
			}
			norm := floats.Norm(vec, 2)
			if norm == 0 {
				continue
			}
			for i, v := range vec {
				dst[base+i*inner] = float32(v / norm)
			}
		}
	}, parallel.DefaultConfig())

	return out, nil
}

// Rescale maps uint8 pixels to float32 in [0, 1] by dividing by 255.
func Rescale(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	if x.DType() != tensor.Uint8 {
		return nil, fmt.Errorf("rescale: expected uint8 input, got %s", x.DType())
	}
	out := tensor.MustRaw(x.Shape(), tensor.Float32, x.Device())
	dst := out.AsFloat32()
	for i, p := range x.AsUint8() {
		dst[i] = float32(p) / 255
	}
	return out, nil
}

func float64s(x *tensor.RawTensor) ([]float64, error) {
	out := make([]float64, x.NumElements())
	switch x.DType() {
	case tensor.Uint8:
		for i, v := range x.AsUint8() {
			out[i] = float64(v)
		}
	case tensor.Float32:
		for i, v := range x.AsFloat32() {
			out[i] = float64(v)
		}
	default:
		return nil, fmt.Errorf("normalize: unsupported dtype %s", x.DType())
	}
	return out, nil
}
