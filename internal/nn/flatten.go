package nn

import (
	"fmt"

	"github.com/born-ml/digits/internal/tensor"
)

// Flatten reshapes [batch, d1, d2, ...] into [batch, d1*d2*...].
type Flatten[B tensor.Backend] struct{}

// NewFlatten creates a Flatten layer.
func NewFlatten[B tensor.Backend]() *Flatten[B] {
	return &Flatten[B]{}
}

// Forward flattens all but the batch dimension.
func (f *Flatten[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := input.Shape()
	if len(shape) < 1 {
		panic(fmt.Sprintf("Flatten.Forward: expected input with a batch dimension, got shape %v", shape))
	}
	if len(shape) == 2 {
		return input
	}
	return input.Reshape(shape[0], shape[1:].NumElements())
}

// Parameters returns nil.
func (f *Flatten[B]) Parameters() []*Parameter[B] {
	return nil
}

// Name returns "flatten".
func (f *Flatten[B]) Name() string {
	return "flatten"
}

// OutputShape returns [batch, features].
func (f *Flatten[B]) OutputShape(input tensor.Shape) (tensor.Shape, error) {
	if len(input) < 1 {
		return nil, fmt.Errorf("flatten: input shape %v has no batch dimension", input)
	}
	return tensor.Shape{input[0], input[1:].NumElements()}, nil
}
