package nn

import (
	"fmt"
	"strings"

	"github.com/born-ml/digits/internal/tensor"
)

// Activation selects the function a Dense layer applies to its output.
type Activation int

// Supported activations.
const (
	ActivationLinear Activation = iota
	ActivationReLU
	ActivationSoftmax
)

// String returns the Keras name of the activation.
func (a Activation) String() string {
	switch a {
	case ActivationLinear:
		return "linear"
	case ActivationReLU:
		return "relu"
	case ActivationSoftmax:
		return "softmax"
	default:
		return fmt.Sprintf("Activation(%d)", int(a))
	}
}

// ParseActivation maps a Keras activation name to an Activation.
func ParseActivation(name string) (Activation, error) {
	switch strings.ToLower(name) {
	case "", "linear":
		return ActivationLinear, nil
	case "relu":
		return ActivationReLU, nil
	case "softmax":
		return ActivationSoftmax, nil
	default:
		return 0, fmt.Errorf("unknown activation %q", name)
	}
}

// ReLU is a Rectified Linear Unit activation module: f(x) = max(0, x).
type ReLU[B tensor.Backend] struct{}

// NewReLU creates a new ReLU activation module.
func NewReLU[B tensor.Backend]() *ReLU[B] {
	return &ReLU[B]{}
}

// Forward applies max(0, x).
func (r *ReLU[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return input.ReLU()
}

// Parameters returns nil.
func (r *ReLU[B]) Parameters() []*Parameter[B] {
	return nil
}

// Name returns "relu".
func (r *ReLU[B]) Name() string {
	return "relu"
}

// OutputShape returns input unchanged.
func (r *ReLU[B]) OutputShape(input tensor.Shape) (tensor.Shape, error) {
	return input.Clone(), nil
}

// Softmax normalizes the last dimension into a probability distribution.
type Softmax[B tensor.Backend] struct{}

// NewSoftmax creates a new Softmax activation module.
func NewSoftmax[B tensor.Backend]() *Softmax[B] {
	return &Softmax[B]{}
}

// Forward applies softmax along the last dimension.
func (s *Softmax[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return input.Softmax(-1)
}

// Parameters returns nil.
func (s *Softmax[B]) Parameters() []*Parameter[B] {
	return nil
}

// Name returns "softmax".
func (s *Softmax[B]) Name() string {
	return "softmax"
}

// OutputShape returns input unchanged.
func (s *Softmax[B]) OutputShape(input tensor.Shape) (tensor.Shape, error) {
	return input.Clone(), nil
}
