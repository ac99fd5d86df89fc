package nn

import (
	"fmt"
	"math/rand"

	"github.com/born-ml/digits/internal/tensor"
)

// Dense implements a fully connected layer with a fused activation.
//
// Performs y = activation(x @ W + b) where:
//   - x has shape [batch_size, in_features]
//   - W (the kernel) has shape [in_features, units]
//   - b has shape [units]
//
// The kernel is stored input-major like a Keras Dense kernel, so no
// transpose is needed in the forward pass. Kernels use Glorot uniform
// initialization and biases start at zero.
//
//	layer := nn.NewDense(784, 100, nn.ActivationReLU, backend, rng)
//	output := layer.Forward(input) // [batch, 100]
type Dense[B tensor.Backend] struct {
	inFeatures int
	units      int
	activation Activation
	kernel     *Parameter[B]
	bias       *Parameter[B]
}

// NewDense creates a Dense layer mapping inFeatures to units.
func NewDense[B tensor.Backend](inFeatures, units int, activation Activation, backend B, rng *rand.Rand) *Dense[B] {
	if inFeatures <= 0 || units <= 0 {
		panic(fmt.Sprintf("NewDense: invalid dimensions %d -> %d", inFeatures, units))
	}

	kernel := GlorotUniform(inFeatures, units, tensor.Shape{inFeatures, units}, backend, rng)
	bias := Zeros(tensor.Shape{units}, backend)

	return &Dense[B]{
		inFeatures: inFeatures,
		units:      units,
		activation: activation,
		kernel:     NewParameter("kernel", kernel),
		bias:       NewParameter("bias", bias),
	}
}

// Forward computes activation(x @ W + b).
func (d *Dense[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	inputShape := input.Shape()
	if len(inputShape) != 2 {
		panic(fmt.Sprintf("Dense.Forward: expected 2D input [batch, features], got shape %v", inputShape))
	}
	if inputShape[1] != d.inFeatures {
		panic(fmt.Sprintf("Dense.Forward: expected input with %d features, got %d", d.inFeatures, inputShape[1]))
	}

	// [batch, in] @ [in, units] + [units] broadcasts over the batch.
	output := input.MatMul(d.kernel.Tensor()).Add(d.bias.Tensor())

	switch d.activation {
	case ActivationReLU:
		output = output.ReLU()
	case ActivationSoftmax:
		output = output.Softmax(-1)
	}
	return output
}

// Parameters returns [kernel, bias].
func (d *Dense[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{d.kernel, d.bias}
}

// Name returns "dense".
func (d *Dense[B]) Name() string {
	return "dense"
}

// OutputShape returns [batch, units].
func (d *Dense[B]) OutputShape(input tensor.Shape) (tensor.Shape, error) {
	if len(input) != 2 || input[1] != d.inFeatures {
		return nil, fmt.Errorf("dense: expected input [batch, %d], got %v", d.inFeatures, input)
	}
	return tensor.Shape{input[0], d.units}, nil
}

// Kernel returns the weight parameter.
func (d *Dense[B]) Kernel() *Parameter[B] {
	return d.kernel
}

// Bias returns the bias parameter.
func (d *Dense[B]) Bias() *Parameter[B] {
	return d.bias
}

// InFeatures returns the number of input features.
func (d *Dense[B]) InFeatures() int {
	return d.inFeatures
}

// Units returns the number of output units.
func (d *Dense[B]) Units() int {
	return d.units
}

// Activation returns the fused activation.
func (d *Dense[B]) Activation() Activation {
	return d.activation
}
