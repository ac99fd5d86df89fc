// Package nn implements the neural network building blocks used by the
// digit classifier:
//   - Module interface: base interface for all layers
//   - Parameter: trainable tensors with gradient tracking
//   - Dense: fully connected layer with a fused activation
//   - Flatten, ReLU, Softmax: parameter-free layers
//   - Sequential: container for stacking layers
//   - SparseCategoricalCrossEntropy: loss on class probabilities
package nn

import (
	"github.com/born-ml/digits/internal/tensor"
)

// Module is the base interface for all neural network components.
//
// Modules can be composed to build complex architectures:
//
//	model := nn.NewSequential[Backend](
//	    nn.NewFlatten[Backend](),
//	    nn.NewDense(784, 100, nn.ActivationReLU, backend, rng),
//	    nn.NewDense(100, 10, nn.ActivationSoftmax, backend, rng),
//	)
type Module[B tensor.Backend] interface {
	// Forward computes the output of the module given an input tensor.
	Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]

	// Parameters returns all trainable parameters of this module.
	// Parameter-free modules return nil.
	Parameters() []*Parameter[B]

	// Name returns a short layer name used in summaries.
	Name() string

	// OutputShape returns the output shape for an input of the given shape,
	// batch dimension included, or an error if the input is incompatible.
	OutputShape(input tensor.Shape) (tensor.Shape, error)
}

// CountParameters returns the total number of trainable scalars in params.
func CountParameters[B tensor.Backend](params []*Parameter[B]) int {
	n := 0
	for _, p := range params {
		n += p.Tensor().NumElements()
	}
	return n
}
