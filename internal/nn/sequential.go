package nn

import (
	"fmt"

	"github.com/born-ml/digits/internal/tensor"
)

// Sequential chains modules so that each module's output becomes the next
// module's input.
//
//	model := nn.NewSequential(
//	    nn.NewFlatten[Backend](),
//	    nn.NewDense(784, 10, nn.ActivationSoftmax, backend, rng),
//	)
//	output := model.Forward(input)
type Sequential[B tensor.Backend] struct {
	modules []Module[B]
}

// NewSequential creates a new Sequential container.
func NewSequential[B tensor.Backend](modules ...Module[B]) *Sequential[B] {
	return &Sequential[B]{
		modules: modules,
	}
}

// Forward applies all modules in sequence.
func (s *Sequential[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	output := input
	for _, module := range s.modules {
		output = module.Forward(output)
	}
	return output
}

// Parameters returns the parameters of all modules in order.
func (s *Sequential[B]) Parameters() []*Parameter[B] {
	var params []*Parameter[B]
	for _, module := range s.modules {
		params = append(params, module.Parameters()...)
	}
	return params
}

// Name returns "sequential".
func (s *Sequential[B]) Name() string {
	return "sequential"
}

// OutputShape threads input through every module's OutputShape.
func (s *Sequential[B]) OutputShape(input tensor.Shape) (tensor.Shape, error) {
	shape := input
	for i, module := range s.modules {
		out, err := module.OutputShape(shape)
		if err != nil {
			return nil, fmt.Errorf("layer %d (%s): %w", i, module.Name(), err)
		}
		shape = out
	}
	return shape.Clone(), nil
}

// Add appends a module to the sequence.
func (s *Sequential[B]) Add(module Module[B]) {
	s.modules = append(s.modules, module)
}

// Len returns the number of modules.
func (s *Sequential[B]) Len() int {
	return len(s.modules)
}

// Module returns the module at index i.
func (s *Sequential[B]) Module(i int) Module[B] {
	return s.modules[i]
}

// Modules returns a copy of the module list.
func (s *Sequential[B]) Modules() []Module[B] {
	out := make([]Module[B], len(s.modules))
	copy(out, s.modules)
	return out
}
