// Package optim implements the optimizers used to train the classifier:
//   - SGD: stochastic gradient descent with optional momentum
//   - Adam: adaptive moment estimation
//
// Optimizers consume the gradient map produced by autodiff.Backward and
// update parameter tensors in place:
//
//	backend.Tape().StartRecording()
//	probs := model.Forward(input)
//	loss := lossFn.Forward(probs, labels)
//	grads := autodiff.Backward(loss, backend)
//	backend.Tape().StopRecording()
//
//	optimizer.Step(grads)
//	optimizer.ZeroGrad()
package optim

import (
	"errors"
	"fmt"
	"strings"

	"github.com/born-ml/digits/internal/nn"
	"github.com/born-ml/digits/internal/tensor"
)

// ErrUnknownOptimizer is returned by New for an unsupported optimizer name.
var ErrUnknownOptimizer = errors.New("unknown optimizer")

// Optimizer updates model parameters from computed gradients.
type Optimizer interface {
	// Step applies one update to every parameter present in grads.
	// Parameters missing from the map are left untouched.
	Step(grads map[*tensor.RawTensor]*tensor.RawTensor)

	// ZeroGrad clears all parameter gradients.
	ZeroGrad()

	// GetLR returns the current learning rate.
	GetLR() float32

	// Name returns the Keras name of the optimizer.
	Name() string
}

// Config selects and configures an optimizer by name.
type Config struct {
	Name     string  // "sgd" or "adam"
	LR       float32 // learning rate; 0 selects the optimizer default
	Momentum float32 // SGD only
}

// New builds the optimizer described by cfg over params.
func New[B tensor.Backend](cfg Config, params []*nn.Parameter[B]) (Optimizer, error) {
	switch strings.ToLower(cfg.Name) {
	case "", "sgd":
		return NewSGD(params, SGDConfig{LR: cfg.LR, Momentum: cfg.Momentum}), nil
	case "adam":
		return NewAdam(params, AdamConfig{LR: cfg.LR}), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOptimizer, cfg.Name)
	}
}

// getGradient returns the gradient of param, or nil if param was not part
// of the computation graph.
func getGradient[B tensor.Backend](param *nn.Parameter[B], grads map[*tensor.RawTensor]*tensor.RawTensor) []float32 {
	if param == nil {
		return nil
	}
	g, ok := grads[param.Tensor().Raw()]
	if !ok {
		return nil
	}
	return g.AsFloat32()
}
