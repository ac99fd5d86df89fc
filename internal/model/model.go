// Package model assembles nn layers into a trainable classifier with a
// Keras-like lifecycle: build the layer stack, compile it with an optimizer,
// loss and metrics, then fit, evaluate and predict.
//
//	backend := autodiff.New(cpu.New())
//	m, err := model.NewClassifier(backend, model.ClassifierConfig{Seed: 1})
//	err = m.Compile(model.CompileConfig{
//	    Optimizer: optim.Config{Name: "sgd", LR: 0.1},
//	    Loss:      "sparse_categorical_crossentropy",
//	    Metrics:   []string{"accuracy"},
//	})
//	history, err := m.Fit(ctx, x, y, model.FitConfig{BatchSize: 8, Epochs: 4, Shuffle: true})
//	result, err := m.Evaluate(ctx, xTest, yTest, 32)
package model

import (
	"errors"
	"fmt"

	"github.com/born-ml/digits/internal/autodiff"
	"github.com/born-ml/digits/internal/nn"
	"github.com/born-ml/digits/internal/optim"
	"github.com/born-ml/digits/internal/tensor"
)

var (
	// ErrCompiled is returned when the layer stack is changed after Compile.
	ErrCompiled = errors.New("model: already compiled")
	// ErrNotCompiled is returned by Fit and Evaluate before Compile.
	ErrNotCompiled = errors.New("model: not compiled")
	// ErrNotBuilt is returned when the input shape is unknown.
	ErrNotBuilt = errors.New("model: input shape unknown")
	// ErrEmptyModel is returned when compiling a model without layers.
	ErrEmptyModel = errors.New("model: no layers")
	// ErrUnknownLoss is returned by Compile for an unsupported loss name.
	ErrUnknownLoss = errors.New("model: unknown loss")
	// ErrShapeMismatch is returned when inputs, labels or layers disagree.
	ErrShapeMismatch = errors.New("model: shape mismatch")
	// ErrNonFiniteLoss is returned by Fit when training diverges.
	ErrNonFiniteLoss = errors.New("model: loss is not finite")
	// ErrInvalidConfig is returned for non-positive batch sizes or epochs.
	ErrInvalidConfig = errors.New("model: invalid configuration")
)

type autodiffBackend[B tensor.Backend] = autodiff.AutodiffBackend[B]

// Layer is a module running on the autodiff backend.
type Layer[B tensor.Backend] = nn.Module[*autodiff.AutodiffBackend[B]]

// Model is an ordered stack of layers trained with gradient descent.
type Model[B tensor.Backend] struct {
	backend *autodiff.AutodiffBackend[B]
	net     *nn.Sequential[*autodiff.AutodiffBackend[B]]

	inputShape tensor.Shape // per-sample shape, nil until built

	compiled  bool
	optimizer optim.Optimizer
	loss      *nn.SparseCategoricalCrossEntropy[*autodiff.AutodiffBackend[B]]
	metrics   []string
}

// New creates an uncompiled model from layers.
func New[B tensor.Backend](backend *autodiff.AutodiffBackend[B], layers ...Layer[B]) *Model[B] {
	return &Model[B]{
		backend: backend,
		net:     nn.NewSequential(layers...),
	}
}

// Add appends a layer. Layers can only be added before Compile.
func (m *Model[B]) Add(layer Layer[B]) error {
	if m.compiled {
		return ErrCompiled
	}
	m.net.Add(layer)
	if m.inputShape != nil {
		if err := m.Build(m.inputShape); err != nil {
			m.inputShape = nil
			return err
		}
	}
	return nil
}

// Build records the per-sample input shape and checks that every layer
// accepts the output of the previous one.
func (m *Model[B]) Build(inputShape tensor.Shape) error {
	if _, err := m.net.OutputShape(withBatch(inputShape)); err != nil {
		return fmt.Errorf("%w: %w", ErrShapeMismatch, err)
	}
	m.inputShape = inputShape.Clone()
	return nil
}

// InputShape returns the per-sample input shape, or nil if not built.
func (m *Model[B]) InputShape() tensor.Shape {
	return m.inputShape.Clone()
}

// OutputShape returns the per-sample output shape.
func (m *Model[B]) OutputShape() (tensor.Shape, error) {
	if m.inputShape == nil {
		return nil, ErrNotBuilt
	}
	out, err := m.net.OutputShape(withBatch(m.inputShape))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrShapeMismatch, err)
	}
	return out[1:], nil
}

// Layers returns the layers in order.
func (m *Model[B]) Layers() []Layer[B] {
	return m.net.Modules()
}

// Parameters returns all trainable parameters.
func (m *Model[B]) Parameters() []*nn.Parameter[*autodiff.AutodiffBackend[B]] {
	return m.net.Parameters()
}

// Backend returns the autodiff backend the model runs on.
func (m *Model[B]) Backend() *autodiff.AutodiffBackend[B] {
	return m.backend
}

// Compiled reports whether Compile has succeeded.
func (m *Model[B]) Compiled() bool {
	return m.compiled
}

// Optimizer returns the optimizer bound by Compile, or nil.
func (m *Model[B]) Optimizer() optim.Optimizer {
	return m.optimizer
}

// withBatch prepends an unknown batch dimension of 1.
func withBatch(shape tensor.Shape) tensor.Shape {
	return append(tensor.Shape{1}, shape...)
}
