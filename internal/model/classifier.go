package model

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/born-ml/digits/internal/autodiff"
	"github.com/born-ml/digits/internal/nn"
	"github.com/born-ml/digits/internal/tensor"
)

// ClassifierConfig describes a flatten → dense(relu)… → dense(softmax) stack.
// Zero fields take the MNIST defaults.
type ClassifierConfig struct {
	Input   []int // per-sample input shape, default [28, 28]
	Hidden  []int // hidden layer widths, default [100, 100]
	Classes int   // output units, default 10
	Seed    int64 // weight initialization seed; 0 picks a random seed
}

func (c ClassifierConfig) withDefaults() ClassifierConfig {
	if len(c.Input) == 0 {
		c.Input = []int{28, 28}
	}
	if len(c.Hidden) == 0 {
		c.Hidden = []int{100, 100}
	}
	if c.Classes == 0 {
		c.Classes = 10
	}
	if c.Seed == 0 {
		c.Seed = time.Now().UnixNano()
	}
	return c
}

// NewClassifier builds Flatten → Dense(h, relu) for each hidden width →
// Dense(classes, softmax). Every call returns a freshly initialized model.
func NewClassifier[B tensor.Backend](backend *autodiff.AutodiffBackend[B], cfg ClassifierConfig) (*Model[B], error) {
	cfg = cfg.withDefaults()

	input := tensor.Shape(cfg.Input)
	if err := input.Validate(); err != nil {
		return nil, fmt.Errorf("%w: input shape %v: %w", ErrInvalidConfig, cfg.Input, err)
	}
	if cfg.Classes < 2 {
		return nil, fmt.Errorf("%w: need at least 2 classes, got %d", ErrInvalidConfig, cfg.Classes)
	}
	for _, h := range cfg.Hidden {
		if h <= 0 {
			return nil, fmt.Errorf("%w: hidden width %d", ErrInvalidConfig, h)
		}
	}

	rng := rand.New(rand.NewSource(cfg.Seed)) //nolint:gosec // weight initialization

	m := New[B](backend, nn.NewFlatten[*autodiff.AutodiffBackend[B]]())
	in := input.NumElements()
	for _, h := range cfg.Hidden {
		if err := m.Add(nn.NewDense(in, h, nn.ActivationReLU, backend, rng)); err != nil {
			return nil, err
		}
		in = h
	}
	if err := m.Add(nn.NewDense(in, cfg.Classes, nn.ActivationSoftmax, backend, rng)); err != nil {
		return nil, err
	}

	if err := m.Build(input); err != nil {
		return nil, err
	}
	return m, nil
}
