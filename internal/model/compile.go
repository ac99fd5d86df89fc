package model

import (
	"fmt"
	"strings"

	"github.com/born-ml/digits/internal/autodiff"
	"github.com/born-ml/digits/internal/metrics"
	"github.com/born-ml/digits/internal/nn"
	"github.com/born-ml/digits/internal/optim"
)

// LossSparseCategoricalCrossEntropy is the only supported loss.
const LossSparseCategoricalCrossEntropy = "sparse_categorical_crossentropy"

// CompileConfig binds the training choices to a model.
type CompileConfig struct {
	Optimizer optim.Config
	Loss      string   // default sparse_categorical_crossentropy
	Metrics   []string // e.g. ["accuracy"]
}

// Compile creates the optimizer over the model parameters and freezes the
// layer stack. No numeric work is done.
func (m *Model[B]) Compile(cfg CompileConfig) error {
	if m.net.Len() == 0 {
		return ErrEmptyModel
	}

	switch strings.ToLower(cfg.Loss) {
	case "", LossSparseCategoricalCrossEntropy:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownLoss, cfg.Loss)
	}

	names := make([]string, 0, len(cfg.Metrics))
	for _, name := range cfg.Metrics {
		canonical, err := metrics.Canonical(name)
		if err != nil {
			return err
		}
		names = append(names, canonical)
	}

	opt, err := optim.New(cfg.Optimizer, m.Parameters())
	if err != nil {
		return err
	}

	m.optimizer = opt
	m.loss = nn.NewSparseCategoricalCrossEntropy[*autodiff.AutodiffBackend[B]]()
	m.metrics = names
	m.compiled = true
	return nil
}

func (m *Model[B]) tracksAccuracy() bool {
	for _, name := range m.metrics {
		if name == metrics.Accuracy {
			return true
		}
	}
	return false
}
