// Package app runs the digit classification pipeline end to end: load the
// dataset, normalize it, build and compile the classifier, train it,
// evaluate it and print the test accuracy.
package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/born-ml/digits/internal/autodiff"
	"github.com/born-ml/digits/internal/backend/cpu"
	"github.com/born-ml/digits/internal/config"
	"github.com/born-ml/digits/internal/metrics"
	"github.com/born-ml/digits/internal/mnist"
	"github.com/born-ml/digits/internal/model"
	"github.com/born-ml/digits/internal/nn"
	"github.com/born-ml/digits/internal/optim"
	"github.com/born-ml/digits/internal/report"
	"github.com/born-ml/digits/internal/tensor"
)

// Seeds of the synthetic partitions; fixed so runs differ only in weights.
const (
	syntheticTrainSeed = 1
	syntheticTestSeed  = 2
)

// Report summarizes a finished run.
type Report struct {
	Backend      string
	TrainSamples int
	TestSamples  int
	Parameters   int
	History      *metrics.History
	Test         metrics.Result
	Duration     time.Duration
}

// Accuracy returns the test accuracy in [0, 1].
func (r Report) Accuracy() float64 {
	return r.Test.Accuracy
}

// Run executes the pipeline described by cfg and writes the final
// "Accuracy: <value>" line to out. Diagnostics go to the standard logger
// unless cfg.Output.Quiet is set.
func Run(ctx context.Context, cfg config.Config, out io.Writer) (Report, error) {
	if err := cfg.Validate(); err != nil {
		return Report{}, fmt.Errorf("invalid config: %w", err)
	}

	start := time.Now()
	logf := log.Printf
	var progress io.Writer = log.Writer()
	if cfg.Output.Quiet {
		logf = func(string, ...any) {}
		progress = nil
	}

	inner := cpu.New()
	backend := autodiff.New(inner)
	logf("backend=%s %s", backend.Name(), inner.Info())

	train, test, err := loadData(ctx, cfg.Data, logf)
	if err != nil {
		return Report{}, err
	}
	logf("train=%d test=%d normalization=%s", train.Len(), test.Len(), cfg.Data.Normalization)

	xTrain, err := normalize(train.Images, cfg.Data)
	if err != nil {
		return Report{}, fmt.Errorf("normalizing training images: %w", err)
	}
	xTest, err := normalize(test.Images, cfg.Data)
	if err != nil {
		return Report{}, fmt.Errorf("normalizing test images: %w", err)
	}

	m, err := model.NewClassifier(backend, model.ClassifierConfig{
		Input:   []int{mnist.ImageRows, mnist.ImageCols},
		Hidden:  cfg.Model.Hidden,
		Classes: mnist.NumClasses,
		Seed:    cfg.Model.Seed,
	})
	if err != nil {
		return Report{}, fmt.Errorf("building model: %w", err)
	}
	if cfg.Output.Summary && progress != nil {
		if err := m.Summary(progress); err != nil {
			return Report{}, err
		}
	}

	err = m.Compile(model.CompileConfig{
		Optimizer: optim.Config{
			Name:     cfg.Train.Optimizer,
			LR:       float32(cfg.Train.LearningRate),
			Momentum: float32(cfg.Train.Momentum),
		},
		Loss:    model.LossSparseCategoricalCrossEntropy,
		Metrics: []string{metrics.Accuracy},
	})
	if err != nil {
		return Report{}, fmt.Errorf("compiling model: %w", err)
	}

	history, err := m.Fit(ctx, xTrain, train.Labels, model.FitConfig{
		BatchSize: cfg.Train.BatchSize,
		Epochs:    cfg.Train.Epochs,
		Shuffle:   cfg.Train.Shuffle,
		Seed:      cfg.Train.Seed,
		Progress:  progress,
	})
	if err != nil {
		return Report{}, fmt.Errorf("training: %w", err)
	}

	result, err := m.Evaluate(ctx, xTest, test.Labels, cfg.Train.EvalBatchSize)
	if err != nil {
		return Report{}, fmt.Errorf("evaluating: %w", err)
	}
	logf("test loss=%.4f accuracy=%.4f (%.1fµs/sample)", result.Loss, result.Accuracy, result.MicrosPerSample())

	if _, err := fmt.Fprintf(out, "Accuracy: %.4f\n", result.Accuracy); err != nil {
		return Report{}, err
	}

	if cfg.Output.Plot != "" {
		if err := report.PlotHistory(history, cfg.Output.Plot); err != nil {
			return Report{}, err
		}
		logf("wrote training curves to %s", cfg.Output.Plot)
	}

	return Report{
		Backend:      backend.Name(),
		TrainSamples: train.Len(),
		TestSamples:  test.Len(),
		Parameters:   nn.CountParameters(m.Parameters()),
		History:      history,
		Test:         result,
		Duration:     time.Since(start),
	}, nil
}

func loadData(ctx context.Context, cfg config.DataConfig, logf func(string, ...any)) (train, test *mnist.Set, err error) {
	if cfg.Synthetic {
		train = mnist.Synthetic(cfg.SyntheticTrain, syntheticTrainSeed)
		test = mnist.Synthetic(cfg.SyntheticTest, syntheticTestSeed)
	} else {
		cacheDir := cfg.CacheDir
		if cacheDir == "" {
			cacheDir = mnist.DefaultCacheDir()
		}
		train, test, err = mnist.Load(ctx, mnist.Options{
			Dir:             cfg.Dir,
			CacheDir:        cacheDir,
			BaseURL:         cfg.BaseURL,
			Download:        cfg.Download,
			VerifyChecksums: cfg.VerifyChecksums,
			Logf:            logf,
		})
		if err != nil {
			return nil, nil, err
		}
	}

	if train, err = train.Limit(cfg.Samples); err != nil {
		return nil, nil, err
	}
	if test, err = test.Limit(cfg.TestSamples); err != nil {
		return nil, nil, err
	}
	return train, test, nil
}

func normalize(images *tensor.RawTensor, cfg config.DataConfig) (*tensor.RawTensor, error) {
	if cfg.Normalization == config.NormRescale {
		return mnist.Rescale(images)
	}
	return mnist.Normalize(images, cfg.Axis)
}
