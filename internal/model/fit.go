package model

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/rand"
	"time"

	"github.com/born-ml/digits/internal/autodiff"
	"github.com/born-ml/digits/internal/metrics"
	"github.com/born-ml/digits/internal/tensor"
)

// FitConfig controls a training run.
type FitConfig struct {
	BatchSize int
	Epochs    int
	Shuffle   bool  // reshuffle the samples every epoch
	Seed      int64 // shuffle seed; 0 picks a random seed
	Progress  io.Writer
}

// Fit trains the model on x [N, ...] float32 and y [N] uint8 or int32 labels.
//
// Each epoch visits every sample once in batches of BatchSize; the last
// batch of an epoch may be smaller. Cancellation of ctx is checked between
// batches. The returned history holds one entry per completed epoch, also
// when an error stops training early.
func (m *Model[B]) Fit(ctx context.Context, x, y *tensor.RawTensor, cfg FitConfig) (*metrics.History, error) {
	history := &metrics.History{}
	if !m.compiled {
		return history, ErrNotCompiled
	}
	if cfg.BatchSize <= 0 {
		return history, fmt.Errorf("%w: batch size %d", ErrInvalidConfig, cfg.BatchSize)
	}
	if cfg.Epochs <= 0 {
		return history, fmt.Errorf("%w: epochs %d", ErrInvalidConfig, cfg.Epochs)
	}

	labels, err := m.prepare(x, y)
	if err != nil {
		return history, err
	}

	n := x.Shape()[0]
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	rng := rand.New(rand.NewSource(shuffleSeed(cfg.Seed))) //nolint:gosec // shuffling
	steps := (n + cfg.BatchSize - 1) / cfg.BatchSize

	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		if cfg.Shuffle {
			rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
		}
		if cfg.Progress != nil {
			fmt.Fprintf(cfg.Progress, "Epoch %d/%d\n", epoch, cfg.Epochs)
		}

		logs, err := m.trainEpoch(ctx, x, labels, order, cfg.BatchSize)
		if err != nil {
			return history, fmt.Errorf("epoch %d: %w", epoch, err)
		}
		logs.Epoch = epoch
		history.Append(logs)

		if cfg.Progress != nil {
			line := fmt.Sprintf("%d/%d - %s %.0fµs/sample - loss: %.4f", steps, steps,
				logs.Duration.Round(time.Second), logs.MicrosPerSample, logs.Loss)
			if m.tracksAccuracy() {
				line += fmt.Sprintf(" - accuracy: %.4f", logs.Accuracy)
			}
			fmt.Fprintln(cfg.Progress, line)
		}
	}

	return history, nil
}

func shuffleSeed(seed int64) int64 {
	if seed == 0 {
		return time.Now().UnixNano()
	}
	return seed
}

func (m *Model[B]) trainEpoch(ctx context.Context, x, labels *tensor.RawTensor, order []int, batchSize int) (metrics.EpochLogs, error) {
	var (
		loss    metrics.Mean
		correct int
		start   = time.Now()
	)

	for lo := 0; lo < len(order); lo += batchSize {
		if err := ctx.Err(); err != nil {
			return metrics.EpochLogs{}, err
		}

		idx := order[lo:min(lo+batchSize, len(order))]
		xb, err := x.Gather(idx)
		if err != nil {
			return metrics.EpochLogs{}, err
		}
		yb, err := labels.Gather(idx)
		if err != nil {
			return metrics.EpochLogs{}, err
		}

		value, probs := m.trainStep(xb, yb)
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return metrics.EpochLogs{}, fmt.Errorf("%w: %v at batch %d", ErrNonFiniteLoss, value, lo/batchSize)
		}

		loss.Add(value, float64(len(idx)))
		correct += metrics.SparseCategoricalAccuracy(probs, yb)
	}

	elapsed := time.Since(start)
	return metrics.EpochLogs{
		Loss:            loss.Result(),
		Accuracy:        float64(correct) / float64(len(order)),
		Samples:         len(order),
		Duration:        elapsed,
		MicrosPerSample: float64(elapsed.Microseconds()) / float64(len(order)),
	}, nil
}

// trainStep runs forward and backward passes on one batch and applies the
// optimizer. It returns the batch loss and the predicted probabilities.
// Parameter gradients of the batch stay attached until the next step.
func (m *Model[B]) trainStep(xb, yb *tensor.RawTensor) (float64, *tensor.RawTensor) {
	m.optimizer.ZeroGrad()

	tape := m.backend.Tape()
	tape.Clear()
	tape.StartRecording()

	input := tensor.New[float32](xb, m.backend)
	targets := tensor.New[int32](yb, m.backend)

	probs := m.net.Forward(input)
	loss := m.loss.Forward(probs, targets)
	value := float64(loss.Data()[0])

	grads := autodiff.Backward(loss, m.backend)
	tape.StopRecording()
	tape.Clear()

	for _, p := range m.Parameters() {
		if g, ok := grads[p.Tensor().Raw()]; ok {
			p.SetGrad(tensor.New[float32](g, m.backend))
		}
	}
	m.optimizer.Step(grads)

	return value, probs.Raw()
}

// prepare validates x and y against the model and returns int32 labels.
func (m *Model[B]) prepare(x, y *tensor.RawTensor) (*tensor.RawTensor, error) {
	xs, ys := x.Shape(), y.Shape()
	if x.DType() != tensor.Float32 {
		return nil, fmt.Errorf("%w: inputs must be float32, got %s", ErrShapeMismatch, x.DType())
	}
	if len(xs) < 2 {
		return nil, fmt.Errorf("%w: inputs need a batch dimension, got %v", ErrShapeMismatch, xs)
	}
	if len(ys) != 1 || ys[0] != xs[0] {
		return nil, fmt.Errorf("%w: %d samples but labels have shape %v", ErrShapeMismatch, xs[0], ys)
	}

	if m.inputShape == nil {
		if err := m.Build(xs[1:]); err != nil {
			return nil, err
		}
	} else if !m.inputShape.Equal(xs[1:]) {
		return nil, fmt.Errorf("%w: model expects samples of shape %v, got %v", ErrShapeMismatch, m.inputShape, xs[1:])
	}

	out, err := m.OutputShape()
	if err != nil {
		return nil, err
	}
	classes := out.NumElements()

	labels := y.Convert(tensor.Int32)
	for i, v := range labels.AsInt32() {
		if v < 0 || int(v) >= classes {
			return nil, fmt.Errorf("%w: label %d at index %d outside [0, %d)", ErrShapeMismatch, v, i, classes)
		}
	}
	return labels, nil
}
