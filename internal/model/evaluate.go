package model

import (
	"context"
	"fmt"
	"time"

	"github.com/born-ml/digits/internal/metrics"
	"github.com/born-ml/digits/internal/tensor"
)

// DefaultEvalBatchSize is used when Evaluate or Predict get a batch size <= 0.
const DefaultEvalBatchSize = 32

// Evaluate computes the mean loss and accuracy on x and y without updating
// the weights. Accuracy is the fraction of samples whose most probable class
// matches the label.
func (m *Model[B]) Evaluate(ctx context.Context, x, y *tensor.RawTensor, batchSize int) (metrics.Result, error) {
	if !m.compiled {
		return metrics.Result{}, ErrNotCompiled
	}
	labels, err := m.prepare(x, y)
	if err != nil {
		return metrics.Result{}, err
	}

	var (
		loss    metrics.Mean
		correct int
		start   = time.Now()
		n       = x.Shape()[0]
	)

	err = m.forEachBatch(ctx, x, batchSize, func(lo, hi int, probs *tensor.Tensor[float32, *autodiffBackend[B]]) error {
		yb, err := labels.Rows(lo, hi)
		if err != nil {
			return err
		}
		value := m.loss.Forward(probs, tensor.New[int32](yb, m.backend)).Data()[0]
		loss.Add(float64(value), float64(hi-lo))
		correct += metrics.SparseCategoricalAccuracy(probs.Raw(), yb)
		return nil
	})
	if err != nil {
		return metrics.Result{}, err
	}

	return metrics.Result{
		Loss:     loss.Result(),
		Accuracy: float64(correct) / float64(n),
		Samples:  n,
		Duration: time.Since(start),
	}, nil
}

// Predict returns class probabilities [N, classes] for x.
func (m *Model[B]) Predict(ctx context.Context, x *tensor.RawTensor, batchSize int) (*tensor.RawTensor, error) {
	xs := x.Shape()
	if x.DType() != tensor.Float32 || len(xs) < 2 {
		return nil, fmt.Errorf("%w: expected float32 inputs [N, ...], got %s %v", ErrShapeMismatch, x.DType(), xs)
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
	result := tensor.MustRaw(tensor.Shape{xs[0], classes}, tensor.Float32, m.backend.Device())
	dst := result.AsFloat32()

	err = m.forEachBatch(ctx, x, batchSize, func(lo, _ int, probs *tensor.Tensor[float32, *autodiffBackend[B]]) error {
		copy(dst[lo*classes:], probs.Data())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// forEachBatch runs the forward pass over consecutive batches of x with the
// tape paused and hands each batch's output to fn.
func (m *Model[B]) forEachBatch(ctx context.Context, x *tensor.RawTensor, batchSize int,
	fn func(lo, hi int, probs *tensor.Tensor[float32, *autodiffBackend[B]]) error,
) error {
	if batchSize <= 0 {
		batchSize = DefaultEvalBatchSize
	}

	tape := m.backend.Tape()
	wasRecording := tape.IsRecording()
	tape.StopRecording()
	defer func() {
		if wasRecording {
			tape.StartRecording()
		}
	}()

	n := x.Shape()[0]
	for lo := 0; lo < n; lo += batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		hi := min(lo+batchSize, n)
		xb, err := x.Rows(lo, hi)
		if err != nil {
			return err
		}
		probs := m.net.Forward(tensor.New[float32](xb, m.backend))
		if err := fn(lo, hi, probs); err != nil {
			return err
		}
	}
	return nil
}
