package metrics_test

import (
	"testing"
	"time"

	"github.com/born-ml/digits/internal/metrics"
	"github.com/born-ml/digits/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSparseCategoricalAccuracy(t *testing.T) {
	probs := tensor.MustRaw(tensor.Shape{4, 3}, tensor.Float32, tensor.CPU)
	copy(probs.AsFloat32(), []float32{
		0.1, 0.8, 0.1,
		0.6, 0.2, 0.2,
		0.3, 0.3, 0.4,
		0.5, 0.5, 0.0, // tie resolves to class 0
	})

	labels := tensor.MustRaw(tensor.Shape{4}, tensor.Int32, tensor.CPU)
	copy(labels.AsInt32(), []int32{1, 0, 0, 0})
	assert.Equal(t, 3, metrics.SparseCategoricalAccuracy(probs, labels))

	u8 := tensor.MustRaw(tensor.Shape{4}, tensor.Uint8, tensor.CPU)
	copy(u8.AsUint8(), []uint8{2, 2, 2, 1})
	assert.Equal(t, 1, metrics.SparseCategoricalAccuracy(probs, u8))

	short := tensor.MustRaw(tensor.Shape{3}, tensor.Int32, tensor.CPU)
	assert.Panics(t, func() { metrics.SparseCategoricalAccuracy(probs, short) })
}

func TestCanonical(t *testing.T) {
	for _, name := range []string{"accuracy", "acc", "sparse_categorical_accuracy", "Accuracy"} {
		got, err := metrics.Canonical(name)
		require.NoError(t, err)
		assert.Equal(t, metrics.Accuracy, got)
	}
	_, err := metrics.Canonical("f1")
	assert.ErrorIs(t, err, metrics.ErrUnknownMetric)
}

func TestMean_Weighted(t *testing.T) {
	var m metrics.Mean
	assert.Zero(t, m.Result())

	m.Add(1.0, 8)
	m.Add(2.0, 8)
	m.Add(4.0, 4) // short final batch
	assert.Equal(t, 3, m.Count())
	assert.InDelta(t, (8+16+16)/20.0, m.Result(), 1e-12)

	m.Reset()
	assert.Zero(t, m.Count())
	assert.Zero(t, m.Result())
}

func TestHistory(t *testing.T) {
	var h metrics.History
	_, ok := h.Last()
	assert.False(t, ok)

	h.Append(metrics.EpochLogs{Epoch: 1, Loss: 0.9, Accuracy: 0.7, Samples: 100, Duration: time.Second, MicrosPerSample: 10000})
	h.Append(metrics.EpochLogs{Epoch: 2, Loss: 0.4, Accuracy: 0.9})

	assert.Equal(t, 2, h.Len())
	assert.Equal(t, []float64{0.9, 0.4}, h.Losses())
	assert.Equal(t, []float64{0.7, 0.9}, h.Accuracies())

	last, ok := h.Last()
	require.True(t, ok)
	assert.Equal(t, 2, last.Epoch)
	assert.Contains(t, h.Epochs[0].String(), "loss=0.9000")
}

func TestResult_MicrosPerSample(t *testing.T) {
	r := metrics.Result{Samples: 4, Duration: 2 * time.Millisecond}
	assert.InDelta(t, 500.0, r.MicrosPerSample(), 1e-9)
	assert.Zero(t, metrics.Result{}.MicrosPerSample())
}
