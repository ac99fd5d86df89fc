package model_test

import (
	"bytes"
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/born-ml/digits/internal/autodiff"
	"github.com/born-ml/digits/internal/backend/cpu"
	"github.com/born-ml/digits/internal/metrics"
	"github.com/born-ml/digits/internal/mnist"
	"github.com/born-ml/digits/internal/model"
	"github.com/born-ml/digits/internal/nn"
	"github.com/born-ml/digits/internal/optim"
	"github.com/born-ml/digits/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type backendType = *autodiff.AutodiffBackend[*cpu.CPUBackend]

var compileSGD = model.CompileConfig{
	Optimizer: optim.Config{Name: "sgd", LR: 0.1},
	Loss:      model.LossSparseCategoricalCrossEntropy,
	Metrics:   []string{"accuracy"},
}

func dataset(t *testing.T, n int, seed int64) (x, y *tensor.RawTensor) {
	t.Helper()
	set := mnist.Synthetic(n, seed)
	x, err := mnist.Normalize(set.Images, 1)
	require.NoError(t, err)
	return x, set.Labels
}

func newClassifier(t *testing.T, seed int64) *model.Model[*cpu.CPUBackend] {
	t.Helper()
	m, err := model.NewClassifier(autodiff.New(cpu.New()), model.ClassifierConfig{Seed: seed})
	require.NoError(t, err)
	return m
}

func TestNewClassifier_Architecture(t *testing.T) {
	m := newClassifier(t, 1)

	layers := m.Layers()
	require.Len(t, layers, 4)
	assert.Equal(t, "flatten", layers[0].Name())

	widths := []int{100, 100, 10}
	activations := []nn.Activation{nn.ActivationReLU, nn.ActivationReLU, nn.ActivationSoftmax}
	for i, layer := range layers[1:] {
		dense, ok := layer.(*nn.Dense[backendType])
		require.True(t, ok, "layer %d is %T", i+1, layer)
		assert.Equal(t, widths[i], dense.Units())
		assert.Equal(t, activations[i], dense.Activation())
	}

	out, err := m.OutputShape()
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{10}, out)
	assert.Equal(t, tensor.Shape{28, 28}, m.InputShape())
	assert.Equal(t, 89610, nn.CountParameters(m.Parameters()))
}

func TestNewClassifier_FreshWeights(t *testing.T) {
	a, b := newClassifier(t, 1), newClassifier(t, 2)
	assert.NotEqual(t, a.Parameters()[0].Tensor().Data(), b.Parameters()[0].Tensor().Data())

	c := newClassifier(t, 1)
	assert.Equal(t, a.Parameters()[0].Tensor().Data(), c.Parameters()[0].Tensor().Data())
	assert.NotSame(t, a.Parameters()[0], c.Parameters()[0])
}

func TestNewClassifier_InvalidConfig(t *testing.T) {
	backend := autodiff.New(cpu.New())
	_, err := model.NewClassifier(backend, model.ClassifierConfig{Hidden: []int{100, 0}})
	assert.ErrorIs(t, err, model.ErrInvalidConfig)

	_, err = model.NewClassifier(backend, model.ClassifierConfig{Classes: 1})
	assert.ErrorIs(t, err, model.ErrInvalidConfig)
}

func TestCompile(t *testing.T) {
	m := newClassifier(t, 1)
	assert.False(t, m.Compiled())

	err := m.Compile(model.CompileConfig{Metrics: []string{"f1"}})
	assert.ErrorIs(t, err, metrics.ErrUnknownMetric)

	err = m.Compile(model.CompileConfig{Loss: "mse"})
	assert.ErrorIs(t, err, model.ErrUnknownLoss)

	err = m.Compile(model.CompileConfig{Optimizer: optim.Config{Name: "lbfgs"}})
	assert.ErrorIs(t, err, optim.ErrUnknownOptimizer)
	assert.False(t, m.Compiled())

	require.NoError(t, m.Compile(compileSGD))
	assert.True(t, m.Compiled())
	assert.Equal(t, "sgd", m.Optimizer().Name())
	assert.Equal(t, float32(0.1), m.Optimizer().GetLR())

	backend := m.Backend()
	err = m.Add(nn.NewDense(10, 10, nn.ActivationSoftmax, backend, rand.New(rand.NewSource(1))))
	assert.ErrorIs(t, err, model.ErrCompiled)
	assert.Len(t, m.Layers(), 4)
}

func TestCompile_Empty(t *testing.T) {
	m := model.New[*cpu.CPUBackend](autodiff.New(cpu.New()))
	assert.ErrorIs(t, m.Compile(compileSGD), model.ErrEmptyModel)
}

func TestFit_RequiresCompile(t *testing.T) {
	m := newClassifier(t, 1)
	x, y := dataset(t, 20, 1)

	_, err := m.Fit(context.Background(), x, y, model.FitConfig{BatchSize: 8, Epochs: 1})
	assert.ErrorIs(t, err, model.ErrNotCompiled)

	_, err = m.Evaluate(context.Background(), x, y, 32)
	assert.ErrorIs(t, err, model.ErrNotCompiled)
}

func TestFit_Validation(t *testing.T) {
	m := newClassifier(t, 1)
	require.NoError(t, m.Compile(compileSGD))
	x, y := dataset(t, 20, 1)
	ctx := context.Background()

	_, err := m.Fit(ctx, x, y, model.FitConfig{BatchSize: 0, Epochs: 1})
	assert.ErrorIs(t, err, model.ErrInvalidConfig)

	_, err = m.Fit(ctx, x, y, model.FitConfig{BatchSize: 8, Epochs: 0})
	assert.ErrorIs(t, err, model.ErrInvalidConfig)

	_, yShort := dataset(t, 10, 1)
	_, err = m.Fit(ctx, x, yShort, model.FitConfig{BatchSize: 8, Epochs: 1})
	assert.ErrorIs(t, err, model.ErrShapeMismatch)

	wrong, err := x.View(tensor.Shape{20, 784})
	require.NoError(t, err)
	_, err = m.Fit(ctx, wrong, y, model.FitConfig{BatchSize: 8, Epochs: 1})
	assert.ErrorIs(t, err, model.ErrShapeMismatch)

	raw := mnist.Synthetic(20, 1).Images
	_, err = m.Fit(ctx, raw, y, model.FitConfig{BatchSize: 8, Epochs: 1})
	assert.ErrorIs(t, err, model.ErrShapeMismatch, "uint8 inputs must be normalized first")
}

func TestFit_LearnsSyntheticDigits(t *testing.T) {
	m := newClassifier(t, 3)
	require.NoError(t, m.Compile(compileSGD))

	x, y := dataset(t, 600, 10)
	xTest, yTest := dataset(t, 200, 20)

	var progress bytes.Buffer
	history, err := m.Fit(context.Background(), x, y, model.FitConfig{
		BatchSize: 8,
		Epochs:    4,
		Shuffle:   true,
		Seed:      1,
		Progress:  &progress,
	})
	require.NoError(t, err)
	require.Equal(t, 4, history.Len())

	for i, e := range history.Epochs {
		assert.Equal(t, i+1, e.Epoch)
		assert.Equal(t, 600, e.Samples)
		assert.GreaterOrEqual(t, e.Accuracy, 0.0)
		assert.LessOrEqual(t, e.Accuracy, 1.0)
		assert.Greater(t, e.MicrosPerSample, 0.0)
	}
	losses := history.Losses()
	assert.Less(t, losses[3], losses[0])
	assert.Contains(t, progress.String(), "Epoch 4/4")
	assert.Contains(t, progress.String(), "accuracy:")

	result, err := m.Evaluate(context.Background(), xTest, yTest, 32)
	require.NoError(t, err)
	assert.Equal(t, 200, result.Samples)
	assert.GreaterOrEqual(t, result.Accuracy, 0.0)
	assert.LessOrEqual(t, result.Accuracy, 1.0)
	assert.Greater(t, result.Accuracy, 0.5, "well above chance")
	assert.False(t, math.IsNaN(result.Loss))
}

func TestFit_ShortLastBatch(t *testing.T) {
	m := newClassifier(t, 4)
	require.NoError(t, m.Compile(compileSGD))
	x, y := dataset(t, 21, 4)

	history, err := m.Fit(context.Background(), x, y, model.FitConfig{BatchSize: 8, Epochs: 1})
	require.NoError(t, err)
	assert.Equal(t, 21, history.Epochs[0].Samples)
}

func TestFit_KeepsLastGradients(t *testing.T) {
	m := newClassifier(t, 6)
	require.NoError(t, m.Compile(compileSGD))
	x, y := dataset(t, 16, 6)

	for _, p := range m.Parameters() {
		assert.Nil(t, p.Grad(), p.Name())
	}

	_, err := m.Fit(context.Background(), x, y, model.FitConfig{BatchSize: 8, Epochs: 1})
	require.NoError(t, err)

	for _, p := range m.Parameters() {
		grad := p.Grad()
		require.NotNil(t, grad, p.Name())
		assert.Equal(t, p.Tensor().Shape(), grad.Shape(), p.Name())
	}
	assert.Zero(t, m.Backend().Tape().NumOps())
}

func TestFit_SeededRunsRepeat(t *testing.T) {
	x, y := dataset(t, 64, 8)
	cfg := model.FitConfig{BatchSize: 8, Epochs: 2, Shuffle: true, Seed: 17}

	run := func() []float64 {
		m := newClassifier(t, 8)
		require.NoError(t, m.Compile(compileSGD))
		history, err := m.Fit(context.Background(), x, y, cfg)
		require.NoError(t, err)
		return history.Losses()
	}

	assert.Equal(t, run(), run())
}

func TestFit_Cancelled(t *testing.T) {
	m := newClassifier(t, 1)
	require.NoError(t, m.Compile(compileSGD))
	x, y := dataset(t, 40, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	history, err := m.Fit(ctx, x, y, model.FitConfig{BatchSize: 8, Epochs: 2})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, history.Len())
}

func TestFit_NonFiniteLoss(t *testing.T) {
	m := newClassifier(t, 1)
	require.NoError(t, m.Compile(compileSGD))
	x, y := dataset(t, 16, 1)

	kernel := m.Parameters()[0].Tensor().Data()
	for i := range kernel {
		kernel[i] = float32(math.NaN())
	}

	_, err := m.Fit(context.Background(), x, y, model.FitConfig{BatchSize: 8, Epochs: 1})
	assert.ErrorIs(t, err, model.ErrNonFiniteLoss)
}

func TestPredict(t *testing.T) {
	m := newClassifier(t, 5)
	x, _ := dataset(t, 35, 5)

	probs, err := m.Predict(context.Background(), x, 0)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{35, 10}, probs.Shape())

	data := probs.AsFloat32()
	for row := 0; row < 35; row++ {
		var sum float64
		for _, p := range data[row*10 : (row+1)*10] {
			sum += float64(p)
		}
		assert.InDelta(t, 1.0, sum, 1e-5)
	}
	assert.Zero(t, m.Backend().Tape().NumOps(), "inference does not record")
}

func TestNew_BuildsFromData(t *testing.T) {
	backend := autodiff.New(cpu.New())
	m := model.New[*cpu.CPUBackend](backend, nn.NewFlatten[backendType]())
	require.NoError(t, m.Add(nn.NewDense(784, 10, nn.ActivationSoftmax, backend, rand.New(rand.NewSource(1)))))

	_, err := m.OutputShape()
	assert.ErrorIs(t, err, model.ErrNotBuilt)
	assert.ErrorIs(t, m.Summary(&bytes.Buffer{}), model.ErrNotBuilt)

	require.NoError(t, m.Compile(compileSGD))
	x, y := dataset(t, 16, 2)
	_, err = m.Fit(context.Background(), x, y, model.FitConfig{BatchSize: 4, Epochs: 1})
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{28, 28}, m.InputShape())
}

func TestSummary(t *testing.T) {
	m := newClassifier(t, 1)

	var buf bytes.Buffer
	require.NoError(t, m.Summary(&buf))
	out := buf.String()

	assert.Contains(t, out, "flatten (Flatten)")
	assert.Contains(t, out, "(None, 784)")
	assert.Contains(t, out, "dense_2 (Dense)")
	assert.Contains(t, out, "(None, 10)")
	assert.Contains(t, out, "78500")
	assert.Contains(t, out, "Total params: 89610")
}
