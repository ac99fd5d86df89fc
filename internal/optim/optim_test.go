package optim_test

import (
	"testing"

	"github.com/born-ml/digits/internal/autodiff"
	"github.com/born-ml/digits/internal/backend/cpu"
	"github.com/born-ml/digits/internal/nn"
	"github.com/born-ml/digits/internal/optim"
	"github.com/born-ml/digits/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type backendType = *autodiff.AutodiffBackend[*cpu.CPUBackend]

func param(t *testing.T, backend backendType, name string, values ...float32) *nn.Parameter[backendType] {
	t.Helper()
	x, err := tensor.FromSlice(values, tensor.Shape{len(values)}, backend)
	require.NoError(t, err)
	return nn.NewParameter(name, x)
}

func gradFor(p *nn.Parameter[backendType], values ...float32) map[*tensor.RawTensor]*tensor.RawTensor {
	g := tensor.MustRaw(tensor.Shape{len(values)}, tensor.Float32, tensor.CPU)
	copy(g.AsFloat32(), values)
	return map[*tensor.RawTensor]*tensor.RawTensor{p.Tensor().Raw(): g}
}

func TestSGD_SimpleUpdate(t *testing.T) {
	backend := autodiff.New(cpu.New())
	x := param(t, backend, "x", 2.0)

	optimizer := optim.NewSGD([]*nn.Parameter[backendType]{x}, optim.SGDConfig{LR: 0.1})
	optimizer.Step(gradFor(x, 1.0))

	assert.InDelta(t, 1.9, x.Tensor().Data()[0], 1e-6)
}

func TestSGD_WithMomentum(t *testing.T) {
	backend := autodiff.New(cpu.New())
	x := param(t, backend, "x", 1.0)

	optimizer := optim.NewSGD([]*nn.Parameter[backendType]{x}, optim.SGDConfig{LR: 0.1, Momentum: 0.9})

	// v1 = 1, x = 1 - 0.1 = 0.9
	optimizer.Step(gradFor(x, 1.0))
	assert.InDelta(t, 0.9, x.Tensor().Data()[0], 1e-6)

	// v2 = 0.9 + 1 = 1.9, x = 0.9 - 0.19 = 0.71
	optimizer.Step(gradFor(x, 1.0))
	assert.InDelta(t, 0.71, x.Tensor().Data()[0], 1e-6)
}

func TestSGD_SkipsMissingGradients(t *testing.T) {
	backend := autodiff.New(cpu.New())
	x := param(t, backend, "x", 1, 2)
	y := param(t, backend, "y", 3)

	optimizer := optim.NewSGD([]*nn.Parameter[backendType]{x, y}, optim.SGDConfig{LR: 0.5})
	optimizer.Step(gradFor(x, 2, 2))

	assert.InDeltaSlice(t, []float32{0, 1}, x.Tensor().Data(), 1e-6)
	assert.Equal(t, []float32{3}, y.Tensor().Data())
}

func TestSGD_ZeroGradAndLR(t *testing.T) {
	backend := autodiff.New(cpu.New())
	x := param(t, backend, "x", 1)
	x.SetGrad(x.Tensor())

	optimizer := optim.NewSGD([]*nn.Parameter[backendType]{x}, optim.SGDConfig{})
	assert.Equal(t, float32(0.01), optimizer.GetLR(), "default learning rate")

	optimizer.SetLR(0.1)
	assert.Equal(t, float32(0.1), optimizer.GetLR())

	optimizer.ZeroGrad()
	assert.Nil(t, x.Grad())
	assert.Equal(t, "sgd", optimizer.Name())
}

func TestAdam_FirstStep(t *testing.T) {
	backend := autodiff.New(cpu.New())
	x := param(t, backend, "x", 1.0)

	optimizer := optim.NewAdam([]*nn.Parameter[backendType]{x}, optim.AdamConfig{LR: 0.1})
	optimizer.Step(gradFor(x, 0.5))

	// After bias correction m̂ = g and v̂ = g², so the first step is ≈ lr.
	assert.InDelta(t, 0.9, x.Tensor().Data()[0], 1e-5)
	assert.Equal(t, "adam", optimizer.Name())
}

func TestNew(t *testing.T) {
	backend := autodiff.New(cpu.New())
	params := []*nn.Parameter[backendType]{param(t, backend, "x", 1)}

	opt, err := optim.New(optim.Config{Name: "sgd", LR: 0.1}, params)
	require.NoError(t, err)
	assert.Equal(t, "sgd", opt.Name())
	assert.Equal(t, float32(0.1), opt.GetLR())

	opt, err = optim.New(optim.Config{Name: "Adam"}, params)
	require.NoError(t, err)
	assert.Equal(t, "adam", opt.Name())
	assert.Equal(t, float32(0.001), opt.GetLR())

	_, err = optim.New(optim.Config{Name: "rmsprop"}, params)
	assert.ErrorIs(t, err, optim.ErrUnknownOptimizer)
}

func TestConvergence_Quadratic(t *testing.T) {
	// Minimize (x - 3)² with analytic gradients 2(x - 3).
	for _, cfg := range []optim.Config{
		{Name: "sgd", LR: 0.1},
		{Name: "sgd", LR: 0.05, Momentum: 0.9},
		{Name: "adam", LR: 0.1},
	} {
		backend := autodiff.New(cpu.New())
		x := param(t, backend, "x", 0)
		opt, err := optim.New(cfg, []*nn.Parameter[backendType]{x})
		require.NoError(t, err)

		for range 1000 {
			v := x.Tensor().Data()[0]
			opt.Step(gradFor(x, 2*(v-3)))
		}
		assert.InDelta(t, 3.0, x.Tensor().Data()[0], 5e-2, "%+v", cfg)
	}
}
