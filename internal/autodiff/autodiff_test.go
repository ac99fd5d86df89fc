package autodiff_test

import (
	"testing"

	"github.com/born-ml/digits/internal/autodiff"
	"github.com/born-ml/digits/internal/backend/cpu"
	"github.com/born-ml/digits/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type autodiffCPU = autodiff.AutodiffBackend[*cpu.CPUBackend]

func fromSlice(t *testing.T, backend *autodiffCPU, data []float32, shape ...int) *tensor.Tensor[float32, *autodiffCPU] {
	t.Helper()
	x, err := tensor.FromSlice(data, tensor.Shape(shape), backend)
	require.NoError(t, err)
	return x
}

func TestAutodiffBackend_Metadata(t *testing.T) {
	backend := autodiff.New(cpu.New())
	assert.Equal(t, "Autodiff(CPU)", backend.Name())
	assert.Equal(t, tensor.CPU, backend.Device())
	assert.Equal(t, "CPU", backend.Inner().Name())
}

func TestTape_Recording(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()
	assert.False(t, tape.IsRecording())

	a := fromSlice(t, backend, []float32{1, 2}, 2)
	a.Add(a)
	assert.Equal(t, 0, tape.NumOps(), "nothing is recorded before StartRecording")

	tape.StartRecording()
	a.Add(a).Mul(a)
	assert.Equal(t, 2, tape.NumOps())

	tape.Clear()
	assert.Equal(t, 0, tape.NumOps())
	assert.True(t, tape.IsRecording(), "Clear keeps the recording state")

	tape.StopRecording()
	a.Add(a)
	assert.Equal(t, 0, tape.NumOps())
}

func TestTape_ArgmaxNotRecorded(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	x := fromSlice(t, backend, []float32{1, 5, 2, 7, 0, 3}, 2, 3)
	idx := x.Argmax(1)
	assert.Equal(t, []int32{1, 0}, idx.Data())
	assert.Equal(t, 0, backend.Tape().NumOps())
}

func TestBackward_Square(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	x := fromSlice(t, backend, []float32{1, -2, 3}, 3)
	y := x.Mul(x)

	grads := autodiff.Backward(y, backend)
	assert.InDeltaSlice(t, []float32{2, -4, 6}, grads[x.Raw()].AsFloat32(), 1e-6)
	assert.True(t, backend.Tape().IsRecording(), "recording resumes after backward")
}

func TestBackward_AccumulatesSharedInputs(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	// y = x*3 + x  =>  dy/dx = 4
	x := fromSlice(t, backend, []float32{0.5, 2}, 2)
	y := x.MulScalar(3).Add(x)

	grads := autodiff.Backward(y, backend)
	assert.InDeltaSlice(t, []float32{4, 4}, grads[x.Raw()].AsFloat32(), 1e-6)
}

func TestBackward_BiasBroadcast(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	x := fromSlice(t, backend, []float32{1, 2, 3, 4, 5, 6}, 2, 3)
	b := fromSlice(t, backend, []float32{0, 0, 0}, 3)
	y := x.Add(b)

	grads := autodiff.Backward(y, backend)
	gb := grads[b.Raw()]
	require.NotNil(t, gb)
	assert.Equal(t, tensor.Shape{3}, gb.Shape())
	assert.InDeltaSlice(t, []float32{2, 2, 2}, gb.AsFloat32(), 1e-6)
}

func TestBackward_ReshapeAndTranspose(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	x := fromSlice(t, backend, []float32{1, 2, 3, 4, 5, 6}, 2, 3)
	w := fromSlice(t, backend, []float32{1, 10, 100, 1000, 10000, 100000}, 3, 2)
	y := x.Reshape(3, 2).Mul(w).Transpose()

	grads := autodiff.Backward(y, backend)
	gx := grads[x.Raw()]
	require.NotNil(t, gx)
	assert.Equal(t, tensor.Shape{2, 3}, gx.Shape())
	assert.InDeltaSlice(t, w.Data(), gx.AsFloat32(), 1e-3)
}

func TestBackward_NoOpsPanics(t *testing.T) {
	backend := autodiff.New(cpu.New())
	x := fromSlice(t, backend, []float32{1}, 1)
	assert.Panics(t, func() { autodiff.Backward(x, backend) })
}

func TestSparseCategoricalCrossEntropy_Forward(t *testing.T) {
	backend := autodiff.New(cpu.New())
	probs := fromSlice(t, backend, []float32{0.5, 0.5, 0.25, 0.75}, 2, 2)
	targets, err := tensor.FromSlice([]int32{0, 1}, tensor.Shape{2}, backend)
	require.NoError(t, err)

	loss := backend.SparseCategoricalCrossEntropy(probs.Raw(), targets.Raw())
	want := -(ln(0.5) + ln(0.75)) / 2
	assert.InDelta(t, want, loss.AsFloat32()[0], 1e-6)
}
