// Package autodiff implements reverse-mode automatic differentiation as a
// backend decorator.
//
// AutodiffBackend wraps any tensor.Backend, forwards every computation to it
// and records differentiable operations on a GradientTape:
//
//	backend := autodiff.New(cpu.New())
//	backend.Tape().StartRecording()
//	y := model.Forward(x)
//	loss := lossFn.Forward(y, labels)
//	grads := autodiff.Backward(loss, backend)
package autodiff

import (
	"fmt"

	"github.com/born-ml/digits/internal/autodiff/ops"
	"github.com/born-ml/digits/internal/tensor"
)

// CrossEntropyBackend is implemented by backends that provide the sparse
// categorical cross-entropy forward kernel.
type CrossEntropyBackend interface {
	SparseCategoricalCrossEntropy(probs, targets *tensor.RawTensor) *tensor.RawTensor
}

// AutodiffBackend wraps a Backend and records operations for backprop.
type AutodiffBackend[B tensor.Backend] struct {
	inner B
	tape  *GradientTape
}

// New creates an AutodiffBackend wrapping backend.
func New[B tensor.Backend](backend B) *AutodiffBackend[B] {
	return &AutodiffBackend[B]{
		inner: backend,
		tape:  NewGradientTape(),
	}
}

// Tape returns the gradient tape for manual control.
func (b *AutodiffBackend[B]) Tape() *GradientTape {
	return b.tape
}

// Inner returns the wrapped backend.
func (b *AutodiffBackend[B]) Inner() B {
	return b.inner
}

// Name returns the backend name.
func (b *AutodiffBackend[B]) Name() string {
	return "Autodiff(" + b.inner.Name() + ")"
}

// Device returns the compute device.
func (b *AutodiffBackend[B]) Device() tensor.Device {
	return b.inner.Device()
}

// Add performs element-wise addition and records it.
func (b *AutodiffBackend[B]) Add(x, y *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Add(x, y)
	b.tape.Record(ops.NewAddOp(x, y, result))
	return result
}

// Sub performs element-wise subtraction and records it.
func (b *AutodiffBackend[B]) Sub(x, y *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Sub(x, y)
	b.tape.Record(ops.NewSubOp(x, y, result))
	return result
}

// Mul performs element-wise multiplication and records it.
func (b *AutodiffBackend[B]) Mul(x, y *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Mul(x, y)
	b.tape.Record(ops.NewMulOp(x, y, result))
	return result
}

// MulScalar multiplies by a constant and records it.
func (b *AutodiffBackend[B]) MulScalar(x *tensor.RawTensor, s float32) *tensor.RawTensor {
	result := b.inner.MulScalar(x, s)
	b.tape.Record(ops.NewMulScalarOp(x, s, result))
	return result
}

// MatMul performs matrix multiplication and records it.
func (b *AutodiffBackend[B]) MatMul(x, y *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.MatMul(x, y)
	b.tape.Record(ops.NewMatMulOp(x, y, result))
	return result
}

// Reshape reshapes a tensor and records it so gradients reach the original.
func (b *AutodiffBackend[B]) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	result := b.inner.Reshape(t, newShape)
	b.tape.Record(ops.NewReshapeOp(t, result))
	return result
}

// Transpose permutes dimensions and records it. The result is a new tensor,
// so without the record gradients would stop at the transposed copy.
func (b *AutodiffBackend[B]) Transpose(t *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	result := b.inner.Transpose(t, axes...)
	b.tape.Record(ops.NewTransposeOp(t, axes, result))
	return result
}

// ReLU applies max(0, x) and records it.
func (b *AutodiffBackend[B]) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.ReLU(x)
	b.tape.Record(ops.NewReLUOp(x, result))
	return result
}

// Softmax applies softmax along dim and records it.
func (b *AutodiffBackend[B]) Softmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	result := b.inner.Softmax(x, dim)
	b.tape.Record(ops.NewSoftmaxOp(x, dim, result))
	return result
}

// SumDim is forwarded without recording; the training graph never
// differentiates through it.
func (b *AutodiffBackend[B]) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return b.inner.SumDim(x, dim, keepDim)
}

// Argmax is not differentiable and is never recorded.
func (b *AutodiffBackend[B]) Argmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	return b.inner.Argmax(x, dim)
}

// SparseCategoricalCrossEntropy computes the mean cross-entropy of
// probabilities against integer targets and records it.
// Panics if the wrapped backend does not implement CrossEntropyBackend.
func (b *AutodiffBackend[B]) SparseCategoricalCrossEntropy(probs, targets *tensor.RawTensor) *tensor.RawTensor {
	ce, ok := any(b.inner).(CrossEntropyBackend)
	if !ok {
		panic(fmt.Sprintf("autodiff: backend %s does not implement SparseCategoricalCrossEntropy", b.inner.Name()))
	}
	result := ce.SparseCategoricalCrossEntropy(probs, targets)
	b.tape.Record(ops.NewSparseCrossEntropyOp(probs, targets, result))
	return result
}
