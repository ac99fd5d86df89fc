package ops

import "github.com/born-ml/digits/internal/tensor"

// probEpsilon must match the clip bound used by the forward kernel.
const probEpsilon = 1e-7

// SparseCrossEntropyOp represents loss = mean_b(-log(clip(p[b, y_b]))) where p
// are probabilities (the output of a softmax), not logits.
//
// Backward:
//
//	∂L/∂p[b, y_b] = -1 / (N · p[b, y_b])   when p is inside the clip range
//	∂L/∂p[b, j]   = 0                       otherwise
//
// Composed with SoftmaxOp this reduces to (p - onehot(y)) / N.
type SparseCrossEntropyOp struct {
	probs   *tensor.RawTensor
	targets *tensor.RawTensor
	output  *tensor.RawTensor
}

// NewSparseCrossEntropyOp creates a new SparseCrossEntropyOp.
func NewSparseCrossEntropyOp(probs, targets, output *tensor.RawTensor) *SparseCrossEntropyOp {
	return &SparseCrossEntropyOp{probs: probs, targets: targets, output: output}
}

// Backward computes the gradient with respect to the probabilities only;
// targets are integer labels and receive none.
func (op *SparseCrossEntropyOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	shape := op.probs.Shape()
	batch, classes := shape[0], shape[1]

	grad := tensor.MustRaw(shape, tensor.Float32, op.probs.Device())
	p, y, dst := op.probs.AsFloat32(), op.targets.AsInt32(), grad.AsFloat32()
	scale := outputGrad.AsFloat32()[0] / float32(batch)

	for b := 0; b < batch; b++ {
		idx := b*classes + int(y[b])
		if pv := p[idx]; pv > probEpsilon && pv < 1-probEpsilon {
			dst[idx] = -scale / pv
		}
	}
	return []*tensor.RawTensor{grad}
}

// Inputs returns [probs].
func (op *SparseCrossEntropyOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.probs}
}

// Output returns the scalar loss.
func (op *SparseCrossEntropyOp) Output() *tensor.RawTensor { return op.output }
