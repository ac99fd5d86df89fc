package cpu

import (
	"fmt"
	"math"

	"github.com/born-ml/digits/internal/tensor"
)

// ProbEpsilon bounds probabilities away from 0 and 1 before taking the log.
const ProbEpsilon = 1e-7

// SparseCategoricalCrossEntropy computes mean(-log(clip(probs[b, targets[b]])))
// over the batch. probs is [batch, classes] float32 and already normalized;
// targets is [batch] int32. The result has shape [1].
func (cpu *CPUBackend) SparseCategoricalCrossEntropy(probs, targets *tensor.RawTensor) *tensor.RawTensor {
	mustFloat32("sparse_cross_entropy", probs)
	batch, classes := checkCrossEntropyShapes(probs, targets)

	p, y := probs.AsFloat32(), targets.AsInt32()
	var total float64
	for b := 0; b < batch; b++ {
		total -= math.Log(ClipProb(p[b*classes+int(y[b])]))
	}

	result := tensor.MustRaw(tensor.Shape{1}, tensor.Float32, cpu.device)
	result.AsFloat32()[0] = float32(total / float64(batch))
	return result
}

// ClipProb clamps p into [ProbEpsilon, 1-ProbEpsilon].
func ClipProb(p float32) float64 {
	return math.Min(math.Max(float64(p), ProbEpsilon), 1-ProbEpsilon)
}

func checkCrossEntropyShapes(probs, targets *tensor.RawTensor) (batch, classes int) {
	ps, ts := probs.Shape(), targets.Shape()
	if len(ps) != 2 {
		panic(fmt.Sprintf("sparse_cross_entropy: expected 2D probabilities [batch, classes], got %v", ps))
	}
	if targets.DType() != tensor.Int32 {
		panic(fmt.Sprintf("sparse_cross_entropy: targets must be int32, got %s", targets.DType()))
	}
	if len(ts) != 1 || ts[0] != ps[0] {
		panic(fmt.Sprintf("sparse_cross_entropy: targets shape %v does not match batch %d", ts, ps[0]))
	}
	batch, classes = ps[0], ps[1]
	for i, y := range targets.AsInt32() {
		if y < 0 || int(y) >= classes {
			panic(fmt.Sprintf("sparse_cross_entropy: target %d at index %d out of range [0, %d)", y, i, classes))
		}
	}
	return batch, classes
}
