package nn

import (
	"fmt"

	"github.com/born-ml/digits/internal/tensor"
)

// CrossEntropyBackend is implemented by backends that can compute sparse
// categorical cross-entropy: both cpu.CPUBackend and autodiff.AutodiffBackend.
type CrossEntropyBackend interface {
	SparseCategoricalCrossEntropy(probs, targets *tensor.RawTensor) *tensor.RawTensor
}

// SparseCategoricalCrossEntropy computes mean(-log(p[y])) over a batch of
// class probabilities and integer labels.
//
// Inputs are probabilities (the output of a softmax), matching
// Keras' from_logits=False. Probabilities are clipped to [1e-7, 1-1e-7].
//
//	lossFn := nn.NewSparseCategoricalCrossEntropy[Backend]()
//	loss := lossFn.Forward(probs, labels) // shape [1]
type SparseCategoricalCrossEntropy[B tensor.Backend] struct{}

// NewSparseCategoricalCrossEntropy creates the loss.
func NewSparseCategoricalCrossEntropy[B tensor.Backend]() *SparseCategoricalCrossEntropy[B] {
	return &SparseCategoricalCrossEntropy[B]{}
}

// Forward returns the mean loss as a one-element tensor.
// probs has shape [batch, classes]; labels has shape [batch].
func (l *SparseCategoricalCrossEntropy[B]) Forward(probs *tensor.Tensor[float32, B], labels *tensor.Tensor[int32, B]) *tensor.Tensor[float32, B] {
	backend := probs.Backend()
	ce, ok := any(backend).(CrossEntropyBackend)
	if !ok {
		panic(fmt.Sprintf("SparseCategoricalCrossEntropy: backend %s does not support cross-entropy", backend.Name()))
	}
	return tensor.New[float32, B](ce.SparseCategoricalCrossEntropy(probs.Raw(), labels.Raw()), backend)
}

// Name returns the Keras loss name.
func (l *SparseCategoricalCrossEntropy[B]) Name() string {
	return "sparse_categorical_crossentropy"
}
