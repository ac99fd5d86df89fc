// Package metrics computes and records training and evaluation metrics.
package metrics

import (
	"errors"
	"fmt"
	"strings"

	"github.com/born-ml/digits/internal/tensor"
	"gonum.org/v1/gonum/stat"
)

// ErrUnknownMetric is returned by Canonical for unsupported metric names.
var ErrUnknownMetric = errors.New("unknown metric")

// Accuracy is the canonical name of the sparse categorical accuracy metric.
const Accuracy = "accuracy"

// Canonical maps a Keras metric name to the name used in logs.
func Canonical(name string) (string, error) {
	switch strings.ToLower(name) {
	case "accuracy", "acc", "sparse_categorical_accuracy":
		return Accuracy, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMetric, name)
	}
}

// SparseCategoricalAccuracy returns how many rows of probs [N, C] have their
// largest entry at the index given by labels [N]. Ties resolve to the lowest
// index. labels may be int32 or uint8.
func SparseCategoricalAccuracy(probs, labels *tensor.RawTensor) int {
	shape := probs.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("accuracy: expected [batch, classes] probabilities, got %v", shape))
	}
	n, classes := shape[0], shape[1]
	if labels.NumElements() != n {
		panic(fmt.Sprintf("accuracy: %d labels for %d predictions", labels.NumElements(), n))
	}

	p := probs.AsFloat32()
	correct := 0
	for i := 0; i < n; i++ {
		row := p[i*classes : (i+1)*classes]
		best := 0
		for j := 1; j < classes; j++ {
			if row[j] > row[best] {
				best = j
			}
		}
		if best == label(labels, i) {
			correct++
		}
	}
	return correct
}

func label(labels *tensor.RawTensor, i int) int {
	switch labels.DType() {
	case tensor.Int32:
		return int(labels.AsInt32()[i])
	case tensor.Uint8:
		return int(labels.AsUint8()[i])
	default:
		panic(fmt.Sprintf("accuracy: unsupported label dtype %s", labels.DType()))
	}
}

// Mean is a running weighted mean, used to average per-batch losses and
// accuracies weighted by batch size.
type Mean struct {
	values  []float64
	weights []float64
}

// Add records value with the given weight.
func (m *Mean) Add(value, weight float64) {
	m.values = append(m.values, value)
	m.weights = append(m.weights, weight)
}

// Count returns the number of recorded values.
func (m *Mean) Count() int {
	return len(m.values)
}

// Result returns the weighted mean, or 0 when nothing was recorded.
func (m *Mean) Result() float64 {
	if len(m.values) == 0 {
		return 0
	}
	return stat.Mean(m.values, m.weights)
}

// Reset discards all recorded values.
func (m *Mean) Reset() {
	m.values = m.values[:0]
	m.weights = m.weights[:0]
}
