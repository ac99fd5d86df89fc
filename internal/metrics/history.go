package metrics

import (
	"fmt"
	"time"
)

// EpochLogs holds the metrics of one training epoch.
type EpochLogs struct {
	Epoch           int // 1-based
	Loss            float64
	Accuracy        float64
	Samples         int
	Duration        time.Duration
	MicrosPerSample float64
}

// String formats the epoch like a Keras progress line.
func (e EpochLogs) String() string {
	return fmt.Sprintf("epoch %d: loss=%.4f accuracy=%.4f (%d samples, %s, %.1fµs/sample)",
		e.Epoch, e.Loss, e.Accuracy, e.Samples, e.Duration.Round(time.Millisecond), e.MicrosPerSample)
}

// History collects per-epoch metrics returned by Fit.
type History struct {
	Epochs []EpochLogs
}

// Append adds the metrics of a finished epoch.
func (h *History) Append(e EpochLogs) {
	h.Epochs = append(h.Epochs, e)
}

// Len returns the number of recorded epochs.
func (h *History) Len() int {
	return len(h.Epochs)
}

// Last returns the most recent epoch and false if there is none.
func (h *History) Last() (EpochLogs, bool) {
	if len(h.Epochs) == 0 {
		return EpochLogs{}, false
	}
	return h.Epochs[len(h.Epochs)-1], true
}

// Losses returns the loss of every epoch in order.
func (h *History) Losses() []float64 {
	out := make([]float64, len(h.Epochs))
	for i, e := range h.Epochs {
		out[i] = e.Loss
	}
	return out
}

// Accuracies returns the accuracy of every epoch in order.
func (h *History) Accuracies() []float64 {
	out := make([]float64, len(h.Epochs))
	for i, e := range h.Epochs {
		out[i] = e.Accuracy
	}
	return out
}

// Result is the outcome of an evaluation pass.
type Result struct {
	Loss     float64
	Accuracy float64 // in [0, 1]
	Samples  int
	Duration time.Duration
}

// MicrosPerSample returns the evaluation time per sample in microseconds.
func (r Result) MicrosPerSample() float64 {
	if r.Samples == 0 {
		return 0
	}
	return float64(r.Duration.Microseconds()) / float64(r.Samples)
}
