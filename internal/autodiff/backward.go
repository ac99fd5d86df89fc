package autodiff

import (
	"fmt"

	"github.com/born-ml/digits/internal/tensor"
)

// Backward seeds the gradient of t with ones and runs the backend's tape.
// It returns a map from RawTensor to its gradient.
//
//	backend.Tape().StartRecording()
//	y := x.Mul(x)
//	grads := autodiff.Backward(y, backend)
//	dx := grads[x.Raw()]
func Backward[B tensor.Backend](t *tensor.Tensor[float32, *AutodiffBackend[B]], backend *AutodiffBackend[B]) map[*tensor.RawTensor]*tensor.RawTensor {
	if backend.tape.NumOps() == 0 {
		panic("backward: no operations recorded (did you forget to call Tape().StartRecording()?)")
	}

	outputGrad, err := tensor.NewRaw(t.Shape(), tensor.Float32, backend.Device())
	if err != nil {
		panic(fmt.Sprintf("backward: failed to create output gradient: %v", err))
	}
	data := outputGrad.AsFloat32()
	for i := range data {
		data[i] = 1
	}

	return backend.tape.Backward(outputGrad, backend)
}
