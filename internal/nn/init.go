package nn

import (
	"math"
	"math/rand"

	"github.com/born-ml/digits/internal/tensor"
)

// GlorotUniform draws weights from U(-limit, limit) with
// limit = sqrt(6 / (fanIn + fanOut)), the default kernel initializer of a
// Keras Dense layer.
//
// rng supplies the randomness so that seeded runs are reproducible.
func GlorotUniform[B tensor.Backend](fanIn, fanOut int, shape tensor.Shape, backend B, rng *rand.Rand) *tensor.Tensor[float32, B] {
	limit := math.Sqrt(6.0 / float64(fanIn+fanOut))

	t, err := tensor.NewRaw(shape, tensor.Float32, backend.Device())
	if err != nil {
		panic(err)
	}

	data := t.AsFloat32()
	for i := range data {
		//nolint:gosec // weight initialization is not security-critical
		data[i] = float32((rng.Float64()*2.0 - 1.0) * limit)
	}

	return tensor.New[float32, B](t, backend)
}

// Zeros creates a zero-filled tensor, used for bias initialization.
func Zeros[B tensor.Backend](shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	return tensor.Zeros[float32](shape, backend)
}
