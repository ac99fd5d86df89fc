package mnist

import (
	"math/rand"

	"github.com/born-ml/digits/internal/tensor"
)

// Synthetic generates n labelled 28x28 images that an MLP can learn.
// n must be positive.
//
// Class c is drawn as a horizontal bar at row 3+2c crossed with a vertical
// bar at column 3+2c, jittered by up to one pixel in each direction, with
// random intensity and sparse background noise. The same seed always
// yields the same set.
func Synthetic(n int, seed int64) *Set {
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // test data

	images := tensor.MustRaw(tensor.Shape{n, ImageRows, ImageCols}, tensor.Uint8, tensor.CPU)
	labels := tensor.MustRaw(tensor.Shape{n}, tensor.Uint8, tensor.CPU)
	pix, lbl := images.AsUint8(), labels.AsUint8()

	const area = ImageRows * ImageCols
	for s := 0; s < n; s++ {
		c := s % NumClasses
		lbl[s] = uint8(c)

		img := pix[s*area : (s+1)*area]
		for i := 0; i < 20; i++ {
			img[rng.Intn(area)] = uint8(rng.Intn(64))
		}

		row := 3 + 2*c + rng.Intn(3) - 1
		col := 3 + 2*c + rng.Intn(3) - 1
		ink := uint8(160 + rng.Intn(96))
		for i := 2; i < ImageCols-2; i++ {
			img[row*ImageCols+i] = ink
			img[i*ImageCols+col] = ink
		}
	}

	rng.Shuffle(n, func(i, j int) {
		lbl[i], lbl[j] = lbl[j], lbl[i]
		a, b := pix[i*area:(i+1)*area], pix[j*area:(j+1)*area]
		for k := range a {
			a[k], b[k] = b[k], a[k]
		}
	})

	return &Set{Images: images, Labels: labels}
}
