// Package mnist loads the MNIST handwritten digit dataset from IDX files
// and prepares it for training.
//
// Files are looked up in a data directory and then in a cache directory,
// uncompressed or gzip-compressed under the usual names. When they are
// missing and downloading is enabled, the compressed files are fetched into
// the cache first:
//
//	train, test, err := mnist.Load(ctx, mnist.Options{
//	    Dir:      "./data",
//	    CacheDir: mnist.DefaultCacheDir(),
//	    Download: true,
//	})
//	x, err := mnist.Normalize(train.Images, 1)
package mnist

import (
	"errors"
	"fmt"

	"github.com/born-ml/digits/internal/tensor"
)

// Image geometry and class count of MNIST.
const (
	ImageRows  = 28
	ImageCols  = 28
	NumClasses = 10
)

var (
	// ErrNotFound means a dataset file is absent and could not be fetched.
	ErrNotFound = errors.New("mnist: dataset not found")
	// ErrInvalidFormat means a file is not a valid MNIST IDX file.
	ErrInvalidFormat = errors.New("mnist: invalid IDX format")
	// ErrShapeMismatch means image and label counts disagree.
	ErrShapeMismatch = errors.New("mnist: image and label counts differ")
	// ErrChecksum means a downloaded file does not match its SHA-256 digest.
	ErrChecksum = errors.New("mnist: checksum mismatch")
)

// Set is one partition of the dataset.
type Set struct {
	Images *tensor.RawTensor // [N, 28, 28] uint8
	Labels *tensor.RawTensor // [N] uint8, values 0-9
}

// NewSet validates and pairs images with labels.
func NewSet(images, labels *tensor.RawTensor) (*Set, error) {
	s := &Set{Images: images, Labels: labels}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Len returns the number of samples.
func (s *Set) Len() int {
	return s.Labels.Shape()[0]
}

// Validate checks shapes, dtypes and label range.
func (s *Set) Validate() error {
	if s.Images == nil || s.Labels == nil {
		return fmt.Errorf("%w: missing images or labels", ErrInvalidFormat)
	}
	is, ls := s.Images.Shape(), s.Labels.Shape()
	if len(is) != 3 || is[1] != ImageRows || is[2] != ImageCols {
		return fmt.Errorf("%w: images have shape %v, want [N, %d, %d]", ErrInvalidFormat, is, ImageRows, ImageCols)
	}
	if len(ls) != 1 {
		return fmt.Errorf("%w: labels have shape %v, want [N]", ErrInvalidFormat, ls)
	}
	if s.Images.DType() != tensor.Uint8 || s.Labels.DType() != tensor.Uint8 {
		return fmt.Errorf("%w: expected uint8 images and labels", ErrInvalidFormat)
	}
	if is[0] != ls[0] {
		return fmt.Errorf("%w: %d images, %d labels", ErrShapeMismatch, is[0], ls[0])
	}
	for i, y := range s.Labels.AsUint8() {
		if y >= NumClasses {
			return fmt.Errorf("%w: label %d at index %d", ErrInvalidFormat, y, i)
		}
	}
	return nil
}

// Limit returns the first n samples, or s itself when n <= 0 or n >= Len.
func (s *Set) Limit(n int) (*Set, error) {
	if n <= 0 || n >= s.Len() {
		return s, nil
	}
	images, err := s.Images.Rows(0, n)
	if err != nil {
		return nil, err
	}
	labels, err := s.Labels.Rows(0, n)
	if err != nil {
		return nil, err
	}
	return &Set{Images: images, Labels: labels}, nil
}

// LabelsInt32 returns the labels converted to int32 for the loss.
func (s *Set) LabelsInt32() *tensor.RawTensor {
	return s.Labels.Convert(tensor.Int32)
}
