package mnist

import (
	"bufio"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/born-ml/digits/internal/tensor"
)

// IDX magic numbers.
const (
	labelMagic = 0x00000801 // 2049
	imageMagic = 0x00000803 // 2051
)

// maxSamples guards allocations against corrupted headers.
const maxSamples = 1 << 24

type labelHeader struct{ Magic, Num uint32 }

type imageHeader struct{ Magic, Num, Rows, Cols uint32 }

// ReadImages reads an IDX image file:
//
//	magic number: 0x00000803
//	number of images: 4 bytes, big-endian
//	number of rows: 4 bytes (28)
//	number of cols: 4 bytes (28)
//	pixel data: unsigned bytes (0-255)
//
// The result has shape [N, 28, 28] and dtype uint8.
func ReadImages(r io.Reader) (*tensor.RawTensor, error) {
	var head imageHeader
	if err := binary.Read(r, binary.BigEndian, &head); err != nil {
		return nil, fmt.Errorf("%w: reading image header: %v", ErrInvalidFormat, err)
	}
	if head.Magic != imageMagic {
		return nil, fmt.Errorf("%w: image magic 0x%08x, want 0x%08x", ErrInvalidFormat, head.Magic, imageMagic)
	}
	if head.Rows != ImageRows || head.Cols != ImageCols {
		return nil, fmt.Errorf("%w: images are %dx%d, want %dx%d", ErrInvalidFormat, head.Rows, head.Cols, ImageRows, ImageCols)
	}
	if head.Num == 0 || head.Num > maxSamples {
		return nil, fmt.Errorf("%w: image count %d", ErrInvalidFormat, head.Num)
	}

	images, err := tensor.NewRaw(tensor.Shape{int(head.Num), ImageRows, ImageCols}, tensor.Uint8, tensor.CPU)
	if err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(r, images.AsUint8()); err != nil {
		return nil, fmt.Errorf("%w: reading %d images: %v", ErrInvalidFormat, head.Num, err)
	}
	return images, nil
}

// ReadLabels reads an IDX label file:
//
//	magic number: 0x00000801
//	number of labels: 4 bytes, big-endian
//	label data: unsigned bytes (0-9)
func ReadLabels(r io.Reader) (*tensor.RawTensor, error) {
	var head labelHeader
	if err := binary.Read(r, binary.BigEndian, &head); err != nil {
		return nil, fmt.Errorf("%w: reading label header: %v", ErrInvalidFormat, err)
	}
	if head.Magic != labelMagic {
		return nil, fmt.Errorf("%w: label magic 0x%08x, want 0x%08x", ErrInvalidFormat, head.Magic, labelMagic)
	}
	if head.Num == 0 || head.Num > maxSamples {
		return nil, fmt.Errorf("%w: label count %d", ErrInvalidFormat, head.Num)
	}

	labels, err := tensor.NewRaw(tensor.Shape{int(head.Num)}, tensor.Uint8, tensor.CPU)
	if err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(r, labels.AsUint8()); err != nil {
		return nil, fmt.Errorf("%w: reading %d labels: %v", ErrInvalidFormat, head.Num, err)
	}
	return labels, nil
}

// WriteImages encodes images [N, 28, 28] uint8 as an IDX image file.
func WriteImages(w io.Writer, images *tensor.RawTensor) error {
	shape := images.Shape()
	if len(shape) != 3 || images.DType() != tensor.Uint8 {
		return fmt.Errorf("%w: cannot write %s images of shape %v", ErrInvalidFormat, images.DType(), shape)
	}
	head := imageHeader{imageMagic, uint32(shape[0]), uint32(shape[1]), uint32(shape[2])} //nolint:gosec // bounded by maxSamples
	if err := binary.Write(w, binary.BigEndian, head); err != nil {
		return err
	}
	_, err := w.Write(images.AsUint8())
	return err
}

// WriteLabels encodes labels [N] uint8 as an IDX label file.
func WriteLabels(w io.Writer, labels *tensor.RawTensor) error {
	shape := labels.Shape()
	if len(shape) != 1 || labels.DType() != tensor.Uint8 {
		return fmt.Errorf("%w: cannot write %s labels of shape %v", ErrInvalidFormat, labels.DType(), shape)
	}
	if err := binary.Write(w, binary.BigEndian, labelHeader{labelMagic, uint32(shape[0])}); err != nil { //nolint:gosec // bounded by maxSamples
		return err
	}
	_, err := w.Write(labels.AsUint8())
	return err
}

// openIDX opens path and transparently decompresses it when it starts with
// the gzip magic bytes. The returned closer releases both readers.
func openIDX(path string) (io.Reader, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}

	br := bufio.NewReaderSize(f, 1<<16)
	magic, err := br.Peek(2)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrInvalidFormat, path, err)
	}
	if magic[0] != 0x1f || magic[1] != 0x8b {
		return br, f.Close, nil
	}

	gz, err := gzip.NewReader(br)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrInvalidFormat, path, err)
	}
	closer := func() error {
		gzErr := gz.Close()
		if err := f.Close(); err != nil {
			return err
		}
		return gzErr
	}
	return gz, closer, nil
}

func readImagesFile(path string) (*tensor.RawTensor, error) {
	r, closeFn, err := openIDX(path)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	images, err := ReadImages(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return images, nil
}

func readLabelsFile(path string) (*tensor.RawTensor, error) {
	r, closeFn, err := openIDX(path)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	labels, err := ReadLabels(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return labels, nil
}
