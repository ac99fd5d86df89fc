package tensor

import (
	"fmt"
	"unsafe"
)

// Device represents the compute device for tensor operations.
type Device int

// Supported compute devices.
const (
	CPU Device = iota
)

// String returns a human-readable device name.
func (d Device) String() string {
	switch d {
	case CPU:
		return "CPU"
	default:
		return "Unknown"
	}
}

// RawTensor is the untyped tensor representation used by backends.
// Storage is a flat row-major byte buffer viewed as typed slices on demand.
type RawTensor struct {
	data   []byte
	shape  Shape
	stride []int
	dtype  DataType
	device Device
}

// NewRaw allocates a zero-filled RawTensor with the given shape and type.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}

	return &RawTensor{
		data:   make([]byte, shape.NumElements()*dtype.Size()),
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
		dtype:  dtype,
		device: device,
	}, nil
}

// MustRaw is like NewRaw but panics on an invalid shape.
// Kernels use it where the shape has already been checked.
func MustRaw(shape Shape, dtype DataType, device Device) *RawTensor {
	r, err := NewRaw(shape, dtype, device)
	if err != nil {
		panic(err)
	}
	return r
}

// Shape returns the tensor's shape.
func (r *RawTensor) Shape() Shape {
	return r.shape
}

// Strides returns the tensor's row-major strides.
func (r *RawTensor) Strides() []int {
	return r.stride
}

// DType returns the tensor's data type.
func (r *RawTensor) DType() DataType {
	return r.dtype
}

// Device returns the tensor's compute device.
func (r *RawTensor) Device() Device {
	return r.device
}

// NumElements returns the total number of elements.
func (r *RawTensor) NumElements() int {
	return r.shape.NumElements()
}

// ByteSize returns the storage size in bytes.
func (r *RawTensor) ByteSize() int {
	return len(r.data)
}

// Data returns the raw byte slice backing the tensor.
func (r *RawTensor) Data() []byte {
	return r.data
}

// AsFloat32 interprets the data as []float32.
// Panics if the tensor's dtype is not Float32.
func (r *RawTensor) AsFloat32() []float32 {
	if r.dtype != Float32 {
		panic(fmt.Sprintf("tensor dtype is %s, not float32", r.dtype))
	}
	//nolint:gosec // zero-copy view, length bounded by NumElements()
	return unsafe.Slice((*float32)(unsafe.Pointer(&r.data[0])), r.NumElements())
}

// AsInt32 interprets the data as []int32.
// Panics if the tensor's dtype is not Int32.
func (r *RawTensor) AsInt32() []int32 {
	if r.dtype != Int32 {
		panic(fmt.Sprintf("tensor dtype is %s, not int32", r.dtype))
	}
	//nolint:gosec // zero-copy view, length bounded by NumElements()
	return unsafe.Slice((*int32)(unsafe.Pointer(&r.data[0])), r.NumElements())
}

// AsUint8 interprets the data as []uint8.
// Panics if the tensor's dtype is not Uint8.
func (r *RawTensor) AsUint8() []uint8 {
	if r.dtype != Uint8 {
		panic(fmt.Sprintf("tensor dtype is %s, not uint8", r.dtype))
	}
	return r.data
}

// Clone returns a deep copy of the tensor.
func (r *RawTensor) Clone() *RawTensor {
	data := make([]byte, len(r.data))
	copy(data, r.data)
	return &RawTensor{
		data:   data,
		shape:  r.shape.Clone(),
		stride: append([]int(nil), r.stride...),
		dtype:  r.dtype,
		device: r.device,
	}
}

// View returns a tensor sharing this tensor's storage under a new shape.
// The element count must match.
func (r *RawTensor) View(shape Shape) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	if shape.NumElements() != r.NumElements() {
		return nil, fmt.Errorf("cannot view %v (%d elements) as %v (%d elements)",
			r.shape, r.NumElements(), shape, shape.NumElements())
	}
	return &RawTensor{
		data:   r.data,
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
		dtype:  r.dtype,
		device: r.device,
	}, nil
}

// Gather copies the given indices of the leading dimension into a new tensor
// of shape [len(indices), shape[1:]...].
func (r *RawTensor) Gather(indices []int) (*RawTensor, error) {
	if len(r.shape) == 0 {
		return nil, fmt.Errorf("gather: scalar tensor has no leading dimension")
	}
	if len(indices) == 0 {
		return nil, fmt.Errorf("gather: no indices")
	}

	outShape := r.shape.Clone()
	outShape[0] = len(indices)
	out, err := NewRaw(outShape, r.dtype, r.device)
	if err != nil {
		return nil, err
	}

	rowBytes := len(r.data) / r.shape[0]
	for i, idx := range indices {
		if idx < 0 || idx >= r.shape[0] {
			return nil, fmt.Errorf("gather: index %d out of range [0, %d)", idx, r.shape[0])
		}
		copy(out.data[i*rowBytes:(i+1)*rowBytes], r.data[idx*rowBytes:(idx+1)*rowBytes])
	}
	return out, nil
}

// Rows returns a copy of the leading-dimension range [start, end).
func (r *RawTensor) Rows(start, end int) (*RawTensor, error) {
	if len(r.shape) == 0 {
		return nil, fmt.Errorf("rows: scalar tensor has no leading dimension")
	}
	if start < 0 || end > r.shape[0] || start >= end {
		return nil, fmt.Errorf("rows: invalid range [%d, %d) for %d rows", start, end, r.shape[0])
	}

	outShape := r.shape.Clone()
	outShape[0] = end - start
	out, err := NewRaw(outShape, r.dtype, r.device)
	if err != nil {
		return nil, err
	}
	rowBytes := len(r.data) / r.shape[0]
	copy(out.data, r.data[start*rowBytes:end*rowBytes])
	return out, nil
}

// Convert returns a copy of the tensor with elements cast to dtype.
func (r *RawTensor) Convert(dtype DataType) *RawTensor {
	if dtype == r.dtype {
		return r.Clone()
	}
	out := MustRaw(r.shape, dtype, r.device)
	n := r.NumElements()
	for i := 0; i < n; i++ {
		out.setFloat(i, r.getFloat(i))
	}
	return out
}

func (r *RawTensor) getFloat(i int) float64 {
	switch r.dtype {
	case Float32:
		return float64(r.AsFloat32()[i])
	case Int32:
		return float64(r.AsInt32()[i])
	case Uint8:
		return float64(r.data[i])
	default:
		panic("unknown data type")
	}
}

func (r *RawTensor) setFloat(i int, v float64) {
	switch r.dtype {
	case Float32:
		r.AsFloat32()[i] = float32(v)
	case Int32:
		r.AsInt32()[i] = int32(v)
	case Uint8:
		r.data[i] = uint8(v)
	default:
		panic("unknown data type")
	}
}
