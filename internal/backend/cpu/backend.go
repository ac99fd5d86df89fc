// Package cpu implements the float32 CPU backend.
package cpu

import (
	"fmt"

	"github.com/born-ml/digits/internal/parallel"
	"github.com/born-ml/digits/internal/tensor"
	"github.com/klauspost/cpuid/v2"
)

// CPUBackend implements tensor.Backend on the host CPU.
type CPUBackend struct {
	device tensor.Device
	par    parallel.Config
}

// Info describes the host the backend runs on.
type Info struct {
	Brand         string
	PhysicalCores int
	LogicalCores  int
	AVX2          bool
	FMA3          bool
	Workers       int
}

// String formats the host description for logs.
func (i Info) String() string {
	return fmt.Sprintf("%s (%d cores, %d threads, avx2=%t, fma=%t, workers=%d)",
		i.Brand, i.PhysicalCores, i.LogicalCores, i.AVX2, i.FMA3, i.Workers)
}

// New creates a CPU backend using the default parallel configuration.
func New() *CPUBackend {
	return NewWithConfig(parallel.DefaultConfig())
}

// NewWithConfig creates a CPU backend with an explicit parallel configuration.
func NewWithConfig(cfg parallel.Config) *CPUBackend {
	return &CPUBackend{
		device: tensor.CPU,
		par:    cfg,
	}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (cpu *CPUBackend) Device() tensor.Device {
	return cpu.device
}

// Info reports host capabilities detected by cpuid.
func (cpu *CPUBackend) Info() Info {
	brand := cpuid.CPU.BrandName
	if brand == "" {
		brand = "unknown CPU"
	}
	return Info{
		Brand:         brand,
		PhysicalCores: cpuid.CPU.PhysicalCores,
		LogicalCores:  cpuid.CPU.LogicalCores,
		AVX2:          cpuid.CPU.Supports(cpuid.AVX2),
		FMA3:          cpuid.CPU.Supports(cpuid.FMA3),
		Workers:       cpu.par.NumWorkers,
	}
}

// Reshape returns a view of t with a new shape. The element count must match.
func (cpu *CPUBackend) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	v, err := t.View(newShape)
	if err != nil {
		panic(fmt.Sprintf("reshape: %v", err))
	}
	return v
}

func mustFloat32(op string, ts ...*tensor.RawTensor) {
	for _, t := range ts {
		if t.DType() != tensor.Float32 {
			panic(fmt.Sprintf("%s: unsupported dtype %s (only float32 supported)", op, t.DType()))
		}
	}
}

// normalizeDim resolves a negative dimension and checks its range.
func normalizeDim(op string, dim, ndim int) int {
	if dim < 0 {
		dim += ndim
	}
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("%s: dimension %d out of range for tensor of rank %d", op, dim, ndim))
	}
	return dim
}

// splitAt decomposes shape around dim into (outer, size, inner) extents.
func splitAt(shape tensor.Shape, dim int) (outer, size, inner int) {
	outer, inner = 1, 1
	for i := 0; i < dim; i++ {
		outer *= shape[i]
	}
	for i := dim + 1; i < len(shape); i++ {
		inner *= shape[i]
	}
	return outer, shape[dim], inner
}
