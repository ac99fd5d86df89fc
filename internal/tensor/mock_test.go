package tensor

// mockBackend implements the element-wise part of Backend naively so the
// typed Tensor wrappers can be tested without a real backend.
type mockBackend struct{}

func (m *mockBackend) Name() string   { return "mock" }
func (m *mockBackend) Device() Device { return CPU }

func (m *mockBackend) Add(a, b *RawTensor) *RawTensor {
	return m.elementWise(a, b, func(x, y float32) float32 { return x + y })
}

func (m *mockBackend) Sub(a, b *RawTensor) *RawTensor {
	return m.elementWise(a, b, func(x, y float32) float32 { return x - y })
}

func (m *mockBackend) Mul(a, b *RawTensor) *RawTensor {
	return m.elementWise(a, b, func(x, y float32) float32 { return x * y })
}

func (m *mockBackend) MulScalar(x *RawTensor, s float32) *RawTensor {
	out := x.Clone()
	data := out.AsFloat32()
	for i := range data {
		data[i] *= s
	}
	return out
}

// elementWise only supports equal shapes.
func (m *mockBackend) elementWise(a, b *RawTensor, op func(x, y float32) float32) *RawTensor {
	if !a.Shape().Equal(b.Shape()) {
		panic("mock: broadcasting not supported")
	}
	out := MustRaw(a.Shape(), Float32, CPU)
	ad, bd, od := a.AsFloat32(), b.AsFloat32(), out.AsFloat32()
	for i := range od {
		od[i] = op(ad[i], bd[i])
	}
	return out
}

func (m *mockBackend) Reshape(t *RawTensor, newShape Shape) *RawTensor {
	v, err := t.View(newShape)
	if err != nil {
		panic(err)
	}
	return v
}

func (m *mockBackend) MatMul(_, _ *RawTensor) *RawTensor           { panic("mock: MatMul not implemented") }
func (m *mockBackend) Transpose(_ *RawTensor, _ ...int) *RawTensor { panic("mock: Transpose not implemented") }
func (m *mockBackend) ReLU(_ *RawTensor) *RawTensor                { panic("mock: ReLU not implemented") }
func (m *mockBackend) Softmax(_ *RawTensor, _ int) *RawTensor      { panic("mock: Softmax not implemented") }
func (m *mockBackend) SumDim(_ *RawTensor, _ int, _ bool) *RawTensor {
	panic("mock: SumDim not implemented")
}
func (m *mockBackend) Argmax(_ *RawTensor, _ int) *RawTensor { panic("mock: Argmax not implemented") }
