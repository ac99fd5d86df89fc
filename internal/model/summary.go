package model

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/born-ml/digits/internal/nn"
	"github.com/born-ml/digits/internal/tensor"
)

// Summary writes a layer table in the format of Keras' model.summary():
// layer name and type, output shape with the batch dimension as None, and
// parameter count.
func (m *Model[B]) Summary(w io.Writer) error {
	if m.inputShape == nil {
		return ErrNotBuilt
	}

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "Layer (type)\tOutput Shape\tParam #")

	seen := make(map[string]int)
	shape := withBatch(m.inputShape)
	total := 0
	for _, layer := range m.net.Modules() {
		out, err := layer.OutputShape(shape)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrShapeMismatch, err)
		}
		shape = out

		kind := layer.Name()
		name := kind
		if n := seen[kind]; n > 0 {
			name = fmt.Sprintf("%s_%d", kind, n)
		}
		seen[kind]++

		params := nn.CountParameters(layer.Parameters())
		total += params
		fmt.Fprintf(tw, "%s (%s)\t%s\t%d\n", name, typeName(kind), formatShape(out), params)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "Total params: %d\nTrainable params: %d\n", total, total)
	return err
}

func typeName(kind string) string {
	if kind == "" {
		return ""
	}
	return strings.ToUpper(kind[:1]) + kind[1:]
}

// formatShape renders [1, 100] as (None, 100).
func formatShape(shape tensor.Shape) string {
	parts := make([]string, len(shape))
	parts[0] = "None"
	for i := 1; i < len(shape); i++ {
		parts[i] = fmt.Sprint(shape[i])
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
