package action

import (
	"context"
	"fmt"

	"github.com/aescanero/pdqflow/pkg/domain"
	"github.com/aescanero/pdqflow/pkg/plugin"
)

// Union appends the rows of its second input to its first. Columns are
// matched by name; columns present in only one input are kept and left
// empty where missing.
type Union struct {
	opts *plugin.Options
}

// NewUnion creates a union of up to two inputs.
func NewUnion() *Union {
	return &Union{opts: plugin.NewOptions()}
}

// Describe returns the catalogue entry of Union.
func (u *Union) Describe() plugin.Descriptor {
	return plugin.Descriptor{
		Name:       "Union",
		Synopsis:   "Concatenates two tables",
		Version:    "1.0",
		Group:      "Combine",
		MaxInputs:  2,
		MaxOutputs: plugin.Unlimited,
	}
}

// Options returns the options of Union.
func (u *Union) Options() *plugin.Options { return u.opts }

// Act concatenates its inputs under the union of their columns.
func (u *Union) Act(ctx context.Context, inputs []*domain.Table) (*domain.Table, error) {
	if len(inputs) == 0 || len(inputs) > 2 {
		return nil, fmt.Errorf("union expects one or two inputs, got %d", len(inputs))
	}

	columns := append([]string(nil), inputs[0].Columns...)
	for _, in := range inputs[1:] {
		for _, c := range in.Columns {
			if indexOf(columns, c) < 0 {
				columns = append(columns, c)
			}
		}
	}

	out := domain.NewTable(inputs[0].Name, columns...)
	for _, in := range inputs {
		pos := make([]int, len(columns))
		for j, c := range columns {
			pos[j] = in.ColumnIndex(c)
		}
		for _, row := range in.Rows {
			cells := make([]string, len(columns))
			for j, p := range pos {
				if p >= 0 && p < len(row) {
					cells[j] = row[p]
				}
			}
			out.AppendRow(cells...)
		}
	}
	return out, nil
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
