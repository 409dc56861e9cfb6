package action

import (
	"context"
	"fmt"
	"strings"

	"github.com/aescanero/pdqflow/pkg/domain"
	"github.com/aescanero/pdqflow/pkg/plugin"
)

// OptColumns is the comma separated list of columns to keep, in order.
const OptColumns = "columns"

// Project keeps a comma separated list of columns, in the listed order.
type Project struct {
	opts *plugin.Options
}

// NewProject creates a column projection.
func NewProject() *Project {
	return &Project{opts: plugin.NewOptions().Default(OptColumns, "")}
}

// Describe returns the catalogue entry of Project.
func (p *Project) Describe() plugin.Descriptor {
	return plugin.Descriptor{
		Name:       "Project",
		Synopsis:   "Keeps a subset of the columns",
		Version:    "1.0",
		Group:      "Filter",
		MaxInputs:  1,
		MaxOutputs: plugin.Unlimited,
	}
}

// Options returns the options of Project.
func (p *Project) Options() *plugin.Options { return p.opts }

// Act keeps the configured columns of its single input.
func (p *Project) Act(ctx context.Context, inputs []*domain.Table) (*domain.Table, error) {
	if len(inputs) != 1 {
		return nil, fmt.Errorf("project expects one input, got %d", len(inputs))
	}
	in := inputs[0]

	raw, err := p.opts.String(OptColumns)
	if err != nil {
		return nil, err
	}
	var columns []string
	var pos []int
	for _, c := range strings.Split(raw, ",") {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		i := in.ColumnIndex(c)
		if i < 0 {
			return nil, &plugin.InvalidOptionError{Key: OptColumns, Reason: fmt.Sprintf("unknown column %q", c)}
		}
		columns = append(columns, c)
		pos = append(pos, i)
	}
	if len(columns) == 0 {
		return nil, &plugin.InvalidOptionError{Key: OptColumns, Reason: "no columns selected"}
	}

	out := domain.NewTable(in.Name, columns...)
	for _, row := range in.Rows {
		cells := make([]string, len(pos))
		for j, i := range pos {
			if i < len(row) {
				cells[j] = row[i]
			}
		}
		out.AppendRow(cells...)
	}
	return out, nil
}
