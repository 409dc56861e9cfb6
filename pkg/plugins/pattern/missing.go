package pattern

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/aescanero/pdqflow/pkg/domain"
	"github.com/aescanero/pdqflow/pkg/plugin"
)

const (
	// OptFill is written into empty cells on repair.
	OptFill = "fill"

	// ColRow holds the index of the master row a detected row came from.
	ColRow = "row"
)

// MissingValue finds rows with empty cells, in one column or in any
// column when none is configured. Repair fills the empty cells.
type MissingValue struct {
	opts *plugin.Options
}

// NewMissingValue creates the pattern checking every column and filling
// with "N/A".
func NewMissingValue() *MissingValue {
	return &MissingValue{
		opts: plugin.NewOptions().
			Default(OptColumn, "").
			Default(OptFill, "N/A"),
	}
}

// Describe returns the catalogue entry of MissingValue.
func (m *MissingValue) Describe() plugin.Descriptor {
	return plugin.Descriptor{
		Name:       "Missing Value",
		Synopsis:   "Detects and fills empty cells",
		Version:    "1.0",
		Group:      "Completeness",
		MaxInputs:  1,
		MaxOutputs: plugin.Unlimited,
	}
}

// Options returns the options of MissingValue.
func (m *MissingValue) Options() *plugin.Options { return m.opts }

// CanRepair is true: empty cells are filled on resume.
func (m *MissingValue) CanRepair() bool { return true }

// columns returns the positions to inspect.
func (m *MissingValue) columns(t *domain.Table) ([]int, error) {
	name, err := m.opts.String(OptColumn)
	if err != nil {
		return nil, err
	}
	if name == "" {
		all := make([]int, len(t.Columns))
		for i := range all {
			all[i] = i
		}
		return all, nil
	}
	i := t.ColumnIndex(name)
	if i < 0 {
		return nil, &plugin.InvalidOptionError{Key: OptColumn, Reason: fmt.Sprintf("unknown column %q", name)}
	}
	return []int{i}, nil
}

func blank(row []string, i int) bool {
	return i >= len(row) || strings.TrimSpace(row[i]) == ""
}

// Detect lists the incomplete rows prefixed by their zero-based position.
func (m *MissingValue) Detect(ctx context.Context, master *domain.Table) (*domain.Table, error) {
	cols, err := m.columns(master)
	if err != nil {
		return nil, err
	}

	out := domain.NewTable("missing", append([]string{ColRow}, master.Columns...)...)
	for r, row := range master.Rows {
		for _, c := range cols {
			if blank(row, c) {
				out.AppendRow(append([]string{strconv.Itoa(r)}, row...)...)
				break
			}
		}
	}
	return out, nil
}

// Repair fills the empty cells of the rows listed in detected.
func (m *MissingValue) Repair(ctx context.Context, master, detected *domain.Table) (*domain.Table, error) {
	cols, err := m.columns(master)
	if err != nil {
		return nil, err
	}
	fill, err := m.opts.String(OptFill)
	if err != nil {
		return nil, err
	}
	rc := detected.ColumnIndex(ColRow)
	if rc < 0 {
		return nil, fmt.Errorf("detected table needs a %q column", ColRow)
	}

	out := master.Clone()
	for _, d := range detected.Rows {
		if rc >= len(d) {
			continue
		}
		r, err := strconv.Atoi(d[rc])
		if err != nil || r < 0 || r >= len(out.Rows) {
			return nil, fmt.Errorf("detected row %q is out of range", d[rc])
		}
		row := out.Rows[r]
		for _, c := range cols {
			if blank(row, c) && c < len(row) {
				row[c] = fill
			}
		}
	}
	return out, nil
}
