package pattern

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/aescanero/pdqflow/pkg/domain"
	"github.com/aescanero/pdqflow/pkg/plugin"
)

// ErrNotRepairable is returned by Repair on detect-only patterns.
var ErrNotRepairable = errors.New("pattern cannot repair")

// DuplicateRows reports rows that repeat an earlier row. It only detects;
// the node completes with the master table unchanged.
type DuplicateRows struct {
	opts *plugin.Options
}

// NewDuplicateRows creates the detect-only duplicate check.
func NewDuplicateRows() *DuplicateRows {
	return &DuplicateRows{opts: plugin.NewOptions()}
}

// Describe returns the catalogue entry of DuplicateRows.
func (d *DuplicateRows) Describe() plugin.Descriptor {
	return plugin.Descriptor{
		Name:       "Duplicate Rows",
		Synopsis:   "Reports repeated rows",
		Version:    "1.0",
		Group:      "Uniqueness",
		MaxInputs:  1,
		MaxOutputs: plugin.Unlimited,
	}
}

// Options returns the options of DuplicateRows.
func (d *DuplicateRows) Options() *plugin.Options { return d.opts }

// CanRepair is false.
func (d *DuplicateRows) CanRepair() bool { return false }

// Detect lists the rows equal to an earlier row, prefixed by their index.
func (d *DuplicateRows) Detect(ctx context.Context, master *domain.Table) (*domain.Table, error) {
	out := domain.NewTable("duplicates", append([]string{ColRow}, master.Columns...)...)
	seen := make(map[string]bool, len(master.Rows))
	for r, row := range master.Rows {
		key := strings.Join(row, "\x1f")
		if seen[key] {
			out.AppendRow(append([]string{strconv.Itoa(r)}, row...)...)
			continue
		}
		seen[key] = true
	}
	return out, nil
}

// Repair always fails with ErrNotRepairable.
func (d *DuplicateRows) Repair(ctx context.Context, master, detected *domain.Table) (*domain.Table, error) {
	return nil, ErrNotRepairable
}
