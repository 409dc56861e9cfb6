// Package plugintest provides scriptable plugins for exercising the engine
// in tests.
package plugintest

import (
	"context"

	"github.com/aescanero/pdqflow/pkg/domain"
	"github.com/aescanero/pdqflow/pkg/plugin"
)

// Reader returns Table, or Err when set. Calls counts Read invocations.
type Reader struct {
	Table *domain.Table
	Err   error
	Calls int
	opts  *plugin.Options
}

// NewReader creates a reader serving t.
func NewReader(t *domain.Table) *Reader {
	return &Reader{Table: t, opts: plugin.NewOptions()}
}

// Describe returns a source descriptor.
func (r *Reader) Describe() plugin.Descriptor {
	return plugin.Descriptor{Name: "Test Reader", MaxInputs: 0, MaxOutputs: plugin.Unlimited}
}

// Options returns the reader options.
func (r *Reader) Options() *plugin.Options {
	if r.opts == nil {
		r.opts = plugin.NewOptions()
	}
	return r.opts
}

// Read returns a copy of Table, or Err.
func (r *Reader) Read(ctx context.Context) (*domain.Table, error) {
	r.Calls++
	if r.Err != nil {
		return nil, r.Err
	}
	return r.Table.Clone(), nil
}

// Writer records what it was asked to write.
type Writer struct {
	Written *domain.Table
	Aux     domain.DataCollection
	Err     error
	Calls   int
	opts    *plugin.Options
}

// NewWriter creates a recording writer.
func NewWriter() *Writer {
	return &Writer{opts: plugin.NewOptions()}
}

// Describe returns a sink descriptor.
func (w *Writer) Describe() plugin.Descriptor {
	return plugin.Descriptor{Name: "Test Writer", MaxInputs: 1, MaxOutputs: 1}
}

// Options returns the writer options.
func (w *Writer) Options() *plugin.Options {
	if w.opts == nil {
		w.opts = plugin.NewOptions()
	}
	return w.opts
}

// Write records t and aux, or returns Err.
func (w *Writer) Write(ctx context.Context, t *domain.Table, aux domain.DataCollection) error {
	w.Calls++
	if w.Err != nil {
		return w.Err
	}
	w.Written = t.Clone()
	w.Aux = aux
	return nil
}

// Action concatenates the rows of its inputs, or returns Err.
type Action struct {
	Inputs    []*domain.Table
	Err       error
	Calls     int
	MaxInputs int
	opts      *plugin.Options
}

// NewAction creates a concatenating action accepting any number of inputs.
func NewAction() *Action {
	return &Action{MaxInputs: plugin.Unlimited, opts: plugin.NewOptions()}
}

// Describe returns the action descriptor.
func (a *Action) Describe() plugin.Descriptor {
	return plugin.Descriptor{Name: "Test Action", MaxInputs: a.MaxInputs, MaxOutputs: plugin.Unlimited}
}

// Options returns the action options.
func (a *Action) Options() *plugin.Options {
	if a.opts == nil {
		a.opts = plugin.NewOptions()
	}
	return a.opts
}

// Act concatenates the rows of its inputs, or returns Err.
func (a *Action) Act(ctx context.Context, inputs []*domain.Table) (*domain.Table, error) {
	a.Calls++
	a.Inputs = inputs
	if a.Err != nil {
		return nil, a.Err
	}
	out := &domain.Table{Name: "concat"}
	for _, in := range inputs {
		if out.Columns == nil {
			out.Columns = append([]string(nil), in.Columns...)
		}
		for _, r := range in.Rows {
			out.Rows = append(out.Rows, append([]string(nil), r...))
		}
	}
	return out, nil
}

// Pattern detects Detected and repairs to Repaired.
type Pattern struct {
	Detected   *domain.Table
	Repaired   *domain.Table
	Repairable bool
	DetectErr  error
	RepairErr  error

	DetectCalls int
	RepairCalls int
	// GotDetected is the detected table handed to the last Repair call.
	GotDetected *domain.Table

	opts *plugin.Options
}

// NewPattern creates a pattern plugin.
func NewPattern(detected, repaired *domain.Table, repairable bool) *Pattern {
	return &Pattern{Detected: detected, Repaired: repaired, Repairable: repairable, opts: plugin.NewOptions()}
}

// Describe returns the pattern descriptor.
func (p *Pattern) Describe() plugin.Descriptor {
	return plugin.Descriptor{Name: "Test Pattern", MaxInputs: 1, MaxOutputs: plugin.Unlimited}
}

// Options returns the pattern options.
func (p *Pattern) Options() *plugin.Options {
	if p.opts == nil {
		p.opts = plugin.NewOptions()
	}
	return p.opts
}

// Detect returns a copy of Detected, or DetectErr.
func (p *Pattern) Detect(ctx context.Context, master *domain.Table) (*domain.Table, error) {
	p.DetectCalls++
	if p.DetectErr != nil {
		return nil, p.DetectErr
	}
	return p.Detected.Clone(), nil
}

// CanRepair reports Repairable.
func (p *Pattern) CanRepair() bool {
	return p.Repairable
}

// Repair returns a copy of Repaired, or RepairErr.
func (p *Pattern) Repair(ctx context.Context, master, detected *domain.Table) (*domain.Table, error) {
	p.RepairCalls++
	p.GotDetected = detected
	if p.RepairErr != nil {
		return nil, p.RepairErr
	}
	return p.Repaired.Clone(), nil
}
