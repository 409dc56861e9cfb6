// Package action holds the built-in table transformations.
package action

import (
	"context"
	"errors"
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/aescanero/pdqflow/pkg/domain"
	"github.com/aescanero/pdqflow/pkg/plugin"
)

// OptCondition holds the expr-lang condition rows must satisfy.
const OptCondition = "condition"

// Select keeps the rows for which a boolean expression holds. Columns are
// visible as variables; names that are not identifiers are reachable
// through the row map, e.g. row["first name"] == "Ada".
type Select struct {
	opts *plugin.Options
}

// NewSelect creates a row filter.
func NewSelect() *Select {
	return &Select{opts: plugin.NewOptions().Default(OptCondition, "true")}
}

// Describe returns the catalogue entry of Select.
func (s *Select) Describe() plugin.Descriptor {
	return plugin.Descriptor{
		Name:        "Select",
		Synopsis:    "Keeps the rows matching a condition",
		Description: "The condition is an expr-lang boolean expression over the row.",
		Version:     "1.0",
		Group:       "Filter",
		MaxInputs:   1,
		MaxOutputs:  plugin.Unlimited,
	}
}

// Options returns the options of Select.
func (s *Select) Options() *plugin.Options { return s.opts }

// Act returns the rows of its single input for which the condition is
// true. A condition that does not compile is an InvalidOptionError.
func (s *Select) Act(ctx context.Context, inputs []*domain.Table) (*domain.Table, error) {
	if len(inputs) != 1 {
		return nil, fmt.Errorf("select expects one input, got %d", len(inputs))
	}
	in := inputs[0]

	cond, err := s.opts.String(OptCondition)
	if err != nil {
		return nil, err
	}
	program, err := compile(cond, in.Columns)
	if err != nil {
		return nil, &plugin.InvalidOptionError{Key: OptCondition, Reason: err.Error()}
	}

	out := domain.NewTable(in.Name, in.Columns...)
	for i := range in.Rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ok, err := match(program, in.Record(i))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		if ok {
			out.AppendRow(in.Rows[i]...)
		}
	}
	return out, nil
}

func env(rec map[string]string) map[string]interface{} {
	e := make(map[string]interface{}, len(rec)+1)
	for k, v := range rec {
		e[k] = v
	}
	e["row"] = rec
	return e
}

func compile(cond string, columns []string) (*vm.Program, error) {
	sample := make(map[string]string, len(columns))
	for _, c := range columns {
		sample[c] = ""
	}
	return expr.Compile(cond, expr.Env(env(sample)), expr.AsBool())
}

func match(program *vm.Program, rec map[string]string) (bool, error) {
	out, err := expr.Run(program, env(rec))
	if err != nil {
		return false, err
	}
	ok, isBool := out.(bool)
	if !isBool {
		return false, errors.New("condition did not return a boolean")
	}
	return ok, nil
}
