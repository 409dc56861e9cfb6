// Package builtin registers the plugins shipped with pdqflow.
package builtin

import (
	"github.com/aescanero/pdqflow/pkg/plugin"
	"github.com/aescanero/pdqflow/pkg/plugins/action"
	"github.com/aescanero/pdqflow/pkg/plugins/csvio"
	"github.com/aescanero/pdqflow/pkg/plugins/pattern"
	"github.com/aescanero/pdqflow/pkg/plugins/sqlio"
)

// Type names of the built-in plugins.
const (
	CSVReader      = "csv.reader"
	CSVWriter      = "csv.writer"
	SQLReader      = "sql.reader"
	Select         = "action.select"
	Union          = "action.union"
	Project        = "action.project"
	DistortedLabel = "pattern.distorted_label"
	MissingValue   = "pattern.missing_value"
	DuplicateRows  = "pattern.duplicate_rows"
)

// Register adds every built-in plugin to reg.
func Register(reg *plugin.Registry) error {
	factories := []struct {
		name    string
		factory plugin.Factory
	}{
		{CSVReader, func() plugin.Plugin { return csvio.NewReader() }},
		{CSVWriter, func() plugin.Plugin { return csvio.NewWriter() }},
		{SQLReader, func() plugin.Plugin { return sqlio.NewReader() }},
		{Select, func() plugin.Plugin { return action.NewSelect() }},
		{Union, func() plugin.Plugin { return action.NewUnion() }},
		{Project, func() plugin.Plugin { return action.NewProject() }},
		{DistortedLabel, func() plugin.Plugin { return pattern.NewDistortedLabel() }},
		{MissingValue, func() plugin.Plugin { return pattern.NewMissingValue() }},
		{DuplicateRows, func() plugin.Plugin { return pattern.NewDuplicateRows() }},
	}
	for _, f := range factories {
		if err := reg.Register(f.name, f.factory); err != nil {
			return err
		}
	}
	return nil
}

// NewRegistry returns a registry holding the built-in plugins.
func NewRegistry() *plugin.Registry {
	reg := plugin.NewRegistry()
	if err := Register(reg); err != nil {
		panic(err)
	}
	return reg
}
