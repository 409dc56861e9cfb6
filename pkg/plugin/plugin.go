package plugin

import (
	"context"

	"github.com/aescanero/pdqflow/pkg/domain"
)

// Unlimited lifts the edge limit of a descriptor.
const Unlimited = -1

// Kind classifies a plugin by the variant interface it implements.
type Kind string

const (
	KindReader  Kind = "reader"
	KindWriter  Kind = "writer"
	KindAction  Kind = "action"
	KindPattern Kind = "pattern"
	KindUnknown Kind = ""
)

// Descriptor is the static metadata of a plugin.
type Descriptor struct {
	Name        string `json:"name"`
	Author      string `json:"author,omitempty"`
	Synopsis    string `json:"synopsis,omitempty"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version,omitempty"`
	Group       string `json:"group,omitempty"`

	// MaxInputs and MaxOutputs bound the connectors of a node; Unlimited
	// removes the bound.
	MaxInputs  int `json:"max_inputs"`
	MaxOutputs int `json:"max_outputs"`
}

// Plugin is implemented by every processing step.
type Plugin interface {
	Describe() Descriptor
	Options() *Options
}

// Reader loads a table from an external source.
type Reader interface {
	Plugin
	Read(ctx context.Context) (*domain.Table, error)
}

// Writer sends a table to an external sink. aux carries the auxiliary
// datasets of the writer's predecessors.
type Writer interface {
	Plugin
	Write(ctx context.Context, table *domain.Table, aux domain.DataCollection) error
}

// Action derives one table from its inputs.
type Action interface {
	Plugin
	Act(ctx context.Context, inputs []*domain.Table) (*domain.Table, error)
}

// Pattern detects an imperfection in a table and may repair it.
type Pattern interface {
	Plugin
	Detect(ctx context.Context, master *domain.Table) (*domain.Table, error)
	CanRepair() bool
	Repair(ctx context.Context, master, detected *domain.Table) (*domain.Table, error)
}

// AuxiliaryProvider is implemented by plugins that hand extra datasets to
// downstream writers.
type AuxiliaryProvider interface {
	AuxiliaryDatasets() domain.DataCollection
}

// KindOf returns the variant implemented by p.
func KindOf(p Plugin) Kind {
	switch p.(type) {
	case Reader:
		return KindReader
	case Writer:
		return KindWriter
	case Action:
		return KindAction
	case Pattern:
		return KindPattern
	default:
		return KindUnknown
	}
}
