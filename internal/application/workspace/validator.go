package workspace

import (
	"github.com/aescanero/pdqflow/pkg/domain"
	"github.com/aescanero/pdqflow/pkg/plugin"
)

// Validator validates graph snapshots
type Validator struct {
	registry *plugin.Registry
}

// NewValidator creates a validator resolving plugin types against registry
func NewValidator(registry *plugin.Registry) *Validator {
	return &Validator{registry: registry}
}

// Validate checks ids, node plugins, edge endpoints and acyclicity
func (v *Validator) Validate(snap *domain.GraphSnapshot) error {
	if snap == nil {
		return invalid("graph is nil")
	}
	if snap.ID == "" {
		return invalid("graph ID is required")
	}

	nodeIDs := make(map[string]bool, len(snap.Nodes))
	for _, n := range snap.Nodes {
		if err := v.validateNode(n); err != nil {
			return err
		}
		if nodeIDs[n.ID] {
			return invalid("duplicate node ID: %s", n.ID)
		}
		nodeIDs[n.ID] = true
	}

	next := make(map[string][]string)
	indegree := make(map[string]int, len(nodeIDs))
	for id := range nodeIDs {
		indegree[id] = 0
	}
	for _, e := range snap.Edges {
		if !nodeIDs[e.From] {
			return invalid("edge references non-existent source node: %s", e.From)
		}
		if !nodeIDs[e.To] {
			return invalid("edge references non-existent target node: %s", e.To)
		}
		if e.From == e.To {
			return invalid("self-referential edge on node %s", e.From)
		}
		next[e.From] = append(next[e.From], e.To)
		indegree[e.To]++
	}

	// Kahn's algorithm: whatever is never released sits on a cycle.
	queue := make([]string, 0, len(indegree))
	for id, d := range indegree {
		if d == 0 {
			queue = append(queue, id)
		}
	}
	visited := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visited++
		for _, s := range next[id] {
			indegree[s]--
			if indegree[s] == 0 {
				queue = append(queue, s)
			}
		}
	}
	if visited != len(indegree) {
		return invalid("graph %s contains a cycle", snap.ID)
	}
	return nil
}

func (v *Validator) validateNode(n domain.NodeSnapshot) error {
	if n.ID == "" {
		return invalid("node ID is required")
	}
	if n.Plugin == "" {
		return invalid("node %s has no plugin type", n.ID)
	}
	if v.registry != nil && !v.registry.Has(n.Plugin) {
		return invalid("node %s uses unknown plugin %s", n.ID, n.Plugin)
	}
	return nil
}
