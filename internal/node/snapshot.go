package node

import (
	"context"
	"fmt"

	"github.com/aescanero/pdqflow/pkg/domain"
	"github.com/aescanero/pdqflow/pkg/plugin"
)

// Snapshot returns the persisted form of the node.
func (n *Node) Snapshot() domain.NodeSnapshot {
	snap := domain.NodeSnapshot{
		ID:      n.id,
		Label:   n.label,
		Plugin:  n.pluginType,
		Options: n.plugin.Options().Changes(),
	}
	if !n.ref.IsZero() {
		snap.CommitID = n.ref.CommitID
		snap.TableID = n.ref.Name
	}
	return snap
}

// Load rebuilds a node from its snapshot. The plugin is created through
// reg and the saved option changes are reapplied. A committed output is
// reloaded from st, leaving the node completed.
func Load(ctx context.Context, snap domain.NodeSnapshot, reg *plugin.Registry, st ArtifactStore, opts ...Option) (*Node, error) {
	p, err := reg.New(snap.Plugin)
	if err != nil {
		return nil, fmt.Errorf("failed to create plugin for node %s: %w", snap.ID, err)
	}
	p.Options().Apply(snap.Options)

	opts = append([]Option{WithID(snap.ID), WithLabel(snap.Label), WithPluginType(snap.Plugin)}, opts...)
	n, err := New(p, st, opts...)
	if err != nil {
		return nil, err
	}

	if snap.CommitID == "" || snap.TableID == "" {
		return n, nil
	}

	found, err := n.restore(ctx, domain.ArtifactRef{CommitID: snap.CommitID, Name: snap.TableID})
	if err != nil {
		return nil, fmt.Errorf("failed to reload output of node %s: %w", snap.ID, err)
	}
	if found {
		n.state = domain.NodeCompleted
	}
	return n, nil
}
