package graph

import (
	"context"
	"fmt"

	"github.com/aescanero/pdqflow/internal/node"
	"github.com/aescanero/pdqflow/pkg/domain"
	"github.com/aescanero/pdqflow/pkg/plugin"
	"github.com/aescanero/pdqflow/pkg/ports"
	"go.uber.org/zap"
)

// Snapshot returns the persisted form of the graph.
func (g *Graph) Snapshot() *domain.GraphSnapshot {
	snap := &domain.GraphSnapshot{
		ID:            g.id,
		Name:          g.name,
		Creator:       g.creator,
		Owner:         g.owner,
		Shared:        g.shared,
		Description:   g.description,
		UserContent:   g.userContent,
		CreationTime:  g.creationTime,
		LastSavedTime: g.lastSavedTime,
		Nodes:         []domain.NodeSnapshot{},
		Edges:         []domain.EdgeSnapshot{},
	}
	for _, n := range g.Nodes() {
		snap.Nodes = append(snap.Nodes, n.Snapshot())
		for _, s := range n.Next() {
			snap.Edges = append(snap.Edges, domain.EdgeSnapshot{From: n.ID(), To: s.ID()})
		}
	}
	return snap
}

// LoadOptions carries the collaborators a loaded graph needs.
type LoadOptions struct {
	Registry   *plugin.Registry
	Store      node.ArtifactStore
	Repository ports.GraphRepository
	Logger     *zap.Logger
	// NodeOptions are applied to every rebuilt node.
	NodeOptions []node.Option
}

// Load rebuilds a graph from its snapshot. Edges are restored as saved and
// the result is checked for cycles.
func Load(ctx context.Context, snap *domain.GraphSnapshot, opts LoadOptions) (*Graph, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	g := NewBuilder(snap.Creator).
		ID(snap.ID).
		Name(snap.Name).
		Owner(snap.Owner).
		Shared(snap.Shared).
		Description(snap.Description).
		UserContent(snap.UserContent).
		CreationTime(snap.CreationTime).
		LastSavedTime(snap.LastSavedTime).
		Repository(opts.Repository).
		Logger(logger).
		build()

	nodeOpts := append([]node.Option{node.WithLogger(logger)}, opts.NodeOptions...)
	for _, ns := range snap.Nodes {
		n, err := node.Load(ctx, ns, opts.Registry, opts.Store, nodeOpts...)
		if err != nil {
			return nil, err
		}
		if err := g.AddNode(n); err != nil {
			return nil, err
		}
	}

	for _, e := range snap.Edges {
		from, ok := g.nodes[e.From]
		if !ok {
			return nil, fmt.Errorf("%w: edge source %s", ErrNotFound, e.From)
		}
		to, ok := g.nodes[e.To]
		if !ok {
			return nil, fmt.Errorf("%w: edge target %s", ErrNotFound, e.To)
		}
		node.Connect(from, to)
	}

	if err := g.DetectCycles(); err != nil {
		return nil, err
	}
	return g, nil
}
