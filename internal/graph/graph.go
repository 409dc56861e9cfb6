package graph

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aescanero/pdqflow/internal/node"
	"github.com/aescanero/pdqflow/pkg/adapters/events/memory"
	"github.com/aescanero/pdqflow/pkg/domain"
	"github.com/aescanero/pdqflow/pkg/ports"
	"go.uber.org/zap"
)

// DefaultName is given to graphs built without a name.
const DefaultName = "New Graph"

// Graph is a DAG of nodes plus its descriptive metadata.
type Graph struct {
	id            string
	name          string
	creator       string
	owner         string
	shared        bool
	description   string
	userContent   string
	creationTime  time.Time
	lastSavedTime *time.Time

	nodes map[string]*node.Node

	repo   ports.GraphRepository
	logger *zap.Logger
	events *memory.Bus[domain.GraphEvent]
	now    func() time.Time
}

// ID returns the graph id.
func (g *Graph) ID() string { return g.id }

// Name returns the graph name.
func (g *Graph) Name() string { return g.name }

// Creator returns who created the graph.
func (g *Graph) Creator() string { return g.creator }

// Owner returns the current owner.
func (g *Graph) Owner() string { return g.owner }

// Shared reports whether other users may open the graph.
func (g *Graph) Shared() bool { return g.shared }

// Description returns the free-form description.
func (g *Graph) Description() string { return g.description }

// UserContent returns the opaque content blob kept for editors.
func (g *Graph) UserContent() string { return g.userContent }

// CreationTime returns when the graph was created.
func (g *Graph) CreationTime() time.Time { return g.creationTime }

// LastSavedTime returns when the graph was last persisted, if ever.
func (g *Graph) LastSavedTime() *time.Time { return g.lastSavedTime }

// Subscribe registers fn for structural change events.
func (g *Graph) Subscribe(fn func(domain.GraphEvent)) memory.Subscription {
	return g.events.Subscribe(fn)
}

// UpdateName renames the graph and persists it.
func (g *Graph) UpdateName(ctx context.Context, name string) error {
	g.name = name
	return g.updated(ctx)
}

// UpdateOwner transfers ownership and persists it.
func (g *Graph) UpdateOwner(ctx context.Context, owner string) error {
	g.owner = owner
	return g.updated(ctx)
}

// UpdateDescription replaces the description and persists it.
func (g *Graph) UpdateDescription(ctx context.Context, description string) error {
	g.description = description
	return g.updated(ctx)
}

// UpdateUserContent replaces the editor content and persists it.
func (g *Graph) UpdateUserContent(ctx context.Context, content string) error {
	g.userContent = content
	return g.updated(ctx)
}

// UpdateShared sets the shared flag and persists it.
func (g *Graph) UpdateShared(ctx context.Context, shared bool) error {
	g.shared = shared
	return g.updated(ctx)
}

func (g *Graph) updated(ctx context.Context) error {
	if err := g.Save(ctx); err != nil {
		return err
	}
	g.announce(domain.EventGraphUpdated, "", "")
	return nil
}

// Save persists a snapshot of the graph. Without a repository it only
// stamps the save time.
func (g *Graph) Save(ctx context.Context) error {
	saved := g.now().UTC()
	g.lastSavedTime = &saved
	if g.repo == nil {
		return nil
	}
	if err := g.repo.Save(ctx, g.Snapshot()); err != nil {
		return fmt.Errorf("failed to save graph %s: %w", g.id, err)
	}
	return nil
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (*node.Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns every node sorted by id.
func (g *Graph) Nodes() []*node.Node {
	out := make([]*node.Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// AddNode places n in the graph.
func (g *Graph) AddNode(n *node.Node) error {
	if _, exists := g.nodes[n.ID()]; exists {
		return fmt.Errorf("node %s already in graph", n.ID())
	}
	g.nodes[n.ID()] = n
	g.logger.Debug("node added", zap.String("node_id", n.ID()), zap.String("plugin", n.PluginType()))
	g.announce(domain.EventNodeAdded, n.ID(), "")
	return nil
}

// RemoveNode disconnects n from every neighbour and drops it.
func (g *Graph) RemoveNode(n *node.Node) error {
	if _, ok := g.nodes[n.ID()]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, n.ID())
	}
	for _, p := range n.Previous() {
		g.disconnect(p, n)
	}
	for _, s := range n.Next() {
		g.disconnect(n, s)
	}
	delete(g.nodes, n.ID())
	g.logger.Debug("node removed", zap.String("node_id", n.ID()))
	g.announce(domain.EventNodeRemoved, n.ID(), "")
	return nil
}

// Connect adds the edge from -> to.
func (g *Graph) Connect(from, to *node.Node) error {
	if err := g.contains(from, to); err != nil {
		return err
	}
	if from == to {
		return fmt.Errorf("%w: self-referential edge on node %s", ErrCycle, from.ID())
	}
	if from.HasNext(to) {
		return nil
	}
	if !from.AllowsOutput() {
		return fmt.Errorf("%w: %s accepts no more outputs", ErrCapacity, from.ID())
	}
	if !to.AllowsInput() {
		return fmt.Errorf("%w: %s accepts no more inputs", ErrCapacity, to.ID())
	}
	if reachable(to, from) {
		return fmt.Errorf("%w: %s -> %s", ErrCycle, from.ID(), to.ID())
	}

	node.Connect(from, to)
	g.logger.Debug("connector added",
		zap.String("node_id", from.ID()),
		zap.String("target_id", to.ID()))
	g.announce(domain.EventConnectorAdded, from.ID(), to.ID())
	return nil
}

// Disconnect removes the edge from -> to.
func (g *Graph) Disconnect(from, to *node.Node) error {
	if err := g.contains(from, to); err != nil {
		return err
	}
	if !from.HasNext(to) {
		return nil
	}
	g.disconnect(from, to)
	return nil
}

func (g *Graph) disconnect(from, to *node.Node) {
	node.Disconnect(from, to)
	g.logger.Debug("connector removed",
		zap.String("node_id", from.ID()),
		zap.String("target_id", to.ID()))
	g.announce(domain.EventConnectorRemoved, from.ID(), to.ID())
}

func (g *Graph) contains(nodes ...*node.Node) error {
	for _, n := range nodes {
		if existing, ok := g.nodes[n.ID()]; !ok || existing != n {
			return fmt.Errorf("%w: %s", ErrNotFound, n.ID())
		}
	}
	return nil
}

func (g *Graph) announce(t domain.GraphEventType, nodeID, targetID string) {
	g.events.Publish(domain.GraphEvent{
		Type:      t,
		GraphID:   g.id,
		NodeID:    nodeID,
		TargetID:  targetID,
		Timestamp: g.now().UTC(),
	})
}

// reachable reports whether to can be reached from from along successor edges.
func reachable(from, to *node.Node) bool {
	seen := make(map[*node.Node]bool)
	stack := []*node.Node{from}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == to {
			return true
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		stack = append(stack, n.Next()...)
	}
	return false
}
