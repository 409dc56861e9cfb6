package graph

import (
	"sort"

	"github.com/aescanero/pdqflow/internal/node"
)

// Heads returns the nodes without predecessors that some node leads back
// to, i.e. the heads of every component.
func (g *Graph) Heads() ([]*node.Node, error) {
	return g.collect(func(n *node.Node) ([]*node.Node, error) { return g.HeadsFrom(n) })
}

// Tails returns the nodes without successors of every component.
func (g *Graph) Tails() ([]*node.Node, error) {
	return g.collect(func(n *node.Node) ([]*node.Node, error) { return g.TailsFrom(n) })
}

// HeadsFrom follows predecessor edges from n until none remain.
func (g *Graph) HeadsFrom(n *node.Node) ([]*node.Node, error) {
	return walk(n, (*node.Node).Previous)
}

// TailsFrom follows successor edges from n until none remain.
func (g *Graph) TailsFrom(n *node.Node) ([]*node.Node, error) {
	return walk(n, (*node.Node).Next)
}

// DetectCycles walks the whole graph and reports the first cycle found.
func (g *Graph) DetectCycles() error {
	_, err := g.Tails()
	return err
}

func (g *Graph) collect(from func(*node.Node) ([]*node.Node, error)) ([]*node.Node, error) {
	set := make(map[*node.Node]bool)
	for _, n := range g.Nodes() {
		found, err := from(n)
		if err != nil {
			return nil, err
		}
		for _, f := range found {
			set[f] = true
		}
	}
	return sortedSet(set), nil
}

// walk collects the ends reached from start along step. A node met again
// while still on the current path is a cycle.
func walk(start *node.Node, step func(*node.Node) []*node.Node) ([]*node.Node, error) {
	ends := make(map[*node.Node]bool)
	onPath := make(map[*node.Node]bool)
	done := make(map[*node.Node]bool)

	var visit func(n *node.Node) error
	visit = func(n *node.Node) error {
		if onPath[n] {
			return &StructuralError{NodeID: n.ID(), Err: ErrCycle}
		}
		if done[n] {
			return nil
		}
		onPath[n] = true
		defer delete(onPath, n)

		neighbours := step(n)
		if len(neighbours) == 0 {
			ends[n] = true
		}
		for _, nb := range neighbours {
			if err := visit(nb); err != nil {
				return err
			}
		}
		done[n] = true
		return nil
	}

	if err := visit(start); err != nil {
		return nil, err
	}
	return sortedSet(ends), nil
}

func sortedSet(set map[*node.Node]bool) []*node.Node {
	out := make([]*node.Node, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}
