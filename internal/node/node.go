package node

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aescanero/pdqflow/pkg/domain"
	"github.com/aescanero/pdqflow/pkg/plugin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ArtifactStore is the part of the versioned store a node needs.
type ArtifactStore interface {
	Commit(ctx context.Context, table *domain.Table, message, author string) (string, error)
	Fetch(ctx context.Context, commitID, name string) (*domain.Table, bool, error)
}

// StateListener is notified synchronously after every state change.
type StateListener interface {
	NodeStateChanged(ctx context.Context, n *Node) error
}

// Task is a pre- or post-execution hook. Returning false vetoes the step.
type Task func(ctx context.Context, n *Node) bool

// Node is a plugin placed in a graph.
type Node struct {
	id         string
	label      string
	pluginType string
	plugin     plugin.Plugin
	kind       plugin.Kind
	exec       executor

	store  ArtifactStore
	author string
	logger *zap.Logger

	state    domain.NodeState
	previous map[string]*Node
	next     map[string]*Node

	output *domain.Table
	ref    domain.ArtifactRef
	// last survives Reset so a failing reader can fall back to it.
	last domain.ArtifactRef

	listeners []StateListener
	preTask   Task
	postTask  Task
	stopwatch *Stopwatch
}

// Option configures a Node.
type Option func(*Node)

// WithID sets the node id; a random one is generated otherwise.
func WithID(id string) Option {
	return func(n *Node) { n.id = id }
}

// WithLabel sets the display label; the plugin name is used otherwise.
func WithLabel(label string) Option {
	return func(n *Node) { n.label = label }
}

// WithPluginType records the registry name the plugin was created from.
func WithPluginType(name string) Option {
	return func(n *Node) { n.pluginType = name }
}

// WithAuthor signs the node's commits.
func WithAuthor(author string) Option {
	return func(n *Node) { n.author = author }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(n *Node) { n.logger = logger }
}

// WithClock replaces the stopwatch time source.
func WithClock(now func() time.Time) Option {
	return func(n *Node) { n.stopwatch = newStopwatch(now) }
}

// New wraps p in a node committing to st.
func New(p plugin.Plugin, st ArtifactStore, opts ...Option) (*Node, error) {
	n := &Node{
		id:        uuid.New().String(),
		plugin:    p,
		kind:      plugin.KindOf(p),
		store:     st,
		logger:    zap.NewNop(),
		state:     domain.NodeUnstarted,
		previous:  make(map[string]*Node),
		next:      make(map[string]*Node),
		stopwatch: newStopwatch(time.Now),
	}
	for _, opt := range opts {
		opt(n)
	}

	switch v := p.(type) {
	case plugin.Reader:
		n.exec = &readerExec{reader: v}
	case plugin.Writer:
		n.exec = &writerExec{writer: v}
	case plugin.Action:
		n.exec = &actionExec{action: v}
	case plugin.Pattern:
		n.exec = &patternExec{pattern: v}
	default:
		return nil, fmt.Errorf("plugin %T implements no known variant", p)
	}

	desc := p.Describe()
	if n.label == "" {
		n.label = desc.Name
	}
	if n.pluginType == "" {
		n.pluginType = desc.Name
	}
	n.logger = n.logger.With(zap.String("node_id", n.id))
	return n, nil
}

// ID returns the stable node id.
func (n *Node) ID() string { return n.id }

// Label returns the display label.
func (n *Node) Label() string { return n.label }

// SetLabel renames the node.
func (n *Node) SetLabel(label string) { n.label = label }

// PluginType returns the registry name of the wrapped plugin.
func (n *Node) PluginType() string { return n.pluginType }

// Plugin returns the wrapped plugin.
func (n *Node) Plugin() plugin.Plugin { return n.plugin }

// Kind returns the plugin variant.
func (n *Node) Kind() plugin.Kind { return n.kind }

// State returns the current execution state.
func (n *Node) State() domain.NodeState { return n.state }

// Stopwatch returns the execution timings of the current run.
func (n *Node) Stopwatch() *Stopwatch { return n.stopwatch }

// Ref returns the artifact committed by the current run.
func (n *Node) Ref() domain.ArtifactRef { return n.ref }

// CanStart reports whether the node has not run yet.
func (n *Node) CanStart() bool { return n.state == domain.NodeUnstarted }

// HasCompleted reports whether the node's output is committed.
func (n *Node) HasCompleted() bool { return n.state == domain.NodeCompleted }

// IsPaused reports whether the node waits for review.
func (n *Node) IsPaused() bool { return n.state == domain.NodePaused }

// Output returns the node's current result. While a pattern node is paused
// this is its detected table.
func (n *Node) Output() *domain.Table {
	if p, ok := n.exec.(*patternExec); ok && n.state == domain.NodePaused {
		return p.detected
	}
	return n.output
}

// ArtifactName is the name the node's outputs are committed under.
func (n *Node) ArtifactName() string { return n.id }

// Previous returns the predecessors sorted by id.
func (n *Node) Previous() []*Node { return sorted(n.previous) }

// Next returns the successors sorted by id.
func (n *Node) Next() []*Node { return sorted(n.next) }

// HasPrevious reports whether p is a predecessor.
func (n *Node) HasPrevious(p *Node) bool {
	_, ok := n.previous[p.id]
	return ok
}

// HasNext reports whether s is a successor.
func (n *Node) HasNext(s *Node) bool {
	_, ok := n.next[s.id]
	return ok
}

// AllowsInput reports whether one more predecessor may be connected.
func (n *Node) AllowsInput() bool {
	return allows(n.plugin.Describe().MaxInputs, len(n.previous))
}

// AllowsOutput reports whether one more successor may be connected.
func (n *Node) AllowsOutput() bool {
	return allows(n.plugin.Describe().MaxOutputs, len(n.next))
}

func allows(max, current int) bool {
	return max == plugin.Unlimited || current < max
}

// Connect adds the edge from -> to on both ends. It performs no checks.
func Connect(from, to *Node) {
	from.next[to.id] = to
	to.previous[from.id] = from
}

// Disconnect removes the edge from -> to on both ends.
func Disconnect(from, to *Node) {
	delete(from.next, to.id)
	delete(to.previous, from.id)
}

// AddStateListener registers l once.
func (n *Node) AddStateListener(l StateListener) {
	for _, existing := range n.listeners {
		if existing == l {
			return
		}
	}
	n.listeners = append(n.listeners, l)
}

// RemoveStateListener unregisters l.
func (n *Node) RemoveStateListener(l StateListener) {
	for i, existing := range n.listeners {
		if existing == l {
			n.listeners = append(n.listeners[:i], n.listeners[i+1:]...)
			return
		}
	}
}

// SetPreTask installs the hook run before the node starts.
func (n *Node) SetPreTask(t Task) { n.preTask = t }

// SetPostTask installs the hook run after the node completes.
func (n *Node) SetPostTask(t Task) { n.postTask = t }

// RunPreTask runs the pre-task; true when absent.
func (n *Node) RunPreTask(ctx context.Context) bool {
	return n.preTask == nil || n.preTask(ctx, n)
}

// RunPostTask runs the post-task; true when absent.
func (n *Node) RunPostTask(ctx context.Context) bool {
	return n.postTask == nil || n.postTask(ctx, n)
}

// Run executes the node against the outputs of its predecessors.
func (n *Node) Run(ctx context.Context) error {
	return n.exec.run(ctx, n)
}

// Reset discards the current run and returns the node to unstarted.
func (n *Node) Reset(ctx context.Context) error {
	n.output = nil
	n.ref = domain.ArtifactRef{}
	n.exec.reset()
	return n.setState(ctx, domain.NodeUnstarted)
}

// Inputs returns copies of the predecessors' outputs in predecessor id order.
func (n *Node) Inputs() []*domain.Table {
	var inputs []*domain.Table
	for _, p := range n.Previous() {
		if out := p.Output(); out != nil {
			inputs = append(inputs, out.Clone())
		}
	}
	return inputs
}

// AuxiliaryInputs merges the auxiliary datasets of every predecessor.
func (n *Node) AuxiliaryInputs() domain.DataCollection {
	aux := make(domain.DataCollection)
	for _, p := range n.Previous() {
		if provider, ok := p.plugin.(plugin.AuxiliaryProvider); ok {
			for k, v := range provider.AuxiliaryDatasets() {
				aux[k] = v
			}
		}
	}
	return aux
}

// Summary describes the outcome of the latest run for event logs.
func (n *Node) Summary(event domain.NodeEventType) string {
	switch event {
	case domain.EventNodeCompleted:
		switch n.kind {
		case plugin.KindReader:
			return summary("loaded", n.output.RowCount(), n.stopwatch.Total())
		case plugin.KindWriter:
			return summary("wrote", n.output.RowCount(), n.stopwatch.Total())
		case plugin.KindAction:
			return summary("acted on", n.output.RowCount(), n.stopwatch.Total())
		case plugin.KindPattern:
			p := n.exec.(*patternExec)
			if p.repaired {
				return summary("repaired", n.output.RowCount(), n.stopwatch.Last())
			}
			return summary("detected", p.detected.RowCount(), n.stopwatch.Total())
		}
	case domain.EventNodePaused:
		if p, ok := n.exec.(*patternExec); ok {
			return summary("detected", p.detected.RowCount(), n.stopwatch.Total())
		}
	}
	return ""
}

func summary(verb string, rows int, d time.Duration) string {
	return fmt.Sprintf("%s %d rows in %.3f seconds", verb, rows, d.Seconds())
}

// setState records and announces a state change.
func (n *Node) setState(ctx context.Context, state domain.NodeState) error {
	if n.state == state {
		return nil
	}
	n.state = state
	n.stopwatch.StateChanged(state)
	n.logger.Debug("node state changed", zap.String("state", string(state)))

	for _, l := range n.listeners {
		if err := l.NodeStateChanged(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

// revert moves the node back to state without announcing it.
func (n *Node) revert(state domain.NodeState) {
	n.state = state
}

// commit stores table as the node's output for the current run.
func (n *Node) commit(ctx context.Context, table *domain.Table, message string) error {
	out := table.Clone()
	out.Name = n.ArtifactName()

	commitID, err := n.store.Commit(ctx, out, message, n.author)
	if err != nil {
		return n.fail(err)
	}

	n.output = out
	n.ref = domain.ArtifactRef{CommitID: commitID, Name: out.Name}
	n.last = n.ref
	n.logger.Debug("node output committed",
		zap.String("commit_id", commitID),
		zap.Int("rows", out.RowCount()))
	return nil
}

// restore reloads a committed output as the node's completed result.
func (n *Node) restore(ctx context.Context, ref domain.ArtifactRef) (bool, error) {
	table, found, err := n.store.Fetch(ctx, ref.CommitID, ref.Name)
	if err != nil || !found {
		return false, err
	}
	n.output = table
	n.ref = ref
	n.last = ref
	return true, nil
}

func (n *Node) commitMessage(verb string) string {
	return fmt.Sprintf("%s: %s", n.label, verb)
}

func (n *Node) fail(err error) error {
	return &NodeRunError{NodeID: n.id, Label: n.label, Kind: string(n.kind), Err: err}
}

func sorted(m map[string]*Node) []*Node {
	out := make([]*Node, 0, len(m))
	for _, n := range m {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}
