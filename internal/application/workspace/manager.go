package workspace

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aescanero/pdqflow/internal/graph"
	"github.com/aescanero/pdqflow/internal/node"
	"github.com/aescanero/pdqflow/internal/runner"
	"github.com/aescanero/pdqflow/internal/store"
	"github.com/aescanero/pdqflow/pkg/adapters/events/memory"
	"github.com/aescanero/pdqflow/pkg/domain"
	"github.com/aescanero/pdqflow/pkg/plugin"
	"github.com/aescanero/pdqflow/pkg/ports"
)

// EventRunnerState is the event type of runner state changes.
const EventRunnerState = "runner.state"

// Manager coordinates the open graphs
type Manager struct {
	registry   *plugin.Registry
	store      *store.Store
	repository ports.GraphRepository
	eventBus   ports.EventBus
	metrics    ports.MetricsCollector
	validator  *Validator
	logger     *zap.Logger

	// Optional mirror of every event, e.g. a Redis stream
	stream ports.EventBus

	// Track open graphs
	sessions sync.Map // map[string]*session
	opening  sync.Mutex

	actionTimeout time.Duration
}

// session holds one open graph and its runner
type session struct {
	graph  *graph.Graph
	runner *runner.Runner
	subs   []memory.Subscription
	mu     sync.Mutex
}

// NewManager creates a new workspace manager
func NewManager(
	registry *plugin.Registry,
	st *store.Store,
	repository ports.GraphRepository,
	eventBus ports.EventBus,
	metrics ports.MetricsCollector,
	validator *Validator,
	logger *zap.Logger,
	actionTimeout time.Duration,
) *Manager {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	if validator == nil {
		validator = NewValidator(registry)
	}
	return &Manager{
		registry:      registry,
		store:         st,
		repository:    repository,
		eventBus:      eventBus,
		metrics:       metrics,
		validator:     validator,
		logger:        logger,
		actionTimeout: actionTimeout,
	}
}

// SetStream mirrors every forwarded event to bus.
func (m *Manager) SetStream(bus ports.EventBus) {
	m.stream = bus
}

// Plugins lists the registered plugin types.
func (m *Manager) Plugins() []plugin.Entry {
	return m.registry.Entries()
}

// CreateGraph builds, persists and opens a new graph
func (m *Manager) CreateGraph(ctx context.Context, req CreateGraphRequest) (*GraphView, error) {
	if req.Creator == "" {
		return nil, invalid("creator is required")
	}

	b := graph.NewBuilder(req.Creator).
		Name(req.Name).
		Description(req.Description).
		Shared(req.Shared).
		Repository(m.repository).
		Logger(m.logger)
	if req.ID != "" {
		b = b.ID(req.ID)
	}

	g, err := b.Build(ctx)
	if err != nil {
		m.logger.Error("failed to create graph", zap.Error(err))
		return nil, fmt.Errorf("failed to create graph: %w", err)
	}

	s := m.track(g)
	m.forward(g.ID(), string(domain.EventGraphCreated), map[string]interface{}{
		"name":    g.Name(),
		"creator": g.Creator(),
	})
	m.logger.Info("graph created",
		zap.String("graph_id", g.ID()),
		zap.String("creator", g.Creator()))

	return s.view(), nil
}

// GetGraph returns the current view of a graph, opening it if needed
func (m *Manager) GetGraph(ctx context.Context, graphID string) (*GraphView, error) {
	s, err := m.open(ctx, graphID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view(), nil
}

// ListGraphs returns the ids of every persisted graph
func (m *Manager) ListGraphs(ctx context.Context) ([]string, error) {
	ids, err := m.repository.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list graphs: %w", err)
	}
	return ids, nil
}

// UpdateGraph changes the metadata of a graph
func (m *Manager) UpdateGraph(ctx context.Context, graphID string, req UpdateGraphRequest) (*GraphView, error) {
	var view *GraphView
	err := m.with(ctx, graphID, func(s *session) error {
		g := s.graph
		if req.Name != nil {
			if err := g.UpdateName(ctx, *req.Name); err != nil {
				return err
			}
		}
		if req.Owner != nil {
			if err := g.UpdateOwner(ctx, *req.Owner); err != nil {
				return err
			}
		}
		if req.Description != nil {
			if err := g.UpdateDescription(ctx, *req.Description); err != nil {
				return err
			}
		}
		if req.UserContent != nil {
			if err := g.UpdateUserContent(ctx, *req.UserContent); err != nil {
				return err
			}
		}
		if req.Shared != nil {
			if err := g.UpdateShared(ctx, *req.Shared); err != nil {
				return err
			}
		}
		view = s.view()
		return nil
	})
	return view, err
}

// DeleteGraph closes a graph and removes its snapshot
func (m *Manager) DeleteGraph(ctx context.Context, graphID string) error {
	if val, ok := m.sessions.LoadAndDelete(graphID); ok {
		val.(*session).close()
		m.updateActiveGraphs()
	}
	if err := m.repository.Delete(ctx, graphID); err != nil {
		return fmt.Errorf("failed to delete graph %s: %w", graphID, err)
	}
	m.logger.Info("graph deleted", zap.String("graph_id", graphID))
	return nil
}

// AddNode creates a node from a registered plugin and places it in a graph
func (m *Manager) AddNode(ctx context.Context, graphID string, req AddNodeRequest) (*NodeView, error) {
	p, err := m.registry.New(req.Plugin)
	if err != nil {
		return nil, invalid("%v", err)
	}
	p.Options().Apply(req.Options)

	opts := []node.Option{
		node.WithPluginType(req.Plugin),
		node.WithLabel(req.Label),
		node.WithAuthor(req.Author),
		node.WithLogger(m.logger.With(zap.String("graph_id", graphID))),
	}
	if req.ID != "" {
		opts = append(opts, node.WithID(req.ID))
	}

	var view *NodeView
	err = m.with(ctx, graphID, func(s *session) error {
		n, err := node.New(p, m.store, opts...)
		if err != nil {
			return err
		}
		if err := s.graph.AddNode(n); err != nil {
			return invalid("%v", err)
		}
		view = nodeView(n)
		return s.graph.Save(ctx)
	})
	return view, err
}

// ConfigureNode applies option changes to a node that has not run
func (m *Manager) ConfigureNode(ctx context.Context, graphID, nodeID string, req ConfigureNodeRequest) (*NodeView, error) {
	var view *NodeView
	err := m.withNode(ctx, graphID, nodeID, func(s *session, n *node.Node) error {
		if !n.CanStart() {
			return ErrNodeStarted
		}
		if req.Label != nil {
			n.SetLabel(*req.Label)
		}
		n.Plugin().Options().Apply(req.Options)
		view = nodeView(n)
		return s.graph.Save(ctx)
	})
	return view, err
}

// RemoveNode drops a node and its connectors
func (m *Manager) RemoveNode(ctx context.Context, graphID, nodeID string) error {
	return m.withNode(ctx, graphID, nodeID, func(s *session, n *node.Node) error {
		if err := s.graph.RemoveNode(n); err != nil {
			return err
		}
		return s.graph.Save(ctx)
	})
}

// Connect adds the edge from -> to
func (m *Manager) Connect(ctx context.Context, graphID, from, to string) error {
	return m.withEdge(ctx, graphID, from, to, func(s *session, a, b *node.Node) error {
		return s.graph.Connect(a, b)
	})
}

// Disconnect removes the edge from -> to
func (m *Manager) Disconnect(ctx context.Context, graphID, from, to string) error {
	return m.withEdge(ctx, graphID, from, to, func(s *session, a, b *node.Node) error {
		return s.graph.Disconnect(a, b)
	})
}

// Do runs a runner action on a node and returns the resulting runner state.
// Stop needs no node.
func (m *Manager) Do(ctx context.Context, graphID string, action runner.Action, nodeID string) (*GraphView, error) {
	if m.actionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.actionTimeout)
		defer cancel()
	}

	var view *GraphView
	err := m.with(ctx, graphID, func(s *session) error {
		var n *node.Node
		if action != runner.ActionStop {
			var ok bool
			if n, ok = s.graph.Node(nodeID); !ok {
				return fmt.Errorf("%w: %s", graph.ErrNotFound, nodeID)
			}
		}

		actErr := s.runner.Do(ctx, action, n)
		// Commits made before a failure are still worth keeping.
		if err := s.graph.Save(ctx); err != nil {
			m.logger.Error("failed to save graph after action",
				zap.String("graph_id", graphID),
				zap.String("action", string(action)),
				zap.Error(err))
			if actErr == nil {
				actErr = err
			}
		}
		view = s.view()
		return actErr
	})
	return view, err
}

// Execute runs a queued command; it lets the manager serve a worker pool.
func (m *Manager) Execute(ctx context.Context, cmd domain.Command) error {
	action, err := runner.ParseAction(cmd.Action)
	if err != nil {
		return invalid("%v", err)
	}
	_, err = m.Do(ctx, cmd.GraphID, action, cmd.NodeID)
	return err
}

// NodeOutput returns the table a node currently exposes
func (m *Manager) NodeOutput(ctx context.Context, graphID, nodeID string) (*domain.Table, error) {
	var out *domain.Table
	err := m.withNode(ctx, graphID, nodeID, func(s *session, n *node.Node) error {
		t := n.Output()
		if t == nil {
			return fmt.Errorf("%w: %s", ErrNoOutput, nodeID)
		}
		out = t.Clone()
		return nil
	})
	return out, err
}

// NodeHistory lists the commits that changed a node's artifact, newest first
func (m *Manager) NodeHistory(ctx context.Context, graphID, nodeID string) ([]domain.CommitInfo, error) {
	var name string
	if err := m.withNode(ctx, graphID, nodeID, func(s *session, n *node.Node) error {
		name = n.ArtifactName()
		return nil
	}); err != nil {
		return nil, err
	}
	return m.store.History(ctx, name)
}

// NodeDiff compares two versions of a node's artifact. Empty commit ids
// default to the two most recent commits.
func (m *Manager) NodeDiff(ctx context.Context, graphID, nodeID, current, previous string) (*DiffView, error) {
	history, err := m.NodeHistory(ctx, graphID, nodeID)
	if err != nil {
		return nil, err
	}
	if current == "" || previous == "" {
		if len(history) < 2 {
			return nil, fmt.Errorf("%w: %s has %d commits", ErrNotEnoughHistory, nodeID, len(history))
		}
		if current == "" {
			current = history[0].ID
		}
		if previous == "" {
			previous = history[1].ID
		}
	}

	prev, cur, err := m.store.DiffCommits(ctx, nodeID, current, previous)
	if err != nil {
		return nil, err
	}
	return &DiffView{
		CurrentCommit:  current,
		PreviousCommit: previous,
		Previous:       prev,
		Current:        cur,
	}, nil
}

// Close releases every open graph
func (m *Manager) Close(ctx context.Context) error {
	m.logger.Info("shutting down workspace manager")

	m.sessions.Range(func(key, value interface{}) bool {
		value.(*session).close()
		m.sessions.Delete(key)
		return true
	})
	m.updateActiveGraphs()

	m.logger.Info("workspace manager shut down complete")
	return nil
}

// open returns the session of graphID, loading the graph on first use
func (m *Manager) open(ctx context.Context, graphID string) (*session, error) {
	if val, ok := m.sessions.Load(graphID); ok {
		return val.(*session), nil
	}

	m.opening.Lock()
	defer m.opening.Unlock()

	if val, ok := m.sessions.Load(graphID); ok {
		return val.(*session), nil
	}

	snap, err := m.repository.Load(ctx, graphID)
	if err != nil {
		return nil, fmt.Errorf("failed to load graph %s: %w", graphID, err)
	}
	if err := m.validator.Validate(snap); err != nil {
		m.logger.Error("graph validation failed",
			zap.String("graph_id", graphID),
			zap.Error(err))
		return nil, err
	}

	g, err := graph.Load(ctx, snap, graph.LoadOptions{
		Registry:   m.registry,
		Store:      m.store,
		Repository: m.repository,
		Logger:     m.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open graph %s: %w", graphID, err)
	}

	m.logger.Info("graph opened",
		zap.String("graph_id", graphID),
		zap.Int("nodes", g.Len()))
	return m.track(g), nil
}

// track wires a graph to a runner and the event bus and registers it
func (m *Manager) track(g *graph.Graph) *session {
	id := g.ID()
	r := runner.New(g,
		runner.WithMetrics(m.metrics),
		runner.WithLogger(m.logger))

	s := &session{graph: g, runner: r}
	s.subs = append(s.subs,
		r.SubscribeNodeEvents(func(e domain.NodeEvent) {
			m.forward(id, string(e.Type), map[string]interface{}{
				"node_id": e.NodeID,
				"label":   e.Label,
				"summary": e.Summary,
			})
		}),
		r.SubscribeState(func(state domain.RunnerState) {
			m.forward(id, EventRunnerState, map[string]interface{}{
				"state": string(state),
			})
		}),
		g.Subscribe(func(e domain.GraphEvent) {
			data := map[string]interface{}{}
			if e.NodeID != "" {
				data["node_id"] = e.NodeID
			}
			if e.TargetID != "" {
				data["target_id"] = e.TargetID
			}
			m.forward(id, string(e.Type), data)
		}),
	)

	m.sessions.Store(id, s)
	m.updateActiveGraphs()
	return s
}

// forward publishes an event on the graph topic, best-effort
func (m *Manager) forward(graphID, eventType string, data map[string]interface{}) {
	event := &domain.Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		GraphID:   graphID,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}

	for _, bus := range []ports.EventBus{m.eventBus, m.stream} {
		if bus == nil {
			continue
		}
		if err := bus.Publish(context.Background(), ports.GraphTopic(graphID), event); err != nil {
			m.metrics.RecordEventForwarded("failed")
			m.logger.Warn("failed to publish event",
				zap.String("graph_id", graphID),
				zap.String("event", eventType),
				zap.Error(err))
			continue
		}
		m.metrics.RecordEventForwarded("ok")
	}
}

func (m *Manager) updateActiveGraphs() {
	count := 0
	m.sessions.Range(func(_, _ interface{}) bool {
		count++
		return true
	})
	m.metrics.SetActiveGraphs(count)
}

// with runs fn while holding the lock of graphID
func (m *Manager) with(ctx context.Context, graphID string, fn func(*session) error) error {
	s, err := m.open(ctx, graphID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s)
}

func (m *Manager) withNode(ctx context.Context, graphID, nodeID string, fn func(*session, *node.Node) error) error {
	return m.with(ctx, graphID, func(s *session) error {
		n, ok := s.graph.Node(nodeID)
		if !ok {
			return fmt.Errorf("%w: %s", graph.ErrNotFound, nodeID)
		}
		return fn(s, n)
	})
}

func (m *Manager) withEdge(ctx context.Context, graphID, from, to string, fn func(*session, *node.Node, *node.Node) error) error {
	return m.with(ctx, graphID, func(s *session) error {
		a, ok := s.graph.Node(from)
		if !ok {
			return fmt.Errorf("%w: %s", graph.ErrNotFound, from)
		}
		b, ok := s.graph.Node(to)
		if !ok {
			return fmt.Errorf("%w: %s", graph.ErrNotFound, to)
		}
		if err := fn(s, a, b); err != nil {
			return err
		}
		return s.graph.Save(ctx)
	})
}

func (s *session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs {
		sub.Unsubscribe()
	}
	s.subs = nil
	s.runner.Stop()
}

// IsNotFound reports whether err means a graph, node or commit is missing.
func IsNotFound(err error) bool {
	return errors.Is(err, ports.ErrGraphNotFound) ||
		errors.Is(err, graph.ErrNotFound) ||
		errors.Is(err, ports.ErrCommitNotFound) ||
		errors.Is(err, ports.ErrArtifactNotFound) ||
		errors.Is(err, ErrNoOutput)
}
