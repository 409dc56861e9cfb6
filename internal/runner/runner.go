package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aescanero/pdqflow/internal/graph"
	"github.com/aescanero/pdqflow/internal/node"
	"github.com/aescanero/pdqflow/pkg/adapters/events/memory"
	"github.com/aescanero/pdqflow/pkg/domain"
	"github.com/aescanero/pdqflow/pkg/ports"
	"go.uber.org/zap"
)

// Action is a user command on a node.
type Action string

// Supported actions.
const (
	ActionRun      Action = "run"
	ActionStep     Action = "step"
	ActionStepBack Action = "step_back"
	ActionResume   Action = "resume"
	ActionStop     Action = "stop"
)

// ParseAction maps a command name to an Action.
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionRun, ActionStep, ActionStepBack, ActionResume, ActionStop:
		return a, nil
	default:
		return "", fmt.Errorf("unknown action %q", s)
	}
}

// Runner executes the nodes of one graph.
type Runner struct {
	graphID    string
	state      domain.RunnerState
	stepTarget *node.Node

	// Bookkeeping for the Idle transition at the end of a traversal.
	depth       int
	tailReached bool
	paused      map[string]*node.Node

	states  *memory.Bus[domain.RunnerState]
	events  *memory.Bus[domain.NodeEvent]
	metrics ports.MetricsCollector
	logger  *zap.Logger
	now     func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithMetrics records node executions and actions on m.
func WithMetrics(m ports.MetricsCollector) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// New creates an idle runner for g.
func New(g *graph.Graph, opts ...Option) *Runner {
	r := &Runner{
		graphID: g.ID(),
		state:   domain.RunnerIdle,
		paused:  make(map[string]*node.Node),
		states:  memory.NewBus[domain.RunnerState](),
		events:  memory.NewBus[domain.NodeEvent](),
		metrics: ports.NopMetrics{},
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(zap.String("graph_id", r.graphID))
	return r
}

// State returns the runner state.
func (r *Runner) State() domain.RunnerState { return r.state }

// StepTarget returns the node a Step is heading for, if any.
func (r *Runner) StepTarget() *node.Node { return r.stepTarget }

// SubscribeState registers fn for runner state changes.
func (r *Runner) SubscribeState(fn func(domain.RunnerState)) memory.Subscription {
	return r.states.Subscribe(fn)
}

// SubscribeNodeEvents registers fn for node events.
func (r *Runner) SubscribeNodeEvents(fn func(domain.NodeEvent)) memory.Subscription {
	return r.events.Subscribe(fn)
}

// Do dispatches action on n.
func (r *Runner) Do(ctx context.Context, action Action, n *node.Node) error {
	switch action {
	case ActionRun:
		return r.Run(ctx, n)
	case ActionStep:
		return r.Step(ctx, n)
	case ActionStepBack:
		return r.StepBack(ctx, n)
	case ActionResume:
		return r.Resume(ctx, n)
	case ActionStop:
		r.Stop()
		return nil
	default:
		return &RunnerError{Action: action, Err: fmt.Errorf("unknown action %q", action)}
	}
}

// Run executes n, its missing ancestors and everything downstream.
func (r *Runner) Run(ctx context.Context, n *node.Node) error {
	return r.launch(ctx, ActionRun, n, domain.RunnerRunning)
}

// Step executes n and its missing ancestors, then stops.
func (r *Runner) Step(ctx context.Context, n *node.Node) error {
	return r.launch(ctx, ActionStep, n, domain.RunnerStepping)
}

// Resume re-runs a paused node so it can repair. No readiness checks are
// made.
func (r *Runner) Resume(ctx context.Context, n *node.Node) error {
	if n == nil {
		return r.fail(ActionResume, nil, errors.New("no node selected"))
	}

	r.enter()
	n.AddStateListener(r)
	err := n.Run(ctx)
	r.exit()

	if err != nil {
		return r.fail(ActionResume, n, err)
	}
	r.metrics.RecordRunnerAction(string(ActionResume), "ok")
	return nil
}

// StepBack resets n and every completed node downstream of it. A running
// or stepping runner left with no paused node and no traversal in progress
// goes idle.
func (r *Runner) StepBack(ctx context.Context, n *node.Node) error {
	if n == nil {
		return r.fail(ActionStepBack, nil, errors.New("no node selected"))
	}

	if err := r.rollbackAllNext(ctx, n); err != nil {
		return r.fail(ActionStepBack, n, err)
	}
	if err := r.rollback(ctx, n); err != nil {
		return r.fail(ActionStepBack, n, err)
	}
	if r.depth == 0 && len(r.paused) == 0 && r.state != domain.RunnerIdle {
		r.reset()
	}
	r.metrics.RecordRunnerAction(string(ActionStepBack), "ok")
	return nil
}

// Stop returns the runner to idle. Node states are left as they are.
func (r *Runner) Stop() {
	r.reset()
	r.metrics.RecordRunnerAction(string(ActionStop), "ok")
}

// NodeStateChanged advances the traversal; it is registered on every node
// the runner starts.
func (r *Runner) NodeStateChanged(ctx context.Context, n *node.Node) error {
	switch n.State() {
	case domain.NodeCompleted:
		return r.complete(ctx, n)
	case domain.NodePaused:
		r.paused[n.ID()] = n
		r.announce(domain.EventNodePaused, n)
	}
	return nil
}

func (r *Runner) launch(ctx context.Context, action Action, n *node.Node, state domain.RunnerState) error {
	if n == nil {
		return r.fail(action, nil, errors.New("no node selected"))
	}
	if r.state != domain.RunnerIdle {
		r.metrics.RecordRunnerAction(string(action), "busy")
		return &RunnerBusyError{Action: action, State: r.state}
	}

	r.logger.Info("runner action",
		zap.String("action", string(action)),
		zap.String("node_id", n.ID()))

	r.setState(state)
	if state == domain.RunnerStepping {
		r.stepTarget = n
	}

	r.enter()
	err := r.advance(ctx, n)
	r.exit()

	if err != nil {
		return r.fail(action, n, err)
	}
	r.metrics.RecordRunnerAction(string(action), "ok")
	return nil
}

func (r *Runner) advance(ctx context.Context, n *node.Node) error {
	if n.HasCompleted() {
		return r.runNext(ctx, n)
	}
	ready, err := r.completeAllPrevious(ctx, n, make(map[*node.Node]bool))
	if err != nil {
		return err
	}
	if ready && n.CanStart() {
		return r.start(ctx, n)
	}
	return nil
}

// completeAllPrevious launches every unstarted ancestor of n whose own
// ancestors are complete. It reports whether all predecessors of n have
// completed.
func (r *Runner) completeAllPrevious(ctx context.Context, n *node.Node, path map[*node.Node]bool) (bool, error) {
	if path[n] {
		return false, &graph.StructuralError{NodeID: n.ID(), Err: graph.ErrCycle}
	}
	path[n] = true
	defer delete(path, n)

	ready := true
	for _, p := range n.Previous() {
		if p.HasCompleted() {
			continue
		}
		ancestorsReady, err := r.completeAllPrevious(ctx, p, path)
		if err != nil {
			return false, err
		}
		if ancestorsReady && p.CanStart() {
			if err := r.start(ctx, p); err != nil {
				return false, err
			}
		}
		if !p.HasCompleted() {
			ready = false
		}
	}
	return ready, nil
}

func (r *Runner) start(ctx context.Context, n *node.Node) error {
	n.AddStateListener(r)
	if !n.RunPreTask(ctx) {
		r.logger.Info("pre-task declined, node not started", zap.String("node_id", n.ID()))
		return nil
	}
	return n.Run(ctx)
}

func (r *Runner) complete(ctx context.Context, n *node.Node) error {
	delete(r.paused, n.ID())
	n.RunPostTask(ctx)
	r.metrics.RecordNodeExecution(string(n.Kind()), "completed", n.Stopwatch().Total())
	r.announce(domain.EventNodeCompleted, n)

	switch r.state {
	case domain.RunnerStepping:
		if n == r.stepTarget {
			r.reset()
			return nil
		}
		return r.runNext(ctx, n)
	case domain.RunnerRunning:
		return r.runNext(ctx, n)
	default:
		return n.Reset(ctx)
	}
}

func (r *Runner) runNext(ctx context.Context, n *node.Node) error {
	next := n.Next()
	if len(next) == 0 {
		r.tailReached = true
		return nil
	}

	for _, s := range next {
		if r.state == domain.RunnerIdle {
			return nil
		}
		if !s.CanStart() {
			continue
		}
		ready, err := r.completeAllPrevious(ctx, s, make(map[*node.Node]bool))
		if err != nil {
			return err
		}
		if ready && s.CanStart() {
			if err := r.start(ctx, s); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Runner) rollbackAllNext(ctx context.Context, n *node.Node) error {
	for _, s := range n.Next() {
		if !s.HasCompleted() {
			continue
		}
		if err := r.rollbackAllNext(ctx, s); err != nil {
			return err
		}
		if err := r.rollback(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) rollback(ctx context.Context, n *node.Node) error {
	delete(r.paused, n.ID())
	if err := n.Reset(ctx); err != nil {
		return err
	}
	r.metrics.RecordRollback()
	r.announce(domain.EventNodeRolledBack, n)
	return nil
}

// enter and exit bracket a synchronous traversal. When the outermost one
// unwinds after reaching a tail with nothing left paused, the runner goes
// idle.
func (r *Runner) enter() {
	r.depth++
}

func (r *Runner) exit() {
	r.depth--
	if r.depth > 0 {
		return
	}
	if r.tailReached && len(r.paused) == 0 && r.state != domain.RunnerIdle {
		r.reset()
	}
	r.tailReached = false
}

func (r *Runner) reset() {
	r.setState(domain.RunnerIdle)
	r.stepTarget = nil
	r.tailReached = false
	r.paused = make(map[string]*node.Node)
}

func (r *Runner) setState(state domain.RunnerState) {
	if r.state == state {
		return
	}
	r.state = state
	r.logger.Debug("runner state changed", zap.String("state", string(state)))
	r.states.Publish(state)
}

func (r *Runner) announce(t domain.NodeEventType, n *node.Node) {
	event := domain.NodeEvent{
		Type:      t,
		GraphID:   r.graphID,
		NodeID:    n.ID(),
		Label:     n.Label(),
		Summary:   n.Summary(t),
		Timestamp: r.now().UTC(),
	}
	r.logger.Info("node event",
		zap.String("event", string(t)),
		zap.String("node_id", n.ID()),
		zap.String("summary", event.Summary))
	r.events.Publish(event)
}

func (r *Runner) fail(action Action, n *node.Node, err error) error {
	r.metrics.RecordRunnerAction(string(action), "failed")
	var runErr *node.NodeRunError
	if errors.As(err, &runErr) {
		r.metrics.RecordNodeExecution(runErr.Kind, "failed", 0)
	}
	re := &RunnerError{Action: action, Err: err}
	if n != nil {
		re.NodeID = n.ID()
	}
	r.logger.Error("runner action failed",
		zap.String("action", string(action)),
		zap.String("node_id", re.NodeID),
		zap.Error(err))
	return re
}
