package node

import (
	"context"
	"fmt"

	"github.com/aescanero/pdqflow/pkg/domain"
	"github.com/aescanero/pdqflow/pkg/plugin"
	"go.uber.org/zap"
)

// executor runs one plugin variant.
type executor interface {
	run(ctx context.Context, n *Node) error
	reset()
}

type readerExec struct {
	reader plugin.Reader
}

func (e *readerExec) run(ctx context.Context, n *Node) error {
	if err := n.setState(ctx, domain.NodeExecuting); err != nil {
		return err
	}

	table, err := e.reader.Read(ctx)
	if err != nil {
		if !n.last.IsZero() {
			ok, ferr := n.restore(ctx, n.last)
			if ferr == nil && ok {
				n.logger.Warn("reader failed, using last committed output",
					zap.String("commit_id", n.last.CommitID),
					zap.Error(err))
				return n.setState(ctx, domain.NodeCompleted)
			}
		}
		n.revert(domain.NodeUnstarted)
		return n.fail(&ReaderError{NodeID: n.id, Err: err})
	}

	if err := n.commit(ctx, table, "loaded"); err != nil {
		n.revert(domain.NodeUnstarted)
		return err
	}
	return n.setState(ctx, domain.NodeCompleted)
}

func (e *readerExec) reset() {}

type writerExec struct {
	writer plugin.Writer
}

func (e *writerExec) run(ctx context.Context, n *Node) error {
	if err := n.setState(ctx, domain.NodeExecuting); err != nil {
		return err
	}

	inputs := n.Inputs()
	if len(inputs) != 1 {
		n.revert(domain.NodeUnstarted)
		return n.fail(fmt.Errorf("writer needs exactly one input, got %d", len(inputs)))
	}

	if err := e.writer.Write(ctx, inputs[0], n.AuxiliaryInputs()); err != nil {
		n.revert(domain.NodeUnstarted)
		return n.fail(err)
	}

	if err := n.commit(ctx, inputs[0], "wrote"); err != nil {
		n.revert(domain.NodeUnstarted)
		return err
	}
	return n.setState(ctx, domain.NodeCompleted)
}

func (e *writerExec) reset() {}

type actionExec struct {
	action plugin.Action
}

func (e *actionExec) run(ctx context.Context, n *Node) error {
	if err := n.setState(ctx, domain.NodeExecuting); err != nil {
		return err
	}

	out, err := e.action.Act(ctx, n.Inputs())
	if err != nil {
		n.revert(domain.NodeUnstarted)
		return n.fail(err)
	}
	if out == nil {
		n.revert(domain.NodeUnstarted)
		return n.fail(fmt.Errorf("action produced no table"))
	}

	if err := n.commit(ctx, out, "acted"); err != nil {
		n.revert(domain.NodeUnstarted)
		return err
	}
	return n.setState(ctx, domain.NodeCompleted)
}

func (e *actionExec) reset() {}

// patternExec detects on the first run and, when the plugin can repair,
// pauses until a second run repairs.
type patternExec struct {
	pattern  plugin.Pattern
	master   *domain.Table
	detected *domain.Table
	repaired bool
}

func (e *patternExec) run(ctx context.Context, n *Node) error {
	switch n.state {
	case domain.NodeUnstarted:
		return e.detect(ctx, n)
	case domain.NodePaused, domain.NodeResumed:
		return e.repair(ctx, n)
	default:
		return nil
	}
}

func (e *patternExec) detect(ctx context.Context, n *Node) error {
	if err := n.setState(ctx, domain.NodeExecuting); err != nil {
		return err
	}

	inputs := n.Inputs()
	if len(inputs) != 1 {
		n.revert(domain.NodeUnstarted)
		return n.fail(fmt.Errorf("pattern needs exactly one input, got %d", len(inputs)))
	}
	master := inputs[0]

	detected, err := e.pattern.Detect(ctx, master)
	if err != nil {
		n.revert(domain.NodeUnstarted)
		return n.fail(err)
	}
	if detected == nil {
		detected = domain.NewTable("", master.Columns...)
	}
	detected.Name = n.id + "-detected"
	e.master = master
	e.detected = detected
	e.repaired = false

	if e.pattern.CanRepair() {
		return n.setState(ctx, domain.NodePaused)
	}

	if err := n.commit(ctx, master, "detected"); err != nil {
		n.revert(domain.NodeUnstarted)
		return err
	}
	return n.setState(ctx, domain.NodeCompleted)
}

func (e *patternExec) repair(ctx context.Context, n *Node) error {
	if e.master == nil {
		return n.fail(fmt.Errorf("nothing detected to repair"))
	}
	if err := n.setState(ctx, domain.NodeResumed); err != nil {
		return err
	}

	repaired, err := e.pattern.Repair(ctx, e.master.Clone(), e.detected.Clone())
	if err != nil {
		n.revert(domain.NodePaused)
		return n.fail(err)
	}
	if repaired == nil {
		n.revert(domain.NodePaused)
		return n.fail(fmt.Errorf("repair produced no table"))
	}

	if err := n.commit(ctx, repaired, "repaired"); err != nil {
		n.revert(domain.NodePaused)
		return err
	}
	e.repaired = true
	return n.setState(ctx, domain.NodeCompleted)
}

func (e *patternExec) reset() {
	e.master = nil
	e.detected = nil
	e.repaired = false
}
