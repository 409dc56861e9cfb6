package workspace

import (
	"time"

	"github.com/aescanero/pdqflow/internal/node"
	"github.com/aescanero/pdqflow/pkg/domain"
)

// CreateGraphRequest describes a new graph.
type CreateGraphRequest struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Creator     string `json:"creator"`
	Description string `json:"description,omitempty"`
	Shared      bool   `json:"shared"`
}

// UpdateGraphRequest carries the metadata fields to change; nil fields are
// left alone.
type UpdateGraphRequest struct {
	Name        *string `json:"name,omitempty"`
	Owner       *string `json:"owner,omitempty"`
	Description *string `json:"description,omitempty"`
	UserContent *string `json:"user_content,omitempty"`
	Shared      *bool   `json:"shared,omitempty"`
}

// AddNodeRequest places a plugin in a graph.
type AddNodeRequest struct {
	ID      string                 `json:"id,omitempty"`
	Label   string                 `json:"label,omitempty"`
	Plugin  string                 `json:"plugin"`
	Author  string                 `json:"author,omitempty"`
	Options map[string]interface{} `json:"options,omitempty"`
}

// ConfigureNodeRequest changes the label or options of a node.
type ConfigureNodeRequest struct {
	Label   *string                `json:"label,omitempty"`
	Options map[string]interface{} `json:"options,omitempty"`
}

// NodeView is the API representation of a node.
type NodeView struct {
	ID       string                 `json:"id"`
	Label    string                 `json:"label"`
	Plugin   string                 `json:"plugin"`
	Kind     string                 `json:"kind"`
	State    domain.NodeState       `json:"state"`
	Options  map[string]interface{} `json:"options"`
	CommitID string                 `json:"commit_id,omitempty"`
	Rows     int                    `json:"rows"`
	Next     []string               `json:"next,omitempty"`
	Duration float64                `json:"duration_seconds"`
}

// GraphView is the API representation of a graph and its runner.
type GraphView struct {
	ID            string             `json:"id"`
	Name          string             `json:"name"`
	Creator       string             `json:"creator"`
	Owner         string             `json:"owner"`
	Shared        bool               `json:"shared"`
	Description   string             `json:"description,omitempty"`
	UserContent   string             `json:"user_content,omitempty"`
	CreationTime  time.Time          `json:"creation_time"`
	LastSavedTime *time.Time         `json:"last_saved_time,omitempty"`
	Runner        domain.RunnerState `json:"runner"`
	StepTarget    string             `json:"step_target,omitempty"`
	Nodes         []*NodeView        `json:"nodes"`
}

// DiffView pairs the lines that differ between two commits of an artifact.
type DiffView struct {
	CurrentCommit  string        `json:"current_commit"`
	PreviousCommit string        `json:"previous_commit"`
	Previous       *domain.Table `json:"previous"`
	Current        *domain.Table `json:"current"`
}

func nodeView(n *node.Node) *NodeView {
	v := &NodeView{
		ID:       n.ID(),
		Label:    n.Label(),
		Plugin:   n.PluginType(),
		Kind:     string(n.Kind()),
		State:    n.State(),
		Options:  n.Plugin().Options().Values(),
		CommitID: n.Ref().CommitID,
		Rows:     n.Output().RowCount(),
		Duration: n.Stopwatch().Total().Seconds(),
	}
	for _, s := range n.Next() {
		v.Next = append(v.Next, s.ID())
	}
	return v
}

func (s *session) view() *GraphView {
	g := s.graph
	v := &GraphView{
		ID:            g.ID(),
		Name:          g.Name(),
		Creator:       g.Creator(),
		Owner:         g.Owner(),
		Shared:        g.Shared(),
		Description:   g.Description(),
		UserContent:   g.UserContent(),
		CreationTime:  g.CreationTime(),
		LastSavedTime: g.LastSavedTime(),
		Runner:        s.runner.State(),
		Nodes:         make([]*NodeView, 0, g.Len()),
	}
	if t := s.runner.StepTarget(); t != nil {
		v.StepTarget = t.ID()
	}
	for _, n := range g.Nodes() {
		v.Nodes = append(v.Nodes, nodeView(n))
	}
	return v
}
