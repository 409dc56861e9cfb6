package domain

import "time"

// NodeSnapshot is the persisted form of a node.
type NodeSnapshot struct {
	ID       string                 `json:"id"`
	Label    string                 `json:"label"`
	Plugin   string                 `json:"plugin"`
	Options  map[string]interface{} `json:"options,omitempty"`
	CommitID string                 `json:"commit_id,omitempty"`
	TableID  string                 `json:"table_id,omitempty"`
}

// EdgeSnapshot is a persisted connector between two nodes.
type EdgeSnapshot struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// GraphSnapshot is the persisted form of a graph.
type GraphSnapshot struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Creator       string         `json:"creator"`
	Owner         string         `json:"owner"`
	Shared        bool           `json:"shared"`
	Description   string         `json:"description,omitempty"`
	UserContent   string         `json:"user_content,omitempty"`
	CreationTime  time.Time      `json:"creation_time"`
	LastSavedTime *time.Time     `json:"last_saved_time,omitempty"`
	Nodes         []NodeSnapshot `json:"nodes"`
	Edges         []EdgeSnapshot `json:"edges"`
}
