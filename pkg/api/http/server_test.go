package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aescanero/pdqflow/internal/application/workers"
	"github.com/aescanero/pdqflow/internal/application/workspace"
	"github.com/aescanero/pdqflow/internal/store"
	"github.com/aescanero/pdqflow/pkg/adapters/events/memory"
	storage "github.com/aescanero/pdqflow/pkg/adapters/storage/memory"
	"github.com/aescanero/pdqflow/pkg/domain"
	"github.com/aescanero/pdqflow/pkg/plugins/builtin"
)

type testServer struct {
	handler http.Handler
	dir     string
}

func newTestServer(t *testing.T, withPool bool) *testServer {
	logger := zap.NewNop()
	reg := builtin.NewRegistry()
	mgr := workspace.NewManager(
		reg,
		store.New(storage.NewArtifactBackend(), logger),
		storage.NewGraphStorage(),
		memory.NewInMemoryEventBus(logger),
		nil,
		nil,
		logger,
		time.Minute,
	)
	t.Cleanup(func() { _ = mgr.Close(context.Background()) })

	cfg := &Config{Workspace: mgr, Logger: logger}
	if withPool {
		pool := workers.NewPool(1, 4, nil, mgr, nil, logger, 0)
		require.NoError(t, pool.Start())
		t.Cleanup(func() { _ = pool.Shutdown(context.Background()) })
		cfg.Pool = pool
	}

	return &testServer{handler: NewServer(cfg).Handler(), dir: t.TempDir()}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	var resp ErrorResponse
	decode(t, w, &resp)
	return resp.Error.Code
}

func states(v *workspace.GraphView) map[string]domain.NodeState {
	out := make(map[string]domain.NodeState, len(v.Nodes))
	for _, n := range v.Nodes {
		out[n.ID] = n.State
	}
	return out
}

// pipeline builds reader -> missing value pattern -> writer over a CSV file.
func (s *testServer) pipeline(t *testing.T) (string, string) {
	in := filepath.Join(s.dir, "people.csv")
	out := filepath.Join(s.dir, "clean.csv")
	require.NoError(t, os.WriteFile(in, []byte("name,city\nAda,London\nGrace,\n"), 0o644))

	w := s.do(t, http.MethodPost, "/api/v1/graphs", workspace.CreateGraphRequest{Name: "people", Creator: "alice"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var g workspace.GraphView
	decode(t, w, &g)
	require.NotEmpty(t, g.ID)

	nodes := []workspace.AddNodeRequest{
		{ID: "in", Plugin: builtin.CSVReader, Options: map[string]interface{}{"path": in}},
		{ID: "fix", Plugin: builtin.MissingValue, Options: map[string]interface{}{"fill": "unknown"}},
		{ID: "out", Plugin: builtin.CSVWriter, Options: map[string]interface{}{"path": out}},
	}
	for _, n := range nodes {
		w := s.do(t, http.MethodPost, "/api/v1/graphs/"+g.ID+"/nodes", n)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}
	for _, e := range []EdgeRequest{{From: "in", To: "fix"}, {From: "fix", To: "out"}} {
		w := s.do(t, http.MethodPost, "/api/v1/graphs/"+g.ID+"/edges", e)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}
	return g.ID, out
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, false)

	w := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"healthy"`)
}

func TestPipelineOverHTTP(t *testing.T) {
	s := newTestServer(t, false)
	id, out := s.pipeline(t)
	base := "/api/v1/graphs/" + id

	w := s.do(t, http.MethodPost, base+"/actions", ActionRequest{Action: "run", NodeID: "in"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var v workspace.GraphView
	decode(t, w, &v)
	assert.Equal(t, domain.RunnerRunning, v.Runner)
	assert.Equal(t, domain.NodePaused, states(&v)["fix"])

	w = s.do(t, http.MethodGet, base+"/nodes/fix/output", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var detected domain.Table
	decode(t, w, &detected)
	assert.Equal(t, [][]string{{"1", "Grace", ""}}, detected.Rows)

	w = s.do(t, http.MethodPost, base+"/actions", ActionRequest{Action: "resume", NodeID: "fix"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &v)
	assert.Equal(t, domain.RunnerIdle, v.Runner)
	assert.Equal(t, domain.NodeCompleted, states(&v)["out"])

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "name,city\nAda,London\nGrace,unknown\n", string(data))

	w = s.do(t, http.MethodGet, base+"/nodes/in/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history struct {
		Commits []domain.CommitInfo `json:"commits"`
	}
	decode(t, w, &history)
	assert.Len(t, history.Commits, 1)

	w = s.do(t, http.MethodGet, base+"/nodes/in/diff", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, w))
}

func TestGraphCRUD(t *testing.T) {
	s := newTestServer(t, false)
	id, _ := s.pipeline(t)

	name := "renamed"
	w := s.do(t, http.MethodPatch, "/api/v1/graphs/"+id, workspace.UpdateGraphRequest{Name: &name})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var v workspace.GraphView
	decode(t, w, &v)
	assert.Equal(t, "renamed", v.Name)
	assert.Len(t, v.Nodes, 3)

	w = s.do(t, http.MethodGet, "/api/v1/graphs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), id)

	w = s.do(t, http.MethodDelete, "/api/v1/graphs/"+id+"/edges/fix/out", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(t, http.MethodDelete, "/api/v1/graphs/"+id+"/nodes/out", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodDelete, "/api/v1/graphs/"+id, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(t, http.MethodGet, "/api/v1/graphs/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRequestErrors(t *testing.T) {
	s := newTestServer(t, false)
	id, _ := s.pipeline(t)
	base := "/api/v1/graphs/" + id

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
		code   string
	}{
		{"unknown graph", http.MethodGet, "/api/v1/graphs/missing", nil, http.StatusNotFound, "NOT_FOUND"},
		{"unknown node", http.MethodGet, base + "/nodes/missing/output", nil, http.StatusNotFound, "NOT_FOUND"},
		{"no output yet", http.MethodGet, base + "/nodes/in/output", nil, http.StatusNotFound, "NOT_FOUND"},
		{"invalid action", http.MethodPost, base + "/actions", ActionRequest{Action: "jump", NodeID: "in"}, http.StatusBadRequest, "INVALID_ACTION"},
		{"missing node id", http.MethodPost, base + "/actions", ActionRequest{Action: "run"}, http.StatusBadRequest, "INVALID_REQUEST"},
		{"self edge", http.MethodPost, base + "/edges", EdgeRequest{From: "in", To: "in"}, http.StatusUnprocessableEntity, "VALIDATION_FAILED"},
		{"cycle", http.MethodPost, base + "/edges", EdgeRequest{From: "out", To: "in"}, http.StatusUnprocessableEntity, "VALIDATION_FAILED"},
		{"unknown plugin", http.MethodPost, base + "/nodes", workspace.AddNodeRequest{Plugin: "nope"}, http.StatusUnprocessableEntity, "VALIDATION_FAILED"},
		{"missing plugin", http.MethodPost, base + "/nodes", workspace.AddNodeRequest{}, http.StatusBadRequest, "INVALID_REQUEST"},
		{"async without pool", http.MethodPost, base + "/actions", ActionRequest{Action: "run", NodeID: "in", Async: true}, http.StatusServiceUnavailable, "WORKERS_NOT_AVAILABLE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.code, errorCode(t, w))
		})
	}
}

func TestConfigureStartedNode(t *testing.T) {
	s := newTestServer(t, false)
	id, _ := s.pipeline(t)
	base := "/api/v1/graphs/" + id

	w := s.do(t, http.MethodPost, base+"/actions", ActionRequest{Action: "step", NodeID: "in"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	label := "source"
	w = s.do(t, http.MethodPatch, base+"/nodes/in", workspace.ConfigureNodeRequest{Label: &label})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "NODE_STARTED", errorCode(t, w))

	w = s.do(t, http.MethodPatch, base+"/nodes/out", workspace.ConfigureNodeRequest{Label: &label})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var n workspace.NodeView
	decode(t, w, &n)
	assert.Equal(t, "source", n.Label)
}

func TestAsyncAction(t *testing.T) {
	s := newTestServer(t, true)
	id, _ := s.pipeline(t)
	base := "/api/v1/graphs/" + id

	w := s.do(t, http.MethodPost, base+"/actions", ActionRequest{Action: "step", NodeID: "in", Async: true})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	var accepted ActionAcceptedResponse
	decode(t, w, &accepted)
	assert.NotEmpty(t, accepted.CommandID)
	assert.Equal(t, id, accepted.GraphID)

	assert.Eventually(t, func() bool {
		w := s.do(t, http.MethodGet, base, nil)
		var v workspace.GraphView
		if json.Unmarshal(w.Body.Bytes(), &v) != nil {
			return false
		}
		return states(&v)["in"] == domain.NodeCompleted
	}, 2*time.Second, 10*time.Millisecond)

	w = s.do(t, http.MethodGet, "/api/v1/workers", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListPlugins(t *testing.T) {
	s := newTestServer(t, false)

	w := s.do(t, http.MethodGet, "/api/v1/plugins", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), builtin.CSVReader)
	assert.Contains(t, w.Body.String(), builtin.DistortedLabel)
}
