package graph

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aescanero/pdqflow/internal/node"
	"github.com/aescanero/pdqflow/internal/store"
	"github.com/aescanero/pdqflow/pkg/adapters/storage/memory"
	"github.com/aescanero/pdqflow/pkg/domain"
	"github.com/aescanero/pdqflow/pkg/plugin"
	"github.com/aescanero/pdqflow/pkg/plugin/plugintest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newGraph(t *testing.T) *Graph {
	t.Helper()
	g, err := NewBuilder("ana").ID("g1").Build(context.Background())
	require.NoError(t, err)
	return g
}

func addNode(t *testing.T, g *Graph, id string, p plugin.Plugin) *node.Node {
	t.Helper()
	n, err := node.New(p, store.New(memory.NewArtifactBackend(), zap.NewNop()), node.WithID(id))
	require.NoError(t, err)
	require.NoError(t, g.AddNode(n))
	return n
}

func ids(nodes []*node.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.ID())
	}
	return out
}

func TestBuilder(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults", func(t *testing.T) {
		g, err := NewBuilder("ana").Build(ctx)
		require.NoError(t, err)
		assert.NotEmpty(t, g.ID())
		assert.Equal(t, DefaultName, g.Name())
		assert.Equal(t, "ana", g.Owner())
		assert.False(t, g.CreationTime().IsZero())
		assert.Nil(t, g.LastSavedTime())
	})

	t.Run("persists new graphs once", func(t *testing.T) {
		repo := memory.NewGraphStorage()
		g, err := NewBuilder("ana").ID("g1").Name("cleaning").Owner("bob").Repository(repo).Build(ctx)
		require.NoError(t, err)
		require.NotNil(t, g.LastSavedTime())

		saved, err := repo.Load(ctx, "g1")
		require.NoError(t, err)
		assert.Equal(t, "cleaning", saved.Name)
		assert.Equal(t, "bob", saved.Owner)

		again, err := NewBuilder("ana").ID("g1").Name("other").Repository(repo).Build(ctx)
		require.NoError(t, err)
		assert.Nil(t, again.LastSavedTime())
		saved, err = repo.Load(ctx, "g1")
		require.NoError(t, err)
		assert.Equal(t, "cleaning", saved.Name)
	})
}

func TestUpdatesPersist(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewGraphStorage()
	g, err := NewBuilder("ana").ID("g1").Repository(repo).Build(ctx)
	require.NoError(t, err)

	var events []domain.GraphEventType
	g.Subscribe(func(e domain.GraphEvent) { events = append(events, e.Type) })

	require.NoError(t, g.UpdateName(ctx, "renamed"))
	require.NoError(t, g.UpdateOwner(ctx, "bob"))
	require.NoError(t, g.UpdateDescription(ctx, "dedupe customers"))
	require.NoError(t, g.UpdateUserContent(ctx, `{"x":1}`))
	require.NoError(t, g.UpdateShared(ctx, true))

	saved, err := repo.Load(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, "renamed", saved.Name)
	assert.Equal(t, "bob", saved.Owner)
	assert.Equal(t, "dedupe customers", saved.Description)
	assert.Equal(t, `{"x":1}`, saved.UserContent)
	assert.True(t, saved.Shared)
	assert.Len(t, events, 5)
}

func TestConnect(t *testing.T) {
	g := newGraph(t)
	r := addNode(t, g, "r", plugintest.NewReader(nil))
	p := addNode(t, g, "p", plugintest.NewPattern(nil, nil, true))
	w := addNode(t, g, "w", plugintest.NewWriter())
	a := addNode(t, g, "a", plugintest.NewAction())

	var events []domain.GraphEvent
	g.Subscribe(func(e domain.GraphEvent) { events = append(events, e) })

	require.NoError(t, g.Connect(r, p))
	require.NoError(t, g.Connect(p, w))
	require.NoError(t, g.Connect(r, p))
	assert.True(t, r.HasNext(p))
	assert.True(t, p.HasPrevious(r))
	require.Len(t, events, 2)
	assert.Equal(t, domain.EventConnectorAdded, events[0].Type)
	assert.Equal(t, "r", events[0].NodeID)
	assert.Equal(t, "p", events[0].TargetID)

	t.Run("self edge", func(t *testing.T) {
		assert.ErrorContains(t, g.Connect(a, a), "self-referential")
	})

	t.Run("capacity", func(t *testing.T) {
		assert.True(t, errors.Is(g.Connect(a, r), ErrCapacity))
		assert.True(t, errors.Is(g.Connect(a, p), ErrCapacity))
	})

	t.Run("cycle", func(t *testing.T) {
		x := addNode(t, g, "x", plugintest.NewAction())
		y := addNode(t, g, "y", plugintest.NewAction())
		require.NoError(t, g.Connect(a, x))
		require.NoError(t, g.Connect(x, y))
		assert.True(t, errors.Is(g.Connect(y, a), ErrCycle))
		assert.False(t, y.HasNext(a))
	})

	t.Run("foreign node", func(t *testing.T) {
		other := newGraph(t)
		x := addNode(t, other, "x", plugintest.NewAction())
		assert.True(t, errors.Is(g.Connect(r, x), ErrNotFound))
	})

	t.Run("disconnect", func(t *testing.T) {
		require.NoError(t, g.Disconnect(p, w))
		assert.False(t, p.HasNext(w))
		assert.False(t, w.HasPrevious(p))
		require.NoError(t, g.Disconnect(p, w))
		assert.Equal(t, domain.EventConnectorRemoved, events[len(events)-1].Type)
	})
}

func TestWalks(t *testing.T) {
	g := newGraph(t)
	r1 := addNode(t, g, "r1", plugintest.NewReader(nil))
	r2 := addNode(t, g, "r2", plugintest.NewReader(nil))
	a := addNode(t, g, "a", plugintest.NewAction())
	b := addNode(t, g, "b", plugintest.NewAction())
	w1 := addNode(t, g, "w1", plugintest.NewWriter())
	w2 := addNode(t, g, "w2", plugintest.NewWriter())
	addNode(t, g, "lone", plugintest.NewReader(nil))

	require.NoError(t, g.Connect(r1, a))
	require.NoError(t, g.Connect(r2, a))
	require.NoError(t, g.Connect(a, b))
	require.NoError(t, g.Connect(b, w1))
	require.NoError(t, g.Connect(a, w2))

	heads, err := g.Heads()
	require.NoError(t, err)
	assert.Equal(t, []string{"lone", "r1", "r2"}, ids(heads))

	tails, err := g.Tails()
	require.NoError(t, err)
	assert.Equal(t, []string{"lone", "w1", "w2"}, ids(tails))

	from, err := g.HeadsFrom(w1)
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r2"}, ids(from))

	from, err = g.TailsFrom(r1)
	require.NoError(t, err)
	assert.Equal(t, []string{"w1", "w2"}, ids(from))

	from, err = g.HeadsFrom(r2)
	require.NoError(t, err)
	assert.Equal(t, []string{"r2"}, ids(from))

	for _, n := range g.Nodes() {
		hs, err := g.HeadsFrom(n)
		require.NoError(t, err)
		for _, h := range hs {
			assert.Empty(t, h.Previous(), "head %s of %s", h.ID(), n.ID())
		}
		ts, err := g.TailsFrom(n)
		require.NoError(t, err)
		for _, tl := range ts {
			assert.Empty(t, tl.Next(), "tail %s of %s", tl.ID(), n.ID())
		}
	}

	assert.NoError(t, g.DetectCycles())
}

func TestWalkCycle(t *testing.T) {
	g := newGraph(t)
	a := addNode(t, g, "a", plugintest.NewAction())
	b := addNode(t, g, "b", plugintest.NewAction())
	require.NoError(t, g.Connect(a, b))
	// Connect refuses the closing edge, so it is forced on the nodes.
	node.Connect(b, a)

	_, err := g.HeadsFrom(a)
	var structural *StructuralError
	require.True(t, errors.As(err, &structural))
	assert.Equal(t, "a", structural.NodeID)
	assert.True(t, errors.Is(err, ErrCycle))

	_, err = g.TailsFrom(b)
	assert.True(t, errors.Is(err, ErrCycle))

	_, err = g.Heads()
	assert.True(t, errors.Is(err, ErrCycle))
	assert.True(t, errors.Is(g.DetectCycles(), ErrCycle))
}

func testRegistry() *plugin.Registry {
	reg := plugin.NewRegistry()
	reg.MustRegister("test.reader", func() plugin.Plugin { return plugintest.NewReader(nil) })
	reg.MustRegister("test.action", func() plugin.Plugin { return plugintest.NewAction() })
	return reg
}

func TestSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := store.New(memory.NewArtifactBackend(), zap.NewNop())
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	g, err := NewBuilder("ana").ID("g1").Name("cleaning").Description("dedupe").CreationTime(created).Build(ctx)
	require.NoError(t, err)

	r, err := node.New(plugintest.NewReader(nil), st, node.WithID("r"), node.WithLabel("Source"), node.WithPluginType("test.reader"))
	require.NoError(t, err)
	a, err := node.New(plugintest.NewAction(), st, node.WithID("a"), node.WithPluginType("test.action"))
	require.NoError(t, err)
	require.NoError(t, g.AddNode(r))
	require.NoError(t, g.AddNode(a))
	require.NoError(t, g.Connect(r, a))

	snap := g.Snapshot()
	assert.Equal(t, []domain.EdgeSnapshot{{From: "r", To: "a"}}, snap.Edges)

	loaded, err := Load(ctx, snap, LoadOptions{Registry: testRegistry(), Store: st})
	require.NoError(t, err)
	assert.Equal(t, snap, loaded.Snapshot())
	assert.Equal(t, created, loaded.CreationTime())

	la, ok := loaded.Node("a")
	require.True(t, ok)
	assert.Equal(t, []string{"r"}, ids(la.Previous()))
}

func TestLoadRejectsCycle(t *testing.T) {
	snap := &domain.GraphSnapshot{
		ID:      "g1",
		Creator: "ana",
		Nodes: []domain.NodeSnapshot{
			{ID: "a", Plugin: "test.action"},
			{ID: "b", Plugin: "test.action"},
		},
		Edges: []domain.EdgeSnapshot{{From: "a", To: "b"}, {From: "b", To: "a"}},
	}

	_, err := Load(context.Background(), snap, LoadOptions{
		Registry: testRegistry(),
		Store:    store.New(memory.NewArtifactBackend(), zap.NewNop()),
	})
	assert.True(t, errors.Is(err, ErrCycle))

	snap.Edges = []domain.EdgeSnapshot{{From: "a", To: "missing"}}
	_, err = Load(context.Background(), snap, LoadOptions{
		Registry: testRegistry(),
		Store:    store.New(memory.NewArtifactBackend(), zap.NewNop()),
	})
	assert.True(t, errors.Is(err, ErrNotFound))
}
