package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aescanero/pdqflow/pkg/domain"
	"github.com/aescanero/pdqflow/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphStorage(t *testing.T) {
	ctx := context.Background()
	s := NewGraphStorage()

	snap := &domain.GraphSnapshot{ID: "g1", Name: "first", Creator: "ana", Owner: "ana", CreationTime: time.Now().UTC()}
	require.NoError(t, s.Save(ctx, snap))
	require.NoError(t, s.Save(ctx, &domain.GraphSnapshot{ID: "g0", Name: "zero"}))

	snap.Name = "mutated"
	got, err := s.Load(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, "first", got.Name)

	ids, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"g0", "g1"}, ids)

	require.NoError(t, s.Delete(ctx, "g1"))
	_, err = s.Load(ctx, "g1")
	assert.True(t, errors.Is(err, ports.ErrGraphNotFound))
}

func TestArtifactBackend(t *testing.T) {
	ctx := context.Background()
	b := NewArtifactBackend()
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return fixed }

	c1, err := b.Commit(ctx, "a", []byte("x\n1\n"), "ana", "first")
	require.NoError(t, err)
	c2, err := b.Commit(ctx, "b", []byte("y\n2\n"), "ana", "second")
	require.NoError(t, err)
	c3, err := b.Commit(ctx, "a", []byte("x\n2\n"), "ana", "first")
	require.NoError(t, err)
	assert.NotEqual(t, c1, c3)
	unchanged, err := b.Commit(ctx, "a", []byte("x\n2\n"), "ana", "again")
	require.NoError(t, err)
	assert.NotEqual(t, c3, unchanged)

	t.Run("trees carry earlier entries", func(t *testing.T) {
		content, err := b.Content(ctx, c2, "a")
		require.NoError(t, err)
		assert.Equal(t, "x\n1\n", string(content))
	})

	t.Run("missing entry and commit", func(t *testing.T) {
		_, err := b.Content(ctx, c1, "b")
		assert.True(t, errors.Is(err, ports.ErrArtifactNotFound))
		_, err = b.Content(ctx, "nope", "a")
		assert.True(t, errors.Is(err, ports.ErrCommitNotFound))
	})

	t.Run("history is oldest first and skips unchanged commits", func(t *testing.T) {
		h, err := b.History(ctx, "a")
		require.NoError(t, err)
		require.Len(t, h, 2)
		assert.Equal(t, c1, h[0].ID)
		assert.Equal(t, c3, h[1].ID)
		assert.Equal(t, c2, h[1].Parent)

		h, err = b.History(ctx, "none")
		require.NoError(t, err)
		assert.Empty(t, h)
	})
}
