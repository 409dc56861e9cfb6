package store

import (
	"context"
	"errors"
	"testing"

	"github.com/aescanero/pdqflow/pkg/adapters/storage/memory"
	"github.com/aescanero/pdqflow/pkg/domain"
	"github.com/aescanero/pdqflow/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type failingBackend struct {
	ports.ArtifactBackend
	err error
}

func (f *failingBackend) Commit(context.Context, string, []byte, string, string) (string, error) {
	return "", f.err
}

func (f *failingBackend) Content(context.Context, string, string) ([]byte, error) {
	return nil, f.err
}

func people(name string) *domain.Table {
	t := domain.NewTable(name, "id", "name")
	t.AppendRow("1", "Ada")
	t.AppendRow("2", "Grace")
	return t
}

func TestCommitFetch(t *testing.T) {
	ctx := context.Background()
	s := New(memory.NewArtifactBackend(), zap.NewNop())

	in := people("n1")
	id, err := s.Commit(ctx, in, "first", "ana")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	out, found, err := s.Fetch(ctx, id, "n1")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, in.Equal(out))
	assert.Equal(t, "n1", out.Name)

	t.Run("absent entry is not an error", func(t *testing.T) {
		out, found, err := s.Fetch(ctx, id, "other")
		require.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, out)
	})

	t.Run("unknown commit is a read error", func(t *testing.T) {
		_, _, err := s.Fetch(ctx, "deadbeef", "n1")
		var readErr *StoreReadError
		require.ErrorAs(t, err, &readErr)
		assert.True(t, errors.Is(err, ports.ErrCommitNotFound))
	})

	t.Run("unnamed tables are rejected", func(t *testing.T) {
		_, err := s.Commit(ctx, people(""), "x", "ana")
		var writeErr *StoreWriteError
		assert.ErrorAs(t, err, &writeErr)
	})
}

func TestCommitFailure(t *testing.T) {
	boom := errors.New("disk full")
	s := New(&failingBackend{err: boom}, zap.NewNop())

	_, err := s.Commit(context.Background(), people("n1"), "m", "")
	var writeErr *StoreWriteError
	require.ErrorAs(t, err, &writeErr)
	assert.Equal(t, "n1", writeErr.Artifact)
	assert.True(t, errors.Is(err, boom))

	_, _, err = s.Fetch(context.Background(), "c", "n1")
	var readErr *StoreReadError
	assert.ErrorAs(t, err, &readErr)
}

func TestHistoryNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := New(memory.NewArtifactBackend(), zap.NewNop())

	var ids []string
	for i := 0; i < 3; i++ {
		tbl := people("n1")
		tbl.AppendRow("3", string(rune('a'+i)))
		id, err := s.Commit(ctx, tbl, "rev", "ana")
		require.NoError(t, err)
		ids = append(ids, id)
	}
	_, err := s.Commit(ctx, people("n2"), "other", "ana")
	require.NoError(t, err)

	h, err := s.History(ctx, "n1")
	require.NoError(t, err)
	require.Len(t, h, 3)
	assert.Equal(t, ids[2], h[0].ID)
	assert.Equal(t, ids[0], h[2].ID)
	assert.Equal(t, "ana", h[0].Author)
}

func TestDiff(t *testing.T) {
	t.Run("identical content keeps only the header", func(t *testing.T) {
		c := []byte("id,name\n1,Ada\n2,Grace\n")
		prev, cur, err := Diff(c, c, ',')
		require.NoError(t, err)
		assert.Equal(t, []string{"id", "name"}, prev.Columns)
		assert.Equal(t, 0, prev.RowCount())
		assert.Equal(t, 0, cur.RowCount())
	})

	t.Run("changed line kept on both sides, previous first", func(t *testing.T) {
		current := []byte("id,name\n1,Ada\n2,Grace Hopper\n")
		previous := []byte("id,name\n1,Ada\n2,Grace\n")
		prev, cur, err := Diff(current, previous, ',')
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"2", "Grace"}}, prev.Rows)
		assert.Equal(t, [][]string{{"2", "Grace Hopper"}}, cur.Rows)
	})

	t.Run("extra line compared against empty", func(t *testing.T) {
		current := []byte("id,name\n1,Ada\n2,Grace\n")
		previous := []byte("id,name\n1,Ada\n")
		prev, cur, err := Diff(current, previous, ',')
		require.NoError(t, err)
		assert.Equal(t, 0, prev.RowCount())
		assert.Equal(t, [][]string{{"2", "Grace"}}, cur.Rows)
	})
}

func TestDiffCommits(t *testing.T) {
	ctx := context.Background()
	s := New(memory.NewArtifactBackend(), zap.NewNop())

	first := people("n1")
	c1, err := s.Commit(ctx, first, "v1", "ana")
	require.NoError(t, err)
	second := people("n1")
	second.Rows[1][1] = "Grace Hopper"
	c2, err := s.Commit(ctx, second, "v2", "ana")
	require.NoError(t, err)

	prev, cur, err := s.DiffCommits(ctx, "n1", c2, c1)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"2", "Grace"}}, prev.Rows)
	assert.Equal(t, [][]string{{"2", "Grace Hopper"}}, cur.Rows)

	_, _, err = s.DiffCommits(ctx, "missing", c2, c1)
	assert.True(t, errors.Is(err, ports.ErrArtifactNotFound))
}

func TestCommitFetchSingleColumnBlanks(t *testing.T) {
	ctx := context.Background()
	s := New(memory.NewArtifactBackend(), zap.NewNop())

	in := domain.NewTable("cities", "city")
	in.AppendRow("Paris")
	in.AppendRow("")
	in.AppendRow("Rome")

	id, err := s.Commit(ctx, in, "cities", "ana")
	require.NoError(t, err)

	out, found, err := s.Fetch(ctx, id, "cities")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, [][]string{{"Paris"}, {""}, {"Rome"}}, out.Rows)
	assert.True(t, in.Equal(out))
}

func TestDiffMultilineCells(t *testing.T) {
	current := []byte("id,note\n1,\"line1\nchanged\"\n2,same\n")
	previous := []byte("id,note\n1,\"line1\nline2\"\n2,same\n")

	prev, cur, err := Diff(current, previous, ',')
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "line1\nline2"}}, prev.Rows)
	assert.Equal(t, [][]string{{"1", "line1\nchanged"}}, cur.Rows)

	_, _, err = Diff([]byte("id\n\"open\n"), previous, ',')
	assert.Error(t, err)
}
