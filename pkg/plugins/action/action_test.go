package action

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aescanero/pdqflow/pkg/domain"
	"github.com/aescanero/pdqflow/pkg/plugin"
)

func people() *domain.Table {
	t := domain.NewTable("people", "name", "city", "first seen")
	t.AppendRow("Ada", "London", "1815")
	t.AppendRow("Grace", "New York", "1906")
	t.AppendRow("Alan", "London", "1912")
	return t
}

func TestSelect(t *testing.T) {
	ctx := context.Background()
	s := NewSelect()
	s.Options().Set(OptCondition, `city == "London" && row["first seen"] > "1900"`)

	out, err := s.Act(ctx, []*domain.Table{people()})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Alan", "London", "1912"}}, out.Rows)

	// Default keeps everything.
	out, err = NewSelect().Act(ctx, []*domain.Table{people()})
	require.NoError(t, err)
	assert.Equal(t, 3, out.RowCount())
}

func TestSelectInvalidCondition(t *testing.T) {
	s := NewSelect()
	s.Options().Set(OptCondition, `city + `)
	_, err := s.Act(context.Background(), []*domain.Table{people()})
	var optErr *plugin.InvalidOptionError
	require.ErrorAs(t, err, &optErr)

	s.Options().Set(OptCondition, `name`)
	_, err = s.Act(context.Background(), []*domain.Table{people()})
	assert.Error(t, err)

	_, err = s.Act(context.Background(), nil)
	assert.Error(t, err)
}

func TestUnion(t *testing.T) {
	a := domain.NewTable("a", "id", "name")
	a.AppendRow("1", "Ada")
	b := domain.NewTable("b", "name", "city")
	b.AppendRow("Grace", "New York")

	out, err := NewUnion().Act(context.Background(), []*domain.Table{a, b})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "city"}, out.Columns)
	assert.Equal(t, [][]string{{"1", "Ada", ""}, {"", "Grace", "New York"}}, out.Rows)

	_, err = NewUnion().Act(context.Background(), []*domain.Table{a, b, a})
	assert.Error(t, err)
}

func TestProject(t *testing.T) {
	p := NewProject()
	p.Options().Set(OptColumns, "city, name")

	out, err := p.Act(context.Background(), []*domain.Table{people()})
	require.NoError(t, err)
	assert.Equal(t, []string{"city", "name"}, out.Columns)
	assert.Equal(t, []string{"London", "Ada"}, out.Rows[0])

	p.Options().Set(OptColumns, "age")
	_, err = p.Act(context.Background(), []*domain.Table{people()})
	var optErr *plugin.InvalidOptionError
	require.ErrorAs(t, err, &optErr)

	_, err = NewProject().Act(context.Background(), []*domain.Table{people()})
	require.ErrorAs(t, err, &optErr)
}
