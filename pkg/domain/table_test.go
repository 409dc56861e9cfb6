package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() *Table {
	t := NewTable("people", "id", "name", "city")
	t.AppendRow("1", "Ada", "London")
	t.AppendRow("2", "Grace, Jr.", "New \"York\"")
	t.AppendRow("3", "Linus")
	return t
}

func TestCSVRoundTrip(t *testing.T) {
	in := sample()

	data, err := EncodeCSV(in, DefaultDelimiter)
	require.NoError(t, err)

	out, err := DecodeCSV("people", data, DefaultDelimiter)
	require.NoError(t, err)
	assert.True(t, in.Equal(out))
	assert.Equal(t, "", out.Rows[2][2])
}

func TestCSVDelimiter(t *testing.T) {
	out, err := DecodeCSV("t", []byte("a;b\n1;2\n\n3\n"), ';')
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, out.Columns)
	assert.Equal(t, [][]string{{"1", "2"}, {"3", ""}}, out.Rows)
}

func TestCSVEmpty(t *testing.T) {
	out, err := DecodeCSV("t", nil, DefaultDelimiter)
	require.NoError(t, err)
	assert.Empty(t, out.Columns)
	assert.Equal(t, 0, out.RowCount())
}

func TestTableClone(t *testing.T) {
	in := sample()
	c := in.Clone()
	c.Rows[0][1] = "changed"
	assert.Equal(t, "Ada", in.Rows[0][1])
	assert.False(t, in.Equal(c))
}

func TestTableRecord(t *testing.T) {
	in := sample()
	assert.Equal(t, map[string]string{"id": "3", "name": "Linus", "city": ""}, in.Record(2))
	assert.Equal(t, 1, in.ColumnIndex("name"))
	assert.Equal(t, -1, in.ColumnIndex("age"))
}

func TestArtifactRef(t *testing.T) {
	assert.True(t, ArtifactRef{}.IsZero())
	assert.True(t, ArtifactRef{CommitID: "abc"}.IsZero())
	assert.False(t, ArtifactRef{CommitID: "abc", Name: "n"}.IsZero())
}
