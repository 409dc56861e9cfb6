package domain

// Table is a named tabular dataset. Cells are kept as text; interpreting
// them is up to the plugins that consume the table.
type Table struct {
	Name    string     `json:"name"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// NewTable creates an empty table with the given header.
func NewTable(name string, columns ...string) *Table {
	return &Table{
		Name:    name,
		Columns: append([]string(nil), columns...),
	}
}

// RowCount returns the number of data rows.
func (t *Table) RowCount() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// AppendRow adds a row, padding or truncating it to the header width.
func (t *Table) AppendRow(cells ...string) {
	row := make([]string, len(t.Columns))
	copy(row, cells)
	t.Rows = append(t.Rows, row)
}

// Record returns row i keyed by column name.
func (t *Table) Record(i int) map[string]string {
	rec := make(map[string]string, len(t.Columns))
	row := t.Rows[i]
	for j, c := range t.Columns {
		if j < len(row) {
			rec[c] = row[j]
		} else {
			rec[c] = ""
		}
	}
	return rec
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	c := &Table{
		Name:    t.Name,
		Columns: append([]string(nil), t.Columns...),
	}
	if t.Rows != nil {
		c.Rows = make([][]string, len(t.Rows))
		for i, r := range t.Rows {
			c.Rows[i] = append([]string(nil), r...)
		}
	}
	return c
}

// Equal reports whether both tables carry the same header and cells.
// Names are not compared.
func (t *Table) Equal(o *Table) bool {
	if t == nil || o == nil {
		return t == o
	}
	if !equalStrings(t.Columns, o.Columns) || len(t.Rows) != len(o.Rows) {
		return false
	}
	for i := range t.Rows {
		if !equalStrings(t.Rows[i], o.Rows[i]) {
			return false
		}
	}
	return true
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// DataCollection carries named auxiliary values from predecessors to
// writers, e.g. a detection report produced upstream.
type DataCollection map[string]interface{}
