package domain

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
)

// DefaultDelimiter separates cells in serialized tables.
const DefaultDelimiter = ','

// EncodeCSV serializes a table as delimited text with a header row.
func EncodeCSV(t *Table, delimiter rune) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = delimiter

	if len(t.Columns) > 0 {
		if err := writeRecord(w, &buf, t.Columns); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}
	for i, row := range t.Rows {
		if err := writeRecord(w, &buf, row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// writeRecord writes rec through w. A record holding one empty cell is
// written quoted, since csv.Writer would emit a blank line that readers
// skip.
func writeRecord(w *csv.Writer, buf *bytes.Buffer, rec []string) error {
	if len(rec) == 1 && rec[0] == "" {
		w.Flush()
		if err := w.Error(); err != nil {
			return err
		}
		buf.WriteString("\"\"\n")
		return nil
	}
	return w.Write(rec)
}

// DecodeCSV parses delimited text with a header row. Short rows are padded
// to the header width; blank lines are skipped.
func DecodeCSV(name string, data []byte, delimiter rune) (*Table, error) {
	return ReadCSV(name, bytes.NewReader(data), delimiter)
}

// ReadCSV is DecodeCSV over a reader.
func ReadCSV(name string, r io.Reader, delimiter rune) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = delimiter
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	t := &Table{Name: name}
	header := true
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse csv: %w", err)
		}
		if header {
			t.Columns = rec
			header = false
			continue
		}
		t.AppendRow(rec...)
	}
	return t, nil
}
