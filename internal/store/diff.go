package store

import (
	"fmt"
	"strings"

	"github.com/aescanero/pdqflow/pkg/domain"
)

// Diff compares two serialized tables line by line. The header is always
// kept; any later line is kept on both sides when the lines at that
// position differ, a missing line counting as empty. Rows are compared by
// position only, so an inserted row shows every following row as changed.
// Lines are CSV records: a quoted cell holding a newline stays in one line.
//
// The previous content's table is returned first.
func Diff(current, previous []byte, delimiter rune) (*domain.Table, *domain.Table, error) {
	cur, err := splitLines(current)
	if err != nil {
		return nil, nil, err
	}
	prev, err := splitLines(previous)
	if err != nil {
		return nil, nil, err
	}

	var curOut, prevOut strings.Builder
	n := max(len(cur), len(prev))
	for i := 0; i < n; i++ {
		c, p := lineAt(cur, i), lineAt(prev, i)
		if i == 0 || c != p {
			curOut.WriteString(c)
			curOut.WriteByte('\n')
			prevOut.WriteString(p)
			prevOut.WriteByte('\n')
		}
	}

	prevTable, err := domain.DecodeCSV("previous", []byte(prevOut.String()), delimiter)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse previous diff: %w", err)
	}
	curTable, err := domain.DecodeCSV("current", []byte(curOut.String()), delimiter)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse current diff: %w", err)
	}
	return prevTable, curTable, nil
}

// splitLines splits content into CSV records. A newline inside a quoted
// cell belongs to the record.
func splitLines(content []byte) ([]string, error) {
	var lines []string
	quoted := false
	start := 0
	for i, b := range content {
		switch {
		case b == '"':
			quoted = !quoted
		case b == '\n' && !quoted:
			lines = append(lines, strings.TrimSuffix(string(content[start:i]), "\r"))
			start = i + 1
		}
	}
	if quoted {
		return nil, fmt.Errorf("failed to split lines: unterminated quoted cell")
	}
	if start < len(content) {
		lines = append(lines, strings.TrimSuffix(string(content[start:]), "\r"))
	}
	return lines, nil
}

func lineAt(lines []string, i int) string {
	if i < len(lines) {
		return lines[i]
	}
	return ""
}
