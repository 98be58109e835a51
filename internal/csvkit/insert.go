package csvkit

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// Position selects where Insert places rows.
type Position int

const (
	Top Position = iota
	Bottom
)

// Insert adds literal rows above the header (Top) or after the last row
// (Bottom). Inserted rows above the header become the new header plus data,
// so the result is written exactly in the given order.
func Insert(t *Table, rows [][]string, pos Position) *Table {
	if len(rows) == 0 {
		return t.Clone()
	}
	src := t.Clone()

	if pos == Bottom {
		src.Rows = append(src.Rows, rows...)
		return src
	}

	out := &Table{Header: append([]string(nil), rows[0]...)}
	out.Rows = append(out.Rows, rows[1:]...)
	if src.Header != nil {
		out.Rows = append(out.Rows, src.Header)
	}
	out.Rows = append(out.Rows, src.Rows...)
	return out
}

// ParseInsertRows reads an insert scheme: one row per line, cells separated
// by delim. Blank lines are skipped and trailing whitespace is trimmed.
func ParseInsertRows(r io.Reader, delim rune) ([][]string, error) {
	if delim == 0 {
		delim = DefaultDelimiter
	}

	var rows [][]string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		rows = append(rows, strings.Split(line, string(delim)))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

// ReadInsertFile reads an insert scheme from disk.
func ReadInsertFile(path string, delim rune) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseInsertRows(f, delim)
}
