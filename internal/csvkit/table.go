package csvkit

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// DefaultDelimiter is the field separator of the EUNA and DWH exports.
const DefaultDelimiter = ';'

// ErrEmptyFile is returned when a file has no header row.
var ErrEmptyFile = errors.New("empty file")

// Options controls how files are read and written.
type Options struct {
	// Delimiter defaults to ';'.
	Delimiter rune
	// Encoding of input files: "utf-8" (default), "windows-1252", "iso-8859-1".
	// Output is always UTF-8.
	Encoding string
	// Decimal is the decimal separator of numeric cells, ',' for German
	// exports. 0 detects it per value.
	Decimal rune
}

func (o Options) delimiter() rune {
	if o.Delimiter == 0 {
		return DefaultDelimiter
	}
	return o.Delimiter
}

// Table is an in-memory CSV file: a header row followed by data rows.
// Rows may be ragged; accessors treat missing cells as empty.
type Table struct {
	Header []string
	Rows   [][]string
}

// Row wraps a single record with typed accessors.
type Row []string

// S returns the cell at i, or "" when i is out of range.
func (r Row) S(i int) string {
	if i < 0 || i >= len(r) {
		return ""
	}
	return r[i]
}

// N returns the cell at i as a number, or 0 when it is not numeric. The
// decimal separator is detected per value.
func (r Row) N(i int) float64 {
	return r.Num(i, 0)
}

// Num is N with a fixed decimal separator, see ParseLocaleNumber.
func (r Row) Num(i int, decimal rune) float64 {
	v, _ := ParseLocaleNumber(r.S(i), decimal)
	return v
}

// D parses the cell at i as a date with the given Go layout.
func (r Row) D(i int, layout string) (time.Time, bool) {
	return ParseDate(r.S(i), layout)
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	out := &Table{Header: append([]string(nil), t.Header...)}
	out.Rows = make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		out.Rows[i] = append([]string(nil), row...)
	}
	return out
}

// Col returns the header title of column i, or "" when out of range.
func (t *Table) Col(i int) string {
	return Row(t.Header).S(i)
}

// Read parses a delimited stream. The first record becomes the header.
func Read(r io.Reader, opts Options) (*Table, error) {
	src, err := WrapReader(r, opts.Encoding)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(src)
	reader.Comma = opts.delimiter()
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("invalid csv: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrEmptyFile
	}

	return &Table{Header: records[0], Rows: records[1:]}, nil
}

// ReadFile reads a CSV file from disk.
func ReadFile(path string, opts Options) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := Read(f, opts)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return t, nil
}

// Write encodes the table. A nil header is skipped so that header-less
// results (collections) can be written too.
func Write(w io.Writer, t *Table, opts Options) error {
	writer := csv.NewWriter(w)
	writer.Comma = opts.delimiter()

	if t.Header != nil {
		if err := writer.Write(t.Header); err != nil {
			return err
		}
	}
	if err := writer.WriteAll(t.Rows); err != nil {
		return err
	}
	return writer.Error()
}

// WriteFile writes the table to path, creating parent directories.
func WriteFile(path string, t *Table, opts Options) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := Write(f, t, opts); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

// FileStats describes an input file the way scripts reference it: the
// number of rows including the header and the number of header columns.
type FileStats struct {
	RowCount int
	ColCount int
}

// Stats reads path and reports its dimensions.
func Stats(path string, opts Options) (FileStats, error) {
	t, err := ReadFile(path, opts)
	if err != nil {
		return FileStats{}, err
	}
	return FileStats{RowCount: len(t.Rows) + 1, ColCount: len(t.Header)}, nil
}
