package csvkit

// ExtractOptions configures Extract.
type ExtractOptions struct {
	// Cols to keep, in output order. Nil keeps all columns.
	Cols []int
	// Keep leading data rows unconditionally (e.g. a sum row).
	Keep int
	// Where filters the remaining data rows. Nil keeps all.
	Where func(r Row) bool
	// FilterHeader applies Where to the header row as well and drops the
	// header when it does not match.
	FilterHeader bool
}

// Extract selects rows and columns of t.
func Extract(t *Table, opts ExtractOptions) *Table {
	out := &Table{}
	if !opts.FilterHeader || opts.Where == nil || opts.Where(Row(t.Header)) {
		out.Header = pick(t.Header, opts.Cols)
	}

	for i, rec := range t.Rows {
		if i >= opts.Keep && opts.Where != nil && !opts.Where(Row(rec)) {
			continue
		}
		out.Rows = append(out.Rows, pick(rec, opts.Cols))
	}
	return out
}

// Cols expands an inclusive column range.
func Cols(from, to int) []int {
	var cols []int
	for c := from; c <= to; c++ {
		cols = append(cols, c)
	}
	return cols
}

func pick(rec []string, cols []int) []string {
	if cols == nil {
		return append([]string(nil), rec...)
	}
	row := Row(rec)
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = row.S(c)
	}
	return out
}
