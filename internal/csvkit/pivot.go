package csvkit

import "sort"

// PivotCell adds a value to a dynamically titled column. Title returns ""
// or Value returns false when the row does not contribute.
type PivotCell struct {
	Title func(r Row) string
	Value func(r Row) (float64, bool)
}

// Fixed returns a title function for a constant column.
func Fixed(title string) func(Row) string {
	return func(Row) string { return title }
}

// Add returns a value function that adds a constant, e.g. 1 to count rows.
func Add(v float64) func(Row) (float64, bool) {
	return func(Row) (float64, bool) { return v, true }
}

// AddCol returns a value function adding the numeric cell of col, parsed
// with the decimal separator decimal (0 detects it).
func AddCol(col int, decimal rune) func(Row) (float64, bool) {
	return func(r Row) (float64, bool) { return r.Num(col, decimal), true }
}

// When restricts a value function to rows matching pred.
func When(pred func(Row) bool, fn func(Row) (float64, bool)) func(Row) (float64, bool) {
	return func(r Row) (float64, bool) {
		if !pred(r) {
			return 0, false
		}
		return fn(r)
	}
}

// PivotOptions configures Pivot.
type PivotOptions struct {
	// KeyTitles head the key columns.
	KeyTitles []string
	// Key returns the key cells of a row; ok=false skips the row.
	Key func(r Row) (key []string, ok bool)
	// Columns are created up front in this order, before dynamic titles.
	Columns []string
	Cells   []PivotCell
	// Sum adds a sum row of all value columns right after the header,
	// labelled SumTitle in the first key cell.
	Sum      bool
	SumTitle string
	// SortFrom sorts header titles from this header index on; 0 disables.
	SortFrom int
	Format   NumberFormat
}

// Pivot builds a key x column table of accumulated values.
func Pivot(t *Table, opts PivotOptions) *Table {
	nk := len(opts.KeyTitles)

	titles := append([]string(nil), opts.Columns...)
	seen := make(map[string]bool, len(titles))
	for _, c := range titles {
		seen[c] = true
	}

	type entry struct {
		key    []string
		values map[string]float64
	}
	entries := make(map[string]*entry)
	var order []string

	for _, rec := range t.Rows {
		row := Row(rec)
		key, ok := opts.Key(row)
		if !ok {
			continue
		}
		id := joinKey(key)
		e, exists := entries[id]
		if !exists {
			e = &entry{key: key, values: make(map[string]float64)}
			entries[id] = e
			order = append(order, id)
		}

		for _, cell := range opts.Cells {
			title := cell.Title(row)
			if title == "" {
				continue
			}
			v, ok := cell.Value(row)
			if !ok {
				continue
			}
			if !seen[title] {
				seen[title] = true
				titles = append(titles, title)
			}
			e.values[title] += v
		}
	}

	header := append(append([]string(nil), opts.KeyTitles...), titles...)
	if opts.SortFrom > 0 {
		if from := max(opts.SortFrom, nk); from < len(header) {
			sort.Strings(header[from:])
		}
	}
	valueCols := header[nk:]

	out := &Table{Header: header}
	if opts.Sum {
		sum := make([]string, len(header))
		if nk > 0 {
			sum[0] = opts.SumTitle
		}
		for i, title := range valueCols {
			var total float64
			for _, id := range order {
				total += entries[id].values[title]
			}
			sum[nk+i] = opts.Format.Format(total)
		}
		out.Rows = append(out.Rows, sum)
	}

	for _, id := range order {
		e := entries[id]
		row := append([]string(nil), e.key...)
		for _, title := range valueCols {
			v, ok := e.values[title]
			if !ok {
				row = append(row, "")
				continue
			}
			row = append(row, opts.Format.Format(v))
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}
