package csvkit

import (
	"strconv"
	"strings"
)

// AggregateOptions configures Aggregate.
type AggregateOptions struct {
	// Key columns; rows with equal key values are counted together.
	Key []int
	// CountTitle is the header of the count column.
	CountTitle string
	// SumTitle, when set, adds a sum row right after the header.
	SumTitle string
}

// Aggregate counts data rows per distinct key, in first-seen key order.
func Aggregate(t *Table, opts AggregateOptions) *Table {
	header := make([]string, 0, len(opts.Key)+1)
	for _, c := range opts.Key {
		header = append(header, t.Col(c))
	}
	header = append(header, opts.CountTitle)

	counts := make(map[string]int)
	keys := make(map[string][]string)
	var order []string

	for _, rec := range t.Rows {
		row := Row(rec)
		key := make([]string, len(opts.Key))
		for i, c := range opts.Key {
			key[i] = row.S(c)
		}
		id := joinKey(key)
		if _, ok := counts[id]; !ok {
			order = append(order, id)
			keys[id] = key
		}
		counts[id]++
	}

	out := &Table{Header: header}
	if opts.SumTitle != "" {
		out.Rows = append(out.Rows, sumRow(opts.SumTitle, len(header), map[int]float64{
			len(header) - 1: float64(len(t.Rows)),
		}))
	}
	for _, id := range order {
		row := append(append([]string(nil), keys[id]...), strconv.Itoa(counts[id]))
		out.Rows = append(out.Rows, row)
	}
	return out
}

// joinKey builds a map key from several cell values.
func joinKey(parts []string) string {
	return strings.Join(parts, "\x1f")
}

// sumRow builds a row of width n with title in the first cell and the
// given column totals.
func sumRow(title string, n int, totals map[int]float64) []string {
	row := make([]string, n)
	if n > 0 {
		row[0] = title
	}
	for c, v := range totals {
		if c > 0 && c < n {
			row[c] = FormatFloat(v)
		}
	}
	return row
}
