package csvkit

import (
	"sort"
	"strconv"
	"time"
)

// Bucket is a counting category over one column.
type Bucket struct {
	Col   int
	Label string
	Match func(cell string) bool
}

// NumBelow matches numeric cells strictly below v.
func NumBelow(col int, v float64) Bucket {
	return Bucket{Col: col, Label: "<" + FormatFloat(v), Match: func(s string) bool {
		n, ok := ParseNumber(s)
		return ok && n < v
	}}
}

// NumBetween matches numeric cells in [lo, hi].
func NumBetween(col int, lo, hi float64) Bucket {
	return Bucket{Col: col, Label: FormatFloat(lo) + "-" + FormatFloat(hi), Match: func(s string) bool {
		n, ok := ParseNumber(s)
		return ok && n >= lo && n <= hi
	}}
}

// NumAbove matches numeric cells strictly above v.
func NumAbove(col int, v float64) Bucket {
	return Bucket{Col: col, Label: ">" + FormatFloat(v), Match: func(s string) bool {
		n, ok := ParseNumber(s)
		return ok && n > v
	}}
}

// DateBelow matches date cells strictly before d.
func DateBelow(col int, layout string, d time.Time, label string) Bucket {
	return Bucket{Col: col, Label: label, Match: func(s string) bool {
		t, ok := ParseDate(s, layout)
		return ok && t.Before(d)
	}}
}

// DateBetween matches date cells in [lo, hi].
func DateBetween(col int, layout string, lo, hi time.Time, label string) Bucket {
	return Bucket{Col: col, Label: label, Match: func(s string) bool {
		t, ok := ParseDate(s, layout)
		return ok && !t.Before(lo) && !t.After(hi)
	}}
}

// DateAbove matches date cells strictly after d.
func DateAbove(col int, layout string, d time.Time, label string) Bucket {
	return Bucket{Col: col, Label: label, Match: func(s string) bool {
		t, ok := ParseDate(s, layout)
		return ok && t.After(d)
	}}
}

// KeyCol is a key column with its output title.
type KeyCol struct {
	Col   int
	Title string
}

// CountOptions configures Count.
type CountOptions struct {
	Key     []KeyCol
	Buckets []Bucket
	// Skip leading data rows, e.g. a sum row of the previous stage.
	Skip int
	// SumTitle adds a sum row right after the header.
	SumTitle string
	// TotalTitle appends a column with the per-row total of all buckets.
	TotalTitle string
	// Sort orders result rows by key; otherwise first-seen order is kept.
	Sort bool
}

// Count groups rows by key and counts, per bucket, the rows that match.
func Count(t *Table, opts CountOptions) *Table {
	nk, nb := len(opts.Key), len(opts.Buckets)

	header := make([]string, 0, nk+nb+1)
	for _, k := range opts.Key {
		header = append(header, k.Title)
	}
	for _, b := range opts.Buckets {
		header = append(header, b.Label)
	}
	if opts.TotalTitle != "" {
		header = append(header, opts.TotalTitle)
	}

	type group struct {
		key    []string
		counts []int
	}
	groups := make(map[string]*group)
	var order []string

	rows := t.Rows
	if opts.Skip > 0 {
		rows = rows[min(opts.Skip, len(rows)):]
	}

	for _, rec := range rows {
		row := Row(rec)
		key := make([]string, nk)
		for i, k := range opts.Key {
			key[i] = row.S(k.Col)
		}
		id := joinKey(key)
		g, ok := groups[id]
		if !ok {
			g = &group{key: key, counts: make([]int, nb)}
			groups[id] = g
			order = append(order, id)
		}
		for i, b := range opts.Buckets {
			if b.Match(row.S(b.Col)) {
				g.counts[i]++
			}
		}
	}

	if opts.Sort {
		sort.SliceStable(order, func(i, j int) bool {
			return order[i] < order[j]
		})
	}

	out := &Table{Header: header}
	totals := make(map[int]float64)

	var body [][]string
	for _, id := range order {
		g := groups[id]
		row := append([]string(nil), g.key...)
		sum := 0
		for i, c := range g.counts {
			row = append(row, strconv.Itoa(c))
			totals[nk+i] += float64(c)
			sum += c
		}
		if opts.TotalTitle != "" {
			row = append(row, strconv.Itoa(sum))
			totals[nk+nb] += float64(sum)
		}
		body = append(body, row)
	}

	if opts.SumTitle != "" {
		out.Rows = append(out.Rows, sumRow(opts.SumTitle, len(header), totals))
	}
	out.Rows = append(out.Rows, body...)
	return out
}
