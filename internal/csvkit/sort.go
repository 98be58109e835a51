package csvkit

import (
	"sort"
	"strings"
)

// SortType selects how a sort key compares cells.
type SortType int

const (
	SortString SortType = iota
	SortNumeric
	SortDate
)

// SortKey is one column of a multi-column sort.
type SortKey struct {
	Col    int
	Type   SortType
	Layout string // date layout for SortDate; empty tries the common layouts
}

// SortOptions configures Sort.
type SortOptions struct {
	Keys []SortKey
	Desc bool
	// Start is the first data row that takes part in sorting. Rows before
	// it (sum rows) keep their position.
	Start int
}

// Sort returns a copy of t with rows ordered by the keys. The sort is stable.
func Sort(t *Table, opts SortOptions) *Table {
	out := t.Clone()
	start := opts.Start
	if start > len(out.Rows) {
		start = len(out.Rows)
	}
	rows := out.Rows[start:]

	sort.SliceStable(rows, func(i, j int) bool {
		for _, k := range opts.Keys {
			c := compareCells(Row(rows[i]), Row(rows[j]), k)
			if c == 0 {
				continue
			}
			if opts.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	return out
}

func compareCells(a, b Row, k SortKey) int {
	switch k.Type {
	case SortNumeric:
		x, y := a.N(k.Col), b.N(k.Col)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	case SortDate:
		x, okx := ParseDate(a.S(k.Col), k.Layout)
		y, oky := ParseDate(b.S(k.Col), k.Layout)
		switch {
		case !okx && !oky:
			return 0
		case !okx:
			return -1
		case !oky:
			return 1
		}
		return x.Compare(y)
	default:
		return strings.Compare(a.S(k.Col), b.S(k.Col))
	}
}
