package csvkit

import (
	"sort"
	"strings"
)

// CollectGroup names a set of columns whose values are collected together.
type CollectGroup struct {
	Title string
	Cols  []int
}

// Collect lists the sorted unique non-empty values of each group. The result
// has no header; every row is [title, value...].
func Collect(t *Table, groups []CollectGroup) *Table {
	out := &Table{}
	for _, g := range groups {
		values := make(map[string]bool)
		for _, rec := range t.Rows {
			row := Row(rec)
			for _, c := range g.Cols {
				if v := strings.TrimSpace(row.S(c)); v != "" {
					values[v] = true
				}
			}
		}
		out.Rows = append(out.Rows, append([]string{g.Title}, sortedKeys(values)...))
	}
	return out
}

// AllocateOptions configures Allocate.
type AllocateOptions struct {
	Key    int
	Cols   []int
	Header []string
}

// Allocate lists, per distinct key, the sorted unique values found in Cols.
// Rows are sorted by key.
func Allocate(t *Table, opts AllocateOptions) *Table {
	alloc := make(map[string]map[string]bool)
	for _, rec := range t.Rows {
		row := Row(rec)
		key := strings.TrimSpace(row.S(opts.Key))
		if key == "" {
			continue
		}
		if alloc[key] == nil {
			alloc[key] = make(map[string]bool)
		}
		for _, c := range opts.Cols {
			if v := strings.TrimSpace(row.S(c)); v != "" {
				alloc[key][v] = true
			}
		}
	}

	out := &Table{Header: opts.Header}
	for _, key := range sortedKeys(alloc) {
		out.Rows = append(out.Rows, append([]string{key}, sortedKeys(alloc[key])...))
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
