package csvkit

import (
	"fmt"
	"strings"
)

// JoinSpec inserts columns of a source table into matching target rows.
type JoinSpec struct {
	// SourceKey is the key column in the source table.
	SourceKey int
	// SourceCols are copied from the matching source row.
	SourceCols []int
	// TargetKey is the key column in the target row as it looks after all
	// previous specs have been applied.
	TargetKey int
	// Pos are the positions the copied cells take in the resulting row,
	// ascending, one per SourceCols entry.
	Pos []int
	// Header titles inserted at Pos in the header row.
	Header []string
}

// Join applies the specs in order. Target rows without a match get blank
// cells at the insert positions. The first source row per key wins.
func Join(t, source *Table, specs []JoinSpec) (*Table, error) {
	out := t.Clone()

	for n, spec := range specs {
		if len(spec.Pos) != len(spec.SourceCols) {
			return nil, fmt.Errorf("join spec %d: %d positions for %d columns", n+1, len(spec.Pos), len(spec.SourceCols))
		}
		if len(spec.Header) != 0 && len(spec.Header) != len(spec.Pos) {
			return nil, fmt.Errorf("join spec %d: %d header titles for %d positions", n+1, len(spec.Header), len(spec.Pos))
		}

		lookup := make(map[string][]string)
		for _, rec := range source.Rows {
			row := Row(rec)
			key := strings.TrimSpace(row.S(spec.SourceKey))
			if key == "" {
				continue
			}
			if _, ok := lookup[key]; ok {
				continue
			}
			lookup[key] = pick(rec, spec.SourceCols)
		}

		header := spec.Header
		if len(header) == 0 {
			header = pick(source.Header, spec.SourceCols)
		}
		out.Header = insertAt(out.Header, spec.Pos, header)

		blank := make([]string, len(spec.Pos))
		for i, rec := range out.Rows {
			values, ok := lookup[strings.TrimSpace(Row(rec).S(spec.TargetKey))]
			if !ok {
				values = blank
			}
			out.Rows[i] = insertAt(rec, spec.Pos, values)
		}
	}
	return out, nil
}

// insertAt inserts values so that values[i] ends up at index pos[i] of the
// result. Rows shorter than a position are padded.
func insertAt(row []string, pos []int, values []string) []string {
	out := append([]string(nil), row...)
	for i, p := range pos {
		for len(out) < p {
			out = append(out, "")
		}
		out = append(out[:p], append([]string{values[i]}, out[p:]...)...)
	}
	return out
}
