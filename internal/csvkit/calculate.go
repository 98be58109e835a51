package csvkit

import "fmt"

// Calc computes the value of one column from a row.
type Calc struct {
	Col int
	Fn  func(r Row) (string, error)
}

// Product multiplies the numeric cells of the given columns.
func Product(cols ...int) func(Row) (string, error) {
	return func(r Row) (string, error) {
		v := 1.0
		for _, c := range cols {
			v *= r.N(c)
		}
		return FormatFloat(v), nil
	}
}

// Sum adds the numeric cells of the given columns.
func Sum(cols ...int) func(Row) (string, error) {
	return func(r Row) (string, error) {
		var v float64
		for _, c := range cols {
			v += r.N(c)
		}
		return FormatFloat(v), nil
	}
}

// CalculateOptions configures Calculate.
type CalculateOptions struct {
	Cols []Calc
	// AppendHeader titles are added after the existing header.
	AppendHeader []string
	// Skip leading data rows; they are copied unchanged.
	Skip int
	// SumTitle adds a sum row of the calculated columns after the header.
	SumTitle string
}

// Calculate sets computed columns on every data row after Skip. Short rows
// are padded with empty cells up to the target column.
func Calculate(t *Table, opts CalculateOptions) (*Table, error) {
	out := t.Clone()
	out.Header = append(out.Header, opts.AppendHeader...)

	totals := make(map[int]float64)
	for i := range out.Rows {
		if i < opts.Skip {
			continue
		}
		for _, c := range opts.Cols {
			v, err := c.Fn(Row(out.Rows[i]))
			if err != nil {
				return nil, fmt.Errorf("row %d column %d: %w", i+1, c.Col, err)
			}
			out.Rows[i] = setCell(out.Rows[i], c.Col, v)
			if n, ok := ParseNumber(v); ok {
				totals[c.Col] += n
			}
		}
	}

	if opts.SumTitle != "" {
		width := len(out.Header)
		for _, c := range opts.Cols {
			width = max(width, c.Col+1)
		}
		for _, c := range opts.Cols {
			if _, ok := totals[c.Col]; !ok {
				totals[c.Col] = 0
			}
		}
		sum := sumRow(opts.SumTitle, width, totals)
		at := min(opts.Skip, len(out.Rows))
		out.Rows = append(out.Rows[:at], append([][]string{sum}, out.Rows[at:]...)...)
	}
	return out, nil
}

func setCell(row []string, col int, v string) []string {
	for len(row) <= col {
		row = append(row, "")
	}
	row[col] = v
	return row
}
