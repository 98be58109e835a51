// Package csvkit reads and writes the semicolon-delimited exports the
// reports are built from and provides the table operations the report
// scripts chain together.
//
// Every operation takes a *Table and returns a new one; inputs are never
// modified. Column positions are zero-based. Sum rows produced by an
// operation sit directly after the header, and later operations skip them
// through their Skip/Start/Keep options.
//
//	t, err := csvkit.ReadFile("euna.csv", csvkit.Options{})
//	agg := csvkit.Aggregate(t, csvkit.AggregateOptions{
//	    Key:        []int{45},
//	    CountTitle: "Machines",
//	    SumTitle:   "Total",
//	})
//	sorted := csvkit.Sort(agg, csvkit.SortOptions{
//	    Keys:  []csvkit.SortKey{{Col: 1, Type: csvkit.SortNumeric}},
//	    Desc:  true,
//	    Start: 1,
//	})
package csvkit
