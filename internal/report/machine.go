package report

// Scripts over the installed-base (EUNA) download. One row per machine.

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/JonMunkholm/ibreport/internal/csvkit"
	"github.com/JonMunkholm/ibreport/internal/timeleap"
)

// Installed-base columns.
const (
	ibCustomer = 45
	ibRSCEnd   = 11
)

var (
	// ibDateCols hold the delivery, installation, warranty and construction
	// dates; the earliest is taken as the machine's age.
	ibDateCols = []int{10, 11, 12, 84}
	// ibIDCols carry zero-padded IDs.
	ibIDCols = []int{14, 38, 46}
)

const defaultTopCount = 50

const groupMachines = "machines"

func init() {
	Register(Script{
		Name:        "clean_ib_source",
		Group:       groupMachines,
		Usage:       "INFILE",
		Description: "Strip leading zeros from the ID columns of the installed-base download",
		Run:         CleanIBSource,
	})
	Register(Script{
		Name:        "abc_analysis",
		Group:       groupMachines,
		Usage:       "INFILE [COUNTRY]",
		Description: "Classify customers into A (>50), B (10-50) and C (<10) by machine count",
		Run:         ABCAnalysis,
	})
	Register(Script{
		Name:        "machine_age",
		Group:       groupMachines,
		Usage:       "INFILE [COUNTRY]",
		Description: "Count machines per customer by age bracket",
		Run:         MachineAge,
	})
	Register(Script{
		Name:        "machine_count_per_year",
		Group:       groupMachines,
		Usage:       "INFILE [COUNTRY]",
		Description: "Count machines per customer and construction year",
		Run:         MachineCountPerYear,
	})
	Register(Script{
		Name:        "machine_count_top",
		Group:       groupMachines,
		Usage:       "INFILE [COUNTRY] [COUNT]",
		Description: "Extract customers with at least COUNT machines from a machine_age result",
		Run:         MachineCountTop,
	})
	Register(Script{
		Name:        "machine_analysis",
		Group:       groupMachines,
		Usage:       "INFILE [COUNTRY] [COUNT]",
		Description: "Run abc_analysis, machine_age and machine_count_top in one go",
		Run:         MachineAnalysis,
	})
}

// CleanIBSource writes INFILE_BASE-clean.csv with leading zeros removed
// from the ID columns.
func CleanIBSource(ctx context.Context, env *Env) (*Result, error) {
	p := NewPipeline(env)
	defer p.Cleanup()

	out := p.Output(env.BaseName() + "-clean.csv")

	calcs := make([]csvkit.Calc, 0, len(ibIDCols))
	for _, col := range ibIDCols {
		col := col
		calcs = append(calcs, csvkit.Calc{Col: col, Fn: func(r csvkit.Row) (string, error) {
			return csvkit.StripLeadingZeros(r.S(col)), nil
		}})
	}

	err := p.Stage(ctx, "Cleaning IDs", env.Input, out, func(t *csvkit.Table) (*csvkit.Table, error) {
		return csvkit.Calculate(t, csvkit.CalculateOptions{Cols: calcs})
	})
	if err != nil {
		return nil, err
	}
	return done(env, p, "clean_ib_source", out), nil
}

// ABCAnalysis writes ABC-analysis-NAME.csv.
func ABCAnalysis(ctx context.Context, env *Env) (*Result, error) {
	p := NewPipeline(env)
	defer p.Cleanup()

	aggregated := p.Temp("aggregate.csv")
	sorted := p.Temp("sort.csv")
	counted := p.Temp("count.csv")
	out := p.Output(env.ResultName("ABC-analysis-", ".csv"))

	stages := []struct {
		step    string
		in, out string
		fn      func(*csvkit.Table) (*csvkit.Table, error)
	}{
		{"Aggregating machines per customer", env.Input, aggregated, Pure(func(t *csvkit.Table) *csvkit.Table {
			return csvkit.Aggregate(t, csvkit.AggregateOptions{
				Key:        []int{ibCustomer},
				CountTitle: "Machines",
				SumTitle:   "Total",
			})
		})},
		{"Sorting by machine count", aggregated, sorted, Pure(func(t *csvkit.Table) *csvkit.Table {
			return csvkit.Sort(t, csvkit.SortOptions{
				Keys:  []csvkit.SortKey{{Col: 1, Type: csvkit.SortNumeric}},
				Desc:  true,
				Start: 1,
			})
		})},
		{"Counting customers per machine bracket", sorted, counted, Pure(func(t *csvkit.Table) *csvkit.Table {
			return csvkit.Count(t, csvkit.CountOptions{
				Key: []csvkit.KeyCol{{Col: 0, Title: "customer"}, {Col: 1, Title: "machines"}},
				Buckets: []csvkit.Bucket{
					csvkit.NumBelow(1, 10),
					csvkit.NumBetween(1, 10, 50),
					csvkit.NumAbove(1, 50),
				},
				Skip: 1,
			})
		})},
		{"Calculating A, B and C machines", counted, out, func(t *csvkit.Table) (*csvkit.Table, error) {
			return csvkit.Calculate(t, csvkit.CalculateOptions{
				AppendHeader: []string{"A", "B", "C"},
				Cols: []csvkit.Calc{
					{Col: 5, Fn: csvkit.Product(4, 1)},
					{Col: 6, Fn: csvkit.Product(3, 1)},
					{Col: 7, Fn: csvkit.Product(2, 1)},
				},
				SumTitle: "Total",
			})
		}},
	}
	for _, s := range stages {
		if err := p.Stage(ctx, s.step, s.in, s.out, s.fn); err != nil {
			return nil, err
		}
	}
	return done(env, p, "abc_analysis", out), nil
}

// MachineAge writes machine-ages-NAME.csv.
func MachineAge(ctx context.Context, env *Env) (*Result, error) {
	p := NewPipeline(env)
	defer p.Cleanup()

	tl := timeleap.New(env.Clock)
	b10y, b7y, b2y := tl.B10Y(), tl.B7Y(), tl.B2Y()
	iso := func(d time.Time) string { return d.Format(time.DateOnly) }

	extracted := p.Temp("extract.csv")
	aged := p.Temp("age.csv")
	counted := p.Temp("count.csv")
	older := p.Temp("calc.csv")
	out := p.Output(env.ResultName("machine-ages-", ".csv"))

	if err := p.Stage(ctx, "Extracting customer and dates", env.Input, extracted, Pure(func(t *csvkit.Table) *csvkit.Table {
		return csvkit.Extract(t, csvkit.ExtractOptions{Cols: append([]int{ibCustomer}, ibDateCols...)})
	})); err != nil {
		return nil, err
	}

	if err := p.Stage(ctx, "Calculating machine age", extracted, aged, func(t *csvkit.Table) (*csvkit.Table, error) {
		return csvkit.Calculate(t, csvkit.CalculateOptions{
			AppendHeader: []string{"Age"},
			Cols:         []csvkit.Calc{{Col: 5, Fn: earliestDate(1, 2, 3, 4)}},
		})
	}); err != nil {
		return nil, err
	}

	if err := p.Stage(ctx, "Counting machines per age bracket", aged, counted, Pure(func(t *csvkit.Table) *csvkit.Table {
		return csvkit.Count(t, csvkit.CountOptions{
			Key: []csvkit.KeyCol{{Col: 0, Title: "customer"}},
			Buckets: []csvkit.Bucket{
				csvkit.DateBelow(5, time.DateOnly, b10y, "<"+iso(b10y)),
				csvkit.DateBetween(5, time.DateOnly, b10y, b7y, iso(b10y)+"-"+iso(b7y)),
				csvkit.DateBetween(5, time.DateOnly, timeleap.NextDay(b7y), b2y, iso(timeleap.NextDay(b7y))+"-"+iso(b2y)),
				csvkit.DateAbove(5, time.DateOnly, b2y, ">"+iso(b2y)),
			},
			SumTitle:   "Total",
			TotalTitle: "Sum",
		})
	})); err != nil {
		return nil, err
	}

	if err := p.Stage(ctx, "Calculating machines older than 7 years", counted, older, func(t *csvkit.Table) (*csvkit.Table, error) {
		return csvkit.Calculate(t, csvkit.CalculateOptions{
			AppendHeader: []string{"Older7Years"},
			Cols:         []csvkit.Calc{{Col: 6, Fn: csvkit.Sum(1, 2)}},
		})
	}); err != nil {
		return nil, err
	}

	if err := p.Stage(ctx, "Sorting by machine count", older, out, Pure(func(t *csvkit.Table) *csvkit.Table {
		return csvkit.Sort(t, csvkit.SortOptions{
			Keys: []csvkit.SortKey{
				{Col: 5, Type: csvkit.SortNumeric},
				{Col: 6, Type: csvkit.SortNumeric},
			},
			Desc:  true,
			Start: 1,
		})
	})); err != nil {
		return nil, err
	}
	return done(env, p, "machine_age", out), nil
}

// MachineCountPerYear writes NAME-count-per-year.csv.
func MachineCountPerYear(ctx context.Context, env *Env) (*Result, error) {
	p := NewPipeline(env)
	defer p.Cleanup()

	stats, err := env.Stats()
	if err != nil {
		return nil, err
	}
	ageCol := stats.ColCount

	aged := p.Temp("age.csv")
	out := p.Output(env.Name() + "-count-per-year.csv")

	if err := p.Stage(ctx, "Calculating machine age", env.Input, aged, func(t *csvkit.Table) (*csvkit.Table, error) {
		return csvkit.Calculate(t, csvkit.CalculateOptions{
			AppendHeader: []string{"Age"},
			Cols:         []csvkit.Calc{{Col: ageCol, Fn: earliestDate(ibDateCols...)}},
		})
	}); err != nil {
		return nil, err
	}

	if err := p.Stage(ctx, "Counting machines per year", aged, out, Pure(func(t *csvkit.Table) *csvkit.Table {
		return csvkit.Pivot(t, csvkit.PivotOptions{
			KeyTitles: []string{t.Col(ibCustomer)},
			Key: func(r csvkit.Row) ([]string, bool) {
				return []string{r.S(ibCustomer)}, true
			},
			Cells: []csvkit.PivotCell{{
				Title: func(r csvkit.Row) string {
					d, ok := r.D(ageCol, time.DateOnly)
					if !ok {
						return ""
					}
					return strconv.Itoa(d.Year())
				},
				Value: csvkit.Add(1),
			}},
			Sum:      true,
			SumTitle: "Total",
			SortFrom: 1,
		})
	})); err != nil {
		return nil, err
	}
	return done(env, p, "machine_count_per_year", out), nil
}

// MachineCountTop reads a machine_age result and writes the customers with
// at least COUNT machines: A-customers-NAME.csv plus the count and age
// projections of it.
func MachineCountTop(ctx context.Context, env *Env) (*Result, error) {
	p := NewPipeline(env)
	defer p.Cleanup()

	count, err := strconv.Atoi(env.ArgOr(1, strconv.Itoa(defaultTopCount)))
	if err != nil {
		return nil, fmt.Errorf("COUNT must be a number: %w", err)
	}

	top := p.Output(env.ResultName("A-customers-", ".csv"))
	counts := p.Output(env.ResultName("A-customers-count-", ".csv"))
	ages := p.Output(env.ResultName("A-customers-age-", ".csv"))

	if err := p.Stage(ctx, "Extracting top customers", env.Input, top, Pure(func(t *csvkit.Table) *csvkit.Table {
		return csvkit.Extract(t, csvkit.ExtractOptions{
			Keep:  1,
			Where: func(r csvkit.Row) bool { return r.N(5) >= float64(count) },
		})
	})); err != nil {
		return nil, err
	}
	if err := p.Stage(ctx, "Extracting machine counts", top, counts, Pure(func(t *csvkit.Table) *csvkit.Table {
		return csvkit.Extract(t, csvkit.ExtractOptions{Cols: []int{0, 5}})
	})); err != nil {
		return nil, err
	}
	if err := p.Stage(ctx, "Extracting machine ages", top, ages, Pure(func(t *csvkit.Table) *csvkit.Table {
		return csvkit.Extract(t, csvkit.ExtractOptions{Cols: []int{0, 5, 6}})
	})); err != nil {
		return nil, err
	}
	return done(env, p, "machine_count_top", top, counts, ages), nil
}

// MachineAnalysis runs abc_analysis and machine_age on INFILE and
// machine_count_top on the machine_age result.
func MachineAnalysis(ctx context.Context, env *Env) (*Result, error) {
	result := &Result{Script: "machine_analysis"}

	abc, err := ABCAnalysis(ctx, env)
	if err != nil {
		return nil, fmt.Errorf("abc_analysis: %w", err)
	}
	result.add(abc)

	age, err := MachineAge(ctx, env)
	if err != nil {
		return nil, fmt.Errorf("machine_age: %w", err)
	}
	result.add(age)

	count := env.ArgOr(1, strconv.Itoa(defaultTopCount))
	top, err := MachineCountTop(ctx, env.Derive(age.Outputs[0], env.Name(), count))
	if err != nil {
		return nil, fmt.Errorf("machine_count_top: %w", err)
	}
	result.add(top)
	return result, nil
}

// earliestDate returns a calculation yielding the earliest valid German
// date among cols as an ISO date, or "" when none parses.
func earliestDate(cols ...int) func(csvkit.Row) (string, error) {
	layout, _ := timeleap.Layout(timeleap.GermanDate)
	return func(r csvkit.Row) (string, error) {
		var earliest time.Time
		found := false
		for _, c := range cols {
			d, ok := r.D(c, layout)
			if !ok {
				continue
			}
			if !found || d.Before(earliest) {
				earliest, found = d, true
			}
		}
		if !found {
			return "", nil
		}
		return earliest.Format(time.DateOnly), nil
	}
}

// done prints the result locations and builds the script result.
func done(env *Env, p *Pipeline, script string, outputs ...string) *Result {
	res := p.Result(script)
	for _, out := range outputs {
		msg := "You can find the result in " + out
		env.Printf("%s", msg)
		if res.Message != "" {
			res.Message += "\n"
		}
		res.Message += msg
	}
	return res
}
