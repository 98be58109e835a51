package report

// Scripts over the spares and repairs order download (DWH). One row per
// order position.

import (
	"context"
	"fmt"
	"regexp"

	"github.com/JonMunkholm/ibreport/internal/csvkit"
)

// Order download columns.
const (
	dwhDate      = 0
	dwhOrderType = 1
	dwhAmount    = 10
	dwhRegion    = 18
	dwhEK        = 19
	dwhEKName    = 20
	// dwhAG is the AG customer column after the EK name and country
	// have been joined in at 20 and 21.
	dwhAG = 22
)

// regionHeader is the title of the region column; it marks the header row
// when filtering by region.
const regionHeader = "RE_GEBIET"

var (
	dwhCountryCols = csvkit.Cols(4, 6)

	spareTypes  = orderTypes("ZE", "ZEI", "ZO", "ZOI", "ZG", "ZGNT", "ZRE", "ZGUP")
	repairTypes = orderTypes("ZRN", "ZRK")

	orderYear = regexp.MustCompile(`\d+\.\d+\.(\d{4})`)
)

const groupSpares = "spares"

func init() {
	Register(Script{
		Name:        "extract_regional_data",
		Group:       groupSpares,
		Usage:       "INFILE REGION [COUNTRY]",
		Description: "Extract the orders of one region",
		MinArgs:     1,
		Run:         ExtractRegionalData,
	})
	Register(Script{
		Name:        "insert_customer_data",
		Group:       groupSpares,
		Usage:       "INFILE CUSTOMERS",
		Description: "Insert EK and AG customer name and country from the customer master data",
		MinArgs:     1,
		SourceArg:   true,
		Run:         InsertCustomerData,
	})
	Register(Script{
		Name:        "extract_countries_and_regions",
		Group:       groupSpares,
		Usage:       "INFILE",
		Description: "List all countries and regions of the order download",
		Run:         ExtractCountriesAndRegions,
	})
	Register(Script{
		Name:        "country_region_combination",
		Group:       groupSpares,
		Usage:       "INFILE",
		Description: "List the countries of each region",
		Run:         CountryRegionCombination,
	})
	Register(Script{
		Name:        "region_revenue",
		Group:       groupSpares,
		Usage:       "INFILE [COUNTRY] [REGION]",
		Description: "Spares and repairs revenue and order count per year",
		Run:         RegionRevenue,
	})
	Register(Script{
		Name:        "customer_revenue",
		Group:       groupSpares,
		Usage:       "INFILE [COUNTRY] [REGION]",
		Description: "Spares and repairs revenue and order count per customer and year",
		Run:         CustomerRevenue,
	})
	Register(Script{
		Name:        "spares_and_repairs_analysis",
		Group:       groupSpares,
		Usage:       "INFILE [COUNTRY] [REGION]",
		Description: "Run region_revenue and customer_revenue in one go",
		Run:         SparesAndRepairsAnalysis,
	})
	Register(Script{
		Name:        "spares_and_repairs_analysis_complete",
		Group:       groupSpares,
		Usage:       "INFILE CUSTOMERS REGION [COUNTRY]",
		Description: "Extract a region, insert customer data and run the revenue analyses",
		MinArgs:     2,
		SourceArg:   true,
		Run:         SparesAndRepairsAnalysisComplete,
	})
}

// ExtractRegionalData writes [COUNTRY-][REGION-]spares-and-repairs.csv
// with the orders whose region column equals REGION.
func ExtractRegionalData(ctx context.Context, env *Env) (*Result, error) {
	region := env.Arg(0)
	if region == "" {
		return nil, fmt.Errorf("%w: REGION", ErrMissingArg)
	}

	p := NewPipeline(env)
	defer p.Cleanup()

	out := p.Output(RegionPart(env.Arg(1), region) + "spares-and-repairs.csv")
	if err := p.Stage(ctx, "Extracting region "+region, env.Input, out, Pure(func(t *csvkit.Table) *csvkit.Table {
		return csvkit.Extract(t, csvkit.ExtractOptions{
			Where: func(r csvkit.Row) bool {
				v := r.S(dwhRegion)
				return v == region || v == regionHeader
			},
			FilterHeader: true,
		})
	})); err != nil {
		return nil, err
	}
	return done(env, p, "extract_regional_data", out), nil
}

// InsertCustomerData writes INFILE_BASE-with-customers.csv with name and
// country of the EK and AG customers looked up in CUSTOMERS.
func InsertCustomerData(ctx context.Context, env *Env) (*Result, error) {
	customersPath := env.Arg(0)
	if customersPath == "" {
		return nil, fmt.Errorf("%w: CUSTOMERS", ErrMissingArg)
	}

	p := NewPipeline(env)
	defer p.Cleanup()

	customers, err := p.Read(customersPath)
	if err != nil {
		return nil, fmt.Errorf("read customers: %w", err)
	}

	out := p.Output(env.BaseName() + "-with-customers.csv")
	specs := []csvkit.JoinSpec{
		{SourceKey: 0, SourceCols: []int{1, 2}, TargetKey: dwhEK, Pos: []int{20, 21}, Header: []string{"OI_EK_NAME", "OI_EK_LAND"}},
		{SourceKey: 0, SourceCols: []int{1, 2}, TargetKey: dwhAG, Pos: []int{23, 24}, Header: []string{"OI_AG_NAME", "OI_AG_LAND"}},
	}
	if err := p.Stage(ctx, "Inserting customer data", env.Input, out, func(t *csvkit.Table) (*csvkit.Table, error) {
		return csvkit.Join(t, customers, specs)
	}); err != nil {
		return nil, err
	}
	return done(env, p, "insert_customer_data", out), nil
}

// ExtractCountriesAndRegions writes countries_and_regions.csv.
func ExtractCountriesAndRegions(ctx context.Context, env *Env) (*Result, error) {
	p := NewPipeline(env)
	defer p.Cleanup()

	out := p.Output("countries_and_regions.csv")
	if err := p.Stage(ctx, "Collecting countries and regions", env.Input, out, Pure(func(t *csvkit.Table) *csvkit.Table {
		return csvkit.Collect(t, []csvkit.CollectGroup{
			{Title: "COUNTRIES", Cols: dwhCountryCols},
			{Title: "REGIONS", Cols: []int{dwhRegion}},
		})
	})); err != nil {
		return nil, err
	}
	return done(env, p, "extract_countries_and_regions", out), nil
}

// CountryRegionCombination writes country-region-combinations.csv.
func CountryRegionCombination(ctx context.Context, env *Env) (*Result, error) {
	p := NewPipeline(env)
	defer p.Cleanup()

	out := p.Output("country-region-combinations.csv")
	if err := p.Stage(ctx, "Allocating countries to regions", env.Input, out, Pure(func(t *csvkit.Table) *csvkit.Table {
		return csvkit.Allocate(t, csvkit.AllocateOptions{
			Key:    dwhRegion,
			Cols:   dwhCountryCols,
			Header: []string{"REGION", "COUNTRIES"},
		})
	})); err != nil {
		return nil, err
	}
	return done(env, p, "country_region_combination", out), nil
}

// RegionRevenue writes [COUNTRY-][REGION-]spares-and-repairs-revenues.csv.
func RegionRevenue(ctx context.Context, env *Env) (*Result, error) {
	p := NewPipeline(env)
	defer p.Cleanup()

	out := p.Output(RegionPart(env.Arg(0), env.Arg(1)) + "spares-and-repairs-revenues.csv")

	fixed := func(title string, pred func(csvkit.Row) bool, value func(csvkit.Row) (float64, bool)) csvkit.PivotCell {
		return csvkit.PivotCell{Title: csvkit.Fixed(title), Value: csvkit.When(pred, value)}
	}
	amount := csvkit.AddCol(dwhAmount, env.CSV.Decimal)
	cells := []csvkit.PivotCell{
		fixed("SP", isSpare, amount),
		fixed("RP", isRepair, amount),
		fixed("Total", isSpareOrRepair, amount),
		fixed("SP-Orders", isSpare, csvkit.Add(1)),
		fixed("RP-Orders", isRepair, csvkit.Add(1)),
		fixed("Orders", isSpareOrRepair, csvkit.Add(1)),
	}

	if err := p.Stage(ctx, "Calculating revenue per year", env.Input, out, Pure(func(t *csvkit.Table) *csvkit.Table {
		return csvkit.Pivot(t, csvkit.PivotOptions{
			KeyTitles: []string{"Year"},
			Key: func(r csvkit.Row) ([]string, bool) {
				year, ok := yearOf(r)
				return []string{year}, ok
			},
			Columns: []string{"SP", "RP", "Total", "SP-Orders", "RP-Orders", "Orders"},
			Cells:   cells,
			Sum:     true,
			Format:  env.Numbers,
		})
	})); err != nil {
		return nil, err
	}
	return done(env, p, "region_revenue", out), nil
}

// CustomerRevenue writes
// [COUNTRY-][REGION-]customer-revenue-per-year-and-type.csv.
func CustomerRevenue(ctx context.Context, env *Env) (*Result, error) {
	p := NewPipeline(env)
	defer p.Cleanup()

	out := p.Output(RegionPart(env.Arg(0), env.Arg(1)) + "customer-revenue-per-year-and-type.csv")

	yearly := func(suffix string, pred func(csvkit.Row) bool, value func(csvkit.Row) (float64, bool)) csvkit.PivotCell {
		return csvkit.PivotCell{
			Title: func(r csvkit.Row) string {
				year, ok := yearOf(r)
				if !ok {
					return ""
				}
				return year + suffix
			},
			Value: csvkit.When(pred, value),
		}
	}
	amount := csvkit.AddCol(dwhAmount, env.CSV.Decimal)
	cells := []csvkit.PivotCell{
		yearly("-SP-R", isSpare, amount),
		yearly("-RP-R", isRepair, amount),
		yearly("-R", isSpareOrRepair, amount),
		yearly("-SP-O", isSpare, csvkit.Add(1)),
		yearly("-RP-O", isRepair, csvkit.Add(1)),
		yearly("-O", isSpareOrRepair, csvkit.Add(1)),
	}

	if err := p.Stage(ctx, "Calculating revenue per customer and year", env.Input, out, Pure(func(t *csvkit.Table) *csvkit.Table {
		return csvkit.Pivot(t, csvkit.PivotOptions{
			KeyTitles: []string{t.Col(dwhEK), t.Col(dwhEKName)},
			Key: func(r csvkit.Row) ([]string, bool) {
				return []string{r.S(dwhEK), r.S(dwhEKName)}, true
			},
			Cells:    cells,
			Sum:      true,
			SumTitle: "Total",
			SortFrom: 2,
			Format:   env.Numbers,
		})
	})); err != nil {
		return nil, err
	}
	return done(env, p, "customer_revenue", out), nil
}

// SparesAndRepairsAnalysis runs region_revenue and customer_revenue.
func SparesAndRepairsAnalysis(ctx context.Context, env *Env) (*Result, error) {
	result := &Result{Script: "spares_and_repairs_analysis"}

	region, err := RegionRevenue(ctx, env)
	if err != nil {
		return nil, fmt.Errorf("region_revenue: %w", err)
	}
	result.add(region)

	customer, err := CustomerRevenue(ctx, env)
	if err != nil {
		return nil, fmt.Errorf("customer_revenue: %w", err)
	}
	result.add(customer)
	return result, nil
}

// SparesAndRepairsAnalysisComplete extracts REGION, inserts the customer
// data and runs both revenue analyses on the result.
func SparesAndRepairsAnalysisComplete(ctx context.Context, env *Env) (*Result, error) {
	customers, region, country := env.Arg(0), env.Arg(1), env.Arg(2)
	if customers == "" || region == "" {
		return nil, fmt.Errorf("%w: CUSTOMERS and REGION", ErrMissingArg)
	}
	result := &Result{Script: "spares_and_repairs_analysis_complete"}

	regional, err := ExtractRegionalData(ctx, env.Derive(env.Input, region, country))
	if err != nil {
		return nil, fmt.Errorf("extract_regional_data: %w", err)
	}
	result.add(regional)

	joined, err := InsertCustomerData(ctx, env.Derive(regional.Outputs[0], customers))
	if err != nil {
		return nil, fmt.Errorf("insert_customer_data: %w", err)
	}
	result.add(joined)

	analysis, err := SparesAndRepairsAnalysis(ctx, env.Derive(joined.Outputs[0], country, region))
	if err != nil {
		return nil, err
	}
	result.add(analysis)
	return result, nil
}

func orderTypes(types ...string) map[string]bool {
	m := make(map[string]bool, len(types))
	for _, t := range types {
		m[t] = true
	}
	return m
}

func isSpare(r csvkit.Row) bool  { return spareTypes[r.S(dwhOrderType)] }
func isRepair(r csvkit.Row) bool { return repairTypes[r.S(dwhOrderType)] }

func isSpareOrRepair(r csvkit.Row) bool { return isSpare(r) || isRepair(r) }

// yearOf returns the year of the order date (dd.mm.yyyy).
func yearOf(r csvkit.Row) (string, bool) {
	m := orderYear.FindStringSubmatch(r.S(dwhDate))
	if m == nil {
		return "", false
	}
	return m[1], true
}
