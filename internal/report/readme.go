package report

import (
	"context"
	"fmt"
	"strings"
)

func init() {
	Register(Script{
		Name:        "readme",
		Group:       "help",
		Description: "Show how to use the scripts",
		NoInput:     true,
		Run:         Readme,
	})
}

// Readme prints the recommended order of invocation and all scripts.
func Readme(_ context.Context, env *Env) (*Result, error) {
	text := ReadmeText()
	if env.Out != nil {
		fmt.Fprint(env.Out, text)
	}
	return &Result{Script: "readme", Message: text}, nil
}

// ReadmeText renders the usage overview.
func ReadmeText() string {
	var b strings.Builder
	b.WriteString(`Machine analysis (installed-base download)

  1. clean_ib_source INFILE
  2. machine_analysis INFILE_BASE-clean.csv COUNTRY [COUNT]
     or each step alone: abc_analysis, machine_age, machine_count_top
  3. machine_count_per_year INFILE_BASE-clean.csv COUNTRY

Spares and repairs analysis (order download)

  1. extract_countries_and_regions INFILE
  2. country_region_combination INFILE
  3. spares_and_repairs_analysis_complete INFILE CUSTOMERS REGION [COUNTRY]
     or each step alone: extract_regional_data, insert_customer_data,
     region_revenue, customer_revenue

RSC analysis (installed-base download)

  expired_rsc INFILE [COUNTRY]

Scripts
`)
	for _, group := range Groups() {
		fmt.Fprintf(&b, "\n  [%s]\n", group)
		for _, s := range ByGroup(group) {
			fmt.Fprintf(&b, "  %-38s %s\n", strings.TrimSpace(s.Name+" "+s.Usage), s.Description)
		}
	}
	return b.String()
}
