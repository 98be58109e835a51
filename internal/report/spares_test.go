package report

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/JonMunkholm/ibreport/internal/csvkit"
	"github.com/google/go-cmp/cmp"
)

func ordersInput() *csvkit.Table {
	return &csvkit.Table{
		Header: dwhHeader(),
		Rows: [][]string{
			dwhRow("01.02.2014", "ZE", "100,50", "NORD", "1", "Acme"),
			dwhRow("15.03.2014", "ZRN", "200", "SUED", "1", "Acme"),
			dwhRow("1.1.2015", "ZO", "1.000,25", "NORD", "2", "Beta"),
			dwhRow("02.02.2015", "XX", "50", "NORD", "2", "Beta"),
		},
	}
}

func TestExtractRegionalData(t *testing.T) {
	env := testEnv(t, ordersInput(), "NORD", "DE")

	res, err := ExtractRegionalData(context.Background(), env)
	if err != nil {
		t.Fatalf("ExtractRegionalData() error = %v", err)
	}
	if got := filepath.Base(res.Outputs[0]); got != "DE-NORD-spares-and-repairs.csv" {
		t.Errorf("output = %q", got)
	}

	got := readResult(t, res.Outputs[0])
	if got.Col(dwhRegion) != regionHeader {
		t.Errorf("header not kept: %v", got.Header)
	}
	if len(got.Rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(got.Rows))
	}
	for _, r := range got.Rows {
		if csvkit.Row(r).S(dwhRegion) != "NORD" {
			t.Errorf("row of other region: %v", r)
		}
	}
}

func TestExtractRegionalData_MissingRegion(t *testing.T) {
	env := testEnv(t, ordersInput())
	_, err := ExtractRegionalData(context.Background(), env)
	if !errors.Is(err, ErrMissingArg) {
		t.Errorf("error = %v, want ErrMissingArg", err)
	}
}

func TestInsertCustomerData(t *testing.T) {
	header := make([]string, 21)
	row := make([]string, 21)
	header[19], header[20] = "EK", "AG"
	row[19], row[20] = "1", "2"
	missing := make([]string, 21)
	missing[19], missing[20] = "9", "1"

	env := testEnv(t, &csvkit.Table{Header: header, Rows: [][]string{row, missing}})

	customers := filepath.Join(filepath.Dir(env.Input), "customers.csv")
	if err := csvkit.WriteFile(customers, &csvkit.Table{
		Header: []string{"ID", "NAME", "COUNTRY"},
		Rows: [][]string{
			{"1", "Acme", "DE"},
			{"2", "Beta", "AT"},
			{"1", "Acme duplicate", "CH"},
		},
	}, csvkit.Options{}); err != nil {
		t.Fatal(err)
	}
	env.Args = []string{customers}

	res, err := InsertCustomerData(context.Background(), env)
	if err != nil {
		t.Fatalf("InsertCustomerData() error = %v", err)
	}
	if got := filepath.Base(res.Outputs[0]); got != "input-with-customers.csv" {
		t.Errorf("output = %q", got)
	}

	got := readResult(t, res.Outputs[0])
	if diff := cmp.Diff([]string{"EK", "OI_EK_NAME", "OI_EK_LAND", "AG", "OI_AG_NAME", "OI_AG_LAND"}, got.Header[19:]); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}
	wantRows := [][]string{
		{"1", "Acme", "DE", "2", "Beta", "AT"},
		{"9", "", "", "1", "Acme", "DE"},
	}
	for i, want := range wantRows {
		if diff := cmp.Diff(want, got.Rows[i][19:]); diff != "" {
			t.Errorf("row %d mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestExtractCountriesAndRegions(t *testing.T) {
	input := ordersInput()
	input.Rows[0][4], input.Rows[0][5] = "DE", "AT"
	input.Rows[1][6] = "CH"
	input.Rows[2][4] = "DE"

	env := testEnv(t, input)
	res, err := ExtractCountriesAndRegions(context.Background(), env)
	if err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(res.Outputs[0])
	if err != nil {
		t.Fatal(err)
	}
	want := "COUNTRIES;AT;CH;DE\nREGIONS;NORD;SUED\n"
	if string(data) != want {
		t.Errorf("result = %q, want %q", data, want)
	}
}

func TestCountryRegionCombination(t *testing.T) {
	input := ordersInput()
	input.Rows[0][4] = "DE"
	input.Rows[1][4] = "AT"
	input.Rows[2][5] = "CH"

	env := testEnv(t, input)
	res, err := CountryRegionCombination(context.Background(), env)
	if err != nil {
		t.Fatal(err)
	}
	if got := filepath.Base(res.Outputs[0]); got != "country-region-combinations.csv" {
		t.Errorf("output = %q", got)
	}

	want := &csvkit.Table{
		Header: []string{"REGION", "COUNTRIES"},
		Rows: [][]string{
			{"NORD", "CH", "DE"},
			{"SUED", "AT"},
		},
	}
	if diff := cmp.Diff(want, readResult(t, res.Outputs[0])); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
}

func TestRegionRevenue(t *testing.T) {
	env := testEnv(t, ordersInput(), "DE", "NORD")
	env.Numbers = csvkit.NewNumberFormat("DE")

	res, err := RegionRevenue(context.Background(), env)
	if err != nil {
		t.Fatalf("RegionRevenue() error = %v", err)
	}
	if got := filepath.Base(res.Outputs[0]); got != "DE-NORD-spares-and-repairs-revenues.csv" {
		t.Errorf("output = %q", got)
	}

	want := &csvkit.Table{
		Header: []string{"Year", "SP", "RP", "Total", "SP-Orders", "RP-Orders", "Orders"},
		Rows: [][]string{
			{"", "1100,75", "200", "1300,75", "2", "1", "3"},
			{"2014", "100,50", "200", "300,50", "1", "1", "2"},
			{"2015", "1000,25", "", "1000,25", "1", "", "1"},
		},
	}
	if diff := cmp.Diff(want, readResult(t, res.Outputs[0])); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
}

func TestRegionRevenue_GermanThousands(t *testing.T) {
	input := &csvkit.Table{
		Header: dwhHeader(),
		Rows: [][]string{
			dwhRow("01.02.2014", "ZE", "1.500", "NORD", "1", "Acme"),
			dwhRow("01.03.2014", "ZE", "12.000", "NORD", "2", "Beta"),
		},
	}
	env := testEnv(t, input)
	env.CSV.Decimal = ','
	env.Numbers = csvkit.NewNumberFormat("DE")

	res, err := RegionRevenue(context.Background(), env)
	if err != nil {
		t.Fatalf("RegionRevenue() error = %v", err)
	}

	want := &csvkit.Table{
		Header: []string{"Year", "SP", "RP", "Total", "SP-Orders", "RP-Orders", "Orders"},
		Rows: [][]string{
			{"", "13500", "0", "13500", "2", "0", "2"},
			{"2014", "13500", "", "13500", "2", "", "2"},
		},
	}
	if diff := cmp.Diff(want, readResult(t, res.Outputs[0])); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
}

func TestCustomerRevenue(t *testing.T) {
	input := &csvkit.Table{
		Header: dwhHeader(),
		Rows: [][]string{
			dwhRow("01.02.2014", "ZE", "100", "NORD", "1", "Acme"),
			dwhRow("01.03.2015", "ZRK", "50", "NORD", "1", "Acme"),
			dwhRow("01.03.2014", "ZO", "10", "NORD", "2", "Beta"),
		},
	}
	env := testEnv(t, input)
	env.Numbers = csvkit.NewNumberFormat("DE")

	res, err := CustomerRevenue(context.Background(), env)
	if err != nil {
		t.Fatalf("CustomerRevenue() error = %v", err)
	}
	if got := filepath.Base(res.Outputs[0]); got != "customer-revenue-per-year-and-type.csv" {
		t.Errorf("output = %q", got)
	}

	want := &csvkit.Table{
		Header: []string{"EK", "EK_NAME",
			"2014-O", "2014-R", "2014-SP-O", "2014-SP-R",
			"2015-O", "2015-R", "2015-RP-O", "2015-RP-R"},
		Rows: [][]string{
			{"Total", "", "2", "110", "2", "110", "1", "50", "1", "50"},
			{"1", "Acme", "1", "100", "1", "100", "1", "50", "1", "50"},
			{"2", "Beta", "1", "10", "1", "10", "", "", "", ""},
		},
	}
	if diff := cmp.Diff(want, readResult(t, res.Outputs[0])); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
}

func TestSparesAndRepairsAnalysisComplete(t *testing.T) {
	input := &csvkit.Table{Header: dwhHeader()}
	input.Header[20] = "AG"
	for _, r := range ordersInput().Rows {
		r[20] = "2" // AG customer
		input.Rows = append(input.Rows, r)
	}

	env := testEnv(t, input)
	customers := filepath.Join(filepath.Dir(env.Input), "customers.csv")
	if err := csvkit.WriteFile(customers, &csvkit.Table{
		Header: []string{"ID", "NAME", "COUNTRY"},
		Rows:   [][]string{{"1", "Acme", "DE"}, {"2", "Beta", "AT"}},
	}, csvkit.Options{}); err != nil {
		t.Fatal(err)
	}
	env.Args = []string{customers, "NORD", "DE"}

	res, err := SparesAndRepairsAnalysisComplete(context.Background(), env)
	if err != nil {
		t.Fatalf("SparesAndRepairsAnalysisComplete() error = %v", err)
	}

	var names []string
	for _, out := range res.Outputs {
		names = append(names, filepath.Base(out))
	}
	want := []string{
		"DE-NORD-spares-and-repairs.csv",
		"DE-NORD-spares-and-repairs-with-customers.csv",
		"DE-NORD-spares-and-repairs-revenues.csv",
		"DE-NORD-customer-revenue-per-year-and-type.csv",
	}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("outputs mismatch (-want +got):\n%s", diff)
	}

	customer := readResult(t, res.Outputs[3])
	if diff := cmp.Diff([]string{"EK", "OI_EK_NAME"}, customer.Header[:2]); diff != "" {
		t.Errorf("customer revenue key titles (-want +got):\n%s", diff)
	}
	if len(customer.Rows) != 3 {
		t.Fatalf("customer revenue rows = %d, want sum row + 2 customers", len(customer.Rows))
	}
	if diff := cmp.Diff([]string{"1", "Acme"}, customer.Rows[1][:2]); diff != "" {
		t.Errorf("first customer (-want +got):\n%s", diff)
	}
}
