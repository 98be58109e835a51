package export

import (
	"path/filepath"
	"testing"

	"github.com/JonMunkholm/ibreport/internal/csvkit"
	"github.com/xuri/excelize/v2"
)

func TestWriteXLSX(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "DE-ibase.csv")
	table := &csvkit.Table{
		Header: []string{"Customer", "Total", "Date"},
		Rows: [][]string{
			{"Müller", "12,5", "01.02.2014"},
			{"000123", "7", ""},
			{"expired", "=b2+b3", "=sum(b2:b3)"},
		},
	}
	if err := csvkit.WriteFile(csvPath, table, csvkit.Options{}); err != nil {
		t.Fatal(err)
	}

	out, err := Exporter{}.Export(csvPath)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if want := filepath.Join(dir, "DE-ibase.xlsx"); out != want {
		t.Errorf("Export() path = %q, want %q", out, want)
	}

	f, err := excelize.OpenFile(out)
	if err != nil {
		t.Fatalf("open result: %v", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet != "DE-ibase" {
		t.Errorf("sheet name = %q", sheet)
	}

	tests := []struct {
		cell string
		want string
	}{
		{"A1", "Customer"},
		{"A2", "Müller"},
		{"B2", "12.5"},
		{"C2", "01.02.2014"},
		{"A3", "000123"},
		{"B3", "7"},
	}
	for _, tt := range tests {
		got, err := f.GetCellValue(sheet, tt.cell)
		if err != nil {
			t.Fatalf("GetCellValue(%s): %v", tt.cell, err)
		}
		if got != tt.want {
			t.Errorf("%s = %q, want %q", tt.cell, got, tt.want)
		}
	}

	typ, err := f.GetCellType(sheet, "A3")
	if err != nil {
		t.Fatal(err)
	}
	if typ == excelize.CellTypeNumber {
		t.Error("zero-padded ID written as number")
	}

	formula, err := f.GetCellFormula(sheet, "C4")
	if err != nil {
		t.Fatal(err)
	}
	if formula != "SUM(B2:B3)" {
		t.Errorf("C4 formula = %q, want SUM(B2:B3)", formula)
	}
}

func TestWriteTable_GermanNumbers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "revenue.xlsx")
	table := &csvkit.Table{
		Header: []string{"Year", "SP"},
		Rows:   [][]string{{"2014", "1.500"}, {"2015", "12,5"}},
	}
	if err := WriteTable(table, path, "revenue", ','); err != nil {
		t.Fatalf("WriteTable() error = %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	for cell, want := range map[string]string{"B2": "1500", "B3": "12.5"} {
		got, err := f.GetCellValue("revenue", cell)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("%s = %q, want %q", cell, got, want)
		}
	}
}

func TestSheetName(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/tmp/machine-ages-DE.csv", "machine-ages-DE"},
		{"a:b[c].csv", "a_b_c_"},
		{"customer-revenue-per-year-and-type-long.csv", "customer-revenue-per-year-and-t"},
		{".csv", "Sheet1"},
	}
	for _, tt := range tests {
		if got := SheetName(tt.path); got != tt.want {
			t.Errorf("SheetName(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
