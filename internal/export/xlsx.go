// Package export renders result CSV files as xlsx workbooks.
//
// Cells starting with "=" become formulas so that calculation schemes
// inserted into a result (see the expired_rsc script) evaluate in Excel.
// Plain decimal numbers in either notation become numeric cells; anything
// else, including zero-padded IDs and dates, stays text.
package export

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/JonMunkholm/ibreport/internal/csvkit"
	"github.com/xuri/excelize/v2"
)

const maxSheetName = 31

var (
	plainNumber  = regexp.MustCompile(`^-?(0|[1-9]\d*)([.,]\d+)?$`)
	invalidSheet = regexp.MustCompile(`[\[\]:*?/\\]`)
)

// Exporter converts CSV results to xlsx next to the source file.
type Exporter struct {
	CSV csvkit.Options
}

// Export writes csvPath as an .xlsx file with the same base name and
// returns its path.
func (e Exporter) Export(csvPath string) (string, error) {
	out := XLSXPath(csvPath)
	if err := WriteXLSX(csvPath, out, e.CSV); err != nil {
		return "", err
	}
	return out, nil
}

// XLSXPath replaces the extension of path with .xlsx.
func XLSXPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".xlsx"
}

// WriteXLSX reads the CSV at csvPath and writes it as a single-sheet
// workbook to xlsxPath.
func WriteXLSX(csvPath, xlsxPath string, opts csvkit.Options) error {
	t, err := csvkit.ReadFile(csvPath, opts)
	if err != nil {
		return err
	}
	return WriteTable(t, xlsxPath, SheetName(csvPath), opts.Decimal)
}

// WriteTable writes t to a workbook with one sheet called sheet. Numbers
// are parsed with the decimal separator decimal (0 detects it).
func WriteTable(t *csvkit.Table, xlsxPath, sheet string, decimal rune) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("name sheet %q: %w", sheet, err)
	}

	rows := make([][]string, 0, len(t.Rows)+1)
	if t.Header != nil {
		rows = append(rows, t.Header)
	}
	rows = append(rows, t.Rows...)

	for r, rec := range rows {
		for c, value := range rec {
			if value == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return err
			}
			if err := setCell(f, sheet, cell, value, decimal); err != nil {
				return fmt.Errorf("cell %s: %w", cell, err)
			}
		}
	}

	if err := f.SaveAs(xlsxPath); err != nil {
		return fmt.Errorf("save %s: %w", xlsxPath, err)
	}
	return nil
}

func setCell(f *excelize.File, sheet, cell, value string, decimal rune) error {
	if formula, ok := strings.CutPrefix(value, "="); ok && formula != "" {
		return f.SetCellFormula(sheet, cell, strings.ToUpper(formula))
	}
	if plainNumber.MatchString(value) {
		if n, ok := csvkit.ParseLocaleNumber(value, decimal); ok {
			return f.SetCellValue(sheet, cell, n)
		}
	}
	return f.SetCellStr(sheet, cell, value)
}

// SheetName derives a valid sheet name from a file path.
func SheetName(path string) string {
	base := filepath.Base(path)
	name := invalidSheet.ReplaceAllString(strings.TrimSuffix(base, filepath.Ext(base)), "_")
	if r := []rune(name); len(r) > maxSheetName {
		name = string(r[:maxSheetName])
	}
	if name == "" {
		return "Sheet1"
	}
	return name
}
