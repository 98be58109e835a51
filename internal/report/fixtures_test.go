package report

import (
	"bytes"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/JonMunkholm/ibreport/internal/csvkit"
	"github.com/JonMunkholm/ibreport/internal/logging"
	"github.com/jonboulle/clockwork"
)

// today for all date brackets in the tests.
var testNow = time.Date(2024, 6, 15, 9, 30, 0, 0, time.UTC)

const ibWidth = 85

// ibRow builds an installed-base row with the customer and the given cells.
func ibRow(customer string, cells map[int]string) []string {
	row := make([]string, ibWidth)
	row[ibCustomer] = customer
	for c, v := range cells {
		row[c] = v
	}
	return row
}

func ibHeader() []string {
	h := make([]string, ibWidth)
	for i := range h {
		h[i] = fmt.Sprintf("C%d", i)
	}
	h[ibCustomer] = "CUSTOMER"
	return h
}

// dwhRow builds an order row: date, order type, amount, region and EK
// customer with its name.
func dwhRow(date, typ, amount, region, ek, ekName string) []string {
	row := make([]string, 21)
	row[dwhDate] = date
	row[dwhOrderType] = typ
	row[dwhAmount] = amount
	row[dwhRegion] = region
	row[dwhEK] = ek
	row[dwhEKName] = ekName
	return row
}

func dwhHeader() []string {
	h := make([]string, 21)
	for i := range h {
		h[i] = fmt.Sprintf("D%d", i)
	}
	h[dwhRegion] = regionHeader
	h[dwhEK] = "EK"
	h[dwhEKName] = "EK_NAME"
	return h
}

// testEnv writes input to a temp dir and returns an env for it.
func testEnv(t *testing.T, input *csvkit.Table, args ...string) *Env {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "input.csv")
	if err := csvkit.WriteFile(path, input, csvkit.Options{}); err != nil {
		t.Fatal(err)
	}
	return &Env{
		Input:   path,
		Args:    args,
		WorkDir: filepath.Join(dir, "work"),
		OutDir:  filepath.Join(dir, "out"),
		Clock:   clockwork.NewFakeClockAt(testNow),
		Logger:  logging.Discard(),
		Out:     &bytes.Buffer{},
	}
}

func readResult(t *testing.T, path string) *csvkit.Table {
	t.Helper()
	tbl, err := csvkit.ReadFile(path, csvkit.Options{})
	if err != nil {
		t.Fatalf("read result: %v", err)
	}
	return tbl
}
