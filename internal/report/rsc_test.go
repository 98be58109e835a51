package report

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/JonMunkholm/ibreport/internal/csvkit"
	"github.com/google/go-cmp/cmp"
)

func rscInput() *csvkit.Table {
	return &csvkit.Table{
		Header: ibHeader(),
		Rows: [][]string{
			ibRow("A", map[int]string{ibRSCEnd: "01.01.2020"}),
			ibRow("A", map[int]string{ibRSCEnd: "01.01.2023"}),
			ibRow("B", map[int]string{ibRSCEnd: "01.01.2024"}),
			ibRow("B", map[int]string{ibRSCEnd: "01.01.2025"}),
			ibRow("B", map[int]string{ibRSCEnd: "1.1.2026"}),
			ibRow("C", nil),
		},
	}
}

func TestExpiredRSC(t *testing.T) {
	env := testEnv(t, rscInput(), "DE")

	res, err := ExpiredRSC(context.Background(), env)
	if err != nil {
		t.Fatalf("ExpiredRSC() error = %v", err)
	}
	if got := filepath.Base(res.Outputs[0]); got != "DE-ibase.csv" {
		t.Errorf("output = %q", got)
	}

	want := &csvkit.Table{
		Header: []string{"", "=b5", "=c5", "=d5", "=e5"},
		Rows: [][]string{
			{"", "=sum(b3:b4)", "=sum(c3:c4)", "=sum(d3:d4)", "=sum(e3:e4)"},
			{"active", "=sum(c4:e4)", "=sum(d4:e4)", "=e4"},
			{"expired", "=b6", "=c6", "=d6", "=e6"},
			{"Customer", "<15.06.2022", "15.06.2022-15.06.2023", "16.06.2023-15.06.2024", ">15.06.2024", "Sum"},
			{"Total", "1", "1", "1", "2", "5"},
			{"B", "0", "0", "1", "2", "3"},
			{"A", "1", "1", "0", "0", "2"},
			{"C", "0", "0", "0", "0", "0"},
		},
	}
	if diff := cmp.Diff(want, readResult(t, res.Outputs[0])); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}

	entries, _ := os.ReadDir(env.WorkDir)
	if len(entries) != 0 {
		t.Errorf("intermediates left behind: %v", entries)
	}
}

func TestExpiredRSC_SchemeFromScriptsDir(t *testing.T) {
	env := testEnv(t, rscInput())
	env.ScriptsDir = t.TempDir()
	if err := os.WriteFile(filepath.Join(env.ScriptsDir, SchemeFile), []byte("scheme;=b2\n\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := ExpiredRSC(context.Background(), env)
	if err != nil {
		t.Fatal(err)
	}
	if got := filepath.Base(res.Outputs[0]); got != "input-ibase.csv" {
		t.Errorf("output = %q", got)
	}

	got := readResult(t, res.Outputs[0])
	if diff := cmp.Diff([]string{"scheme", "=b2"}, got.Header); diff != "" {
		t.Errorf("scheme row mismatch (-want +got):\n%s", diff)
	}
	if got.Rows[0][0] != "Customer" {
		t.Errorf("result header not after scheme: %v", got.Rows[0])
	}
}

func TestExpiredRSC_MissingSchemeFallsBack(t *testing.T) {
	env := testEnv(t, rscInput())
	env.ScriptsDir = filepath.Join(t.TempDir(), "does-not-exist")

	res, err := ExpiredRSC(context.Background(), env)
	if err != nil {
		t.Fatal(err)
	}
	got := readResult(t, res.Outputs[0])
	if got.Header[1] != "=b5" {
		t.Errorf("default scheme not used: %v", got.Header)
	}
}
