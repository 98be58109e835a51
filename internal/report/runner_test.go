package report

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/ibreport/internal/csvkit"
	"github.com/JonMunkholm/ibreport/internal/logging"
	"github.com/JonMunkholm/ibreport/internal/runlog"
	"github.com/jonboulle/clockwork"
)

// copyExporter writes a ".xlsx" copy of each file.
type copyExporter struct{ calls int }

func (e *copyExporter) Export(path string) (string, error) {
	e.calls++
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	out := strings.TrimSuffix(path, ".csv") + ".xlsx"
	return out, os.WriteFile(out, data, 0o644)
}

func newTestRunner(t *testing.T, opts ...RunnerOption) (*Runner, RunnerConfig) {
	t.Helper()
	dir := t.TempDir()
	cfg := RunnerConfig{
		OutputDir: filepath.Join(dir, "out"),
		WorkDir:   filepath.Join(dir, "work"),
	}
	base := []RunnerOption{
		WithClock(clockwork.NewFakeClockAt(testNow)),
		WithLogger(logging.Discard()),
	}
	return NewRunner(cfg, append(base, opts...)...), cfg
}

func writeInput(t *testing.T, tbl *csvkit.Table) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ib.csv")
	if err := csvkit.WriteFile(path, tbl, csvkit.Options{}); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunner_Run(t *testing.T) {
	rec := runlog.NewMemory(0)
	exp := &copyExporter{}
	var out bytes.Buffer
	runner, cfg := newTestRunner(t, WithRecorder(rec), WithExporter(exp), WithOutput(&out))

	input := writeInput(t, machineInput())
	res, err := runner.Run(context.Background(), Request{Script: "machine_age", Input: input, Args: []string{"DE"}})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	wantOutputs := []string{
		filepath.Join(cfg.OutputDir, "machine-ages-DE.csv"),
		filepath.Join(cfg.OutputDir, "machine-ages-DE.xlsx"),
	}
	if strings.Join(res.Outputs, ",") != strings.Join(wantOutputs, ",") {
		t.Errorf("Outputs = %v, want %v", res.Outputs, wantOutputs)
	}
	if exp.calls != 1 {
		t.Errorf("exporter calls = %d, want 1", exp.calls)
	}
	if !strings.Contains(out.String(), "machine-ages-DE.csv") {
		t.Errorf("output message = %q", out.String())
	}

	entries, err := os.ReadDir(cfg.WorkDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("work dir not removed: %v", entries)
	}

	runs, _ := rec.List(context.Background(), 10)
	if len(runs) != 1 {
		t.Fatalf("recorded runs = %d, want 1", len(runs))
	}
	run := runs[0]
	if run.Status != runlog.StatusSucceeded || run.Script != "machine_age" || run.Rows != 6 {
		t.Errorf("recorded run = %+v", run)
	}
	if len(run.Outputs) != 2 {
		t.Errorf("recorded outputs = %v", run.Outputs)
	}
}

func TestRunner_KeepIntermediates(t *testing.T) {
	dir := t.TempDir()
	runner := NewRunner(RunnerConfig{
		OutputDir:         filepath.Join(dir, "out"),
		WorkDir:           filepath.Join(dir, "work"),
		KeepIntermediates: true,
	}, WithLogger(logging.Discard()), WithClock(clockwork.NewFakeClockAt(testNow)))

	if _, err := runner.Run(context.Background(), Request{Script: "abc_analysis", Input: writeInput(t, machineInput())}); err != nil {
		t.Fatal(err)
	}

	matches, _ := filepath.Glob(filepath.Join(dir, "work", "ibreport-*", "aggregate.csv"))
	if len(matches) != 1 {
		t.Errorf("kept intermediates = %v, want aggregate.csv in one run dir", matches)
	}
}

func TestRunner_Errors(t *testing.T) {
	input := writeInput(t, machineInput())

	tests := []struct {
		name string
		req  Request
		want error
	}{
		{"unknown script", Request{Script: "nope", Input: input}, ErrUnknownScript},
		{"missing region", Request{Script: "extract_regional_data", Input: input}, ErrMissingArg},
		{"blank region", Request{Script: "extract_regional_data", Input: input, Args: []string{""}}, ErrMissingArg},
		{"missing input", Request{Script: "abc_analysis"}, ErrMissingInput},
		{"input not found", Request{Script: "abc_analysis", Input: filepath.Join(t.TempDir(), "nope.csv")}, ErrMissingInput},
		{"customers not found", Request{Script: "insert_customer_data", Input: input, Args: []string{"nope.csv"}}, ErrMissingInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner, _ := newTestRunner(t)
			_, err := runner.Run(context.Background(), tt.req)
			if !errors.Is(err, tt.want) {
				t.Errorf("Run() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRunner_FailedRunIsRecordedAndCleaned(t *testing.T) {
	rec := runlog.NewMemory(0)
	runner, cfg := newTestRunner(t, WithRecorder(rec))

	empty := filepath.Join(t.TempDir(), "customers.csv")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := runner.Run(context.Background(), Request{
		Script: "insert_customer_data",
		Input:  writeInput(t, ordersInput()),
		Args:   []string{empty},
	})
	if !errors.Is(err, csvkit.ErrEmptyFile) {
		t.Fatalf("Run() error = %v, want ErrEmptyFile", err)
	}

	runs, _ := rec.List(context.Background(), 1)
	if len(runs) != 1 || runs[0].Status != runlog.StatusFailed || runs[0].Error == "" {
		t.Errorf("recorded run = %+v", runs)
	}
	entries, _ := os.ReadDir(cfg.WorkDir)
	if len(entries) != 0 {
		t.Errorf("work dir not removed after failure: %v", entries)
	}
}

func TestNewRunner_DecimalFromLocale(t *testing.T) {
	tests := []struct {
		cfg  RunnerConfig
		want rune
	}{
		{RunnerConfig{NumberLocale: "DE"}, ','},
		{RunnerConfig{NumberLocale: "en"}, '.'},
		{RunnerConfig{}, 0},
		{RunnerConfig{NumberLocale: "DE", CSV: csvkit.Options{Decimal: '.'}}, '.'},
	}
	for _, tt := range tests {
		if got := NewRunner(tt.cfg).cfg.CSV.Decimal; got != tt.want {
			t.Errorf("NewRunner(%+v) decimal = %q, want %q", tt.cfg, got, tt.want)
		}
	}
}

func TestRunner_Busy(t *testing.T) {
	limiter := NewLimiter(1, 20*time.Millisecond)
	runner, _ := newTestRunner(t, WithLimiter(limiter))

	if err := limiter.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer limiter.Release()

	_, err := runner.Run(context.Background(), Request{Script: "readme"})
	if !errors.Is(err, ErrTooManyRuns) {
		t.Errorf("Run() error = %v, want ErrTooManyRuns", err)
	}
}

func TestRunner_Readme(t *testing.T) {
	var out bytes.Buffer
	runner, _ := newTestRunner(t, WithOutput(&out))

	res, err := runner.Run(context.Background(), Request{Script: "readme"})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Outputs) != 0 || !strings.Contains(out.String(), "machine_analysis") {
		t.Errorf("readme result = %+v, output %q", res, out.String())
	}
}

func TestRunner_Cancelled(t *testing.T) {
	runner, _ := newTestRunner(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runner.Run(ctx, Request{Script: "abc_analysis", Input: writeInput(t, machineInput())})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}
