package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/JonMunkholm/ibreport/internal/csvkit"
	"github.com/JonMunkholm/ibreport/internal/runlog"
	"github.com/jonboulle/clockwork"
)

// Exporter renders a result file in another format and returns the new path.
type Exporter interface {
	Export(csvPath string) (string, error)
}

// RunnerConfig holds the settings shared by all runs.
type RunnerConfig struct {
	OutputDir         string
	WorkDir           string // parent of per-run work dirs; empty uses the OS temp dir
	ScriptsDir        string
	KeepIntermediates bool
	CSV               csvkit.Options
	// NumberLocale formats result numbers and, unless CSV.Decimal is set,
	// picks the decimal separator of input cells.
	NumberLocale string
	Timeout           time.Duration
}

// Runner executes registered scripts.
type Runner struct {
	cfg      RunnerConfig
	clock    clockwork.Clock
	logger   *slog.Logger
	recorder runlog.Recorder
	exporter Exporter
	limiter  *Limiter
	out      io.Writer
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithClock sets the clock used for date anchors and run timestamps.
func WithClock(c clockwork.Clock) RunnerOption {
	return func(r *Runner) { r.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) { r.logger = l }
}

// WithRecorder records every run.
func WithRecorder(rec runlog.Recorder) RunnerOption {
	return func(r *Runner) { r.recorder = rec }
}

// WithExporter additionally exports every output file.
func WithExporter(e Exporter) RunnerOption {
	return func(r *Runner) { r.exporter = e }
}

// WithLimiter bounds concurrent runs.
func WithLimiter(l *Limiter) RunnerOption {
	return func(r *Runner) { r.limiter = l }
}

// WithOutput sets where result messages are printed.
func WithOutput(w io.Writer) RunnerOption {
	return func(r *Runner) { r.out = w }
}

// NewRunner creates a Runner.
func NewRunner(cfg RunnerConfig, opts ...RunnerOption) *Runner {
	r := &Runner{
		cfg:    cfg,
		clock:  clockwork.NewRealClock(),
		logger: slog.Default(),
		out:    io.Discard,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.cfg.CSV.Decimal == 0 {
		r.cfg.CSV.Decimal = csvkit.NewNumberFormat(cfg.NumberLocale).DecimalSeparator()
	}
	return r
}

// Request names a script run.
type Request struct {
	Script string
	Input  string
	Args   []string
	// OutputDir overrides the configured output dir.
	OutputDir string
}

// Run executes one script. The run is recorded when a recorder is set, and
// intermediates are removed whether the script succeeds or not.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	script, ok := Get(req.Script)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScript, req.Script)
	}
	if err := checkRequest(script, req); err != nil {
		return nil, err
	}

	if r.limiter != nil {
		if err := r.limiter.Acquire(ctx); err != nil {
			return nil, err
		}
		defer r.limiter.Release()
	}
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	run := runlog.NewRun(script.Name, req.Input, req.Args, r.clock.Now())
	logger := r.logger.With("script", script.Name, "run_id", run.ID.String())

	env, cleanup, err := r.newEnv(req, logger)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	if !script.NoInput {
		stats, err := env.Stats()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", req.Input, err)
		}
		run.Rows = stats.RowCount
		logger.Info("run started", "input", req.Input, "rows", stats.RowCount, "cols", stats.ColCount)
	}
	r.record(ctx, logger, run, true)

	result, err := script.Run(ctx, env)
	if err == nil && r.exporter != nil {
		err = r.export(result, logger)
	}

	var outputs []string
	if result != nil {
		outputs = result.Outputs
	}
	run.Finish(outputs, err, r.clock.Now())
	r.record(context.WithoutCancel(ctx), logger, run, false)

	if err != nil {
		logger.Error("run failed", "error", err, "duration", run.Duration())
		return nil, fmt.Errorf("%s: %w", script.Name, err)
	}
	logger.Info("run finished", "outputs", len(outputs), "duration", run.Duration())
	result.Script = script.Name
	result.RunID = run.ID.String()
	return result, nil
}

func checkRequest(script Script, req Request) error {
	if len(req.Args) < script.MinArgs {
		return fmt.Errorf("%w: %s %s", ErrMissingArg, script.Name, script.Usage)
	}
	for i := 0; i < script.MinArgs; i++ {
		if req.Args[i] == "" {
			return fmt.Errorf("%w: %s %s", ErrMissingArg, script.Name, script.Usage)
		}
	}
	if script.NoInput {
		return nil
	}
	if req.Input == "" {
		return fmt.Errorf("%w: %s %s", ErrMissingInput, script.Name, script.Usage)
	}
	files := []string{req.Input}
	if script.SourceArg && len(req.Args) > 0 {
		files = append(files, req.Args[0])
	}
	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil || info.IsDir() {
			return fmt.Errorf("%w: %s", ErrMissingInput, f)
		}
	}
	return nil
}

func (r *Runner) newEnv(req Request, logger *slog.Logger) (*Env, func(), error) {
	outDir := req.OutputDir
	if outDir == "" {
		outDir = r.cfg.OutputDir
	}
	if outDir == "" {
		outDir = "."
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create output dir: %w", err)
	}

	parent := r.cfg.WorkDir
	if parent != "" {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create work dir: %w", err)
		}
	}
	workDir, err := os.MkdirTemp(parent, "ibreport-")
	if err != nil {
		return nil, nil, fmt.Errorf("create work dir: %w", err)
	}

	cleanup := func() {
		if r.cfg.KeepIntermediates {
			logger.Info("intermediates kept", "work_dir", workDir)
			return
		}
		if err := os.RemoveAll(workDir); err != nil {
			logger.Warn("failed to remove work dir", "work_dir", workDir, "error", err)
		}
	}

	env := &Env{
		Input:             req.Input,
		Args:              req.Args,
		WorkDir:           workDir,
		OutDir:            outDir,
		ScriptsDir:        r.cfg.ScriptsDir,
		CSV:               r.cfg.CSV,
		Numbers:           csvkit.NewNumberFormat(r.cfg.NumberLocale),
		Clock:             r.clock,
		Logger:            logger,
		Out:               r.out,
		KeepIntermediates: r.cfg.KeepIntermediates,
	}
	return env, cleanup, nil
}

func (r *Runner) export(result *Result, logger *slog.Logger) error {
	if result == nil {
		return nil
	}
	var exported []string
	for _, path := range result.Outputs {
		if filepath.Ext(path) != ".csv" {
			continue
		}
		out, err := r.exporter.Export(path)
		if err != nil {
			return fmt.Errorf("export %s: %w", filepath.Base(path), err)
		}
		logger.Debug("exported", "file", out)
		exported = append(exported, out)
	}
	result.Outputs = append(result.Outputs, exported...)
	return nil
}

// record stores the run. History is best effort: a failing recorder never
// fails the run itself.
func (r *Runner) record(ctx context.Context, logger *slog.Logger, run *runlog.Run, start bool) {
	if r.recorder == nil {
		return
	}
	var err error
	if start {
		err = r.recorder.Start(ctx, run)
	} else {
		err = r.recorder.Finish(ctx, run)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("failed to record run", "error", err)
	}
}
