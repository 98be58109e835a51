package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/JonMunkholm/ibreport/internal/config"
	"github.com/JonMunkholm/ibreport/internal/csvkit"
	"github.com/JonMunkholm/ibreport/internal/export"
	"github.com/JonMunkholm/ibreport/internal/logging"
	"github.com/JonMunkholm/ibreport/internal/report"
	"github.com/JonMunkholm/ibreport/internal/runlog"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const description = `ibreport turns installed-base and order exports into reports.

Scripts read semicolon separated CSV downloads and write result files
to the output directory. Run "ibreport readme" for the recommended order.`

// flags override the matching configuration values when set.
type flags struct {
	outDir  string
	workDir string
	keep    bool
	xlsx    bool
}

type rootCommand struct {
	cmd    *cobra.Command
	stdout io.Writer
	stderr io.Writer
	flags  flags

	cfg      *config.Config
	logger   *slog.Logger
	pool     *pgxpool.Pool
	recorder runlog.Recorder
	limiter  *report.Limiter
}

func newRootCommand(stdout, stderr io.Writer) *rootCommand {
	root := &rootCommand{stdout: stdout, stderr: stderr}

	root.cmd = &cobra.Command{
		Use:           "ibreport",
		Short:         "Installed-base and spares/repairs reports",
		Long:          description,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return root.init(cmd.Context())
		},
	}
	root.cmd.SetOut(stdout)
	root.cmd.SetErr(stderr)

	pf := root.cmd.PersistentFlags()
	pf.StringVar(&root.flags.outDir, "out-dir", "", "directory for result files (REPORT_OUTPUT_DIR)")
	pf.StringVar(&root.flags.workDir, "work-dir", "", "parent directory of intermediate files (REPORT_WORK_DIR)")
	pf.BoolVar(&root.flags.keep, "keep", false, "keep intermediate files")
	pf.BoolVar(&root.flags.xlsx, "xlsx", false, "also write every result as .xlsx")

	root.cmd.AddCommand(
		runCommand(root),
		listCommand(root),
		readmeCommand(root),
		historyCommand(root),
		serveCommand(root),
	)
	return root
}

// init loads the configuration and opens the run history.
func (r *rootCommand) init(ctx context.Context) error {
	// .env overrides the environment, as in deployment
	envLoaded := godotenv.Overload() == nil

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if r.flags.outDir != "" {
		cfg.Report.OutputDir = r.flags.outDir
	}
	if r.flags.workDir != "" {
		cfg.Report.WorkDir = r.flags.workDir
	}
	cfg.Report.KeepIntermediates = cfg.Report.KeepIntermediates || r.flags.keep
	cfg.Report.XLSX = cfg.Report.XLSX || r.flags.xlsx
	r.cfg = cfg

	r.logger = logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	r.logger.Debug("configuration loaded", "env_file", envLoaded, "config", cfg.String())

	r.limiter = report.NewLimiter(cfg.Run.MaxConcurrent, cfg.Run.MaxWait)
	return r.openHistory(ctx)
}

// openHistory connects to PostgreSQL when DATABASE_URL is set and keeps
// the history in memory otherwise.
func (r *rootCommand) openHistory(ctx context.Context) error {
	if r.cfg.Database.URL == "" {
		r.recorder = runlog.NewMemory(0)
		return nil
	}

	poolConfig, err := pgxpool.ParseConfig(r.cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(r.cfg.Database.MaxConns)
	poolConfig.MinConns = int32(r.cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = r.cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = r.cfg.Database.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("ping database: %w", err)
	}

	pg := runlog.NewPostgres(pool)
	if err := pg.EnsureSchema(ctx); err != nil {
		pool.Close()
		return err
	}

	if u, err := url.Parse(r.cfg.Database.URL); err == nil {
		r.logger.Debug("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	}
	r.pool = pool
	r.recorder = pg
	return nil
}

// close releases the database pool opened by init.
func (r *rootCommand) close() {
	if r.pool != nil {
		r.pool.Close()
		r.pool = nil
	}
}

// runner builds a Runner from the loaded configuration.
func (r *rootCommand) runner() *report.Runner {
	rc := r.cfg.Report
	csvOpts := csvkit.Options{
		Delimiter: rc.DelimiterRune(),
		Encoding:  rc.Encoding,
		Decimal:   csvkit.NewNumberFormat(rc.NumberLocale).DecimalSeparator(),
	}

	opts := []report.RunnerOption{
		report.WithLogger(r.logger),
		report.WithRecorder(r.recorder),
		report.WithLimiter(r.limiter),
		report.WithOutput(r.stdout),
	}
	if rc.XLSX {
		opts = append(opts, report.WithExporter(export.Exporter{CSV: csvOpts}))
	}

	return report.NewRunner(report.RunnerConfig{
		OutputDir:         rc.OutputDir,
		WorkDir:           rc.WorkDir,
		ScriptsDir:        rc.ScriptsDir,
		KeepIntermediates: rc.KeepIntermediates,
		CSV:               csvOpts,
		NumberLocale:      rc.NumberLocale,
		Timeout:           r.cfg.Run.Timeout,
	}, opts...)
}
