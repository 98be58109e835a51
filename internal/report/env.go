package report

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/JonMunkholm/ibreport/internal/csvkit"
	"github.com/jonboulle/clockwork"
)

// Env is what a script sees of the outside world: its input, arguments and
// the directories it may write to.
type Env struct {
	Input      string
	Args       []string
	WorkDir    string
	OutDir     string
	ScriptsDir string

	CSV     csvkit.Options
	Numbers csvkit.NumberFormat
	Clock   clockwork.Clock
	Logger  *slog.Logger
	// Out receives the user-facing result messages.
	Out io.Writer

	KeepIntermediates bool

	statsOnce sync.Once
	stats     csvkit.FileStats
	statsErr  error
}

// Derive returns a copy of env for a follow-up script working on input with
// the given arguments.
func (e *Env) Derive(input string, args ...string) *Env {
	return &Env{
		Input:             input,
		Args:              args,
		WorkDir:           e.WorkDir,
		OutDir:            e.OutDir,
		ScriptsDir:        e.ScriptsDir,
		CSV:               e.CSV,
		Numbers:           e.Numbers,
		Clock:             e.Clock,
		Logger:            e.Logger,
		Out:               e.Out,
		KeepIntermediates: e.KeepIntermediates,
	}
}

// Arg returns positional argument i (after INFILE), or "" if absent.
func (e *Env) Arg(i int) string {
	if i < 0 || i >= len(e.Args) {
		return ""
	}
	return strings.TrimSpace(e.Args[i])
}

// ArgOr returns positional argument i or def when it is absent.
func (e *Env) ArgOr(i int, def string) string {
	if v := e.Arg(i); v != "" {
		return v
	}
	return def
}

// BaseName is the input file name without directory and extension.
func (e *Env) BaseName() string {
	base := filepath.Base(e.Input)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Name identifies result files: the country argument when given, otherwise
// the input base name.
func (e *Env) Name() string {
	return e.ArgOr(0, e.BaseName())
}

// Stats returns the dimensions of the input file, reading it once.
func (e *Env) Stats() (csvkit.FileStats, error) {
	e.statsOnce.Do(func() {
		e.stats, e.statsErr = csvkit.Stats(e.Input, e.CSV)
	})
	return e.stats, e.statsErr
}

// Printf writes a user-facing message.
func (e *Env) Printf(format string, args ...any) {
	if e.Out == nil {
		return
	}
	fmt.Fprintf(e.Out, format+"\n", args...)
}

// ResultName builds "PREFIX-NAME.SUFFIX" result names, e.g.
// ResultName("ABC-analysis-", ".csv") for country DE gives
// "ABC-analysis-DE.csv".
func (e *Env) ResultName(prefix, suffix string) string {
	return prefix + e.Name() + suffix
}

// RegionPart builds the "COUNTRY-REGION-" prefix of result files; empty
// parts are left out.
func RegionPart(parts ...string) string {
	var b strings.Builder
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			b.WriteString(p)
			b.WriteString("-")
		}
	}
	return b.String()
}
