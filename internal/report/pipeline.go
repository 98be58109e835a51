package report

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/JonMunkholm/ibreport/internal/csvkit"
)

// Pipeline hands files from stage to stage. Intermediate files live in the
// work dir and are removed by Cleanup; outputs land in the output dir.
type Pipeline struct {
	env           *Env
	intermediates []string
	outputs       []string
}

// NewPipeline starts a pipeline for env.
func NewPipeline(env *Env) *Pipeline {
	return &Pipeline{env: env}
}

// Temp returns the path of an intermediate file and schedules its removal.
func (p *Pipeline) Temp(name string) string {
	path := filepath.Join(p.env.WorkDir, name)
	p.intermediates = append(p.intermediates, path)
	return path
}

// Output returns the path of a result file.
func (p *Pipeline) Output(name string) string {
	path := filepath.Join(p.env.OutDir, name)
	p.outputs = append(p.outputs, path)
	return path
}

// Outputs returns the result files registered so far.
func (p *Pipeline) Outputs() []string {
	return append([]string(nil), p.outputs...)
}

// Read loads a CSV file with the run's options.
func (p *Pipeline) Read(path string) (*csvkit.Table, error) {
	return csvkit.ReadFile(path, p.env.CSV)
}

// Write stores a table with the run's options.
func (p *Pipeline) Write(path string, t *csvkit.Table) error {
	return csvkit.WriteFile(path, t, p.env.CSV)
}

// Stage reads in, applies fn and writes the result to out. step describes
// the stage in progress logs and errors.
func (p *Pipeline) Stage(ctx context.Context, step, in, out string, fn func(*csvkit.Table) (*csvkit.Table, error)) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", step, err)
	}

	p.env.Logger.Info(step, "in", filepath.Base(in), "out", filepath.Base(out))

	t, err := p.Read(in)
	if err != nil {
		return fmt.Errorf("%s: %w", step, err)
	}
	result, err := fn(t)
	if err != nil {
		return fmt.Errorf("%s: %w", step, err)
	}
	if err := p.Write(out, result); err != nil {
		return fmt.Errorf("%s: %w", step, err)
	}
	return nil
}

// Pure adapts an operation that cannot fail to a stage function.
func Pure(fn func(*csvkit.Table) *csvkit.Table) func(*csvkit.Table) (*csvkit.Table, error) {
	return func(t *csvkit.Table) (*csvkit.Table, error) { return fn(t), nil }
}

// Cleanup removes intermediate files unless the env keeps them.
func (p *Pipeline) Cleanup() error {
	if p.env.KeepIntermediates {
		return nil
	}
	var errs []error
	for _, path := range p.intermediates {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	p.intermediates = nil
	return errors.Join(errs...)
}

// Result builds the script result from the registered outputs.
func (p *Pipeline) Result(script string) *Result {
	return &Result{Script: script, Outputs: p.Outputs()}
}
