// Package runlog records the history of script runs.
//
// Two recorders exist: Memory keeps the most recent runs in process and
// Postgres stores them in a run_history table. Both satisfy Recorder.
package runlog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// ErrNotFound is returned by Get for an unknown run ID.
var ErrNotFound = errors.New("run not found")

// Run is one execution of a script.
type Run struct {
	ID         uuid.UUID  `json:"id"`
	Script     string     `json:"script"`
	Input      string     `json:"input"`
	Args       []string   `json:"args"`
	Outputs    []string   `json:"outputs"`
	Rows       int        `json:"rows"`
	Status     Status     `json:"status"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// NewRun starts a run record with a fresh ID.
func NewRun(script, input string, args []string, now time.Time) *Run {
	return &Run{
		ID:        uuid.New(),
		Script:    script,
		Input:     input,
		Args:      append([]string(nil), args...),
		Status:    StatusRunning,
		StartedAt: now,
	}
}

// Finish marks the run as done at now, failed when err is non-nil.
func (r *Run) Finish(outputs []string, err error, now time.Time) {
	r.Outputs = append([]string(nil), outputs...)
	r.FinishedAt = &now
	if err != nil {
		r.Status = StatusFailed
		r.Error = err.Error()
		return
	}
	r.Status = StatusSucceeded
}

// Duration returns how long the run took, or 0 while it is running.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Recorder persists runs.
type Recorder interface {
	// Start stores a new run.
	Start(ctx context.Context, run *Run) error
	// Finish updates a run with its final state.
	Finish(ctx context.Context, run *Run) error
	// Get returns one run.
	Get(ctx context.Context, id uuid.UUID) (*Run, error)
	// List returns the most recent runs, newest first.
	List(ctx context.Context, limit int) ([]Run, error)
}
