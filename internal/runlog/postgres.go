package runlog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS run_history (
	id          UUID PRIMARY KEY,
	script      TEXT NOT NULL,
	input       TEXT NOT NULL,
	args        TEXT[] NOT NULL DEFAULT '{}',
	outputs     TEXT[] NOT NULL DEFAULT '{}',
	rows        INTEGER NOT NULL DEFAULT 0,
	status      TEXT NOT NULL,
	error       TEXT,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS run_history_started_at_idx ON run_history (started_at DESC);
`

const selectColumns = `id, script, input, args, outputs, rows, status, error, started_at, finished_at`

// Postgres stores runs in the run_history table.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a recorder on pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// EnsureSchema creates the run_history table if it does not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create run_history: %w", err)
	}
	return nil
}

func (p *Postgres) Start(ctx context.Context, run *Run) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO run_history (id, script, input, args, outputs, rows, status, started_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		toPgUUID(run.ID), run.Script, run.Input, nonNil(run.Args), nonNil(run.Outputs),
		run.Rows, string(run.Status), run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	return nil
}

func (p *Postgres) Finish(ctx context.Context, run *Run) error {
	var finished pgtype.Timestamptz
	if run.FinishedAt != nil {
		finished = pgtype.Timestamptz{Time: *run.FinishedAt, Valid: true}
	}
	tag, err := p.pool.Exec(ctx,
		`UPDATE run_history
		 SET outputs = $2, rows = $3, status = $4, error = $5, finished_at = $6
		 WHERE id = $1`,
		toPgUUID(run.ID), nonNil(run.Outputs), run.Rows, string(run.Status),
		toPgText(run.Error), finished,
	)
	if err != nil {
		return fmt.Errorf("update run %s: %w", run.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, id uuid.UUID) (*Run, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+selectColumns+` FROM run_history WHERE id = $1`, toPgUUID(id))
	if err != nil {
		return nil, fmt.Errorf("query run %s: %w", id, err)
	}
	run, err := pgx.CollectExactlyOneRow(rows, scanRun)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan run %s: %w", id, err)
	}
	return &run, nil
}

func (p *Postgres) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = DefaultMemoryCapacity
	}
	rows, err := p.pool.Query(ctx,
		`SELECT `+selectColumns+` FROM run_history ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	runs, err := pgx.CollectRows(rows, scanRun)
	if err != nil {
		return nil, fmt.Errorf("scan runs: %w", err)
	}
	return runs, nil
}

func scanRun(row pgx.CollectableRow) (Run, error) {
	var (
		id       pgtype.UUID
		run      Run
		status   string
		errText  pgtype.Text
		started  pgtype.Timestamptz
		finished pgtype.Timestamptz
	)
	if err := row.Scan(&id, &run.Script, &run.Input, &run.Args, &run.Outputs,
		&run.Rows, &status, &errText, &started, &finished); err != nil {
		return Run{}, err
	}

	run.ID = uuid.UUID(id.Bytes)
	run.Status = Status(status)
	run.Error = errText.String
	run.StartedAt = started.Time
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	return run, nil
}

func toPgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func toPgText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
