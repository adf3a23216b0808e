package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/alfredjeanlab/sheetsync/internal/model"
	"github.com/alfredjeanlab/sheetsync/internal/store"
)

// runColumns is the column list used for SELECT statements on the runs table.
const runColumns = `id, command, mode, started_at, finished_at`

// unitColumns is the column list used for SELECT statements on unit_results.
const unitColumns = `phase, unit, status, fatal, attempts, detail, error, started_at, duration_ms`

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func queryInsertRun(ctx context.Context, db executor, r *model.RunReport) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO runs (
			id, command, mode, started_at, finished_at,
			exit_code, ok_count, failed_count, skipped_count
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		r.ID,
		r.Command,
		string(r.Mode),
		r.Started,
		r.Finished,
		r.ExitCode(),
		r.Count(model.StatusOK),
		r.Count(model.StatusFailed),
		r.Count(model.StatusSkipped),
	)
	return err
}

func queryInsertUnit(ctx context.Context, db executor, runID string, seq int, u model.UnitResult) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO unit_results (
			run_id, seq, phase, unit, status, fatal, attempts,
			detail, error, started_at, duration_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		runID,
		seq,
		string(u.Phase),
		u.Unit,
		string(u.Status),
		u.Fatal,
		u.Attempts,
		nullString(u.Detail),
		nullString(u.Error),
		u.Started,
		u.Duration.Milliseconds(),
	)
	return err
}

func queryListRuns(ctx context.Context, db executor, filter store.RunFilter) ([]*model.RunReport, error) {
	var (
		where []string
		args  []any
	)
	if filter.Command != "" {
		args = append(args, filter.Command)
		where = append(where, fmt.Sprintf("command = $%d", len(args)))
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = store.DefaultRunLimit
	}
	args = append(args, limit)

	q := `SELECT ` + runColumns + ` FROM runs`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += fmt.Sprintf(` ORDER BY started_at DESC LIMIT $%d`, len(args))

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*model.RunReport
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func queryGetRun(ctx context.Context, db executor, id string) (*model.RunReport, error) {
	row := db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = $1`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", store.ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT `+unitColumns+` FROM unit_results WHERE run_id = $1 ORDER BY seq`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	units, err := scanUnits(rows)
	if err != nil {
		return nil, err
	}
	r.Units = units
	return r, nil
}
