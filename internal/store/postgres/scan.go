package postgres

import (
	"database/sql"
	"time"

	"github.com/alfredjeanlab/sheetsync/internal/model"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanRun scans a single row into a model.RunReport.
// The row must contain columns in the order defined by runColumns.
func scanRun(row scannable) (*model.RunReport, error) {
	var (
		r    model.RunReport
		mode string
	)
	if err := row.Scan(&r.ID, &r.Command, &mode, &r.Started, &r.Finished); err != nil {
		return nil, err
	}
	r.Mode = model.RunMode(mode)
	return &r, nil
}

// scanUnit scans a row in the order defined by unitColumns.
func scanUnit(row scannable) (model.UnitResult, error) {
	var (
		u          model.UnitResult
		phase      string
		status     string
		detail     sql.NullString
		errText    sql.NullString
		durationMS int64
	)
	err := row.Scan(&phase, &u.Unit, &status, &u.Fatal, &u.Attempts, &detail, &errText, &u.Started, &durationMS)
	if err != nil {
		return model.UnitResult{}, err
	}
	u.Phase = model.Phase(phase)
	u.Status = model.Status(status)
	u.Detail = detail.String
	u.Error = errText.String
	u.Duration = time.Duration(durationMS) * time.Millisecond
	return u, nil
}

func scanUnits(rows *sql.Rows) ([]model.UnitResult, error) {
	var units []model.UnitResult
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
