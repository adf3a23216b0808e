package sync

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alfredjeanlab/sheetsync/internal/model"
	"github.com/alfredjeanlab/sheetsync/internal/retry"
	"github.com/alfredjeanlab/sheetsync/internal/sheets"
)

// DefaultFreezeChunkSize is the row count of each copy-as-values request.
const DefaultFreezeChunkSize = 2000

// Freezer replaces formulas in a finished Master column with their values.
type Freezer struct {
	client        sheets.Client
	retry         retry.Policy
	logger        *slog.Logger
	spreadsheetID string
}

// NewFreezer creates a Freezer for the Master tabs of spreadsheetID.
func NewFreezer(client sheets.Client, policy retry.Policy, logger *slog.Logger, spreadsheetID string) *Freezer {
	return &Freezer{client: client, retry: policy, logger: logger, spreadsheetID: spreadsheetID}
}

// FreezeResult describes one frozen column.
type FreezeResult struct {
	Column   model.Column
	Rows     int
	Chunks   int
	Attempts int
	Skipped  bool
}

// FreezeTarget returns the column to freeze for a pointer: the one before
// it, which the latest Master run copied from. ok is false for pointer A.
func FreezeTarget(pointer model.Column) (model.Column, bool) {
	prev, err := pointer.Prev()
	if err != nil {
		return "", false
	}
	return prev, true
}

// Freeze converts rows 2 through min(row count, MaxRows) of col to static
// values in chunks. Freezing a column that holds no formulas changes nothing.
func (f *Freezer) Freeze(ctx context.Context, info model.SheetInfo, col model.Column, opts model.FreezeOptions) (FreezeResult, error) {
	res := FreezeResult{Column: col}
	rows := info.RowCount
	if opts.MaxRows > 0 && opts.MaxRows < rows {
		rows = opts.MaxRows
	}
	if rows <= 1 {
		f.logger.Info("no data rows to freeze", "tab", info.Title)
		res.Skipped = true
		return res, nil
	}
	res.Rows = rows

	chunk := opts.ChunkSize
	if chunk < 1 {
		chunk = DefaultFreezeChunkSize
	}
	f.logger.Info("freeze start", "tab", info.Title, "column", col, "rows", rows, "chunk", chunk)
	for row := 1; row < rows; row += chunk {
		end := min(row+chunk, rows)
		attempts, err := f.retry.Do(ctx, func(ctx context.Context) error {
			return f.client.CopyValues(ctx, f.spreadsheetID, columnGrid(info, col, row, end))
		})
		res.Attempts += attempts
		if err != nil {
			return res, fmt.Errorf("freeze %s!%s rows %d-%d: %w", info.Title, col, row+1, end, err)
		}
		res.Chunks++
		f.logger.Debug("freeze chunk done", "tab", info.Title, "rows", fmt.Sprintf("%d-%d", row+1, end))
	}
	f.logger.Info("freeze done", "tab", info.Title, "column", col)
	return res, nil
}
