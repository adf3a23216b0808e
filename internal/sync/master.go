package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alfredjeanlab/sheetsync/internal/model"
	"github.com/alfredjeanlab/sheetsync/internal/retry"
	"github.com/alfredjeanlab/sheetsync/internal/sheets"
)

// Default Master tuning.
const (
	DefaultMasterMaxRows   = 5000
	DefaultMasterChunkSize = 500
)

// HeaderDateFormat is the layout of the date written above each new Master
// column.
const HeaderDateFormat = "2006-01-02"

// MasterSync appends one column per run to Master tabs.
type MasterSync struct {
	client        sheets.Client
	retry         retry.Policy
	logger        *slog.Logger
	spreadsheetID string
	location      *time.Location
	now           func() time.Time
}

// NewMasterSync creates a MasterSync. Header dates are computed in loc.
func NewMasterSync(client sheets.Client, policy retry.Policy, logger *slog.Logger, spreadsheetID string, loc *time.Location, now func() time.Time) *MasterSync {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &MasterSync{
		client:        client,
		retry:         policy,
		logger:        logger,
		spreadsheetID: spreadsheetID,
		location:      loc,
		now:           now,
	}
}

// MasterResult describes one Master tab update.
type MasterResult struct {
	From     model.Column
	To       model.Column
	Header   string
	Rows     int
	Chunks   int
	Attempts int
	Skipped  bool
}

// WeekMonday returns the Monday of the week containing t, in loc.
func WeekMonday(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.AddDate(0, 0, -offset).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// Advance writes the column after entry.Column on the tab described by info
// and returns the entry to persist. The new column gets this week's Monday as
// its header and a copy of the pointer column's formulas for rows 2 through
// min(row count, MaxRows). A tab without data rows is skipped and the entry is
// returned unchanged.
//
// Advance never persists anything itself. Callers save the returned entry
// only when err is nil, so a failure part way through leaves the stored
// pointer on the last complete column.
func (s *MasterSync) Advance(ctx context.Context, info model.SheetInfo, entry model.MetaEntry, opts model.MasterOptions) (model.MetaEntry, MasterResult, error) {
	res := MasterResult{From: entry.Column, To: entry.Column}
	next, err := entry.Advance()
	if err != nil {
		return entry, res, fmt.Errorf("%w: %v", ErrInvalidMetaEntry, err)
	}

	rows := info.RowCount
	if opts.MaxRows > 0 && opts.MaxRows < rows {
		rows = opts.MaxRows
	}
	if rows <= 1 {
		s.logger.Info("master tab has no data rows", "tab", info.Title)
		res.Skipped = true
		return entry, res, nil
	}
	res.Rows = rows

	chunk := opts.ChunkSize
	if chunk < 1 {
		chunk = DefaultMasterChunkSize
	}
	res.Header = WeekMonday(s.now(), s.location).Format(HeaderDateFormat)
	s.logger.Info("master tab start", "tab", info.Title, "from", entry.Column, "to", next.Column, "rows", rows, "chunk", chunk)

	step := func(fn func(ctx context.Context) error) error {
		attempts, err := s.retry.Do(ctx, fn)
		res.Attempts += attempts
		return err
	}

	if width := next.Column.Index(); width > info.ColumnCount {
		if err := step(func(ctx context.Context) error {
			return s.client.EnsureColumns(ctx, s.spreadsheetID, info, width)
		}); err != nil {
			return entry, res, fmt.Errorf("widen %s to %d columns: %w", info.Title, width, err)
		}
		s.logger.Debug("master tab widened", "tab", info.Title, "columns", width)
	}

	header := model.ColumnRange(info.Title, next.Column, 1, 1)
	if err := step(func(ctx context.Context) error {
		return s.client.Write(ctx, s.spreadsheetID, header, model.Grid{{res.Header}}, sheets.InputRaw)
	}); err != nil {
		return entry, res, fmt.Errorf("write header %s: %w", header.A1(), err)
	}

	for row := 1; row < rows; row += chunk {
		end := min(row+chunk, rows)
		if err := step(func(ctx context.Context) error {
			return s.copyChunk(ctx, info, entry.Column, next.Column, row, end, opts.FreezeInline)
		}); err != nil {
			return entry, res, fmt.Errorf("copy %s rows %d-%d: %w", info.Title, row+1, end, err)
		}
		res.Chunks++
		s.logger.Debug("master tab chunk done", "tab", info.Title, "chunk", res.Chunks, "rows", fmt.Sprintf("%d-%d", row+1, end))
	}

	res.To = next.Column
	s.logger.Info("master tab updated", "tab", info.Title, "column", next.Column, "header", res.Header)
	return next, res, nil
}

// copyChunk copies the formulas of rows (from, to] from one column to the
// next. With freeze set the source rows are then replaced by their values.
func (s *MasterSync) copyChunk(ctx context.Context, info model.SheetInfo, src, dst model.Column, from, to int, freeze bool) error {
	read := model.ColumnRange(info.Title, src, from+1, to)
	formulas, err := s.client.Read(ctx, s.spreadsheetID, read, sheets.RenderFormula)
	if err != nil {
		return fmt.Errorf("read %s: %w", read.A1(), err)
	}
	if len(formulas) > 0 {
		write := model.ColumnRange(info.Title, dst, from+1, from+len(formulas))
		if err := s.client.Write(ctx, s.spreadsheetID, write, formulas, sheets.InputUserEntered); err != nil {
			return fmt.Errorf("write %s: %w", write.A1(), err)
		}
	}
	if !freeze {
		return nil
	}
	return s.client.CopyValues(ctx, s.spreadsheetID, columnGrid(info, src, from, to))
}

// Sync advances the pointer of a Master tab and persists it. The stored entry
// changes only after every chunk of the new column has been written.
func (s *MasterSync) Sync(ctx context.Context, store *MetaStore, info model.SheetInfo, opts model.MasterOptions) (MasterResult, error) {
	entry, err := store.Get(info.Title)
	if err != nil {
		return MasterResult{}, err
	}
	next, res, err := s.Advance(ctx, info, entry, opts)
	if err != nil || res.Skipped {
		return res, err
	}
	attempts, err := s.retry.Do(ctx, func(ctx context.Context) error {
		return store.Save(ctx, next)
	})
	res.Attempts += attempts
	if err != nil {
		return res, fmt.Errorf("column %s written but pointer not saved: %w", next.Column, err)
	}
	return res, nil
}

// columnGrid addresses rows (from, to] of col as a zero-based grid range.
func columnGrid(info model.SheetInfo, col model.Column, from, to int) sheets.GridRange {
	idx := col.Index() - 1
	return sheets.GridRange{
		SheetID:     info.ID,
		Sheet:       info.Title,
		StartRow:    from,
		EndRow:      to,
		StartColumn: idx,
		EndColumn:   idx + 1,
	}
}
