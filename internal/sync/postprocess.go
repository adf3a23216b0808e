package sync

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alfredjeanlab/sheetsync/internal/model"
	"github.com/alfredjeanlab/sheetsync/internal/retry"
	"github.com/alfredjeanlab/sheetsync/internal/sheets"
)

// Default postprocess tuning.
const (
	DefaultPostprocessMaxRows   = 10000
	DefaultPostprocessChunkSize = 1000
	DefaultPostprocessStartRow  = 2
)

// Postprocessor applies correction rules to a destination tab in row chunks.
type Postprocessor struct {
	client        sheets.Client
	retry         retry.Policy
	logger        *slog.Logger
	spreadsheetID string
	rules         []Rule
}

// NewPostprocessor creates a Postprocessor. Nil rules uses DefaultRules.
func NewPostprocessor(client sheets.Client, policy retry.Policy, logger *slog.Logger, spreadsheetID string, rules []Rule) *Postprocessor {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Postprocessor{
		client:        client,
		retry:         policy,
		logger:        logger,
		spreadsheetID: spreadsheetID,
		rules:         rules,
	}
}

// PostprocessResult summarizes a processed window. End is exclusive and is
// where a follow-up invocation would resume.
type PostprocessResult struct {
	Start    int
	End      int
	Chunks   int
	Patches  int
	Attempts int
}

// WindowError reports a chunk that could not be processed. Rows before Start
// are done; resuming with start_row=Start and end_row=End finishes the window.
type WindowError struct {
	Tab   string
	Start int
	End   int
	Err   error
}

func (e *WindowError) Error() string {
	if e.End == 0 {
		return fmt.Sprintf("postprocess %s from row %d: %v", e.Tab, e.Start, e.Err)
	}
	return fmt.Sprintf("postprocess %s rows [%d,%d): %v", e.Tab, e.Start, e.End, e.Err)
}

func (e *WindowError) Unwrap() error { return e.Err }

// Process corrects rows [opts.StartRow, opts.EndRow) of tab. An EndRow of 0
// processes up to MaxRows or the tab's row count, whichever comes first. Blank
// rows inside the window do not end it.
// Each chunk is read once, evaluated against its snapshot and written back in
// a single batch; chunks without corrections make no write.
func (p *Postprocessor) Process(ctx context.Context, tab string, opts model.PostprocessOptions) (PostprocessResult, error) {
	chunk := opts.ChunkSize
	if chunk < 1 {
		chunk = DefaultPostprocessChunkSize
	}
	start := opts.StartRow
	if start < 1 {
		start = DefaultPostprocessStartRow
	}
	res := PostprocessResult{Start: start, End: start}

	end := opts.EndRow
	if end == 0 {
		var rowCount int
		attempts, err := p.retry.Do(ctx, func(ctx context.Context) error {
			infos, err := p.client.Sheets(ctx, p.spreadsheetID)
			if err != nil {
				return fmt.Errorf("list destination tabs: %w", err)
			}
			info, err := sheets.FindSheet(infos, tab)
			if err != nil {
				return err
			}
			rowCount = info.RowCount
			return nil
		})
		res.Attempts += attempts
		if err != nil {
			return res, &WindowError{Tab: tab, Start: start, Err: err}
		}
		end = rowCount + 1
		if opts.MaxRows > 0 && opts.MaxRows+1 < end {
			end = opts.MaxRows + 1
		}
	}

	lo, hi := span(p.rules)
	p.logger.Info("postprocess start", "tab", tab, "start", start, "end", end, "chunk", chunk)

	for row := start; row < end; row += chunk {
		chunkEnd := min(row+chunk, end)
		var patched int
		attempts, err := p.retry.Do(ctx, func(ctx context.Context) error {
			var err error
			patched, err = p.processChunk(ctx, tab, lo, hi, row, chunkEnd)
			return err
		})
		res.Attempts += attempts
		if err != nil {
			return res, &WindowError{Tab: tab, Start: row, End: opts.EndRow, Err: err}
		}
		res.Chunks++
		res.Patches += patched
		res.End = chunkEnd
		p.logger.Debug("postprocess chunk done", "tab", tab, "rows", fmt.Sprintf("%d-%d", row, chunkEnd-1), "patches", patched)
	}

	p.logger.Info("postprocess done", "tab", tab, "end", res.End, "chunks", res.Chunks, "patches", res.Patches)
	return res, nil
}

// processChunk handles rows [from, to) and returns how many cells were patched.
func (p *Postprocessor) processChunk(ctx context.Context, tab string, lo, hi model.Column, from, to int) (int, error) {
	r := model.Range{Sheet: tab, StartCol: lo, EndCol: hi, StartRow: from, EndRow: to - 1}
	grid, err := p.client.Read(ctx, p.spreadsheetID, r, sheets.RenderFormatted)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", r.A1(), err)
	}

	var updates []sheets.Update
	for i, cells := range grid {
		row := NewRow(from+i, lo, cells)
		for _, patch := range Evaluate(p.rules, row) {
			updates = append(updates, sheets.Update{
				Range:  model.ColumnRange(tab, patch.Column, row.Number, row.Number),
				Values: model.Grid{{patch.Value}},
			})
		}
	}
	if len(updates) == 0 {
		return 0, nil
	}
	if err := p.client.BatchWrite(ctx, p.spreadsheetID, updates, sheets.InputUserEntered); err != nil {
		return 0, fmt.Errorf("write %d corrections to %s: %w", len(updates), tab, err)
	}
	return len(updates), nil
}
