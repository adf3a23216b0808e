package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alfredjeanlab/sheetsync/internal/model"
	"github.com/alfredjeanlab/sheetsync/internal/retry"
	"github.com/alfredjeanlab/sheetsync/internal/sheets"
)

// Extractor replaces a destination tab's target range with the source range
// of a resolved document.
type Extractor struct {
	client        sheets.Client
	retry         retry.Policy
	logger        *slog.Logger
	spreadsheetID string
	source        model.Range
	target        model.Range
}

// NewExtractor creates an Extractor writing into spreadsheetID. source names
// the sheet and columns read from every source document; target gives the
// destination columns, its sheet is taken from each mapping.
func NewExtractor(client sheets.Client, policy retry.Policy, logger *slog.Logger, spreadsheetID string, source, target model.Range) *Extractor {
	return &Extractor{
		client:        client,
		retry:         policy,
		logger:        logger,
		spreadsheetID: spreadsheetID,
		source:        source,
		target:        target,
	}
}

// ExtractResult describes a completed replace.
type ExtractResult struct {
	Rows     int
	Attempts int
}

// Extract reads the source range of doc and replaces the target range of the
// mapping's tab with it. The destination is cleared in full before writing so
// rows beyond the new extent do not survive. A missing destination tab fails
// without retry; any other failure, a source without the configured tab
// included, retries the whole replace.
func (x *Extractor) Extract(ctx context.Context, doc model.SourceDocument, m model.Mapping) (ExtractResult, error) {
	target := x.target.WithSheet(m.TargetTab).WithRows(0, 0)
	var rows int

	attempts, err := x.retry.Do(ctx, func(ctx context.Context) error {
		infos, err := x.client.Sheets(ctx, x.spreadsheetID)
		if err != nil {
			return fmt.Errorf("list destination tabs: %w", err)
		}
		if _, err := sheets.FindSheet(infos, m.TargetTab); err != nil {
			return err
		}

		x.logger.Debug("read source start", "source", doc.Name, "range", x.source.A1())
		values, err := x.client.Read(ctx, doc.ID, x.source, sheets.RenderFormatted)
		if errors.Is(err, sheets.ErrTabNotFound) {
			return fmt.Errorf("read source %s: %w: %s", doc.Name, ErrSourceTab, err.Error())
		}
		if err != nil {
			return fmt.Errorf("read source %s: %w", doc.Name, err)
		}
		values = values.TrimTrailing()
		x.logger.Debug("read source done", "source", doc.Name, "rows", len(values))

		if err := x.client.Clear(ctx, x.spreadsheetID, target); err != nil {
			return fmt.Errorf("clear %s: %w", target.A1(), err)
		}
		if len(values) > 0 {
			start := target.WithRows(1, len(values))
			if err := x.client.Write(ctx, x.spreadsheetID, start, values, sheets.InputRaw); err != nil {
				return fmt.Errorf("write %s: %w", start.A1(), err)
			}
		}
		rows = len(values)
		return nil
	})
	if err != nil {
		return ExtractResult{Attempts: attempts}, err
	}
	return ExtractResult{Rows: rows, Attempts: attempts}, nil
}
