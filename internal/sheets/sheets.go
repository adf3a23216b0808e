// Package sheets defines the remote spreadsheet capability the sync engine
// consumes, with backends for the hosted Google Sheets/Drive APIs and for a
// local directory of XLSX workbooks.
package sheets

import (
	"context"
	"errors"

	"github.com/alfredjeanlab/sheetsync/internal/model"
)

// ErrTabNotFound is returned when a referenced sheet tab does not exist in the
// destination spreadsheet. It is never retried.
var ErrTabNotFound = errors.New("sheet tab not found")

// Render selects how cell values are rendered on read.
type Render int

const (
	// RenderFormatted returns the displayed value of each cell.
	RenderFormatted Render = iota
	// RenderFormula returns formulas as entered ("=SUM(A1:A3)") and plain
	// values for cells without a formula.
	RenderFormula
	// RenderUnformatted returns computed values without number formatting.
	RenderUnformatted
)

// Input selects how written values are interpreted.
type Input int

const (
	// InputRaw stores values verbatim as strings.
	InputRaw Input = iota
	// InputUserEntered parses values as if typed into the UI, so "=..." becomes
	// a formula and numeric strings become numbers.
	InputUserEntered
)

// Update is one range write inside a BatchWrite.
type Update struct {
	Range  model.Range
	Values model.Grid
}

// GridRange addresses a block of cells by sheet id and zero-based half-open
// indexes, the shape used by server-side copy operations.
type GridRange struct {
	SheetID     int64
	Sheet       string
	StartRow    int // zero-based, inclusive
	EndRow      int // zero-based, exclusive
	StartColumn int // zero-based, inclusive
	EndColumn   int // zero-based, exclusive
}

// Client is the remote capability surface consumed by the sync engine.
// Implementations return ErrTabNotFound (possibly wrapped) when a named tab is
// missing; every other error is treated as transient by callers.
type Client interface {
	// ListFiles returns every spreadsheet under folder, including sub-folders.
	ListFiles(ctx context.Context, folder string) ([]model.SourceDocument, error)
	// Sheets lists the tabs of a spreadsheet.
	Sheets(ctx context.Context, spreadsheetID string) ([]model.SheetInfo, error)
	// Read returns the values of r. Trailing empty rows are not returned.
	Read(ctx context.Context, spreadsheetID string, r model.Range, render Render) (model.Grid, error)
	// Clear empties every cell in r.
	Clear(ctx context.Context, spreadsheetID string, r model.Range) error
	// Write stores values starting at the top-left cell of r.
	Write(ctx context.Context, spreadsheetID string, r model.Range, values model.Grid, input Input) error
	// BatchWrite applies several writes in one remote call.
	BatchWrite(ctx context.Context, spreadsheetID string, updates []Update, input Input) error
	// CopyValues replaces the formulas in r with their computed values.
	CopyValues(ctx context.Context, spreadsheetID string, r GridRange) error
	// EnsureColumns grows the tab's grid to at least n columns.
	EnsureColumns(ctx context.Context, spreadsheetID string, sheet model.SheetInfo, n int) error
}

// FindSheet returns the tab named title, or ErrTabNotFound.
func FindSheet(infos []model.SheetInfo, title string) (model.SheetInfo, error) {
	for _, s := range infos {
		if s.Title == title {
			return s, nil
		}
	}
	return model.SheetInfo{}, &TabError{Tab: title}
}

// TabError reports a missing tab by name and matches ErrTabNotFound.
type TabError struct {
	Tab string
}

func (e *TabError) Error() string {
	return "sheet tab not found: " + e.Tab
}

// Is reports whether target is ErrTabNotFound.
func (e *TabError) Is(target error) bool {
	return target == ErrTabNotFound
}
