package sheets

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/alfredjeanlab/sheetsync/internal/model"
)

// maxColumns is the widest grid an XLSX worksheet supports (XFD).
const maxColumns = 16384

// XLSXClient implements Client over a directory of .xlsx workbooks. Folder
// identifiers are directories and spreadsheet identifiers are workbook paths,
// both relative to the root directory unless absolute.
type XLSXClient struct {
	root string
}

// Compile-time check that XLSXClient implements Client.
var _ Client = (*XLSXClient)(nil)

// NewXLSXClient creates a workbook-directory client rooted at root.
func NewXLSXClient(root string) *XLSXClient {
	return &XLSXClient{root: root}
}

func (c *XLSXClient) path(id string) string {
	if filepath.IsAbs(id) {
		return id
	}
	return filepath.Join(c.root, id)
}

// ListFiles walks folder recursively and returns every workbook in it. The
// document name is the file name without its extension; both timestamps are
// the file modification time.
func (c *XLSXClient) ListFiles(ctx context.Context, folder string) ([]model.SourceDocument, error) {
	var docs []model.SourceDocument
	err := filepath.WalkDir(c.path(folder), func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		name := d.Name()
		if d.IsDir() || !strings.EqualFold(filepath.Ext(name), ".xlsx") || strings.HasPrefix(name, "~$") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		id, err := filepath.Rel(c.root, p)
		if err != nil {
			id = p
		}
		docs = append(docs, model.SourceDocument{
			ID:           id,
			Name:         strings.TrimSuffix(name, filepath.Ext(name)),
			CreatedTime:  info.ModTime(),
			ModifiedTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list folder %s: %w", folder, err)
	}
	return docs, nil
}

// Sheets lists the worksheets with their populated extent.
func (c *XLSXClient) Sheets(ctx context.Context, spreadsheetID string) ([]model.SheetInfo, error) {
	f, err := c.open(spreadsheetID)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var infos []model.SheetInfo
	for i, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("read %s rows: %w", name, err)
		}
		cols := 0
		for _, row := range rows {
			if len(row) > cols {
				cols = len(row)
			}
		}
		infos = append(infos, model.SheetInfo{
			ID:          int64(i),
			Title:       name,
			RowCount:    len(rows),
			ColumnCount: cols,
		})
	}
	return infos, nil
}

// Read returns the cells of r. Formula cells without a cached value are
// calculated unless render is RenderFormula.
func (c *XLSXClient) Read(ctx context.Context, spreadsheetID string, r model.Range, render Render) (model.Grid, error) {
	f, err := c.open(spreadsheetID)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if err := requireSheet(f, r.Sheet); err != nil {
		return nil, err
	}
	start, end, err := rowBounds(f, r)
	if err != nil {
		return nil, err
	}

	var grid model.Grid
	for row := start; row <= end; row++ {
		cells := make([]string, 0, r.Width())
		for col := r.StartCol.Index(); col <= r.EndCol.Index(); col++ {
			cell, err := excelize.CoordinatesToCellName(col, row)
			if err != nil {
				return nil, err
			}
			v, err := cellValue(f, r.Sheet, cell, render)
			if err != nil {
				return nil, fmt.Errorf("read %s!%s: %w", r.Sheet, cell, err)
			}
			cells = append(cells, v)
		}
		grid = append(grid, trimCells(cells))
	}
	return grid.TrimTrailing(), nil
}

// Clear empties every populated cell in r and drops their formulas.
func (c *XLSXClient) Clear(ctx context.Context, spreadsheetID string, r model.Range) error {
	return c.update(spreadsheetID, func(f *excelize.File) error {
		if err := requireSheet(f, r.Sheet); err != nil {
			return err
		}
		start, end, err := rowBounds(f, r)
		if err != nil {
			return err
		}
		for row := start; row <= end; row++ {
			for col := r.StartCol.Index(); col <= r.EndCol.Index(); col++ {
				cell, err := excelize.CoordinatesToCellName(col, row)
				if err != nil {
					return err
				}
				if err := f.SetCellFormula(r.Sheet, cell, ""); err != nil {
					return err
				}
				if err := f.SetCellValue(r.Sheet, cell, nil); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// Write stores values starting at the top-left cell of r.
func (c *XLSXClient) Write(ctx context.Context, spreadsheetID string, r model.Range, values model.Grid, input Input) error {
	return c.update(spreadsheetID, func(f *excelize.File) error {
		return writeGrid(f, r, values, input)
	})
}

// BatchWrite applies all updates and saves the workbook once.
func (c *XLSXClient) BatchWrite(ctx context.Context, spreadsheetID string, updates []Update, input Input) error {
	if len(updates) == 0 {
		return nil
	}
	return c.update(spreadsheetID, func(f *excelize.File) error {
		for _, u := range updates {
			if err := writeGrid(f, u.Range, u.Values, input); err != nil {
				return err
			}
		}
		return nil
	})
}

// CopyValues calculates every formula cell in r and stores the result as a
// static value. Cells without a formula are left untouched.
func (c *XLSXClient) CopyValues(ctx context.Context, spreadsheetID string, r GridRange) error {
	return c.update(spreadsheetID, func(f *excelize.File) error {
		sheet := r.Sheet
		if sheet == "" {
			sheet = f.GetSheetName(int(r.SheetID))
		}
		if err := requireSheet(f, sheet); err != nil {
			return err
		}
		for row := r.StartRow + 1; row <= r.EndRow; row++ {
			for col := r.StartColumn + 1; col <= r.EndColumn; col++ {
				cell, err := excelize.CoordinatesToCellName(col, row)
				if err != nil {
					return err
				}
				formula, err := f.GetCellFormula(sheet, cell)
				if err != nil {
					return err
				}
				if formula == "" {
					continue
				}
				v, err := f.CalcCellValue(sheet, cell)
				if err != nil {
					return fmt.Errorf("calculate %s!%s: %w", sheet, cell, err)
				}
				if err := f.SetCellFormula(sheet, cell, ""); err != nil {
					return err
				}
				if err := setTyped(f, sheet, cell, v); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// EnsureColumns is a no-op for workbooks, whose grid is not pre-sized.
func (c *XLSXClient) EnsureColumns(ctx context.Context, spreadsheetID string, sheet model.SheetInfo, n int) error {
	if n > maxColumns {
		return fmt.Errorf("%s: %d columns exceeds the worksheet limit", sheet.Title, n)
	}
	return nil
}

func (c *XLSXClient) open(id string) (*excelize.File, error) {
	f, err := excelize.OpenFile(c.path(id))
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", id, err)
	}
	return f, nil
}

func (c *XLSXClient) update(id string, fn func(f *excelize.File) error) error {
	f, err := c.open(id)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := fn(f); err != nil {
		return err
	}
	if err := f.Save(); err != nil {
		return fmt.Errorf("save workbook %s: %w", id, err)
	}
	return nil
}

func requireSheet(f *excelize.File, name string) error {
	for _, s := range f.GetSheetList() {
		if s == name {
			return nil
		}
	}
	return &TabError{Tab: name}
}

// rowBounds resolves the 1-based inclusive row span of r, closing open-ended
// ranges at the last populated row.
func rowBounds(f *excelize.File, r model.Range) (int, int, error) {
	start := r.StartRow
	if start < 1 {
		start = 1
	}
	end := r.EndRow
	if end == 0 {
		rows, err := f.GetRows(r.Sheet)
		if err != nil {
			return 0, 0, fmt.Errorf("read %s rows: %w", r.Sheet, err)
		}
		end = len(rows)
	}
	return start, end, nil
}

func cellValue(f *excelize.File, sheet, cell string, render Render) (string, error) {
	formula, err := f.GetCellFormula(sheet, cell)
	if err != nil {
		return "", err
	}
	if formula != "" {
		if render == RenderFormula {
			return "=" + formula, nil
		}
		return f.CalcCellValue(sheet, cell)
	}
	return f.GetCellValue(sheet, cell, excelize.Options{RawCellValue: render == RenderUnformatted})
}

func writeGrid(f *excelize.File, r model.Range, values model.Grid, input Input) error {
	if err := requireSheet(f, r.Sheet); err != nil {
		return err
	}
	startRow := r.StartRow
	if startRow < 1 {
		startRow = 1
	}
	startCol := r.StartCol.Index()
	for i, row := range values {
		for j, v := range row {
			cell, err := excelize.CoordinatesToCellName(startCol+j, startRow+i)
			if err != nil {
				return err
			}
			if input == InputUserEntered && len(v) > 1 && strings.HasPrefix(v, "=") {
				if err := f.SetCellFormula(r.Sheet, cell, v[1:]); err != nil {
					return err
				}
				continue
			}
			if err := f.SetCellFormula(r.Sheet, cell, ""); err != nil {
				return err
			}
			if input == InputUserEntered {
				err = setTyped(f, r.Sheet, cell, v)
			} else {
				err = f.SetCellStr(r.Sheet, cell, v)
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// setTyped stores numeric strings as numbers and everything else as text.
func setTyped(f *excelize.File, sheet, cell, v string) error {
	if n, err := strconv.ParseFloat(v, 64); err == nil {
		return f.SetCellFloat(sheet, cell, n, -1, 64)
	}
	return f.SetCellStr(sheet, cell, v)
}

func trimCells(cells []string) []string {
	n := len(cells)
	for n > 0 && cells[n-1] == "" {
		n--
	}
	return cells[:n]
}
