// Package sheetstest provides an in-memory sheets.Client for tests, with call
// recording and failure injection.
package sheetstest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/alfredjeanlab/sheetsync/internal/model"
	"github.com/alfredjeanlab/sheetsync/internal/sheets"
)

// Op names a Client method.
type Op string

const (
	OpListFiles     Op = "ListFiles"
	OpSheets        Op = "Sheets"
	OpRead          Op = "Read"
	OpClear         Op = "Clear"
	OpWrite         Op = "Write"
	OpBatchWrite    Op = "BatchWrite"
	OpCopyValues    Op = "CopyValues"
	OpEnsureColumns Op = "EnsureColumns"
)

// ErrInjected is the default error returned by FailNext.
var ErrInjected = errors.New("injected remote failure")

// Cell is a stored cell: its value and, for formula cells, the formula text.
type Cell struct {
	Value   string
	Formula string
}

// Call records one Client invocation.
type Call struct {
	Op          Op
	Spreadsheet string
	Range       string
}

type tab struct {
	id      int64
	title   string
	cells   map[[2]int]Cell // (row, col), both 1-based
	rows    int             // grid size; 0 derives from data
	columns int
}

type failure struct {
	op        Op
	remaining int
	err       error
}

// Fake is an in-memory implementation of sheets.Client.
type Fake struct {
	mu       sync.Mutex
	files    map[string][]model.SourceDocument
	books    map[string][]*tab
	calls    []Call
	failures []*failure

	// Eval computes the value stored alongside a formula written with
	// sheets.InputUserEntered. Nil stores an empty value.
	Eval func(sheet, formula string) string

	// Hook, when set, runs before every call; a non-nil error fails the call.
	Hook func(c Call) error
}

// Compile-time check that Fake implements sheets.Client.
var _ sheets.Client = (*Fake)(nil)

// New returns an empty fake.
func New() *Fake {
	return &Fake{
		files: make(map[string][]model.SourceDocument),
		books: make(map[string][]*tab),
	}
}

// AddFile registers a source document under folder.
func (f *Fake) AddFile(folder string, doc model.SourceDocument) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[folder] = append(f.files[folder], doc)
}

// AddTab creates an empty tab (no-op when it already exists).
func (f *Fake) AddTab(spreadsheetID, title string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tabLocked(spreadsheetID, title, true)
}

// SetRows replaces the tab's contents with grid, anchored at A1.
func (f *Fake) SetRows(spreadsheetID, title string, grid model.Grid) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.tabLocked(spreadsheetID, title, true)
	t.cells = make(map[[2]int]Cell)
	for i, row := range grid {
		for j, v := range row {
			if v != "" {
				t.cells[[2]int{i + 1, j + 1}] = Cell{Value: v}
			}
		}
	}
}

// SetCell stores a single cell.
func (f *Fake) SetCell(spreadsheetID, title string, col model.Column, row int, c Cell) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.tabLocked(spreadsheetID, title, true)
	t.cells[[2]int{row, col.Index()}] = c
}

// SetGridSize fixes the reported grid dimensions of a tab.
func (f *Fake) SetGridSize(spreadsheetID, title string, rows, columns int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.tabLocked(spreadsheetID, title, true)
	t.rows, t.columns = rows, columns
}

// GetCell returns a stored cell.
func (f *Fake) GetCell(spreadsheetID, title string, col model.Column, row int) Cell {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.tabLocked(spreadsheetID, title, false)
	if t == nil {
		return Cell{}
	}
	return t.cells[[2]int{row, col.Index()}]
}

// Rows returns the tab's values from A1 to its populated extent.
func (f *Fake) Rows(spreadsheetID, title string) model.Grid {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.tabLocked(spreadsheetID, title, false)
	if t == nil {
		return nil
	}
	maxRow, maxCol := t.extent()
	grid := make(model.Grid, 0, maxRow)
	for r := 1; r <= maxRow; r++ {
		row := make([]string, 0, maxCol)
		for c := 1; c <= maxCol; c++ {
			row = append(row, t.cells[[2]int{r, c}].Value)
		}
		grid = append(grid, trimCells(row))
	}
	return grid
}

// FailNext makes the next n calls of op fail with err (ErrInjected when nil).
func (f *Fake) FailNext(op Op, n int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		err = ErrInjected
	}
	f.failures = append(f.failures, &failure{op: op, remaining: n, err: err})
}

// Calls returns a copy of the recorded calls.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallCount returns how many times op was invoked.
func (f *Fake) CallCount(op Op) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// ResetCalls forgets the recorded calls.
func (f *Fake) ResetCalls() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

func (f *Fake) record(c Call) error {
	f.calls = append(f.calls, c)
	for _, fl := range f.failures {
		if fl.op == c.Op && fl.remaining > 0 {
			fl.remaining--
			return fl.err
		}
	}
	if f.Hook != nil {
		return f.Hook(c)
	}
	return nil
}

func (f *Fake) tabLocked(spreadsheetID, title string, create bool) *tab {
	for _, t := range f.books[spreadsheetID] {
		if t.title == title {
			return t
		}
	}
	if !create {
		return nil
	}
	t := &tab{id: int64(len(f.books[spreadsheetID])), title: title, cells: make(map[[2]int]Cell)}
	f.books[spreadsheetID] = append(f.books[spreadsheetID], t)
	return t
}

func (f *Fake) lookup(spreadsheetID, title string) (*tab, error) {
	if _, ok := f.books[spreadsheetID]; !ok {
		return nil, fmt.Errorf("spreadsheet %s not found", spreadsheetID)
	}
	t := f.tabLocked(spreadsheetID, title, false)
	if t == nil {
		return nil, &sheets.TabError{Tab: title}
	}
	return t, nil
}

func (t *tab) extent() (int, int) {
	maxRow, maxCol := 0, 0
	for k, c := range t.cells {
		if c.Value == "" && c.Formula == "" {
			continue
		}
		if k[0] > maxRow {
			maxRow = k[0]
		}
		if k[1] > maxCol {
			maxCol = k[1]
		}
	}
	return maxRow, maxCol
}

func (t *tab) rowBounds(r model.Range) (int, int) {
	start := r.StartRow
	if start < 1 {
		start = 1
	}
	end := r.EndRow
	if end == 0 {
		end, _ = t.extent()
	}
	return start, end
}

// ListFiles implements sheets.Client.
func (f *Fake) ListFiles(ctx context.Context, folder string) ([]model.SourceDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(Call{Op: OpListFiles, Range: folder}); err != nil {
		return nil, err
	}
	return append([]model.SourceDocument(nil), f.files[folder]...), nil
}

// Sheets implements sheets.Client.
func (f *Fake) Sheets(ctx context.Context, spreadsheetID string) ([]model.SheetInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(Call{Op: OpSheets, Spreadsheet: spreadsheetID}); err != nil {
		return nil, err
	}
	book, ok := f.books[spreadsheetID]
	if !ok {
		return nil, fmt.Errorf("spreadsheet %s not found", spreadsheetID)
	}
	infos := make([]model.SheetInfo, 0, len(book))
	for _, t := range book {
		rows, cols := t.extent()
		if t.rows > 0 {
			rows = t.rows
		}
		if t.columns > 0 {
			cols = t.columns
		}
		infos = append(infos, model.SheetInfo{ID: t.id, Title: t.title, RowCount: rows, ColumnCount: cols})
	}
	return infos, nil
}

// Read implements sheets.Client.
func (f *Fake) Read(ctx context.Context, spreadsheetID string, r model.Range, render sheets.Render) (model.Grid, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(Call{Op: OpRead, Spreadsheet: spreadsheetID, Range: r.A1()}); err != nil {
		return nil, err
	}
	t, err := f.lookup(spreadsheetID, r.Sheet)
	if err != nil {
		return nil, err
	}
	start, end := t.rowBounds(r)
	var grid model.Grid
	for row := start; row <= end; row++ {
		cells := make([]string, 0, r.Width())
		for col := r.StartCol.Index(); col <= r.EndCol.Index(); col++ {
			c := t.cells[[2]int{row, col}]
			v := c.Value
			if render == sheets.RenderFormula && c.Formula != "" {
				v = c.Formula
			}
			cells = append(cells, v)
		}
		grid = append(grid, trimCells(cells))
	}
	return grid.TrimTrailing(), nil
}

// Clear implements sheets.Client.
func (f *Fake) Clear(ctx context.Context, spreadsheetID string, r model.Range) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(Call{Op: OpClear, Spreadsheet: spreadsheetID, Range: r.A1()}); err != nil {
		return err
	}
	t, err := f.lookup(spreadsheetID, r.Sheet)
	if err != nil {
		return err
	}
	start, end := t.rowBounds(r)
	for k := range t.cells {
		if k[0] >= start && k[0] <= end && k[1] >= r.StartCol.Index() && k[1] <= r.EndCol.Index() {
			delete(t.cells, k)
		}
	}
	return nil
}

// Write implements sheets.Client.
func (f *Fake) Write(ctx context.Context, spreadsheetID string, r model.Range, values model.Grid, input sheets.Input) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(Call{Op: OpWrite, Spreadsheet: spreadsheetID, Range: r.A1()}); err != nil {
		return err
	}
	return f.writeLocked(spreadsheetID, r, values, input)
}

// BatchWrite implements sheets.Client.
func (f *Fake) BatchWrite(ctx context.Context, spreadsheetID string, updates []sheets.Update, input sheets.Input) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ranges := make([]string, len(updates))
	for i, u := range updates {
		ranges[i] = u.Range.A1()
	}
	sort.Strings(ranges)
	if err := f.record(Call{Op: OpBatchWrite, Spreadsheet: spreadsheetID, Range: fmt.Sprint(ranges)}); err != nil {
		return err
	}
	for _, u := range updates {
		if _, err := f.lookup(spreadsheetID, u.Range.Sheet); err != nil {
			return err
		}
	}
	for _, u := range updates {
		if err := f.writeLocked(spreadsheetID, u.Range, u.Values, input); err != nil {
			return err
		}
	}
	return nil
}

func (f *Fake) writeLocked(spreadsheetID string, r model.Range, values model.Grid, input sheets.Input) error {
	t, err := f.lookup(spreadsheetID, r.Sheet)
	if err != nil {
		return err
	}
	startRow := r.StartRow
	if startRow < 1 {
		startRow = 1
	}
	startCol := r.StartCol.Index()
	for i, row := range values {
		for j, v := range row {
			key := [2]int{startRow + i, startCol + j}
			switch {
			case v == "":
				delete(t.cells, key)
			case input == sheets.InputUserEntered && len(v) > 1 && v[0] == '=':
				c := Cell{Formula: v}
				if f.Eval != nil {
					c.Value = f.Eval(r.Sheet, v)
				}
				t.cells[key] = c
			default:
				t.cells[key] = Cell{Value: v}
			}
		}
	}
	return nil
}

// CopyValues implements sheets.Client.
func (f *Fake) CopyValues(ctx context.Context, spreadsheetID string, r sheets.GridRange) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rng := fmt.Sprintf("%d!R%dC%d:R%dC%d", r.SheetID, r.StartRow+1, r.StartColumn+1, r.EndRow, r.EndColumn)
	if err := f.record(Call{Op: OpCopyValues, Spreadsheet: spreadsheetID, Range: rng}); err != nil {
		return err
	}
	var t *tab
	for _, candidate := range f.books[spreadsheetID] {
		if candidate.id == r.SheetID {
			t = candidate
		}
	}
	if t == nil {
		return &sheets.TabError{Tab: r.Sheet}
	}
	for k, c := range t.cells {
		if k[0] > r.StartRow && k[0] <= r.EndRow && k[1] > r.StartColumn && k[1] <= r.EndColumn && c.Formula != "" {
			t.cells[k] = Cell{Value: c.Value}
		}
	}
	return nil
}

// EnsureColumns implements sheets.Client.
func (f *Fake) EnsureColumns(ctx context.Context, spreadsheetID string, sheet model.SheetInfo, n int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(Call{Op: OpEnsureColumns, Spreadsheet: spreadsheetID, Range: sheet.Title}); err != nil {
		return err
	}
	t, err := f.lookup(spreadsheetID, sheet.Title)
	if err != nil {
		return err
	}
	if t.columns < n {
		t.columns = n
	}
	return nil
}

func trimCells(cells []string) []string {
	n := len(cells)
	for n > 0 && cells[n-1] == "" {
		n--
	}
	return cells[:n]
}
