package sync

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alfredjeanlab/sheetsync/internal/model"
	"github.com/alfredjeanlab/sheetsync/internal/retry"
	"github.com/alfredjeanlab/sheetsync/internal/sheets"
)

// MetaStore reads and writes Master pointers kept in the Master_Meta sheet.
// Each pointer lives in the value column of a row keyed by tab name. Tabs with
// a configured meta row are read from that cell directly; the rest are found
// by scanning the meta range below its header row.
type MetaStore struct {
	client        sheets.Client
	retry         retry.Policy
	logger        *slog.Logger
	spreadsheetID string
	scan          model.Range
	rows          map[string]int
	override      map[string]model.Column

	raw map[string]string
	row map[string]int
}

// NewMetaStore creates a store for the Master tabs declared in layout.
func NewMetaStore(client sheets.Client, policy retry.Policy, logger *slog.Logger, layout model.Layout) *MetaStore {
	rows := make(map[string]int)
	for _, mt := range layout.MasterTabs {
		if mt.MetaRow > 0 {
			rows[mt.Tab] = mt.MetaRow
		}
	}
	return &MetaStore{
		client:        client,
		retry:         policy,
		logger:        logger,
		spreadsheetID: layout.SpreadsheetID,
		scan:          layout.MetaRange.WithSheet(layout.MetaSheet),
		rows:          rows,
		override:      layout.MetaOverride,
	}
}

func (s *MetaStore) valueColumn() model.Column {
	next, err := s.scan.StartCol.Next()
	if err != nil {
		return "B"
	}
	return next
}

// Load reads the pointers of tabs. With an override configured, its values
// are used and the sheet is not read.
func (s *MetaStore) Load(ctx context.Context, tabs []string) error {
	s.raw = make(map[string]string)
	s.row = make(map[string]int)

	if len(s.override) > 0 {
		s.logger.Info("master meta override in use")
		for tab, col := range s.override {
			s.raw[tab] = string(col)
			s.row[tab] = s.rows[tab]
		}
		return nil
	}

	scan := false
	for _, tab := range tabs {
		r, ok := s.rows[tab]
		if !ok {
			scan = true
			continue
		}
		cell := model.ColumnRange(s.scan.Sheet, s.valueColumn(), r, r)
		var grid model.Grid
		if _, err := s.retry.Do(ctx, func(ctx context.Context) error {
			var err error
			grid, err = s.client.Read(ctx, s.spreadsheetID, cell, sheets.RenderUnformatted)
			return err
		}); err != nil {
			return fmt.Errorf("read master meta %s: %w", cell.A1(), err)
		}
		if v := strings.TrimSpace(grid.Cell(0, 0)); v != "" {
			s.raw[tab] = strings.ToUpper(v)
		}
		s.row[tab] = r
		s.logger.Debug("master meta cell read", "tab", tab, "cell", cell.A1(), "column", s.raw[tab])
	}
	if scan {
		var found map[string]scannedEntry
		if _, err := s.retry.Do(ctx, func(ctx context.Context) error {
			var err error
			found, err = s.scanRange(ctx)
			return err
		}); err != nil {
			return err
		}
		for tab, e := range found {
			if _, direct := s.rows[tab]; direct {
				continue
			}
			s.raw[tab] = e.value
			s.row[tab] = e.row
		}
	}
	return nil
}

type scannedEntry struct {
	value string
	row   int
}

// scanRange reads the meta range and returns its entries by tab, skipping the
// header row.
func (s *MetaStore) scanRange(ctx context.Context) (map[string]scannedEntry, error) {
	grid, err := s.client.Read(ctx, s.spreadsheetID, s.scan, sheets.RenderFormatted)
	if err != nil {
		return nil, fmt.Errorf("read master meta %s: %w", s.scan.A1(), err)
	}
	found := make(map[string]scannedEntry)
	first := s.scan.StartRow
	if first < 1 {
		first = 1
	}
	for i := 1; i < len(grid); i++ {
		tab := strings.TrimSpace(grid.Cell(i, 0))
		col := strings.ToUpper(strings.TrimSpace(grid.Cell(i, 1)))
		if tab == "" || col == "" {
			continue
		}
		found[tab] = scannedEntry{value: col, row: first + i}
	}
	return found, nil
}

// Get returns the loaded pointer of tab.
func (s *MetaStore) Get(tab string) (model.MetaEntry, error) {
	raw, ok := s.raw[tab]
	if !ok {
		return model.MetaEntry{}, fmt.Errorf("%w: %s", ErrMissingMetaEntry, tab)
	}
	col, err := model.ParseColumn(raw)
	if err != nil {
		return model.MetaEntry{}, fmt.Errorf("%w: %s: %v", ErrInvalidMetaEntry, tab, err)
	}
	return model.MetaEntry{Tab: tab, Column: col, Row: s.row[tab]}, nil
}

// Entries returns the loaded pointers of tabs in order, skipping tabs
// without a usable entry.
func (s *MetaStore) Entries(tabs []string) []model.MetaEntry {
	var out []model.MetaEntry
	for _, tab := range tabs {
		if e, err := s.Get(tab); err == nil {
			out = append(out, e)
		}
	}
	return out
}

// Save persists e. It makes one attempt; callers wrap it in their retry
// policy. The write goes to the entry's meta row; an entry without
// one (an override for a tab with no configured row) is located by scanning.
func (s *MetaStore) Save(ctx context.Context, e model.MetaEntry) error {
	row := e.Row
	if row == 0 {
		found, err := s.scanRange(ctx)
		if err != nil {
			return err
		}
		row = found[e.Tab].row
		if row == 0 {
			return fmt.Errorf("%w: %s has no row in %s", ErrMissingMetaEntry, e.Tab, s.scan.A1())
		}
	}
	cell := model.ColumnRange(s.scan.Sheet, s.valueColumn(), row, row)
	if err := s.client.Write(ctx, s.spreadsheetID, cell, model.Grid{{string(e.Column)}}, sheets.InputRaw); err != nil {
		return fmt.Errorf("write master meta %s: %w", cell.A1(), err)
	}
	if s.raw == nil {
		s.raw = make(map[string]string)
		s.row = make(map[string]int)
	}
	s.raw[e.Tab] = string(e.Column)
	s.row[e.Tab] = row
	s.logger.Info("master meta updated", "tab", e.Tab, "column", e.Column, "cell", cell.A1())
	return nil
}
