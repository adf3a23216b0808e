package model

import "fmt"

// MetaEntry is the persisted pointer for one Master tab: the column letter of
// the most recently completed Master column.
type MetaEntry struct {
	Tab    string `json:"tab"`
	Column Column `json:"last_date_col"`
	// Row is the 1-based Master_Meta row the entry was read from, or 0 when the
	// entry did not come from the sheet (config override).
	Row int `json:"row,omitempty"`
}

// Advance returns the entry moved exactly one column to the right.
func (e MetaEntry) Advance() (MetaEntry, error) {
	next, err := e.Column.Next()
	if err != nil {
		return MetaEntry{}, fmt.Errorf("advance %s pointer: %w", e.Tab, err)
	}
	e.Column = next
	return e, nil
}
