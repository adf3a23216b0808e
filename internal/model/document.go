package model

import "time"

// SourceDocument is a spreadsheet found in the source folder.
type SourceDocument struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	CreatedTime  time.Time `json:"created_time"`
	ModifiedTime time.Time `json:"modified_time"`
}

// SheetInfo describes one tab of a spreadsheet.
type SheetInfo struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	RowCount    int    `json:"row_count"`
	ColumnCount int    `json:"column_count"`
}
