package model

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Column is a spreadsheet column letter such as "A", "H" or "AB".
type Column string

// ParseColumn normalizes s to an upper-case column letter and checks that it
// names a column inside the spreadsheet grid.
func ParseColumn(s string) (Column, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return "", fmt.Errorf("column is empty")
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return "", fmt.Errorf("invalid column %q", s)
		}
	}
	if _, err := excelize.ColumnNameToNumber(s); err != nil {
		return "", fmt.Errorf("invalid column %q: %w", s, err)
	}
	return Column(s), nil
}

// ColumnAt returns the column letter for a 1-based column index.
func ColumnAt(index int) (Column, error) {
	name, err := excelize.ColumnNumberToName(index)
	if err != nil {
		return "", fmt.Errorf("column index %d: %w", index, err)
	}
	return Column(name), nil
}

// String returns the column letter.
func (c Column) String() string {
	return string(c)
}

// Index returns the 1-based index of the column, or 0 if the column is not valid.
func (c Column) Index() int {
	n, err := excelize.ColumnNameToNumber(string(c))
	if err != nil {
		return 0
	}
	return n
}

// IsValid reports whether c names a column inside the grid.
func (c Column) IsValid() bool {
	return c != "" && c.Index() > 0
}

// Next returns the column immediately to the right (H -> I, Z -> AA).
func (c Column) Next() (Column, error) {
	idx := c.Index()
	if idx == 0 {
		return "", fmt.Errorf("invalid column %q", string(c))
	}
	return ColumnAt(idx + 1)
}

// Prev returns the column immediately to the left. Column A has no previous column.
func (c Column) Prev() (Column, error) {
	idx := c.Index()
	if idx == 0 {
		return "", fmt.Errorf("invalid column %q", string(c))
	}
	if idx == 1 {
		return "", fmt.Errorf("column %q has no previous column", string(c))
	}
	return ColumnAt(idx - 1)
}

// Offset returns the zero-based offset of c relative to base (base = 0).
func (c Column) Offset(base Column) int {
	return c.Index() - base.Index()
}
