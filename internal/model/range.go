package model

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Range is a rectangular block of cells on a named sheet tab. Rows are
// 1-based; EndRow == 0 leaves the range open to the end of the data, and
// StartRow == 0 starts at the first row.
type Range struct {
	Sheet    string
	StartCol Column
	EndCol   Column
	StartRow int
	EndRow   int
}

var a1Pattern = regexp.MustCompile(`^([A-Za-z]+)(\d*)(?::([A-Za-z]+)(\d*))?$`)

// ParseRange parses an A1 range without a sheet prefix ("B:D", "A1:B10",
// "B2:D", "H5") and binds it to sheet.
func ParseRange(sheet, a1 string) (Range, error) {
	m := a1Pattern.FindStringSubmatch(strings.TrimSpace(a1))
	if m == nil {
		return Range{}, fmt.Errorf("invalid range %q", a1)
	}
	start, err := ParseColumn(m[1])
	if err != nil {
		return Range{}, err
	}
	r := Range{Sheet: sheet, StartCol: start, EndCol: start}
	if m[2] != "" {
		r.StartRow, _ = strconv.Atoi(m[2])
	}
	if m[3] == "" {
		// Single cell or single column reference.
		r.EndRow = r.StartRow
		return r, nil
	}
	end, err := ParseColumn(m[3])
	if err != nil {
		return Range{}, err
	}
	r.EndCol = end
	if m[4] != "" {
		r.EndRow, _ = strconv.Atoi(m[4])
	}
	if r.EndCol.Index() < r.StartCol.Index() {
		return Range{}, fmt.Errorf("invalid range %q: end column before start column", a1)
	}
	if r.EndRow != 0 && r.EndRow < r.StartRow {
		return Range{}, fmt.Errorf("invalid range %q: end row before start row", a1)
	}
	return r, nil
}

// ColumnRange returns a single-column range covering rows [startRow, endRow].
func ColumnRange(sheet string, col Column, startRow, endRow int) Range {
	return Range{Sheet: sheet, StartCol: col, EndCol: col, StartRow: startRow, EndRow: endRow}
}

// Width returns the number of columns the range spans.
func (r Range) Width() int {
	return r.EndCol.Index() - r.StartCol.Index() + 1
}

// Rows returns the number of rows the range spans, or 0 when it is open-ended.
func (r Range) Rows() int {
	if r.EndRow == 0 {
		return 0
	}
	start := r.StartRow
	if start == 0 {
		start = 1
	}
	return r.EndRow - start + 1
}

// WithSheet returns a copy of r bound to a different sheet.
func (r Range) WithSheet(sheet string) Range {
	r.Sheet = sheet
	return r
}

// WithRows returns a copy of r restricted to rows [startRow, endRow].
func (r Range) WithRows(startRow, endRow int) Range {
	r.StartRow = startRow
	r.EndRow = endRow
	return r
}

// A1 renders the range in A1 notation with a quoted sheet prefix, e.g.
// 'Sheet 1'!B2:D or 'Master'!H1.
func (r Range) A1() string {
	var b strings.Builder
	b.WriteString(QuoteSheet(r.Sheet))
	b.WriteByte('!')
	b.WriteString(string(r.StartCol))
	if r.StartRow > 0 {
		b.WriteString(strconv.Itoa(r.StartRow))
	}
	if r.StartCol == r.EndCol && r.StartRow > 0 && r.EndRow == r.StartRow {
		return b.String()
	}
	b.WriteByte(':')
	b.WriteString(string(r.EndCol))
	if r.EndRow > 0 {
		b.WriteString(strconv.Itoa(r.EndRow))
	}
	return b.String()
}

// String implements fmt.Stringer.
func (r Range) String() string {
	return r.A1()
}

// QuoteSheet wraps a sheet title in single quotes, doubling embedded quotes.
func QuoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
