package model

// Grid holds cell values row by row as returned by a range read. Rows may be
// ragged: trailing empty cells and trailing empty rows are not guaranteed to
// be present.
type Grid [][]string

// Cell returns the value at zero-based (row, col), or "" when the cell lies
// outside the populated part of the grid.
func (g Grid) Cell(row, col int) string {
	if row < 0 || row >= len(g) {
		return ""
	}
	r := g[row]
	if col < 0 || col >= len(r) {
		return ""
	}
	return r[col]
}

// Clone returns a deep copy of the grid.
func (g Grid) Clone() Grid {
	if g == nil {
		return nil
	}
	out := make(Grid, len(g))
	for i, row := range g {
		out[i] = append([]string(nil), row...)
	}
	return out
}

// Column returns the values of zero-based column col as a single-column grid,
// one row per grid row.
func (g Grid) Column(col int) Grid {
	out := make(Grid, len(g))
	for i := range g {
		out[i] = []string{g.Cell(i, col)}
	}
	return out
}

// IsEmpty reports whether every cell in the grid is empty.
func (g Grid) IsEmpty() bool {
	for _, row := range g {
		for _, v := range row {
			if v != "" {
				return false
			}
		}
	}
	return true
}

// TrimTrailing drops trailing rows that contain no values.
func (g Grid) TrimTrailing() Grid {
	n := len(g)
	for n > 0 {
		empty := true
		for _, v := range g[n-1] {
			if v != "" {
				empty = false
				break
			}
		}
		if !empty {
			break
		}
		n--
	}
	return g[:n]
}
