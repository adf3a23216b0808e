package sync

import "github.com/alfredjeanlab/sheetsync/internal/model"

// Row is a snapshot of one destination row, indexed by column letter.
type Row struct {
	Number int
	cells  map[model.Column]string
}

// NewRow builds a snapshot from cells read starting at column first.
func NewRow(number int, first model.Column, cells []string) Row {
	r := Row{Number: number, cells: make(map[model.Column]string, len(cells))}
	base := first.Index()
	for i, v := range cells {
		col, err := model.ColumnAt(base + i)
		if err != nil {
			continue
		}
		r.cells[col] = v
	}
	return r
}

// Get returns the value of col, or "" when the row has no such cell.
func (r Row) Get(col model.Column) string {
	return r.cells[col]
}

// Patch overwrites one cell of a row.
type Patch struct {
	Column model.Column
	Value  string
}

// Rule is a row-local correction. Apply returns the patch to make, if any,
// and depends only on the snapshot passed in.
type Rule interface {
	Name() string
	Columns() []model.Column
	Apply(r Row) (Patch, bool)
}

// Override copies Source into Target when they differ, Guard holds the
// placeholder "-" and Source is a real value.
type Override struct {
	Target   model.Column
	Source   model.Column
	Guard    model.Column
	Excluded []string
}

func (o Override) Name() string { return "override" }

func (o Override) Columns() []model.Column {
	return []model.Column{o.Target, o.Source, o.Guard}
}

func (o Override) Apply(r Row) (Patch, bool) {
	src := r.Get(o.Source)
	if r.Get(o.Target) == src || r.Get(o.Guard) != "-" || contains(o.Excluded, src) {
		return Patch{}, false
	}
	return Patch{Column: o.Target, Value: src}, true
}

// Backfill copies Source into an empty Target when Source is a real value.
type Backfill struct {
	Target   model.Column
	Source   model.Column
	Excluded []string
}

func (b Backfill) Name() string { return "backfill" }

func (b Backfill) Columns() []model.Column {
	return []model.Column{b.Target, b.Source}
}

func (b Backfill) Apply(r Row) (Patch, bool) {
	src := r.Get(b.Source)
	if r.Get(b.Target) != "" || contains(b.Excluded, src) {
		return Patch{}, false
	}
	return Patch{Column: b.Target, Value: src}, true
}

// DefaultRules returns the correction rules applied to extract tabs:
// A takes F when E is "-" and F is a real subscription value, and an empty C
// takes H.
func DefaultRules() []Rule {
	return []Rule{
		Override{Target: "A", Source: "F", Guard: "E", Excluded: []string{"-", "미가입", ""}},
		Backfill{Target: "C", Source: "H", Excluded: []string{"-", ""}},
	}
}

// Evaluate applies every rule to the same snapshot. Patches come back in rule
// order; rules never see each other's output.
func Evaluate(rules []Rule, r Row) []Patch {
	var patches []Patch
	for _, rule := range rules {
		if p, ok := rule.Apply(r); ok {
			patches = append(patches, p)
		}
	}
	return patches
}

// span returns the narrowest column range covering every rule.
func span(rules []Rule) (model.Column, model.Column) {
	var lo, hi model.Column
	for _, rule := range rules {
		for _, c := range rule.Columns() {
			if lo == "" || c.Index() < lo.Index() {
				lo = c
			}
			if hi == "" || c.Index() > hi.Index() {
				hi = c
			}
		}
	}
	return lo, hi
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
