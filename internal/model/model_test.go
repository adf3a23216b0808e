package model

import (
	"errors"
	"testing"
)

func TestColumnNext(t *testing.T) {
	for _, tc := range []struct {
		in   Column
		want Column
	}{
		{"A", "B"},
		{"H", "I"},
		{"Z", "AA"},
		{"AZ", "BA"},
		{"ZZ", "AAA"},
	} {
		got, err := tc.in.Next()
		if err != nil {
			t.Fatalf("%s.Next() error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("%s.Next() = %s, want %s", tc.in, got, tc.want)
		}
		back, err := got.Prev()
		if err != nil {
			t.Fatalf("%s.Prev() error: %v", got, err)
		}
		if back != tc.in {
			t.Errorf("%s.Prev() = %s, want %s", got, back, tc.in)
		}
	}
}

func TestColumnPrev_A(t *testing.T) {
	if _, err := Column("A").Prev(); err == nil {
		t.Fatal("expected error for A.Prev()")
	}
}

func TestColumnNext_Invalid(t *testing.T) {
	if _, err := Column("1").Next(); err == nil {
		t.Fatal("expected error for invalid column")
	}
}

func TestParseColumn(t *testing.T) {
	for _, tc := range []struct {
		in      string
		want    Column
		wantErr bool
	}{
		{"h", "H", false},
		{" ab ", "AB", false},
		{"", "", true},
		{"A1", "", true},
		{"ZZZZ", "", true},
	} {
		got, err := ParseColumn(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseColumn(%q) expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseColumn(%q) error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseColumn(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestColumnIndex(t *testing.T) {
	if got := Column("C").Index(); got != 3 {
		t.Errorf("C.Index() = %d, want 3", got)
	}
	if got := Column("AA").Index(); got != 27 {
		t.Errorf("AA.Index() = %d, want 27", got)
	}
	if got := Column("").Index(); got != 0 {
		t.Errorf("empty Index() = %d, want 0", got)
	}
	if got := Column("H").Offset("A"); got != 7 {
		t.Errorf("H.Offset(A) = %d, want 7", got)
	}
}

func TestParseRange(t *testing.T) {
	for _, tc := range []struct {
		in      string
		want    Range
		wantA1  string
		wantErr bool
	}{
		{in: "B:D", want: Range{Sheet: "s", StartCol: "B", EndCol: "D"}, wantA1: "'s'!B:D"},
		{in: "A1:B10", want: Range{Sheet: "s", StartCol: "A", EndCol: "B", StartRow: 1, EndRow: 10}, wantA1: "'s'!A1:B10"},
		{in: "B2:D", want: Range{Sheet: "s", StartCol: "B", EndCol: "D", StartRow: 2}, wantA1: "'s'!B2:D"},
		{in: "H5", want: Range{Sheet: "s", StartCol: "H", EndCol: "H", StartRow: 5, EndRow: 5}, wantA1: "'s'!H5"},
		{in: "D:B", wantErr: true},
		{in: "A10:A2", wantErr: true},
		{in: "!!", wantErr: true},
	} {
		got, err := ParseRange("s", tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseRange(%q) expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseRange(%q) error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseRange(%q) = %+v, want %+v", tc.in, got, tc.want)
		}
		if a1 := got.A1(); a1 != tc.wantA1 {
			t.Errorf("ParseRange(%q).A1() = %q, want %q", tc.in, a1, tc.wantA1)
		}
	}
}

func TestRangeA1_QuotesSheet(t *testing.T) {
	r := ColumnRange("Bob's tab", "H", 2, 100)
	if got, want := r.A1(), "'Bob''s tab'!H2:H100"; got != want {
		t.Errorf("A1() = %q, want %q", got, want)
	}
	if r.Width() != 1 || r.Rows() != 99 {
		t.Errorf("Width/Rows = %d/%d, want 1/99", r.Width(), r.Rows())
	}
}

func TestMappingMatches(t *testing.T) {
	m := Mapping{Prefix: "경쟁사_", ExcludePrefixes: []string{"경쟁사_백업"}}
	for _, tc := range []struct {
		name string
		want bool
	}{
		{"경쟁사_240101", true},
		{"경쟁사_백업_240101", false},
		{"다른_240101", false},
		{"경쟁사", false},
	} {
		if got := m.Matches(tc.name); got != tc.want {
			t.Errorf("Matches(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestGridCell(t *testing.T) {
	g := Grid{{"a", "b"}, {}, {"c"}}
	if g.Cell(0, 1) != "b" || g.Cell(1, 0) != "" || g.Cell(2, 5) != "" || g.Cell(9, 0) != "" {
		t.Errorf("unexpected Cell results on %v", g)
	}
	clone := g.Clone()
	clone[0][0] = "z"
	if g[0][0] != "a" {
		t.Error("Clone shares backing storage")
	}
	if got := (Grid{{"x"}, {""}, {}}).TrimTrailing(); len(got) != 1 {
		t.Errorf("TrimTrailing len = %d, want 1", len(got))
	}
	if !(Grid{{""}, {}}).IsEmpty() {
		t.Error("expected empty grid")
	}
}

func TestMetaEntryAdvance(t *testing.T) {
	e := MetaEntry{Tab: "Master_A", Column: "H", Row: 2}
	next, err := e.Advance()
	if err != nil {
		t.Fatalf("Advance() error: %v", err)
	}
	if next.Column != "I" || next.Tab != "Master_A" || next.Row != 2 {
		t.Errorf("Advance() = %+v", next)
	}
	if e.Column != "H" {
		t.Error("Advance mutated the receiver")
	}
}

func TestParseRunMode(t *testing.T) {
	m, err := ParseRunMode("")
	if err != nil || m != ModeBoth {
		t.Fatalf("ParseRunMode(\"\") = %q, %v", m, err)
	}
	if !ModeBoth.Extract() || !ModeBoth.Master() || ModeExtract.Master() || ModeMaster.Extract() {
		t.Error("phase selection mismatch")
	}
	if _, err := ParseRunMode("all"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestValidationError(t *testing.T) {
	var ve ValidationError
	if ve.Err() != nil {
		t.Fatal("empty ValidationError should yield nil")
	}
	ve.Add("mappings[0].prefix", "is required")
	err := ve.Err()
	var target *ValidationError
	if !errors.As(err, &target) {
		t.Fatalf("Err() = %T, want *ValidationError", err)
	}
	if got := err.Error(); got != "validation failed: mappings[0].prefix: is required" {
		t.Errorf("Error() = %q", got)
	}
}

func TestRunReportExitCode(t *testing.T) {
	for _, tc := range []struct {
		name  string
		units []UnitResult
		want  int
	}{
		{"Empty", nil, 0},
		{"OKAndSkipped", []UnitResult{{Status: StatusOK}, {Status: StatusSkipped}}, 0},
		{"Exhausted", []UnitResult{{Status: StatusOK}, {Status: StatusFailed}}, 1},
		{"Fatal", []UnitResult{{Status: StatusFailed}, {Status: StatusFailed, Fatal: true}}, 2},
	} {
		t.Run(tc.name, func(t *testing.T) {
			r := &RunReport{Units: tc.units}
			if got := r.ExitCode(); got != tc.want {
				t.Errorf("ExitCode() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestLayoutLookups(t *testing.T) {
	l := Layout{
		Mappings:   []Mapping{{Prefix: "p_", TargetTab: "Extract"}},
		MasterTabs: []MasterTab{{Tab: "Master", SourceTab: "Extract", MetaRow: 2}},
	}
	if m, ok := l.MappingForTab("Extract"); !ok || m.Prefix != "p_" {
		t.Errorf("MappingForTab = %+v, %v", m, ok)
	}
	if _, ok := l.MappingForTab("Nope"); ok {
		t.Error("expected no mapping")
	}
	if mt, ok := l.MasterTab("Master"); !ok || mt.MetaRow != 2 {
		t.Errorf("MasterTab = %+v, %v", mt, ok)
	}
}
