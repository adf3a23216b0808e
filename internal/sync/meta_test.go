package sync

import (
	"context"
	"errors"
	"testing"

	"github.com/alfredjeanlab/sheetsync/internal/model"
	"github.com/alfredjeanlab/sheetsync/internal/sheets/sheetstest"
)

func TestMetaStore_ScansRange(t *testing.T) {
	f := sheetstest.New()
	f.SetRows(destID, "Master_Meta", model.Grid{
		{"tab", "last_date_col"},
		{"Master_A", " h "},
		{"", "ignored"},
		{"Master_B", "AB"},
	})
	p, _ := testPolicy()
	s := NewMetaStore(f, p, testLogger(), testLayout())

	if err := s.Load(context.Background(), []string{"Master_A", "Master_B"}); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	a, err := s.Get("Master_A")
	if err != nil || a.Column != "H" || a.Row != 2 {
		t.Errorf("Get(Master_A) = %+v, %v", a, err)
	}
	b, err := s.Get("Master_B")
	if err != nil || b.Column != "AB" || b.Row != 4 {
		t.Errorf("Get(Master_B) = %+v, %v", b, err)
	}
	if n := f.CallCount(sheetstest.OpRead); n != 1 {
		t.Errorf("Read calls = %d, want a single scan", n)
	}
}

func TestMetaStore_DirectRow(t *testing.T) {
	f := sheetstest.New()
	f.SetRows(destID, "Master_Meta", model.Grid{
		{"tab", "last_date_col"},
		{"Master_B", "K"},
		{"Master_A", "H"},
	})
	layout := testLayout()
	layout.MasterTabs[0].MetaRow = 3
	layout.MasterTabs[1].MetaRow = 2
	p, _ := testPolicy()
	s := NewMetaStore(f, p, testLogger(), layout)

	if err := s.Load(context.Background(), []string{"Master_A", "Master_B"}); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	got := s.Entries([]string{"Master_A", "Master_B"})
	want := []model.MetaEntry{{Tab: "Master_A", Column: "H", Row: 3}, {Tab: "Master_B", Column: "K", Row: 2}}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Entries() = %+v, want %+v", got, want)
	}
}

func TestMetaStore_MissingAndInvalid(t *testing.T) {
	f := sheetstest.New()
	f.SetRows(destID, "Master_Meta", model.Grid{
		{"tab", "last_date_col"},
		{"Master_A", "H1"},
	})
	p, _ := testPolicy()
	s := NewMetaStore(f, p, testLogger(), testLayout())
	if err := s.Load(context.Background(), []string{"Master_A", "Master_B"}); err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if _, err := s.Get("Master_A"); !errors.Is(err, ErrInvalidMetaEntry) || !IsFatal(err) {
		t.Errorf("Get(Master_A) error = %v, want fatal ErrInvalidMetaEntry", err)
	}
	if _, err := s.Get("Master_B"); !errors.Is(err, ErrMissingMetaEntry) || !IsFatal(err) {
		t.Errorf("Get(Master_B) error = %v, want fatal ErrMissingMetaEntry", err)
	}
	if got := s.Entries([]string{"Master_A", "Master_B"}); len(got) != 0 {
		t.Errorf("Entries() = %+v, want none", got)
	}
}

func TestMetaStore_Override(t *testing.T) {
	f := sheetstest.New()
	f.SetRows(destID, "Master_Meta", model.Grid{
		{"tab", "last_date_col"},
		{"Master_A", "H"},
	})
	layout := testLayout()
	layout.MetaOverride = map[string]model.Column{"Master_A": "Z"}
	p, _ := testPolicy()
	s := NewMetaStore(f, p, testLogger(), layout)

	if err := s.Load(context.Background(), []string{"Master_A"}); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	e, err := s.Get("Master_A")
	if err != nil || e.Column != "Z" {
		t.Fatalf("Get() = %+v, %v, want Z", e, err)
	}
	if n := f.CallCount(sheetstest.OpRead); n != 0 {
		t.Errorf("override read the sheet %d times", n)
	}

	// Saving an override entry locates its row by scanning.
	next, _ := e.Advance()
	if err := s.Save(context.Background(), next); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if got := f.GetCell(destID, "Master_Meta", "B", 2).Value; got != "AA" {
		t.Errorf("B2 = %q, want AA", got)
	}
}

func TestMetaStore_Save(t *testing.T) {
	f := sheetstest.New()
	f.SetRows(destID, "Master_Meta", model.Grid{
		{"tab", "last_date_col"},
		{"Master_A", "H"},
	})
	p, _ := testPolicy()
	s := NewMetaStore(f, p, testLogger(), testLayout())
	if err := s.Load(context.Background(), []string{"Master_A"}); err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if err := s.Save(context.Background(), model.MetaEntry{Tab: "Master_A", Column: "I", Row: 2}); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if got := f.GetCell(destID, "Master_Meta", "B", 2).Value; got != "I" {
		t.Errorf("B2 = %q, want I", got)
	}
	if e, _ := s.Get("Master_A"); e.Column != "I" {
		t.Errorf("cached entry = %+v, want I", e)
	}

	if err := s.Save(context.Background(), model.MetaEntry{Tab: "Master_X", Column: "C"}); !errors.Is(err, ErrMissingMetaEntry) {
		t.Errorf("Save(unknown) error = %v, want ErrMissingMetaEntry", err)
	}
}
