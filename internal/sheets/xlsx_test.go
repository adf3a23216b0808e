package sheets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"

	"github.com/alfredjeanlab/sheetsync/internal/model"
)

// newWorkbook saves a workbook with the given tabs under dir/name.
func newWorkbook(t *testing.T, dir, name string, tabs ...string) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, tab := range tabs {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", tab); err != nil {
				t.Fatal(err)
			}
			continue
		}
		if _, err := f.NewSheet(tab); err != nil {
			t.Fatal(err)
		}
	}
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save %s: %v", path, err)
	}
}

func TestXLSX_ListFiles(t *testing.T) {
	root := t.TempDir()
	newWorkbook(t, root, "src/경쟁사A_240101.xlsx", "시트1")
	newWorkbook(t, root, "src/old/경쟁사A_231225.xlsx", "시트1")
	newWorkbook(t, root, "src/~$경쟁사A_240101.xlsx", "시트1")
	if err := os.WriteFile(filepath.Join(root, "src", "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := NewXLSXClient(root)
	docs, err := c.ListFiles(context.Background(), "src")
	if err != nil {
		t.Fatalf("ListFiles() error: %v", err)
	}
	var ids, names []string
	for _, d := range docs {
		ids = append(ids, d.ID)
		names = append(names, d.Name)
		if d.ModifiedTime.IsZero() || !d.CreatedTime.Equal(d.ModifiedTime) {
			t.Errorf("%s: timestamps = %v / %v", d.ID, d.CreatedTime, d.ModifiedTime)
		}
	}
	sort.Strings(ids)
	sort.Strings(names)
	wantIDs := []string{
		filepath.Join("src", "old", "경쟁사A_231225.xlsx"),
		filepath.Join("src", "경쟁사A_240101.xlsx"),
	}
	if diff := cmp.Diff(wantIDs, ids); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"경쟁사A_231225", "경쟁사A_240101"}, names); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestXLSX_ListFiles_MissingFolder(t *testing.T) {
	c := NewXLSXClient(t.TempDir())
	if _, err := c.ListFiles(context.Background(), "nope"); err == nil {
		t.Fatal("expected error for missing folder")
	}
}

func TestXLSX_WriteReadClear(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	newWorkbook(t, root, "dest.xlsx", "Extract_A", "Master_A")
	c := NewXLSXClient(root)

	r, err := model.ParseRange("Extract_A", "A1:C3")
	if err != nil {
		t.Fatal(err)
	}
	in := model.Grid{
		{"name", "price", "code"},
		{"apple", "1200", "007"},
		{"pear", "", "=1+2"},
	}
	if err := c.Write(ctx, "dest.xlsx", r, in, InputUserEntered); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	got, err := c.Read(ctx, "dest.xlsx", r, RenderFormatted)
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	want := model.Grid{
		{"name", "price", "code"},
		{"apple", "1200", "7"},
		{"pear", "", "3"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("formatted read mismatch (-want +got):\n%s", diff)
	}

	formulas, err := c.Read(ctx, "dest.xlsx", model.ColumnRange("Extract_A", "C", 3, 3), RenderFormula)
	if err != nil {
		t.Fatalf("Read(formula) error: %v", err)
	}
	if diff := cmp.Diff(model.Grid{{"=1+2"}}, formulas); diff != "" {
		t.Errorf("formula read mismatch (-want +got):\n%s", diff)
	}

	if err := c.Write(ctx, "dest.xlsx", model.ColumnRange("Extract_A", "C", 2, 2), model.Grid{{"007"}}, InputRaw); err != nil {
		t.Fatalf("Write(raw) error: %v", err)
	}
	raw, err := c.Read(ctx, "dest.xlsx", model.ColumnRange("Extract_A", "C", 2, 2), RenderFormatted)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(model.Grid{{"007"}}, raw); diff != "" {
		t.Errorf("raw write mismatch (-want +got):\n%s", diff)
	}

	if err := c.Clear(ctx, "dest.xlsx", r); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	cleared, err := c.Read(ctx, "dest.xlsx", r, RenderFormula)
	if err != nil {
		t.Fatal(err)
	}
	if len(cleared) != 0 {
		t.Errorf("after Clear, Read() = %v, want empty", cleared)
	}
}

func TestXLSX_BatchWriteAndSheets(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	newWorkbook(t, root, "dest.xlsx", "Master_A", "Master_Meta")
	c := NewXLSXClient(root)

	err := c.BatchWrite(ctx, "dest.xlsx", []Update{
		{Range: model.ColumnRange("Master_A", "A", 1, 2), Values: model.Grid{{"item"}, {"apple"}}},
		{Range: model.ColumnRange("Master_Meta", "B", 2, 2), Values: model.Grid{{"H"}}},
	}, InputRaw)
	if err != nil {
		t.Fatalf("BatchWrite() error: %v", err)
	}

	infos, err := c.Sheets(ctx, "dest.xlsx")
	if err != nil {
		t.Fatalf("Sheets() error: %v", err)
	}
	want := []model.SheetInfo{
		{ID: 0, Title: "Master_A", RowCount: 2, ColumnCount: 1},
		{ID: 1, Title: "Master_Meta", RowCount: 2, ColumnCount: 2},
	}
	if diff := cmp.Diff(want, infos); diff != "" {
		t.Errorf("Sheets() mismatch (-want +got):\n%s", diff)
	}
}

func TestXLSX_CopyValues(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	newWorkbook(t, root, "dest.xlsx", "Master_A")
	c := NewXLSXClient(root)

	col := model.ColumnRange("Master_A", "B", 1, 3)
	if err := c.Write(ctx, "dest.xlsx", col, model.Grid{{"2024-01-08"}, {"=2*3"}, {"5"}}, InputUserEntered); err != nil {
		t.Fatal(err)
	}

	// Rows 2..3 of column B, zero-based half-open.
	if err := c.CopyValues(ctx, "dest.xlsx", GridRange{SheetID: 0, StartRow: 1, EndRow: 3, StartColumn: 1, EndColumn: 2}); err != nil {
		t.Fatalf("CopyValues() error: %v", err)
	}

	got, err := c.Read(ctx, "dest.xlsx", col, RenderFormula)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(model.Grid{{"2024-01-08"}, {"6"}, {"5"}}, got); diff != "" {
		t.Errorf("after CopyValues (-want +got):\n%s", diff)
	}
}

func TestXLSX_MissingTab(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	newWorkbook(t, root, "dest.xlsx", "Extract_A")
	c := NewXLSXClient(root)

	r := model.ColumnRange("Extract_B", "A", 1, 1)
	for _, tc := range []struct {
		name string
		call func() error
	}{
		{"Read", func() error { _, err := c.Read(ctx, "dest.xlsx", r, RenderFormatted); return err }},
		{"Write", func() error { return c.Write(ctx, "dest.xlsx", r, model.Grid{{"x"}}, InputRaw) }},
		{"Clear", func() error { return c.Clear(ctx, "dest.xlsx", r) }},
		{"CopyValues", func() error {
			return c.CopyValues(ctx, "dest.xlsx", GridRange{Sheet: "Extract_B", EndRow: 1, EndColumn: 1})
		}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.call()
			if !errors.Is(err, ErrTabNotFound) {
				t.Errorf("error = %v, want ErrTabNotFound", err)
			}
		})
	}
}

func TestXLSX_EnsureColumns(t *testing.T) {
	c := NewXLSXClient(t.TempDir())
	info := model.SheetInfo{Title: "Master_A"}
	if err := c.EnsureColumns(context.Background(), "dest.xlsx", info, 30); err != nil {
		t.Errorf("EnsureColumns(30) error: %v", err)
	}
	if err := c.EnsureColumns(context.Background(), "dest.xlsx", info, maxColumns+1); err == nil {
		t.Error("expected error beyond the worksheet limit")
	}
}
