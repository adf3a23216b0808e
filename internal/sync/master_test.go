package sync

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alfredjeanlab/sheetsync/internal/model"
	"github.com/alfredjeanlab/sheetsync/internal/sheets"
	"github.com/alfredjeanlab/sheetsync/internal/sheets/sheetstest"
)

func sheetInfo(t *testing.T, f *sheetstest.Fake, tab string) model.SheetInfo {
	t.Helper()
	infos, err := f.Sheets(context.Background(), destID)
	if err != nil {
		t.Fatalf("Sheets() error: %v", err)
	}
	info, err := sheets.FindSheet(infos, tab)
	if err != nil {
		t.Fatalf("FindSheet(%s) error: %v", tab, err)
	}
	return info
}

func loadedMeta(t *testing.T, f *sheetstest.Fake) *MetaStore {
	t.Helper()
	p, _ := testPolicy()
	s := NewMetaStore(f, p, testLogger(), testLayout())
	if err := s.Load(context.Background(), []string{"Master_A", "Master_B"}); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	return s
}

func TestWeekMonday(t *testing.T) {
	seoul, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		t.Skipf("no tz database: %v", err)
	}
	for _, tc := range []struct {
		in   time.Time
		loc  *time.Location
		want string
	}{
		{time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC), time.UTC, "2024-01-08"},
		{time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC), time.UTC, "2024-01-08"},
		{time.Date(2024, 1, 14, 23, 59, 0, 0, time.UTC), time.UTC, "2024-01-08"},
		// Sunday evening UTC is already Monday in Seoul.
		{time.Date(2024, 1, 14, 16, 0, 0, 0, time.UTC), seoul, "2024-01-15"},
	} {
		if got := WeekMonday(tc.in, tc.loc).Format(HeaderDateFormat); got != tc.want {
			t.Errorf("WeekMonday(%v, %s) = %s, want %s", tc.in, tc.loc, got, tc.want)
		}
	}
}

func TestSync_AppendsColumnAndSavesPointer(t *testing.T) {
	f := sheetstest.New()
	seed(f)
	f.Eval = func(_, formula string) string { return "v" + formula }
	p, _ := testPolicy()
	ms := NewMasterSync(f, p, testLogger(), destID, time.UTC, fixedNow)
	meta := loadedMeta(t, f)

	res, err := ms.Sync(context.Background(), meta, sheetInfo(t, f, "Master_A"), model.MasterOptions{ChunkSize: 1})
	if err != nil {
		t.Fatalf("Sync() error: %v", err)
	}
	if res.From != "B" || res.To != "C" || res.Header != "2024-01-08" || res.Chunks != 2 {
		t.Errorf("result = %+v", res)
	}
	if got := f.GetCell(destID, "Master_A", "C", 1).Value; got != "2024-01-08" {
		t.Errorf("C1 = %q", got)
	}
	for row, want := range map[int]string{2: "=1+1", 3: "=2+2"} {
		if got := f.GetCell(destID, "Master_A", "C", row); got.Formula != want {
			t.Errorf("C%d = %+v, want formula %s", row, got, want)
		}
	}
	// The source column keeps its formulas without inline freezing.
	if got := f.GetCell(destID, "Master_A", "B", 2); got.Formula != "=1+1" {
		t.Errorf("B2 = %+v, want formula kept", got)
	}
	if got := f.GetCell(destID, "Master_Meta", "B", 2).Value; got != "C" {
		t.Errorf("pointer = %q, want C", got)
	}
	if f.CallCount(sheetstest.OpEnsureColumns) != 1 {
		t.Errorf("EnsureColumns calls = %d, want 1", f.CallCount(sheetstest.OpEnsureColumns))
	}
}

func TestSync_FreezeInline(t *testing.T) {
	f := sheetstest.New()
	seed(f)
	p, _ := testPolicy()
	ms := NewMasterSync(f, p, testLogger(), destID, time.UTC, fixedNow)

	if _, err := ms.Sync(context.Background(), loadedMeta(t, f), sheetInfo(t, f, "Master_A"), model.MasterOptions{FreezeInline: true}); err != nil {
		t.Fatalf("Sync() error: %v", err)
	}
	if got := f.GetCell(destID, "Master_A", "B", 2); got.Formula != "" || got.Value != "2" {
		t.Errorf("B2 = %+v, want frozen value 2", got)
	}
	if got := f.GetCell(destID, "Master_A", "C", 2); got.Formula != "=1+1" {
		t.Errorf("C2 = %+v, want formula", got)
	}
}

func TestSync_FailedChunkKeepsPointer(t *testing.T) {
	f := sheetstest.New()
	seed(f)
	f.Hook = func(c sheetstest.Call) error {
		if c.Op == sheetstest.OpRead && strings.Contains(c.Range, "'Master_A'!B3") {
			return errors.New("backend error")
		}
		return nil
	}
	p, w := testPolicy()
	ms := NewMasterSync(f, p, testLogger(), destID, time.UTC, fixedNow)
	meta := loadedMeta(t, f)

	res, err := ms.Sync(context.Background(), meta, sheetInfo(t, f, "Master_A"), model.MasterOptions{ChunkSize: 1})
	if err == nil {
		t.Fatal("expected an error")
	}
	if IsFatal(err) {
		t.Errorf("transient failure classified as fatal: %v", err)
	}
	if res.Chunks != 1 || res.To != "B" {
		t.Errorf("result = %+v, want one chunk and pointer B", res)
	}
	if w.count() != 2 {
		t.Errorf("waits = %d, want 2", w.count())
	}
	if got := f.GetCell(destID, "Master_Meta", "B", 2).Value; got != "B" {
		t.Errorf("pointer = %q, want B", got)
	}
	if e, _ := meta.Get("Master_A"); e.Column != "B" {
		t.Errorf("cached pointer = %s, want B", e.Column)
	}
}

func TestSync_MissingMetaEntry(t *testing.T) {
	f := sheetstest.New()
	seed(f)
	f.SetRows(destID, "Master_Meta", model.Grid{{"tab", "last_date_col"}, {"Master_A", "B"}})
	p, w := testPolicy()
	ms := NewMasterSync(f, p, testLogger(), destID, time.UTC, fixedNow)
	f.ResetCalls()

	_, err := ms.Sync(context.Background(), loadedMeta(t, f), sheetInfo(t, f, "Master_B"), model.MasterOptions{})
	if !errors.Is(err, ErrMissingMetaEntry) {
		t.Fatalf("error = %v, want ErrMissingMetaEntry", err)
	}
	if f.CallCount(sheetstest.OpWrite) != 0 || w.count() != 0 {
		t.Error("missing meta entry should fail before writing or waiting")
	}
}

func TestAdvance_SkipsTabWithoutDataRows(t *testing.T) {
	f := sheetstest.New()
	f.SetRows(destID, "Master_A", model.Grid{{"name", "2024-01-01"}})
	p, _ := testPolicy()
	ms := NewMasterSync(f, p, testLogger(), destID, time.UTC, fixedNow)

	entry := model.MetaEntry{Tab: "Master_A", Column: "B", Row: 2}
	next, res, err := ms.Advance(context.Background(), sheetInfo(t, f, "Master_A"), entry, model.MasterOptions{})
	if err != nil {
		t.Fatalf("Advance() error: %v", err)
	}
	if !res.Skipped || next != entry {
		t.Errorf("Advance() = %+v, %+v, want skipped and unchanged", next, res)
	}
	if f.CallCount(sheetstest.OpWrite) != 0 {
		t.Error("skipped tab was written")
	}
}

func TestAdvance_MaxRows(t *testing.T) {
	f := sheetstest.New()
	f.SetRows(destID, "Master_A", model.Grid{{"h", "d"}, {"a", "1"}, {"b", "2"}, {"c", "3"}, {"d", "4"}})
	p, _ := testPolicy()
	ms := NewMasterSync(f, p, testLogger(), destID, time.UTC, fixedNow)

	_, res, err := ms.Advance(context.Background(), sheetInfo(t, f, "Master_A"), model.MetaEntry{Tab: "Master_A", Column: "B"}, model.MasterOptions{MaxRows: 3})
	if err != nil {
		t.Fatalf("Advance() error: %v", err)
	}
	if res.Rows != 3 {
		t.Errorf("rows = %d, want 3", res.Rows)
	}
	if got := f.GetCell(destID, "Master_A", "C", 3).Value; got != "2" {
		t.Errorf("C3 = %q, want 2", got)
	}
	if got := f.GetCell(destID, "Master_A", "C", 4).Value; got != "" {
		t.Errorf("C4 = %q, want untouched", got)
	}
}
