package sync

import (
	"context"
	"io"
	"log/slog"
	gosync "sync"
	"time"

	"github.com/alfredjeanlab/sheetsync/internal/model"
	"github.com/alfredjeanlab/sheetsync/internal/retry"
	"github.com/alfredjeanlab/sheetsync/internal/sheets/sheetstest"
)

const destID = "dest"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// waits records the delays the retry policy asked for without sleeping.
type waits struct {
	mu     gosync.Mutex
	delays []time.Duration
}

func (w *waits) sleep(_ context.Context, d time.Duration) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.delays = append(w.delays, d)
	return nil
}

func (w *waits) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.delays)
}

// testPolicy is the production policy with recorded, instant waits.
func testPolicy() (retry.Policy, *waits) {
	w := &waits{}
	p := retry.New(Classify)
	p.Sleep = w.sleep
	return p, w
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     gosync.Mutex
	topics []string
	events []any
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) count(topic string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, t := range p.topics {
		if t == topic {
			n++
		}
	}
	return n
}

func sourceRange() model.Range {
	return model.Range{Sheet: "시트1", StartCol: "B", EndCol: "D"}
}

func targetRange() model.Range {
	return model.Range{StartCol: "A", EndCol: "C"}
}

// testLayout describes two extract tabs and two Master tabs fed by them.
func testLayout() model.Layout {
	return model.Layout{
		FolderID:      "folder",
		SpreadsheetID: destID,
		SourceRange:   sourceRange(),
		TargetRange:   targetRange(),
		Mappings: []model.Mapping{
			{Prefix: "경쟁사A_", TargetTab: "Extract_A"},
			{Prefix: "경쟁사B_", TargetTab: "Extract_B"},
		},
		MasterTabs: []model.MasterTab{
			{Tab: "Master_A", SourceTab: "Extract_A"},
			{Tab: "Master_B", SourceTab: "Extract_B"},
		},
		MetaSheet: "Master_Meta",
		MetaRange: model.Range{StartCol: "A", EndCol: "B"},
		Location:  time.UTC,
	}
}

// seed fills fake with the documents and tabs of testLayout.
func seed(f *sheetstest.Fake) {
	f.AddFile("folder", model.SourceDocument{ID: "a-old", Name: "경쟁사A_240101", ModifiedTime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)})
	f.AddFile("folder", model.SourceDocument{ID: "a-new", Name: "경쟁사A_240108", ModifiedTime: time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)})
	f.AddFile("folder", model.SourceDocument{ID: "b-1", Name: "경쟁사B_240108", ModifiedTime: time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)})

	f.SetRows("a-old", "시트1", model.Grid{{"", "stale", "stale", "stale"}})
	f.SetRows("a-new", "시트1", model.Grid{{"x", "이름", "요금", "가입"}, {"x", "a1", "", "a3"}})
	f.SetRows("b-1", "시트1", model.Grid{{"", "이름", "요금", "가입"}, {"", "b1", "b2", "b3"}})

	f.AddTab(destID, "Extract_A")
	f.AddTab(destID, "Extract_B")
	f.SetRows(destID, "Master_A", model.Grid{
		{"name", "2024-01-01"},
		{"r2", "=1+1"},
		{"r3", "=2+2"},
	})
	f.SetCell(destID, "Master_A", "B", 2, sheetstest.Cell{Value: "2", Formula: "=1+1"})
	f.SetCell(destID, "Master_A", "B", 3, sheetstest.Cell{Value: "4", Formula: "=2+2"})
	f.SetRows(destID, "Master_B", model.Grid{
		{"name", "2024-01-01"},
		{"r2", "=3+3"},
	})
	f.SetCell(destID, "Master_B", "B", 2, sheetstest.Cell{Value: "6", Formula: "=3+3"})
	f.SetRows(destID, "Master_Meta", model.Grid{
		{"tab", "last_date_col"},
		{"Master_A", "B"},
		{"Master_B", "B"},
	})
}

// fixedNow is a Wednesday; its week starts on 2024-01-08.
func fixedNow() time.Time {
	return time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC)
}
