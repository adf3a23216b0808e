// Package sync implements the sheetsync engine: selecting source documents,
// replacing extract tabs, correcting their rows, appending Master columns and
// freezing finished ones, with every unit of work reported in a RunReport.
package sync

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alfredjeanlab/sheetsync/internal/events"
	"github.com/alfredjeanlab/sheetsync/internal/idgen"
	"github.com/alfredjeanlab/sheetsync/internal/model"
	"github.com/alfredjeanlab/sheetsync/internal/retry"
	"github.com/alfredjeanlab/sheetsync/internal/sheets"
	"github.com/alfredjeanlab/sheetsync/internal/store"
)

// Commands recorded in run reports.
const (
	CommandRun         = "run"
	CommandPostprocess = "postprocess"
	CommandFreeze      = "freeze"
)

// Config wires an Engine. Client and Layout are required; everything else
// has a usable zero value.
type Config struct {
	Client       sheets.Client
	Layout       model.Layout
	Run          model.RunConfig
	Retry        retry.Policy
	Rules        []Rule
	Publisher    events.Publisher
	Store        store.Store
	Destinations []Destination
	Logger       *slog.Logger
	Now          func() time.Time
}

// Engine runs the sync phases sequentially: mappings, tabs and chunks are
// processed one at a time in configuration order.
type Engine struct {
	client       sheets.Client
	layout       model.Layout
	run          model.RunConfig
	retry        retry.Policy
	rules        []Rule
	publisher    events.Publisher
	store        store.Store
	destinations []Destination
	logger       *slog.Logger
	now          func() time.Time
}

// New creates an Engine. A zero Retry uses the default policy with Classify.
func New(cfg Config) *Engine {
	e := &Engine{
		client:       cfg.Client,
		layout:       cfg.Layout,
		run:          cfg.Run,
		retry:        cfg.Retry,
		rules:        cfg.Rules,
		publisher:    cfg.Publisher,
		store:        cfg.Store,
		destinations: cfg.Destinations,
		logger:       cfg.Logger,
		now:          cfg.Now,
	}
	if e.retry.Attempts == 0 {
		e.retry = retry.New(Classify)
	}
	if e.retry.Classify == nil {
		e.retry.Classify = Classify
	}
	if e.publisher == nil {
		e.publisher = &events.NoopPublisher{}
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.layout.Location == nil {
		e.layout.Location = time.UTC
	}
	e.retry.OnRetry = e.logRetry(e.retry.OnRetry)
	return e
}

func (e *Engine) logRetry(next func(int, error)) func(int, error) {
	return func(attempt int, err error) {
		e.logger.Warn("remote call failed, retrying", "attempt", attempt, "max", e.retry.Attempts, "delay", e.retry.Delay, "err", err)
		if next != nil {
			next(attempt, err)
		}
	}
}

// run tracks one invocation.
type run struct {
	e      *Engine
	report *model.RunReport
}

func (e *Engine) begin(ctx context.Context, command string, mode model.RunMode) *run {
	started := e.now()
	id, err := idgen.NewRunID(started)
	if err != nil {
		id = fmt.Sprintf("run-%d", started.UnixNano())
	}
	r := &run{e: e, report: &model.RunReport{ID: id, Command: command, Mode: mode, Started: started}}
	e.logger.Info("run started", "run", id, "command", command, "mode", mode)
	e.publish(ctx, events.TopicRunStarted, events.RunStarted{RunID: id, Command: command, Mode: mode, Started: started})
	return r
}

// unit runs fn as one reported unit of work and returns its error.
func (r *run) unit(ctx context.Context, phase model.Phase, name string, fn func(u *model.UnitResult) error) error {
	u := model.UnitResult{Phase: phase, Unit: name, Started: r.e.now()}
	err := fn(&u)
	u.Duration = r.e.now().Sub(u.Started)
	switch {
	case err != nil:
		u.Status = model.StatusFailed
		u.Error = err.Error()
		u.Fatal = Classify(err) == retry.Fatal
		r.e.logger.Error("unit failed", "phase", phase, "unit", name, "attempts", u.Attempts, "fatal", u.Fatal, "err", err)
	case u.Status == "":
		u.Status = model.StatusOK
		r.e.logger.Info("unit done", "phase", phase, "unit", name, "detail", u.Detail)
	default:
		r.e.logger.Info("unit "+string(u.Status), "phase", phase, "unit", name, "detail", u.Detail)
	}
	r.report.Add(u)
	r.e.publish(ctx, events.UnitTopic(u), events.UnitEvent{RunID: r.report.ID, Result: u})
	return err
}

// fail records a unit that could not start.
func (r *run) fail(ctx context.Context, phase model.Phase, name string, err error) {
	_ = r.unit(ctx, phase, name, func(*model.UnitResult) error { return err })
}

func (r *run) skip(ctx context.Context, phase model.Phase, name, detail string) {
	_ = r.unit(ctx, phase, name, func(u *model.UnitResult) error {
		u.Status = model.StatusSkipped
		u.Detail = detail
		return nil
	})
}

// finish stamps the report and hands it to the ledger, the report
// destinations and the event bus. Failures there are logged; they never
// change the outcome of the run.
func (r *run) finish(ctx context.Context) *model.RunReport {
	e, rep := r.e, r.report
	rep.Finished = e.now()

	// Delivery uses a fresh context so a cancelled run is still recorded.
	dctx := context.WithoutCancel(ctx)
	if e.store != nil {
		if err := e.store.RecordRun(dctx, rep); err != nil {
			e.logger.Error("record run failed", "run", rep.ID, "err", err)
		}
	}
	if len(e.destinations) > 0 {
		var buf bytes.Buffer
		if err := ExportJSONL(rep, &buf); err != nil {
			e.logger.Error("report export failed", "run", rep.ID, "err", err)
		} else {
			for i, dest := range e.destinations {
				if err := dest.Write(dctx, rep.ID, buf.Bytes()); err != nil {
					e.logger.Error("report destination write failed", "destination", i, "err", err)
				}
			}
		}
	}

	e.publish(dctx, events.TopicRunFinished, events.RunFinished{
		RunID:    rep.ID,
		Command:  rep.Command,
		Finished: rep.Finished,
		OK:       rep.Count(model.StatusOK),
		Failed:   rep.Count(model.StatusFailed),
		Skipped:  rep.Count(model.StatusSkipped),
		ExitCode: rep.ExitCode(),
	})
	e.logger.Info("run finished", "run", rep.ID,
		"ok", rep.Count(model.StatusOK), "failed", rep.Count(model.StatusFailed),
		"skipped", rep.Count(model.StatusSkipped), "exit", rep.ExitCode())
	return rep
}

func (e *Engine) publish(ctx context.Context, topic string, event any) {
	if err := e.publisher.Publish(ctx, topic, event); err != nil {
		e.logger.Warn("publish event failed", "topic", topic, "err", err)
	}
}

// Run executes the phases selected by the run mode: extract and postprocess
// for every mapping, then Master columns for every Master tab. In mode both
// the extract phase settles for all mappings before the Master phase starts.
func (e *Engine) Run(ctx context.Context) *model.RunReport {
	r := e.begin(ctx, CommandRun, e.run.Mode)
	failed := make(map[string]bool)

	if e.run.Mode.Extract() {
		if e.run.SkipExtract {
			e.logger.Info("extract skipped by configuration")
		} else {
			for tab := range e.extractPhase(ctx, r) {
				failed[tab] = true
			}
		}
		if e.run.SkipPostprocess {
			e.logger.Info("postprocess skipped by configuration")
		} else {
			e.postprocessPhase(ctx, r, failed)
		}
	}
	if e.run.Mode.Master() {
		e.masterPhase(ctx, r, failed)
	}
	return r.finish(ctx)
}

// Postprocess runs only the postprocess phase.
func (e *Engine) Postprocess(ctx context.Context) *model.RunReport {
	r := e.begin(ctx, CommandPostprocess, "")
	e.postprocessPhase(ctx, r, nil)
	return r.finish(ctx)
}

// Freeze converts the column before each selected Master pointer to values.
func (e *Engine) Freeze(ctx context.Context) *model.RunReport {
	r := e.begin(ctx, CommandFreeze, "")
	e.freezePhase(ctx, r)
	return r.finish(ctx)
}

// Pointers reads the current Master pointer of every Master tab.
func (e *Engine) Pointers(ctx context.Context) ([]model.MetaEntry, error) {
	tabs := e.masterTabNames("")
	meta := NewMetaStore(e.client, e.retry, e.logger, e.layout)
	if err := meta.Load(ctx, tabs); err != nil {
		return nil, err
	}
	return meta.Entries(tabs), nil
}

// extractPhase returns the extract tabs that were not refreshed.
func (e *Engine) extractPhase(ctx context.Context, r *run) map[string]bool {
	failed := make(map[string]bool)
	if len(e.layout.Mappings) == 0 {
		return failed
	}

	var docs []model.SourceDocument
	_, err := e.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		docs, err = e.client.ListFiles(ctx, e.layout.FolderID)
		return err
	})
	if err != nil {
		r.fail(ctx, model.PhaseExtract, "list "+e.layout.FolderID, fmt.Errorf("list source documents: %w", err))
		for _, m := range e.layout.Mappings {
			failed[m.TargetTab] = true
		}
		return failed
	}
	e.logger.Info("source documents listed", "folder", e.layout.FolderID, "count", len(docs))

	x := NewExtractor(e.client, e.retry, e.logger, e.layout.SpreadsheetID, e.layout.SourceRange, e.layout.TargetRange)
	for _, m := range e.layout.Mappings {
		err := r.unit(ctx, model.PhaseExtract, m.TargetTab, func(u *model.UnitResult) error {
			sel, err := SelectSource(docs, m, e.layout.PreferNameTimestamp)
			if err != nil {
				return err
			}
			e.logger.Info("source selected", "prefix", m.Prefix, "tab", m.TargetTab, "source", sel.Document.Name, "reason", sel.Reason)
			res, err := x.Extract(ctx, sel.Document, m)
			u.Attempts = res.Attempts
			if err != nil {
				return err
			}
			u.Detail = fmt.Sprintf("source=%s rows=%d", sel.Document.Name, res.Rows)
			return nil
		})
		if err != nil {
			failed[m.TargetTab] = true
		}
	}
	return failed
}

// postprocessPhase corrects every extract tab, or the only-tab selection.
// Tabs whose extract failed in this run are skipped.
func (e *Engine) postprocessPhase(ctx context.Context, r *run, failed map[string]bool) {
	opts := e.run.Postprocess
	p := NewPostprocessor(e.client, e.retry, e.logger, e.layout.SpreadsheetID, e.rules)

	var tabs []string
	if opts.OnlyTab != "" {
		tabs = []string{opts.OnlyTab}
	} else {
		for _, m := range e.layout.Mappings {
			tabs = append(tabs, m.TargetTab)
		}
	}
	for _, tab := range tabs {
		if failed[tab] {
			r.skip(ctx, model.PhasePostprocess, tab, "extract failed")
			continue
		}
		_ = r.unit(ctx, model.PhasePostprocess, tab, func(u *model.UnitResult) error {
			res, err := p.Process(ctx, tab, opts)
			u.Attempts = res.Attempts
			u.Detail = fmt.Sprintf("rows=[%d,%d) chunks=%d patches=%d", res.Start, res.End, res.Chunks, res.Patches)
			return err
		})
	}
}

func (e *Engine) masterTabNames(only string) []string {
	var tabs []string
	for _, mt := range e.layout.MasterTabs {
		if only == "" || mt.Tab == only {
			tabs = append(tabs, mt.Tab)
		}
	}
	return tabs
}

// setup loads the destination tab list and the Master pointers of tabs.
func (e *Engine) setup(ctx context.Context, r *run, phase model.Phase, tabs []string) ([]model.SheetInfo, *MetaStore, bool) {
	var infos []model.SheetInfo
	_, err := e.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		infos, err = e.client.Sheets(ctx, e.layout.SpreadsheetID)
		return err
	})
	if err != nil {
		r.fail(ctx, phase, "sheets", fmt.Errorf("list destination tabs: %w", err))
		return nil, nil, false
	}
	meta := NewMetaStore(e.client, e.retry, e.logger, e.layout)
	if err := meta.Load(ctx, tabs); err != nil {
		r.fail(ctx, phase, e.layout.MetaSheet, err)
		return nil, nil, false
	}
	return infos, meta, true
}

func (e *Engine) masterPhase(ctx context.Context, r *run, failed map[string]bool) {
	opts := e.run.Master
	tabs := e.masterTabNames(opts.OnlyTab)
	if len(tabs) == 0 {
		return
	}
	infos, meta, ok := e.setup(ctx, r, model.PhaseMaster, tabs)
	if !ok {
		return
	}

	ms := NewMasterSync(e.client, e.retry, e.logger, e.layout.SpreadsheetID, e.layout.Location, e.now)
	for _, tab := range tabs {
		mt, _ := e.layout.MasterTab(tab)
		_ = r.unit(ctx, model.PhaseMaster, tab, func(u *model.UnitResult) error {
			if mt.SourceTab != "" && failed[mt.SourceTab] {
				return fmt.Errorf("%w: %s", ErrStaleSource, mt.SourceTab)
			}
			info, err := sheets.FindSheet(infos, tab)
			if err != nil {
				return err
			}
			res, err := ms.Sync(ctx, meta, info, opts)
			u.Attempts = res.Attempts
			if err != nil {
				return err
			}
			if res.Skipped {
				u.Status = model.StatusSkipped
				u.Detail = "no data rows"
				return nil
			}
			u.Detail = fmt.Sprintf("column=%s->%s header=%s rows=%d", res.From, res.To, res.Header, res.Rows)
			e.publish(ctx, events.TopicMasterAdvanced, events.MasterAdvanced{
				RunID: r.report.ID, Tab: tab, From: res.From, To: res.To, Header: res.Header,
			})
			return nil
		})
	}
}

func (e *Engine) freezePhase(ctx context.Context, r *run) {
	opts := e.run.Freeze
	tabs := e.masterTabNames(opts.OnlyTab)
	if len(tabs) == 0 {
		return
	}

	var (
		infos []model.SheetInfo
		meta  *MetaStore
	)
	if opts.LastCol != "" {
		_, err := e.retry.Do(ctx, func(ctx context.Context) error {
			var err error
			infos, err = e.client.Sheets(ctx, e.layout.SpreadsheetID)
			return err
		})
		if err != nil {
			r.fail(ctx, model.PhaseFreeze, "sheets", fmt.Errorf("list destination tabs: %w", err))
			return
		}
	} else {
		var ok bool
		if infos, meta, ok = e.setup(ctx, r, model.PhaseFreeze, tabs); !ok {
			return
		}
	}

	f := NewFreezer(e.client, e.retry, e.logger, e.layout.SpreadsheetID)
	for _, tab := range tabs {
		_ = r.unit(ctx, model.PhaseFreeze, tab, func(u *model.UnitResult) error {
			info, err := sheets.FindSheet(infos, tab)
			if err != nil {
				return err
			}
			pointer := opts.LastCol
			if pointer == "" {
				entry, err := meta.Get(tab)
				if err != nil {
					return err
				}
				pointer = entry.Column
			}
			col, ok := FreezeTarget(pointer)
			if !ok {
				u.Status = model.StatusSkipped
				u.Detail = fmt.Sprintf("pointer %s has no previous column", pointer)
				return nil
			}
			res, err := f.Freeze(ctx, info, col, opts)
			u.Attempts = res.Attempts
			if err != nil {
				return err
			}
			if res.Skipped {
				u.Status = model.StatusSkipped
				u.Detail = "no data rows"
				return nil
			}
			u.Detail = fmt.Sprintf("column=%s rows=%d chunks=%d", col, res.Rows, res.Chunks)
			return nil
		})
	}
}

// IsFatal reports whether err is a non-retryable failure.
func IsFatal(err error) bool {
	return err != nil && Classify(err) == retry.Fatal
}
