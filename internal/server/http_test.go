package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alfredjeanlab/sheetsync/internal/model"
	"github.com/alfredjeanlab/sheetsync/internal/store"
)

type mockStore struct {
	runs    []*model.RunReport
	filter  store.RunFilter
	listErr error
}

func (m *mockStore) RecordRun(_ context.Context, r *model.RunReport) error {
	m.runs = append(m.runs, r)
	return nil
}

func (m *mockStore) ListRuns(_ context.Context, f store.RunFilter) ([]*model.RunReport, error) {
	m.filter = f
	return m.runs, m.listErr
}

func (m *mockStore) GetRun(_ context.Context, id string) (*model.RunReport, error) {
	for _, r := range m.runs {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, store.ErrRunNotFound
}

func (m *mockStore) Close() error { return nil }

type mockPointers struct {
	entries []model.MetaEntry
	err     error
}

func (m *mockPointers) Pointers(context.Context) ([]model.MetaEntry, error) {
	return m.entries, m.err
}

func newTestServer(ledger store.Store, p PointerSource) *StatusServer {
	return NewStatusServer(ledger, p, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func doRequest(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func TestHandleHealth(t *testing.T) {
	h := newTestServer(nil, &mockPointers{}).NewHTTPHandler("")
	rec := doRequest(t, h, http.MethodGet, "/v1/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestHandleStatus(t *testing.T) {
	s := newTestServer(nil, &mockPointers{})
	h := s.NewHTTPHandler("")

	var before StatusResponse
	decodeJSON(t, doRequest(t, h, http.MethodGet, "/v1/status"), &before)
	if before.LastRun != "" || before.Running {
		t.Errorf("status before any run = %+v", before)
	}

	run := s.Track(func(context.Context) *model.RunReport {
		if _, running := s.Latest(); !running {
			t.Error("expected running during the run")
		}
		return &model.RunReport{ID: "run-1", Units: []model.UnitResult{{Status: model.StatusFailed, Fatal: true}}}
	})
	run(context.Background())

	var after StatusResponse
	decodeJSON(t, doRequest(t, h, http.MethodGet, "/v1/status"), &after)
	if after.LastRun != "run-1" || after.ExitCode != 2 || after.Failed != 1 || after.Running {
		t.Errorf("status after run = %+v", after)
	}
}

func TestHandleListRuns(t *testing.T) {
	ledger := &mockStore{runs: []*model.RunReport{{ID: "run-2"}, {ID: "run-1"}}}
	h := newTestServer(ledger, &mockPointers{}).NewHTTPHandler("")

	rec := doRequest(t, h, http.MethodGet, "/v1/runs?command=run&limit=5")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var runs []*model.RunReport
	decodeJSON(t, rec, &runs)
	if len(runs) != 2 || runs[0].ID != "run-2" {
		t.Errorf("runs = %+v", runs)
	}
	if ledger.filter.Command != "run" || ledger.filter.Limit != 5 {
		t.Errorf("filter = %+v", ledger.filter)
	}

	if rec := doRequest(t, h, http.MethodGet, "/v1/runs?limit=x"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit: expected 400, got %d", rec.Code)
	}
	ledger.listErr = errors.New("db down")
	if rec := doRequest(t, h, http.MethodGet, "/v1/runs"); rec.Code != http.StatusInternalServerError {
		t.Errorf("ledger error: expected 500, got %d", rec.Code)
	}
}

func TestHandleRuns_NoLedger(t *testing.T) {
	h := newTestServer(nil, &mockPointers{}).NewHTTPHandler("")
	for _, path := range []string{"/v1/runs", "/v1/runs/run-1"} {
		if rec := doRequest(t, h, http.MethodGet, path); rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s: expected 503, got %d", path, rec.Code)
		}
	}
}

func TestHandleGetRun(t *testing.T) {
	ledger := &mockStore{runs: []*model.RunReport{{ID: "run-1", Command: "run"}}}
	h := newTestServer(ledger, &mockPointers{}).NewHTTPHandler("")

	rec := doRequest(t, h, http.MethodGet, "/v1/runs/run-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got model.RunReport
	decodeJSON(t, rec, &got)
	if got.ID != "run-1" || got.Command != "run" {
		t.Errorf("run = %+v", got)
	}

	if rec := doRequest(t, h, http.MethodGet, "/v1/runs/run-9"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown run: expected 404, got %d", rec.Code)
	}
}

func TestHandleGetRun_Latest(t *testing.T) {
	s := newTestServer(nil, &mockPointers{})
	h := s.NewHTTPHandler("")

	if rec := doRequest(t, h, http.MethodGet, "/v1/runs/latest"); rec.Code != http.StatusNotFound {
		t.Errorf("before any run: expected 404, got %d", rec.Code)
	}
	s.Track(func(context.Context) *model.RunReport { return &model.RunReport{ID: "run-7"} })(context.Background())

	rec := doRequest(t, h, http.MethodGet, "/v1/runs/latest")
	var got model.RunReport
	decodeJSON(t, rec, &got)
	if got.ID != "run-7" {
		t.Errorf("latest = %+v", got)
	}
}

func TestHandleGetPointers(t *testing.T) {
	p := &mockPointers{entries: []model.MetaEntry{{Tab: "Master_A", Column: "H", Row: 2}}}
	h := newTestServer(nil, p).NewHTTPHandler("")

	rec := doRequest(t, h, http.MethodGet, "/v1/pointers")
	var got []model.MetaEntry
	decodeJSON(t, rec, &got)
	if len(got) != 1 || got[0].Column != "H" {
		t.Errorf("pointers = %+v", got)
	}

	p.err = errors.New("quota")
	if rec := doRequest(t, h, http.MethodGet, "/v1/pointers"); rec.Code != http.StatusBadGateway {
		t.Errorf("pointer error: expected 502, got %d", rec.Code)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := RecoveryMiddleware(logger, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	if rec := doRequest(t, h, http.MethodGet, "/v1/status"); rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}
