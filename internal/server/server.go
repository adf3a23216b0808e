// Package server exposes the state of a long-running sheetsync process over
// HTTP: the latest run, the run ledger and the current Master pointers.
package server

import (
	"context"
	"log/slog"
	"sync"

	"github.com/alfredjeanlab/sheetsync/internal/model"
	"github.com/alfredjeanlab/sheetsync/internal/store"
)

// PointerSource reads the current Master pointers.
type PointerSource interface {
	Pointers(ctx context.Context) ([]model.MetaEntry, error)
}

// StatusServer serves run status. The ledger is optional.
type StatusServer struct {
	ledger   store.Store
	pointers PointerSource
	logger   *slog.Logger

	mu      sync.RWMutex
	latest  *model.RunReport
	running bool
}

// NewStatusServer returns a StatusServer. ledger may be nil.
func NewStatusServer(ledger store.Store, pointers PointerSource, logger *slog.Logger) *StatusServer {
	return &StatusServer{
		ledger:   ledger,
		pointers: pointers,
		logger:   logger,
	}
}

// Track wraps a run function so the server sees each run start and finish.
func (s *StatusServer) Track(run func(ctx context.Context) *model.RunReport) func(ctx context.Context) *model.RunReport {
	return func(ctx context.Context) *model.RunReport {
		s.mu.Lock()
		s.running = true
		s.mu.Unlock()

		rep := run(ctx)

		s.mu.Lock()
		s.running = false
		if rep != nil {
			s.latest = rep
		}
		s.mu.Unlock()
		return rep
	}
}

// Latest returns the most recent finished run, or nil before the first one.
func (s *StatusServer) Latest() (*model.RunReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.running
}

func failedUnits(rep *model.RunReport) []model.UnitResult {
	var out []model.UnitResult
	for _, u := range rep.Units {
		if u.Status == model.StatusFailed {
			out = append(out, u)
		}
	}
	return out
}
