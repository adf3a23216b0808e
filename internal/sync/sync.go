package sync

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/alfredjeanlab/sheetsync/internal/model"
)

// Destination receives the exported report of every finished run.
type Destination interface {
	// Write delivers the JSONL report of run id.
	Write(ctx context.Context, id string, data []byte) error
}

// RunFunc performs one sync run.
type RunFunc func(ctx context.Context) *model.RunReport

// Scheduler runs a RunFunc periodically. Runs never overlap: a tick that
// arrives while a run is in progress is dropped.
type Scheduler struct {
	run      RunFunc
	interval time.Duration
	logger   *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler that calls run at the given interval.
func NewScheduler(run RunFunc, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		run:      run,
		interval: interval,
		logger:   logger,
	}
}

// Start begins periodic runs. It runs once immediately, then on each tick.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop(ctx)
	}()
}

// Stop cancels the scheduler and waits for the current run (if any) to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context) {
	s.once(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.once(ctx)
		}
	}
}

func (s *Scheduler) once(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	rep := s.run(ctx)
	if rep == nil {
		return
	}
	s.logger.Info("scheduled run completed", "run", rep.ID, "exit", rep.ExitCode(),
		"failed", rep.Count(model.StatusFailed), "next", time.Now().Add(s.interval).Format(time.RFC3339))
}
