package sync

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alfredjeanlab/sheetsync/internal/model"
)

func TestSchedulerStartStop(t *testing.T) {
	var runs atomic.Int64
	run := func(context.Context) *model.RunReport {
		runs.Add(1)
		return &model.RunReport{ID: "run-test"}
	}

	sched := NewScheduler(run, 50*time.Millisecond, testLogger())
	sched.Start(context.Background())

	// Wait for at least the initial run + one tick.
	time.Sleep(120 * time.Millisecond)
	sched.Stop()

	if n := runs.Load(); n < 2 {
		t.Fatalf("expected at least 2 runs, got %d", n)
	}
}

func TestSchedulerStop_NoStart(t *testing.T) {
	sched := NewScheduler(func(context.Context) *model.RunReport { return nil }, time.Minute, testLogger())
	// Stop without Start should not panic.
	sched.Stop()
}

func TestSchedulerRunsDoNotOverlap(t *testing.T) {
	var active, maxActive, runs atomic.Int64
	run := func(ctx context.Context) *model.RunReport {
		n := active.Add(1)
		defer active.Add(-1)
		for {
			m := maxActive.Load()
			if n <= m || maxActive.CompareAndSwap(m, n) {
				break
			}
		}
		runs.Add(1)
		// Longer than the interval, so ticks arrive mid-run.
		select {
		case <-time.After(40 * time.Millisecond):
		case <-ctx.Done():
		}
		return &model.RunReport{}
	}

	sched := NewScheduler(run, 10*time.Millisecond, testLogger())
	sched.Start(context.Background())
	time.Sleep(150 * time.Millisecond)
	sched.Stop()

	if maxActive.Load() != 1 {
		t.Errorf("max concurrent runs = %d, want 1", maxActive.Load())
	}
	if runs.Load() < 2 {
		t.Errorf("runs = %d, want at least 2", runs.Load())
	}
}

func TestSchedulerStopCancelsRun(t *testing.T) {
	started := make(chan struct{})
	var cancelled atomic.Bool
	run := func(ctx context.Context) *model.RunReport {
		close(started)
		<-ctx.Done()
		cancelled.Store(true)
		return nil
	}

	sched := NewScheduler(run, time.Hour, testLogger())
	sched.Start(context.Background())
	<-started
	sched.Stop()

	if !cancelled.Load() {
		t.Error("Stop returned before the running sync saw cancellation")
	}
}
