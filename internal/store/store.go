// Package store defines the run ledger: a history of sync runs and the
// result of every unit of work they attempted.
package store

import (
	"context"
	"errors"

	"github.com/alfredjeanlab/sheetsync/internal/model"
)

// ErrRunNotFound is returned by GetRun for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

// RunFilter narrows ListRuns.
type RunFilter struct {
	Command string // empty matches every command
	Limit   int    // 0 uses DefaultRunLimit
}

// DefaultRunLimit is the page size of ListRuns when the filter sets none.
const DefaultRunLimit = 20

// Store defines the persistence interface for run history.
type Store interface {
	// RecordRun stores a finished run and its unit results atomically.
	RecordRun(ctx context.Context, report *model.RunReport) error
	// ListRuns returns runs newest first, without their unit results.
	ListRuns(ctx context.Context, filter RunFilter) ([]*model.RunReport, error)
	// GetRun returns one run with its unit results in execution order.
	GetRun(ctx context.Context, id string) (*model.RunReport, error)

	// Lifecycle
	Close() error
}
