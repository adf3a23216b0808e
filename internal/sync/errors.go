package sync

import (
	"context"
	"errors"

	"github.com/alfredjeanlab/sheetsync/internal/retry"
	"github.com/alfredjeanlab/sheetsync/internal/sheets"
)

var (
	// ErrNoSource is returned when no document in the folder matches a prefix.
	ErrNoSource = errors.New("no source document matches prefix")
	// ErrMissingMetaEntry is returned when a Master tab has no Master_Meta entry.
	ErrMissingMetaEntry = errors.New("master meta entry missing")
	// ErrInvalidMetaEntry is returned when a Master_Meta entry is not a column letter.
	ErrInvalidMetaEntry = errors.New("master meta entry invalid")
	// ErrStaleSource is returned when a Master tab's extract tab failed to
	// refresh earlier in the same run.
	ErrStaleSource = errors.New("master source tab was not refreshed")
	// ErrSourceTab is returned when a source document lacks the configured
	// tab. It is retried like any other source failure.
	ErrSourceTab = errors.New("source tab not found")
)

// Classify sorts errors for the retry policy: configuration and lookup
// failures are fatal, everything else a remote call returns is retryable.
func Classify(err error) retry.Class {
	switch {
	case errors.Is(err, sheets.ErrTabNotFound),
		errors.Is(err, ErrNoSource),
		errors.Is(err, ErrMissingMetaEntry),
		errors.Is(err, ErrInvalidMetaEntry),
		errors.Is(err, ErrStaleSource),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return retry.Fatal
	}
	return retry.Retryable
}
