// Package idgen generates run identifiers: a date stamp followed by a short
// nanoid, so ids sort by day and stay unique within it.
package idgen

import (
	"fmt"
	"time"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// RunPrefix is prepended to every run id.
const RunPrefix = "run-"

// Alphabet defines the character set used for the random portion of the ID.
const Alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Length is the number of random characters generated.
const Length = 8

// stampLayout is the date part of a run id.
const stampLayout = "20060102"

// NewRunID returns an id such as "run-20240603-k3x9q2ab" for a run started
// at t. The date is taken in UTC.
func NewRunID(t time.Time) (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return RunPrefix + t.UTC().Format(stampLayout) + "-" + id, nil
}

// RunDate extracts the date stamp of a run id.
func RunDate(id string) (time.Time, error) {
	rest := id
	if len(rest) < len(RunPrefix) || rest[:len(RunPrefix)] != RunPrefix {
		return time.Time{}, fmt.Errorf("idgen: %q is not a run id", id)
	}
	rest = rest[len(RunPrefix):]
	if len(rest) < len(stampLayout) {
		return time.Time{}, fmt.Errorf("idgen: %q is not a run id", id)
	}
	return time.Parse(stampLayout, rest[:len(stampLayout)])
}
