// Package events publishes run progress to an event bus so that other
// processes (sheetsync watch, dashboards) can follow a sync as it happens.
package events

import (
	"context"
	"time"

	"github.com/alfredjeanlab/sheetsync/internal/model"
)

// Event topics. All topics share the TopicPrefix so that "sheetsync.>"
// matches every event.
const (
	TopicPrefix = "sheetsync."

	TopicRunStarted     = "sheetsync.run.started"
	TopicRunFinished    = "sheetsync.run.finished"
	TopicUnitDone       = "sheetsync.unit.done"
	TopicUnitFailed     = "sheetsync.unit.failed"
	TopicMasterAdvanced = "sheetsync.master.advanced"

	// TopicAll subscribes to every sheetsync event.
	TopicAll = "sheetsync.>"
)

// Event types

type RunStarted struct {
	RunID   string        `json:"run_id"`
	Command string        `json:"command"`
	Mode    model.RunMode `json:"mode,omitempty"`
	Started time.Time     `json:"started"`
}

type RunFinished struct {
	RunID    string    `json:"run_id"`
	Command  string    `json:"command"`
	Finished time.Time `json:"finished"`
	OK       int       `json:"ok"`
	Failed   int       `json:"failed"`
	Skipped  int       `json:"skipped"`
	ExitCode int       `json:"exit_code"`
}

// UnitEvent is published on TopicUnitDone or TopicUnitFailed once a unit of
// work (one mapping, one tab) settles.
type UnitEvent struct {
	RunID  string           `json:"run_id"`
	Result model.UnitResult `json:"result"`
}

type MasterAdvanced struct {
	RunID  string       `json:"run_id"`
	Tab    string       `json:"tab"`
	From   model.Column `json:"from"`
	To     model.Column `json:"to"`
	Header string       `json:"header"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

// UnitTopic returns the topic a unit result is published on.
func UnitTopic(u model.UnitResult) string {
	if u.Status == model.StatusFailed {
		return TopicUnitFailed
	}
	return TopicUnitDone
}
