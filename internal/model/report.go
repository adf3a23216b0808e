package model

import "time"

// Phase identifies the stage a unit of work belongs to.
type Phase string

const (
	PhaseSetup       Phase = "setup"
	PhaseExtract     Phase = "extract"
	PhasePostprocess Phase = "postprocess"
	PhaseMaster      Phase = "master"
	PhaseFreeze      Phase = "freeze"
)

// Status is the outcome of a unit of work.
type Status string

const (
	StatusOK      Status = "ok"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// UnitResult records the outcome of one independent unit of work: one
// mapping, one postprocessed tab, one Master column or one frozen column.
type UnitResult struct {
	Phase    Phase         `json:"phase"`
	Unit     string        `json:"unit"`
	Status   Status        `json:"status"`
	Fatal    bool          `json:"fatal,omitempty"`
	Attempts int           `json:"attempts,omitempty"`
	Detail   string        `json:"detail,omitempty"`
	Error    string        `json:"error,omitempty"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
}

// RunReport summarizes one invocation.
type RunReport struct {
	ID       string       `json:"id"`
	Command  string       `json:"command"`
	Mode     RunMode      `json:"mode,omitempty"`
	Started  time.Time    `json:"started"`
	Finished time.Time    `json:"finished"`
	Units    []UnitResult `json:"units"`
}

// Add appends a unit result.
func (r *RunReport) Add(u UnitResult) {
	r.Units = append(r.Units, u)
}

// Count returns the number of units with the given status.
func (r *RunReport) Count(s Status) int {
	n := 0
	for _, u := range r.Units {
		if u.Status == s {
			n++
		}
	}
	return n
}

// HasFatal reports whether any unit failed with a non-retryable error.
func (r *RunReport) HasFatal() bool {
	for _, u := range r.Units {
		if u.Status == StatusFailed && u.Fatal {
			return true
		}
	}
	return false
}

// ExitCode maps the report to a process exit status: 2 when a non-retryable
// failure occurred, 1 when a unit failed after exhausting retries, 0 otherwise.
func (r *RunReport) ExitCode() int {
	if r.HasFatal() {
		return 2
	}
	if r.Count(StatusFailed) > 0 {
		return 1
	}
	return 0
}
