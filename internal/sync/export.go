package sync

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/alfredjeanlab/sheetsync/internal/model"
)

// header is the first JSONL record written by ExportJSONL.
type header struct {
	Version  string        `json:"version"`
	Type     string        `json:"type"`
	RunID    string        `json:"run_id"`
	Command  string        `json:"command"`
	Mode     model.RunMode `json:"mode,omitempty"`
	Started  string        `json:"started"`
	Finished string        `json:"finished"`
	Units    int           `json:"unit_count"`
	ExitCode int           `json:"exit_code"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ExportJSONL writes rep as JSONL: a header line followed by one line per
// unit in execution order.
func ExportJSONL(rep *model.RunReport, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:  "1",
		Type:     "header",
		RunID:    rep.ID,
		Command:  rep.Command,
		Mode:     rep.Mode,
		Started:  rep.Started.UTC().Format(timeFormat),
		Finished: rep.Finished.UTC().Format(timeFormat),
		Units:    len(rep.Units),
		ExitCode: rep.ExitCode(),
	}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	for _, u := range rep.Units {
		if err := enc.Encode(record{Type: "unit", Data: u}); err != nil {
			return fmt.Errorf("encode unit %s/%s: %w", u.Phase, u.Unit, err)
		}
	}
	return nil
}

const timeFormat = "2006-01-02T15:04:05.000Z"
