package config

import (
	"fmt"

	"github.com/alfredjeanlab/sheetsync/internal/model"
)

// ValidateRun checks run parameters against the layout before any remote
// call is made.
func ValidateRun(run model.RunConfig, layout model.Layout) error {
	var ve model.ValidationError

	if !run.Mode.IsValid() {
		ve.Add("run_mode", fmt.Sprintf("invalid mode %q", run.Mode))
	}

	pp := run.Postprocess
	if pp.ChunkSize < 1 {
		ve.Add("postprocess_chunk_size", "must be positive")
	}
	if pp.MaxRows < 0 {
		ve.Add("postprocess_max_rows", "must not be negative")
	}
	if pp.StartRow < 1 {
		ve.Add("postprocess_start_row", "must be at least 1")
	}
	if pp.EndRow < 0 || (pp.EndRow > 0 && pp.EndRow <= pp.StartRow) {
		ve.Add("postprocess_end_row", fmt.Sprintf("must be 0 or greater than start row %d", pp.StartRow))
	}
	if pp.OnlyTab != "" {
		if _, ok := layout.MappingForTab(pp.OnlyTab); !ok {
			ve.Add("postprocess_only_tab", fmt.Sprintf("%q is not an extract tab", pp.OnlyTab))
		}
	}

	if run.Master.MaxRows < 0 {
		ve.Add("master_max_rows", "must not be negative")
	}
	if run.Master.ChunkSize < 0 {
		ve.Add("master_chunk_size", "must not be negative")
	}
	if run.Master.OnlyTab != "" {
		if _, ok := layout.MasterTab(run.Master.OnlyTab); !ok {
			ve.Add("master_only_tab", fmt.Sprintf("%q is not a master tab", run.Master.OnlyTab))
		}
	}

	fr := run.Freeze
	if fr.MaxRows < 0 {
		ve.Add("freeze_max_rows", "must not be negative")
	}
	if fr.ChunkSize < 0 {
		ve.Add("freeze_chunk_size", "must not be negative")
	}
	if fr.OnlyTab != "" {
		if _, ok := layout.MasterTab(fr.OnlyTab); !ok {
			ve.Add("freeze_only_tab", fmt.Sprintf("%q is not a master tab", fr.OnlyTab))
		}
	}
	if fr.LastCol != "" && fr.OnlyTab == "" && len(layout.MasterTabs) != 1 {
		ve.Add("freeze_last_col", "requires freeze_only_tab when more than one master tab is configured")
	}

	return ve.Err()
}
