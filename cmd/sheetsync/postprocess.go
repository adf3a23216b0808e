package main

import (
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/sheetsync/internal/model"
)

var postprocessCmd = &cobra.Command{
	Use:     "postprocess",
	Short:   "Apply row corrections to extract tabs",
	GroupID: "sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), func(run *model.RunConfig) error {
			flags := cmd.Flags()
			pp := &run.Postprocess
			if flags.Changed("only-tab") {
				pp.OnlyTab, _ = flags.GetString("only-tab")
			}
			if flags.Changed("start-row") {
				pp.StartRow, _ = flags.GetInt("start-row")
			}
			if flags.Changed("end-row") {
				pp.EndRow, _ = flags.GetInt("end-row")
			}
			if flags.Changed("chunk-size") {
				pp.ChunkSize, _ = flags.GetInt("chunk-size")
			}
			if flags.Changed("max-rows") {
				pp.MaxRows, _ = flags.GetInt("max-rows")
			}
			return nil
		})
		if err != nil {
			return err
		}
		defer a.Close()

		finishReport(a.engine.Postprocess(cmd.Context()))
		return nil
	},
}

func init() {
	postprocessCmd.Flags().String("only-tab", "", "process a single extract tab")
	postprocessCmd.Flags().Int("start-row", 0, "first row to process (default 2)")
	postprocessCmd.Flags().Int("end-row", 0, "exclusive end row; 0 processes to the populated end")
	postprocessCmd.Flags().Int("chunk-size", 0, "rows per read/write window (default 1000)")
	postprocessCmd.Flags().Int("max-rows", 0, "upper bound on rows when --end-row is 0 (default 10000)")
}
