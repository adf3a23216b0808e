package main

import (
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/sheetsync/internal/model"
)

var freezeCmd = &cobra.Command{
	Use:     "freeze",
	Short:   "Convert the last finished Master column to static values",
	GroupID: "sync",
	Long: `Freeze replaces the formulas of the column before each Master pointer
with their computed values. --last-col names the pointer explicitly and
requires --only-tab.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), func(run *model.RunConfig) error {
			flags := cmd.Flags()
			fz := &run.Freeze
			if flags.Changed("only-tab") {
				fz.OnlyTab, _ = flags.GetString("only-tab")
			}
			if flags.Changed("last-col") {
				v, _ := flags.GetString("last-col")
				col, err := model.ParseColumn(v)
				if err != nil {
					return err
				}
				fz.LastCol = col
			}
			if flags.Changed("max-rows") {
				fz.MaxRows, _ = flags.GetInt("max-rows")
			}
			if flags.Changed("chunk-size") {
				fz.ChunkSize, _ = flags.GetInt("chunk-size")
			}
			return nil
		})
		if err != nil {
			return err
		}
		defer a.Close()

		finishReport(a.engine.Freeze(cmd.Context()))
		return nil
	},
}

func init() {
	freezeCmd.Flags().String("only-tab", "", "freeze a single Master tab")
	freezeCmd.Flags().String("last-col", "", "pointer column to freeze behind, instead of Master_Meta")
	freezeCmd.Flags().Int("max-rows", 0, "rows to freeze (default the Master row limit)")
	freezeCmd.Flags().Int("chunk-size", 0, "rows per copy request (default 2000)")
}
