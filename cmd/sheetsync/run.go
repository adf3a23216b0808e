package main

import (
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/sheetsync/internal/model"
)

var runCmd = &cobra.Command{
	Use:     "run",
	Short:   "Refresh extract tabs and advance Master columns",
	GroupID: "sync",
	Long: `Run the sync phases selected by --mode (default both):

  extract   replace each mapping's tab with its newest source document,
            then correct the refreshed rows
  master    append the next weekly column to every Master tab

In mode both the extract phase settles before any Master tab is advanced.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), func(run *model.RunConfig) error {
			flags := cmd.Flags()
			if flags.Changed("mode") {
				v, _ := flags.GetString("mode")
				mode, err := model.ParseRunMode(v)
				if err != nil {
					return err
				}
				run.Mode = mode
			}
			if flags.Changed("skip-extract") {
				run.SkipExtract, _ = flags.GetBool("skip-extract")
			}
			if flags.Changed("skip-postprocess") {
				run.SkipPostprocess, _ = flags.GetBool("skip-postprocess")
			}
			if flags.Changed("master-tab") {
				run.Master.OnlyTab, _ = flags.GetString("master-tab")
			}
			if flags.Changed("freeze") {
				run.Master.FreezeInline, _ = flags.GetBool("freeze")
			}
			return nil
		})
		if err != nil {
			return err
		}
		defer a.Close()

		finishReport(a.engine.Run(cmd.Context()))
		return nil
	},
}

func init() {
	runCmd.Flags().String("mode", "", "phases to run: extract, master or both (default $SHEETSYNC_RUN_MODE)")
	runCmd.Flags().Bool("skip-extract", false, "skip the extract phase")
	runCmd.Flags().Bool("skip-postprocess", false, "skip row corrections after extract")
	runCmd.Flags().String("master-tab", "", "advance only this Master tab")
	runCmd.Flags().Bool("freeze", false, "freeze the pointer column while copying it")
}
