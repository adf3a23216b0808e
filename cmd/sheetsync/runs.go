package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/sheetsync/internal/model"
	"github.com/alfredjeanlab/sheetsync/internal/store"
	"github.com/alfredjeanlab/sheetsync/internal/store/postgres"
)

var runsCmd = &cobra.Command{
	Use:     "runs [run-id]",
	Short:   "List recorded runs, or show one with its unit results",
	GroupID: "inspect",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		command, _ := cmd.Flags().GetString("command")
		limit, _ := cmd.Flags().GetInt("limit")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		var (
			list func() ([]*model.RunReport, error)
			get  func(id string) (*model.RunReport, error)
		)
		if c := remote(cfg); c != nil {
			defer c.Close()
			list = func() ([]*model.RunReport, error) { return c.ListRuns(ctx, command, limit) }
			get = func(id string) (*model.RunReport, error) { return c.GetRun(ctx, id) }
		} else {
			if cfg.DatabaseURL == "" {
				return &configError{errors.New("no run ledger: set SHEETSYNC_DATABASE_URL or --server")}
			}
			ledger, err := postgres.New(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer ledger.Close()
			list = func() ([]*model.RunReport, error) {
				return ledger.ListRuns(ctx, store.RunFilter{Command: command, Limit: limit})
			}
			get = func(id string) (*model.RunReport, error) { return ledger.GetRun(ctx, id) }
		}

		if len(args) == 1 {
			rep, err := get(args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				printJSON(rep)
			} else {
				printReport(rep)
			}
			return nil
		}

		runs, err := list()
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(runs)
		} else {
			printRuns(runs)
		}
		return nil
	},
}

func init() {
	runsCmd.Flags().String("command", "", "only runs of this command (run, postprocess, freeze)")
	runsCmd.Flags().Int("limit", 0, "maximum number of runs (default 20)")
}
