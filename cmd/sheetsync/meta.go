package main

import (
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/sheetsync/internal/model"
)

var metaCmd = &cobra.Command{
	Use:     "meta",
	Short:   "Show the Master pointers stored in Master_Meta",
	GroupID: "inspect",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		var entries []model.MetaEntry
		if c := remote(cfg); c != nil {
			defer c.Close()
			entries, err = c.Pointers(ctx)
		} else {
			var a *app
			a, err = newApp(ctx, nil)
			if err != nil {
				return err
			}
			defer a.Close()
			entries, err = a.engine.Pointers(ctx)
		}
		if err != nil {
			return err
		}

		if jsonOutput {
			printJSON(entries)
		} else {
			printPointers(entries)
		}
		return nil
	},
}
