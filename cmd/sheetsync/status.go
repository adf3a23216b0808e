package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/sheetsync/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Show the state of a running `sheetsync serve`",
	GroupID: "inspect",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		c := remote(cfg)
		if c == nil {
			return &configError{errors.New("status needs --server or SHEETSYNC_SERVER")}
		}
		defer c.Close()

		health, err := c.Health(ctx)
		if err != nil {
			return err
		}
		st, err := c.Status(ctx)
		if err != nil {
			return err
		}

		if jsonOutput {
			printJSON(st)
			return nil
		}
		fmt.Printf("Server:    %s\n", health)
		fmt.Printf("Running:   %v\n", st.Running)
		if st.LastRun == "" {
			fmt.Printf("Last run:  %s\n", ui.RenderMuted("none"))
			return nil
		}
		fmt.Printf("Last run:  %s\n", ui.RenderAccent(st.LastRun))
		fmt.Printf("Exit code: %s\n", ui.RenderExitCode(st.ExitCode))
		fmt.Printf("Failed:    %d\n", st.Failed)
		return nil
	},
}
