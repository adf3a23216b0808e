package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/sheetsync/internal/model"
	sheetsync "github.com/alfredjeanlab/sheetsync/internal/sync"
	"github.com/alfredjeanlab/sheetsync/internal/ui"
)

var (
	envFile    string
	serverURL  string
	jsonOutput bool
	verbose    bool
	colorFlag  string

	logger = slog.Default()

	// exitCode is set by commands that produce a run report.
	exitCode int
)

// configError marks failures that happen before any remote call.
type configError struct{ err error }

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

var rootCmd = &cobra.Command{
	Use:           "sheetsync",
	Short:         "Sync weekly competitor exports into extract and Master tabs",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		mode, err := ui.ParseColorMode(colorFlag)
		if err != nil {
			return &configError{err}
		}
		ui.Setup(mode, os.Stdout)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the environment is read")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "status API base URL of a running `sheetsync serve` (default $SHEETSYNC_SERVER)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&colorFlag, "color", "auto", "colorize output: auto, always or never")

	rootCmd.AddGroup(
		&cobra.Group{ID: "sync", Title: "Sync Commands:"},
		&cobra.Group{ID: "inspect", Title: "Inspection Commands:"},
		&cobra.Group{ID: "system", Title: "System Commands:"},
	)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(postprocessCmd)
	rootCmd.AddCommand(freezeCmd)
	rootCmd.AddCommand(metaCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(watchCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(errorExitCode(err))
	}
	os.Exit(exitCode)
}

// errorExitCode maps a command error to the exit status a run report with
// the same failure would have produced.
func errorExitCode(err error) int {
	var ce *configError
	var ve *model.ValidationError
	if errors.As(err, &ce) || errors.As(err, &ve) || sheetsync.IsFatal(err) {
		return 2
	}
	return 1
}
