package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/sheetsync/internal/server"
	sheetsync "github.com/alfredjeanlab/sheetsync/internal/sync"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Repeat full runs on an interval and expose their status over HTTP",
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		interval := a.cfg.Interval
		if cmd.Flags().Changed("interval") {
			interval, _ = cmd.Flags().GetDuration("interval")
		}
		if interval <= 0 {
			return &configError{errors.New("serve needs a positive interval")}
		}

		status := server.NewStatusServer(a.ledger, a.engine, logger)

		var httpServer *http.Server
		if a.cfg.HTTPAddr != "" {
			httpServer = &http.Server{
				Addr:              a.cfg.HTTPAddr,
				Handler:           status.NewHTTPHandler(a.cfg.AuthToken),
				ReadHeaderTimeout: 10 * time.Second,
			}
			go func() {
				logger.Info("HTTP server listening", "addr", a.cfg.HTTPAddr)
				if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("HTTP server error", "err", err)
				}
			}()
		}

		scheduler := sheetsync.NewScheduler(status.Track(a.engine.Run), interval, logger)
		scheduler.Start(ctx)
		logger.Info("sync scheduler started", "interval", interval, "mode", a.cfg.Run.Mode)

		// Wait for SIGINT or SIGTERM.
		<-ctx.Done()
		logger.Info("received signal, shutting down")

		scheduler.Stop()
		logger.Info("sync scheduler stopped")

		if httpServer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("HTTP server shutdown error", "err", err)
			}
			logger.Info("HTTP server stopped")
		}

		logger.Info("shutdown complete")
		return nil
	},
}

func init() {
	serveCmd.Flags().Duration("interval", 0, "time between runs (default $SHEETSYNC_INTERVAL or 1h)")
}
