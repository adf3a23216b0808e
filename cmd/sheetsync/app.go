package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/alfredjeanlab/sheetsync/internal/client"
	"github.com/alfredjeanlab/sheetsync/internal/config"
	"github.com/alfredjeanlab/sheetsync/internal/events"
	"github.com/alfredjeanlab/sheetsync/internal/model"
	"github.com/alfredjeanlab/sheetsync/internal/sheets"
	"github.com/alfredjeanlab/sheetsync/internal/store"
	"github.com/alfredjeanlab/sheetsync/internal/store/postgres"
	sheetsync "github.com/alfredjeanlab/sheetsync/internal/sync"
)

// app holds the wired components of one invocation.
type app struct {
	cfg    *config.Config
	layout model.Layout
	engine *sheetsync.Engine
	ledger store.Store

	closers []func() error
}

// loadConfig loads the dotenv file and the environment.
func loadConfig() (*config.Config, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, &configError{err}
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, &configError{err}
	}
	return cfg, nil
}

// newApp loads the configuration, applies the command's flag overrides and
// wires the engine. Optional outputs (events, ledger, report destinations)
// that fail to initialize are logged and left out.
func newApp(ctx context.Context, override func(run *model.RunConfig) error) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	file, err := config.LoadFile(cfg.ConfigFile)
	if err != nil {
		return nil, &configError{err}
	}
	layout, err := file.Layout()
	if err != nil {
		return nil, &configError{err}
	}
	if override != nil {
		if err := override(&cfg.Run); err != nil {
			return nil, &configError{err}
		}
	}
	file.ApplyRunDefaults(&cfg.Run)
	if err := config.ValidateRun(cfg.Run, layout); err != nil {
		return nil, &configError{err}
	}

	sc, err := newSheetsClient(ctx, cfg, layout)
	if err != nil {
		return nil, &configError{err}
	}

	a := &app{cfg: cfg, layout: layout}

	var publisher events.Publisher = &events.LogPublisher{Logger: logger}
	if cfg.NATSURL != "" {
		pub, err := events.NewNATSPublisher(cfg.NATSURL)
		if err != nil {
			logger.Error("events disabled", "err", err)
		} else {
			publisher = pub
			a.closers = append(a.closers, pub.Close)
			logger.Debug("events enabled", "nats_url", cfg.NATSURL)
		}
	}

	if cfg.DatabaseURL != "" {
		db, err := postgres.New(cfg.DatabaseURL)
		if err != nil {
			logger.Error("run ledger disabled", "err", err)
		} else {
			a.ledger = db
			a.closers = append(a.closers, db.Close)
		}
	}

	engineCfg := sheetsync.Config{
		Client:       sc,
		Layout:       layout,
		Run:          cfg.Run,
		Retry:        cfg.RetryPolicy(sheetsync.Classify),
		Rules:        sheetsync.DefaultRules(),
		Publisher:    publisher,
		Destinations: destinations(ctx, cfg),
		Logger:       logger,
	}
	if a.ledger != nil {
		engineCfg.Store = a.ledger
	}
	a.engine = sheetsync.New(engineCfg)
	return a, nil
}

// Close releases the event connection and the ledger.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Error("close failed", "err", err)
		}
	}
}

func newSheetsClient(ctx context.Context, cfg *config.Config, layout model.Layout) (sheets.Client, error) {
	if cfg.Backend == config.BackendXLSX {
		return sheets.NewXLSXClient(cfg.XLSXDir), nil
	}
	creds, err := credentials(cfg.CredentialsJSON)
	if err != nil {
		return nil, err
	}
	return sheets.NewGoogleClient(ctx, creds, layout.DriveID)
}

// credentials accepts either the key itself or a path to the key file.
func credentials(v string) ([]byte, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, errors.New("GOOGLE_SERVICE_ACCOUNT_JSON is not set")
	}
	if strings.HasPrefix(v, "{") {
		return []byte(v), nil
	}
	data, err := os.ReadFile(v)
	if err != nil {
		return nil, fmt.Errorf("read service account key: %w", err)
	}
	return data, nil
}

func destinations(ctx context.Context, cfg *config.Config) []sheetsync.Destination {
	var dests []sheetsync.Destination
	if cfg.ReportFile != "" {
		dests = append(dests, sheetsync.NewFileDestination(cfg.ReportFile))
		logger.Debug("report file destination enabled", "path", cfg.ReportFile)
	}
	if cfg.ReportS3Bucket != "" {
		s3Dest, err := sheetsync.NewS3Destination(ctx,
			cfg.ReportS3Bucket,
			cfg.ReportS3Key,
			cfg.ReportS3Region,
			cfg.ReportS3Endpoint,
		)
		if err != nil {
			logger.Error("failed to create S3 report destination", "err", err)
		} else {
			dests = append(dests, s3Dest)
			logger.Debug("report S3 destination enabled", "bucket", cfg.ReportS3Bucket, "key", cfg.ReportS3Key)
		}
	}
	if cfg.ReportGitRepo != "" {
		dests = append(dests, sheetsync.NewGitDestination(cfg.ReportGitRepo, cfg.ReportGitFile, cfg.ReportGitBranch, cfg.ReportGitPush))
		logger.Debug("report git destination enabled", "repo", cfg.ReportGitRepo, "file", cfg.ReportGitFile)
	}
	return dests
}

// remote returns a status API client when --server or SHEETSYNC_SERVER is
// set, and nil otherwise.
func remote(cfg *config.Config) client.StatusClient {
	url := serverURL
	if url == "" {
		url = cfg.ServerURL
	}
	if url == "" {
		return nil
	}
	return client.NewHTTPClient(url, cfg.AuthToken)
}
