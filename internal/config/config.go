// Package config loads sheetsync settings: the layout file describing the
// spreadsheets and the environment-style run parameters of one invocation.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/alfredjeanlab/sheetsync/internal/model"
	"github.com/alfredjeanlab/sheetsync/internal/retry"
)

// Backends.
const (
	BackendGoogle = "google"
	BackendXLSX   = "xlsx"
)

type Config struct {
	ConfigFile string // SHEETSYNC_CONFIG (default "config.toml")

	Backend         string // SHEETSYNC_BACKEND (default "google")
	CredentialsJSON string // GOOGLE_SERVICE_ACCOUNT_JSON (required for the google backend)
	XLSXDir         string // SHEETSYNC_XLSX_DIR (default ".")

	NATSURL     string // SHEETSYNC_NATS_URL (optional, empty = no events)
	DatabaseURL string // SHEETSYNC_DATABASE_URL (optional, empty = no run ledger)

	// Report destinations
	ReportFile       string // SHEETSYNC_REPORT_FILE (optional)
	ReportS3Bucket   string // SHEETSYNC_REPORT_S3_BUCKET (enables S3 when set)
	ReportS3Key      string // SHEETSYNC_REPORT_S3_KEY (default "sheetsync/reports/"; trailing "/" appends the run id)
	ReportS3Region   string // SHEETSYNC_REPORT_S3_REGION (default "us-east-1")
	ReportS3Endpoint string // SHEETSYNC_REPORT_S3_ENDPOINT (custom endpoint for MinIO)
	ReportGitRepo    string // SHEETSYNC_REPORT_GIT_REPO (local clone; enables git when set)
	ReportGitFile    string // SHEETSYNC_REPORT_GIT_FILE (default "sheetsync-report.jsonl")
	ReportGitBranch  string // SHEETSYNC_REPORT_GIT_BRANCH (default "main")
	ReportGitPush    bool   // SHEETSYNC_REPORT_GIT_PUSH (default true)

	Interval  time.Duration // SHEETSYNC_INTERVAL (default 1h; serve only)
	HTTPAddr  string        // SHEETSYNC_HTTP_ADDR (serve status API, empty = disabled)
	ServerURL string        // SHEETSYNC_SERVER (status API base URL for remote queries)
	AuthToken string        // SHEETSYNC_AUTH_TOKEN (optional bearer token for the status API)

	RetryAttempts int           // SHEETSYNC_RETRY_ATTEMPTS (default 3)
	RetryDelay    time.Duration // SHEETSYNC_RETRY_DELAY (default 2m)

	Run model.RunConfig
}

// LoadDotEnv loads variables from path into the environment without
// overriding ones already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load reads the run parameters from the environment. Master and freeze
// tuning left unset stay zero; File.ApplyRunDefaults fills them from the
// layout file.
func Load() (*Config, error) {
	c := &Config{
		ConfigFile:       envOrDefault("SHEETSYNC_CONFIG", "config.toml"),
		Backend:          envOrDefault("SHEETSYNC_BACKEND", BackendGoogle),
		CredentialsJSON:  os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
		XLSXDir:          envOrDefault("SHEETSYNC_XLSX_DIR", "."),
		NATSURL:          os.Getenv("SHEETSYNC_NATS_URL"),
		DatabaseURL:      os.Getenv("SHEETSYNC_DATABASE_URL"),
		ReportFile:       os.Getenv("SHEETSYNC_REPORT_FILE"),
		ReportS3Bucket:   os.Getenv("SHEETSYNC_REPORT_S3_BUCKET"),
		ReportS3Key:      envOrDefault("SHEETSYNC_REPORT_S3_KEY", "sheetsync/reports/"),
		ReportS3Region:   envOrDefault("SHEETSYNC_REPORT_S3_REGION", "us-east-1"),
		ReportS3Endpoint: os.Getenv("SHEETSYNC_REPORT_S3_ENDPOINT"),
		ReportGitRepo:    os.Getenv("SHEETSYNC_REPORT_GIT_REPO"),
		ReportGitFile:    envOrDefault("SHEETSYNC_REPORT_GIT_FILE", "sheetsync-report.jsonl"),
		ReportGitBranch:  envOrDefault("SHEETSYNC_REPORT_GIT_BRANCH", "main"),
		HTTPAddr:         os.Getenv("SHEETSYNC_HTTP_ADDR"),
		ServerURL:        os.Getenv("SHEETSYNC_SERVER"),
		AuthToken:        os.Getenv("SHEETSYNC_AUTH_TOKEN"),
	}

	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	switch c.Backend {
	case BackendGoogle, BackendXLSX:
	default:
		collect(fmt.Errorf("SHEETSYNC_BACKEND: unknown backend %q", c.Backend))
	}

	var err error
	c.Interval, err = envDuration("SHEETSYNC_INTERVAL", time.Hour)
	collect(err)
	c.RetryAttempts, err = envInt("SHEETSYNC_RETRY_ATTEMPTS", retry.DefaultAttempts)
	collect(err)
	c.RetryDelay, err = envDuration("SHEETSYNC_RETRY_DELAY", retry.DefaultDelay)
	collect(err)

	c.ReportGitPush = true
	if os.Getenv("SHEETSYNC_REPORT_GIT_PUSH") != "" {
		c.ReportGitPush, err = envBool("SHEETSYNC_REPORT_GIT_PUSH")
		collect(err)
	}

	run := &c.Run
	run.Mode, err = model.ParseRunMode(strings.ToLower(os.Getenv("SHEETSYNC_RUN_MODE")))
	collect(err)
	run.SkipExtract, err = envBool("SHEETSYNC_SKIP_EXTRACT")
	collect(err)
	run.SkipPostprocess, err = envBool("SHEETSYNC_SKIP_POSTPROCESS")
	collect(err)

	run.Postprocess.OnlyTab = os.Getenv("SHEETSYNC_POSTPROCESS_ONLY_TAB")
	run.Postprocess.MaxRows, err = envInt("SHEETSYNC_POSTPROCESS_MAX_ROWS", 10000)
	collect(err)
	run.Postprocess.ChunkSize, err = envInt("SHEETSYNC_POSTPROCESS_CHUNK_SIZE", 1000)
	collect(err)
	run.Postprocess.StartRow, err = envInt("SHEETSYNC_POSTPROCESS_START_ROW", 2)
	collect(err)
	run.Postprocess.EndRow, err = envInt("SHEETSYNC_POSTPROCESS_END_ROW", 0)
	collect(err)

	run.Master.OnlyTab = os.Getenv("SHEETSYNC_MASTER_ONLY_TAB")
	run.Master.MaxRows, err = envInt("SHEETSYNC_MASTER_MAX_ROWS", 0)
	collect(err)
	run.Master.ChunkSize, err = envInt("SHEETSYNC_MASTER_CHUNK_SIZE", 0)
	collect(err)
	run.Master.FreezeInline, err = envBool("SHEETSYNC_MASTER_FREEZE")
	collect(err)

	run.Freeze.OnlyTab = os.Getenv("SHEETSYNC_FREEZE_ONLY_TAB")
	if v := os.Getenv("SHEETSYNC_FREEZE_LAST_COL"); v != "" {
		run.Freeze.LastCol, err = model.ParseColumn(v)
		if err != nil {
			collect(fmt.Errorf("SHEETSYNC_FREEZE_LAST_COL: %w", err))
		}
	}
	run.Freeze.MaxRows, err = envInt("SHEETSYNC_FREEZE_MAX_ROWS", 0)
	collect(err)
	run.Freeze.ChunkSize, err = envInt("SHEETSYNC_FREEZE_CHUNK_SIZE", 0)
	collect(err)

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return c, nil
}

// RetryPolicy returns the retry policy configured for this run.
func (c *Config) RetryPolicy(classify func(error) retry.Class) retry.Policy {
	p := retry.New(classify)
	if c.RetryAttempts > 0 {
		p.Attempts = c.RetryAttempts
	}
	if c.RetryDelay >= 0 {
		p.Delay = c.RetryDelay
	}
	return p
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envBool(key string) (bool, error) {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch v {
	case "":
		return false, nil
	case "yes", "y", "on":
		return true, nil
	case "no", "n", "off":
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		// Plain integers are seconds.
		if n, nerr := strconv.Atoi(v); nerr == nil {
			return time.Duration(n) * time.Second, nil
		}
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
