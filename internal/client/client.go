// Package client talks to the status API of a running `sheetsync serve`.
package client

import (
	"context"
	"fmt"

	"github.com/alfredjeanlab/sheetsync/internal/model"
)

// StatusClient is the interface the CLI uses to query a running server.
type StatusClient interface {
	Health(ctx context.Context) (string, error)
	Status(ctx context.Context) (*StatusResponse, error)
	ListRuns(ctx context.Context, command string, limit int) ([]*model.RunReport, error)
	GetRun(ctx context.Context, id string) (*model.RunReport, error)
	Pointers(ctx context.Context) ([]model.MetaEntry, error)
	Close() error
}

// StatusResponse mirrors the body of GET /v1/status.
type StatusResponse struct {
	Running  bool   `json:"running"`
	LastRun  string `json:"last_run,omitempty"`
	ExitCode int    `json:"exit_code"`
	Failed   int    `json:"failed"`
}

// APIError is returned when the server responds with an error status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}
