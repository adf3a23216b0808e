package sync

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileDestination appends run reports to a local JSONL file.
type FileDestination struct {
	path string
}

// NewFileDestination creates a destination appending to path.
func NewFileDestination(path string) *FileDestination {
	return &FileDestination{path: path}
}

// Write appends data to the report file, creating it if needed.
func (d *FileDestination) Write(_ context.Context, _ string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(d.path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	f, err := os.OpenFile(d.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open report file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write report file: %w", err)
	}
	return f.Close()
}
