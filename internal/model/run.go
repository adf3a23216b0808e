package model

import "fmt"

// RunMode selects which phases an invocation executes.
type RunMode string

const (
	ModeExtract RunMode = "extract"
	ModeMaster  RunMode = "master"
	ModeBoth    RunMode = "both"
)

// ParseRunMode converts a string to a RunMode. An empty string yields ModeBoth.
func ParseRunMode(s string) (RunMode, error) {
	if s == "" {
		return ModeBoth, nil
	}
	m := RunMode(s)
	if !m.IsValid() {
		return "", fmt.Errorf("invalid run mode %q (must be extract, master or both)", s)
	}
	return m, nil
}

// String returns the string representation of the mode.
func (m RunMode) String() string {
	return string(m)
}

// IsValid checks whether the mode is a known value.
func (m RunMode) IsValid() bool {
	switch m {
	case ModeExtract, ModeMaster, ModeBoth:
		return true
	}
	return false
}

// Extract reports whether the extract phase runs in this mode.
func (m RunMode) Extract() bool {
	return m == ModeExtract || m == ModeBoth
}

// Master reports whether the master phase runs in this mode.
func (m RunMode) Master() bool {
	return m == ModeMaster || m == ModeBoth
}

// PostprocessOptions tunes the row-correction pass.
type PostprocessOptions struct {
	OnlyTab   string
	MaxRows   int
	ChunkSize int
	StartRow  int
	EndRow    int // exclusive; 0 = until MaxRows or the last populated row
}

// MasterOptions tunes the Master column update.
type MasterOptions struct {
	OnlyTab      string
	MaxRows      int
	ChunkSize    int
	FreezeInline bool
}

// FreezeOptions tunes the formula-to-value freeze.
type FreezeOptions struct {
	OnlyTab   string
	LastCol   Column // overrides the stored pointer when set
	MaxRows   int
	ChunkSize int
}

// RunConfig holds the per-invocation run parameters. It is not modified after
// the run starts.
type RunConfig struct {
	Mode            RunMode
	SkipExtract     bool
	SkipPostprocess bool
	Postprocess     PostprocessOptions
	Master          MasterOptions
	Freeze          FreezeOptions
}
