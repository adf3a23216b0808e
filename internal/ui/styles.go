package ui

import (
	"fmt"

	"github.com/alfredjeanlab/sheetsync/internal/model"
)

// ANSI256 color codes matching the Ayu palette.
const (
	colorAccent = 74  // blue
	colorMuted  = 245 // medium gray
	colorOK     = 114 // green
	colorFailed = 203 // red
	colorWarn   = 179 // amber
)

var noColor bool

func paint(code int, s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", code, s)
}

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string {
	return paint(colorAccent, s)
}

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string {
	return paint(colorMuted, s)
}

// RenderStatus returns the status name colored by outcome. Fatal failures
// are marked so they stand out from exhausted retries.
func RenderStatus(s model.Status, fatal bool) string {
	switch s {
	case model.StatusOK:
		return paint(colorOK, string(s))
	case model.StatusFailed:
		if fatal {
			return paint(colorFailed, "fatal")
		}
		return paint(colorFailed, string(s))
	case model.StatusSkipped:
		return paint(colorWarn, string(s))
	}
	return string(s)
}

// RenderExitCode colors a run's exit code.
func RenderExitCode(code int) string {
	switch code {
	case 0:
		return paint(colorOK, "0")
	case 1:
		return paint(colorWarn, "1")
	}
	return paint(colorFailed, fmt.Sprint(code))
}

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}
