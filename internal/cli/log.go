// Package cli implements the cargo2hf command-line interface.
//
// This package provides the hf-export command, which extracts a Cargo
// project (and optionally its dependencies) into one Parquet table per
// phase, along with commands for inspecting exported datasets and managing
// the crates.io response cache. The CLI is built using cobra and supports
// verbose logging via the charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - hf-export: Extract a project into <output>/<phase>.parquet files
//   - inspect: Summarize the tables of an exported dataset
//   - cache: Manage the crates.io response cache
//   - completion: Generate shell completion scripts
//
// # Configuration
//
// Settings are layered by internal/config: built-in defaults, then
// cargo2hf.yaml in the user config directory, then .cargo2hf.yaml in the
// project, then CARGO2HF_* environment variables, then explicit flags.
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Logs and the
// progress bar go to stderr; status lines go to stdout.
package cli

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a new logger with timestamp formatting.
// The logger writes to w and filters messages at the specified level.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress tracks the start time of an operation and logs completion with elapsed duration.
// It is safe for sequential use by a single goroutine; concurrent calls to done will race.
type progress struct {
	logger *log.Logger
	start  time.Time
}

// newProgress creates a progress tracker that captures the current time as start.
// The returned progress should call done when the operation completes.
func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg along with the elapsed time since progress was created.
// The duration is rounded to the nearest millisecond.
// Example output: "Exported demo@0.1.0 (1.234s)"
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}
