// Package logging assembles structured slog loggers and formatting helpers used
// across podtenuki.
//
// It owns the console and JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so stage code tags log lines with the run
// id, stage, input file, and remote job id. A no-op logger is provided for
// tests and wiring code that cannot fail.
package logging
