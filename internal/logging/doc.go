// Package logging assembles structured slog loggers and formatting helpers used
// across mediavault.
//
// It owns the console/JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so pipeline code can tag log lines with
// catalog item IDs, operations, and run correlation IDs. ProgressSampler keeps
// chunk-level progress from flooding the log. A no-op logger is provided for
// tests and wiring code that cannot fail.
package logging
