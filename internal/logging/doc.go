// Package logging assembles structured slog loggers and helpers used across
// reelup.
//
// It owns the console (tint) and JSON handlers, the optional per-run JSON log
// file, and context-aware helpers that tag log lines with upload IDs, source
// paths, and correlation IDs. A no-op logger is provided for tests and wiring
// code that cannot fail.
package logging
