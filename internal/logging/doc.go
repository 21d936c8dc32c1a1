// Package logging assembles structured slog loggers and formatting helpers used
// across orsi.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so components can tag log lines
// with the session, request, folder, and filename they act on. A no-op logger
// is provided for tests and wiring code that cannot fail.
package logging
