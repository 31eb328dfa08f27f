// Package logging constructs the slog loggers used across the daemon
// and CLI: level parsing, console or JSON output, and an optional tee
// into the configured log directory.
package logging
