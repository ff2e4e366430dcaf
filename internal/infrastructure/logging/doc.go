// Package logging provides structured logging for Doorwatch.
//
// It wraps log/slog with configuration-driven format and level selection,
// plus default service and version attributes on every record. Components
// derive their own loggers with With("component", ...).
package logging
