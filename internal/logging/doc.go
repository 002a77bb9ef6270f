// Package logging assembles the structured slog loggers used by slidemill.
//
// It owns the console and JSON handlers, the level and output plumbing, the
// standard field keys, and context helpers that tag lines with the current
// generation run, variation, and post. A no-op logger is provided for tests
// and wiring code that cannot fail.
package logging
