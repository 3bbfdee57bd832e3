// Package logging holds the process-wide slog logger and the status-line
// helpers the CLI prints with.
//
// Setup is called once from the root command. With --verbose the level
// drops to debug, and with --log-json records are emitted as JSON so a
// reconciliation run can be followed by sandbox and run id:
//
//	logging.Component(nil, "reconcile").Info("applied file", "path", p, "run", id)
//
// Libraries that accept a *slog.Logger take nil to mean Logger; tests pass
// Discard.
//
// UserInfo and UserSuccess print to Stdout, UserWarning and UserError to
// Stderr, each prefixed with a status glyph (ℹ ✓ ⚠ ✗).
package logging
