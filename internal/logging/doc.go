// Package logging configures slog handlers shared by the CLI and the
// transcription worker. It provides a console handler with aligned
// key=value output, a JSON handler for machine consumption, and small
// attribute helpers so call sites stay terse.
package logging
