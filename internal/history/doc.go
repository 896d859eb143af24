// Package history persists a record of finished transcription runs in a
// local SQLite database. Only terminal outcomes are written; in-flight state
// never touches disk.
package history
