// Package transcription drives one end-to-end transcription run: it splits
// the source, submits each segment as a remote job, polls to completion,
// merges the results, and reports everything through an event stream.
package transcription
