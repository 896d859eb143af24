// Package merge combines ordered per-segment transcription payloads into one
// final transcript, realigning utterance timestamps onto the full source
// timeline for structured output.
package merge
