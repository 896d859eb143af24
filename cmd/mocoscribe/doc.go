// Command mocoscribe transcribes long audio recordings through the
// MocoVoice API, splitting them into bounded segments and merging the
// per-segment results into one transcript.
package main
