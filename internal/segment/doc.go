// Package segment measures source audio duration and cuts long recordings
// into bounded windows suitable for one remote transcription job each.
package segment
