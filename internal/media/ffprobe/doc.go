// Package ffprobe shells out to ffprobe and exposes the container metadata
// the segmenter needs: duration, size, and stream layout.
package ffprobe
