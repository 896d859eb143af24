package moco

import (
	"path/filepath"
	"strings"
)

var mimeTypes = map[string]string{
	".wav": "audio/wav",
	".mp3": "audio/mpeg",
	".m4a": "audio/mp4",
	".mp4": "audio/mp4",
}

// MimeType derives the upload content type from the file extension.
// Unrecognized extensions fall back to a generic binary type.
func MimeType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if mime, ok := mimeTypes[ext]; ok {
		return mime
	}
	return "application/octet-stream"
}
