package gcsuploader

import (
	"fmt"
	"path"
	"strings"
)

const scheme = "gs://"

// IsGCSURI reports whether s names a Cloud Storage object.
func IsGCSURI(s string) bool {
	return strings.HasPrefix(s, scheme)
}

// ParseURI splits "gs://bucket/path/to/object" into bucket and object name.
func ParseURI(gcsURI string) (bucket, object string, err error) {
	if !IsGCSURI(gcsURI) {
		return "", "", fmt.Errorf("invalid GCS URI: %s", gcsURI)
	}
	parts := strings.SplitN(strings.TrimPrefix(gcsURI, scheme), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", gcsURI)
	}
	return parts[0], parts[1], nil
}

// ExtractFilename returns the last path element of a gs:// URI or local path,
// e.g. "gs://bucket/exports/koinly.csv" -> "koinly.csv".
func ExtractFilename(uri string) string {
	trimmed := strings.TrimPrefix(uri, scheme)
	if IsGCSURI(uri) {
		parts := strings.SplitN(trimmed, "/", 2)
		if len(parts) < 2 {
			return trimmed
		}
		trimmed = parts[1]
	}
	return path.Base(trimmed)
}
