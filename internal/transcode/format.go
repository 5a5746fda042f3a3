// Package transcode optimizes image payloads before upload: aspect-preserving
// downscale, re-encode at a target quality, and gzip for SVG. It is a pure
// bytes-in/bytes-out layer with no storage or concurrency concerns.
package transcode

import (
	"path/filepath"
	"sort"
	"strings"
)

// supportedFormats is the set of file extensions the gateway accepts.
var supportedFormats = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
	".bmp":  true,
	".tiff": true,
	".svg":  true,
}

// contentTypes maps file extensions to MIME types.
var contentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".bmp":  "image/bmp",
	".tiff": "image/tiff",
	".ico":  "image/x-icon",
}

// SupportedExtensions returns the accepted file extensions, sorted.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(supportedFormats))
	for ext := range supportedFormats {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// IsSupported reports whether the file's extension is an accepted image format.
func IsSupported(path string) bool {
	return supportedFormats[strings.ToLower(filepath.Ext(path))]
}

// ContentType returns the MIME type for the file's extension, or
// application/octet-stream for anything unrecognized.
func ContentType(path string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// SafeFilename normalizes a filename for use inside object keys and URLs:
// unsafe characters become underscores, runs collapse, and a bare name gets
// a .jpg extension.
func SafeFilename(filename string) string {
	var b strings.Builder
	for _, c := range filename {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			b.WriteRune(c)
		case c == '-' || c == '_' || c == '.':
			b.WriteRune(c)
		default:
			b.WriteRune('_')
		}
	}

	safe := b.String()
	for strings.Contains(safe, "__") {
		safe = strings.ReplaceAll(safe, "__", "_")
	}
	safe = strings.Trim(safe, "_")

	if !strings.Contains(safe, ".") {
		safe += ".jpg"
	}
	return safe
}
